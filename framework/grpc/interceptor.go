// Package grpcinterceptor adapts the JWKS validation stack to gRPC servers.
package grpcinterceptor

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	jwksmiddleware "github.com/tokengate/go-jwks-middleware"
)

// Interceptor validates bearer tokens carried in gRPC metadata. Like the
// HTTP middleware, every authentication failure surfaces uniformly — here
// as codes.Unauthenticated with a fixed message.
type Interceptor struct {
	validator       jwksmiddleware.TokenValidator
	excludedMethods map[string]bool
	logger          jwksmiddleware.Logger
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithExcludedMethods skips validation for the given full method names
// (e.g. "/items.v1.ItemService/Health").
func WithExcludedMethods(methods ...string) Option {
	return func(i *Interceptor) {
		for _, m := range methods {
			i.excludedMethods[m] = true
		}
	}
}

// WithLogger sets the interceptor's logger.
func WithLogger(logger jwksmiddleware.Logger) Option {
	return func(i *Interceptor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New builds an Interceptor around the given validator.
func New(v jwksmiddleware.TokenValidator, opts ...Option) (*Interceptor, error) {
	if v == nil {
		return nil, errors.New("validator cannot be nil")
	}
	i := &Interceptor{
		validator:       v,
		excludedMethods: make(map[string]bool),
		logger:          &jwksmiddleware.DefaultLogger{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// TokenFromMetadata extracts the bearer token from the authorization
// metadata entry. A missing entry yields an empty token, not an error.
func TokenFromMetadata(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", nil
	}

	parts := strings.Fields(values[0])
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("authorization metadata format must be Bearer {token}")
	}
	return parts[1], nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that
// validates the token and stores the identity in the handler context.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if i.excludedMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		validatedCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(validatedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// validates the token and stores the identity in the stream context.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if i.excludedMethods[info.FullMethod] {
			return handler(srv, ss)
		}
		validatedCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: validatedCtx})
	}
}

func (i *Interceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	token, err := TokenFromMetadata(ctx)
	if err != nil {
		i.logger.Warnf("token rejected for %s: %v", method, err)
		return nil, status.Error(codes.Unauthenticated, "invalid or missing authentication token")
	}

	identity, err := i.validator.ValidateToken(ctx, token)
	if err != nil {
		i.logger.Warnf("token rejected for %s: %v", method, err)
		return nil, status.Error(codes.Unauthenticated, "invalid or missing authentication token")
	}

	return jwksmiddleware.SetIdentity(ctx, identity), nil
}

// wrappedStream overrides the stream context with the authenticated one.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *wrappedStream) Context() context.Context {
	return s.ctx
}
