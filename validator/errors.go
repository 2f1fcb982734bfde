package validator

import (
	"errors"
	"fmt"
)

// ErrTokenInvalid is the blanket sentinel every *AuthError matches via
// errors.Is. Callers that only need accept/reject semantics check against
// this; the Category exists for logs and metrics.
var ErrTokenInvalid = errors.New("token invalid")

// Category classifies an authentication failure. The HTTP layer does not
// branch on it beyond logging: all rejections surface uniformly as 401 so
// the internal failure mode is never leaked to clients.
type Category string

const (
	CategoryMissingToken        Category = "missing_token"
	CategoryMalformedToken      Category = "malformed_token"
	CategoryKeyResolutionFailed Category = "key_resolution_failed"
	CategorySignatureInvalid    Category = "signature_invalid"
	CategoryClaimRejected       Category = "claim_rejected"
	CategoryUpstreamUnavailable Category = "upstream_unavailable"
)

// ClaimRejection identifies which registered claim check failed.
type ClaimRejection string

const (
	RejectionExpired          ClaimRejection = "expired"
	RejectionNotYetValid      ClaimRejection = "not_yet_valid"
	RejectionAudienceMismatch ClaimRejection = "audience_mismatch"
	RejectionIssuerMismatch   ClaimRejection = "issuer_mismatch"
)

// AuthError is the one failure value that crosses the validation boundary.
// No other error escapes ValidateToken.
type AuthError struct {
	// Category is the failure taxonomy entry.
	Category Category

	// Rejection is set only when Category is CategoryClaimRejected.
	Rejection ClaimRejection

	// Message is a human-readable description for operators.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is allows any AuthError to match ErrTokenInvalid.
func (e *AuthError) Is(target error) bool {
	return target == ErrTokenInvalid
}

// CategoryOf extracts the failure category from err, or an empty Category
// when err did not originate from this package.
func CategoryOf(err error) Category {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Category
	}
	return ""
}

// NewAuthError builds an AuthError for the given category. Transport
// adapters use it to report pre-validation failures (for example a mangled
// Authorization header) in the same taxonomy.
func NewAuthError(category Category, message string, err error) *AuthError {
	return &AuthError{Category: category, Message: message, Err: err}
}

func newClaimError(rejection ClaimRejection, message string) *AuthError {
	return &AuthError{
		Category:  CategoryClaimRejected,
		Rejection: rejection,
		Message:   message,
	}
}
