package validator

import (
	"errors"
	"strings"
)

const (
	// maxTokenSize caps the raw token length before any parsing happens.
	// Valid JWTs rarely exceed a few KB.
	maxTokenSize = 1 * 1024 * 1024

	// compactSegmentDots is the dot count of the JWS compact serialization
	// (header.payload.signature). Only this form is accepted.
	compactSegmentDots = 2
)

var (
	errTokenEmpty    = errors.New("token is empty")
	errTokenTooLarge = errors.New("token exceeds maximum size")
	errTokenSegments = errors.New("token does not have the header.payload.signature structure")
)

// checkTokenFormat rejects structurally hopeless input before it reaches the
// JOSE parser. Oversized tokens and wrong segment counts never get further.
func checkTokenFormat(token string) error {
	if len(token) == 0 {
		return errTokenEmpty
	}
	if len(token) > maxTokenSize {
		return errTokenTooLarge
	}
	if strings.Count(token, ".") != compactSegmentDots {
		return errTokenSegments
	}
	return nil
}
