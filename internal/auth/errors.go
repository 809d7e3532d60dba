package auth

import "errors"

var (
	// ErrHashing is a digest computation or parsing fault. Always a server fault.
	ErrHashing = errors.New("password hashing failed")

	ErrMalformed        = errors.New("token malformed")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
	// ErrIssuanceFailed is returned by Issue only.
	ErrIssuanceFailed = errors.New("token issuance failed")

	// ErrMissingCredentials means the request carried no usable bearer token.
	ErrMissingCredentials = errors.New("missing bearer credentials")
	// ErrRevoked is returned by a Denylist for tokens it rejects.
	ErrRevoked = errors.New("token revoked")
)

// IsRejection reports whether err should be answered with a plain 401.
func IsRejection(err error) bool {
	return errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrSignatureInvalid) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrRevoked)
}

// failureClass is the log label for a rejection; it never carries token data.
func failureClass(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	default:
		return "internal"
	}
}
