package auth

import "errors"

// Validation errors. The HTTP layer owns the mapping to status codes;
// nothing here leaks storage detail to clients.
var (
	// ErrMissingKey means no key was supplied at all
	ErrMissingKey = errors.New("api key required")

	// ErrInvalidKey covers unknown, expired, and suspended keys. The
	// three are deliberately indistinguishable to callers.
	ErrInvalidKey = errors.New("invalid or expired api key")

	// ErrInsufficientPrivilege means a valid key without the admin flag
	ErrInsufficientPrivilege = errors.New("admin privilege required")

	// ErrQuotaExceeded means the key ran out of daily requests
	ErrQuotaExceeded = errors.New("daily limit exceeded")
)
