package domain

import "errors"

var (
	// ErrInvalidCredentials is returned when no stored record matches the
	// supplied email, password, and (when checked) role.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail is returned on registration with a known email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrPermissionDenied is returned when the caller's role does not allow
	// the operation, or when a quiz is edited by a non-author.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound is returned when a referenced user or quiz does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is wrapped with detail by write-path validation.
	ErrValidation = errors.New("validation failed")
	// ErrNoQuestions guards scoring against a zero-question quiz.
	ErrNoQuestions = errors.New("quiz has no questions")
)

// ProviderError wraps a failure from the external identity provider.
// The provider's message is surfaced unchanged to the caller.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return "identity provider " + e.Op + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }
