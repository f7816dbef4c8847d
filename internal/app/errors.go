package app

import "errors"

var (
	// ErrInvalidCredentials is shown to end users and must not enable
	// account enumeration.
	ErrInvalidCredentials = errors.New("Incorrect email address or password")

	ErrEmailAlreadyExists = errors.New("An account with this email already exists")

	ErrBookNotFound = errors.New("Book not found")
)

// ValidationError carries a human-readable message for a rejected request.
// It is raised before any storage or database mutation happens.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
