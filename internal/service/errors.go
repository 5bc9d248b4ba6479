package service

import "errors"

var (
	// Validation errors. Their messages are shown to the user as is.
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters long")
	ErrMissingFields    = errors.New("name and email are required")
	ErrFaceRequired     = errors.New("biometric enrollment required")

	// ErrInvalidCredentials is returned by Login for an unknown email or a bad password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNoSession is returned when no user is logged in.
	ErrNoSession = errors.New("no active session")

	// ErrDeviceNotFound is returned for an unknown device id.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrAttemptNotFound is returned for an unknown authentication attempt id.
	ErrAttemptNotFound = errors.New("authentication attempt not found")
)

// IsValidation reports whether err is a user input validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrPasswordMismatch) ||
		errors.Is(err, ErrPasswordTooShort) ||
		errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrFaceRequired)
}
