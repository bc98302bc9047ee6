package models

import "errors"

// ValidationError is returned for requests that can never succeed as sent.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

var (
	ErrMissingName      = &ValidationError{Msg: "Missing name"}
	ErrMissingType      = &ValidationError{Msg: "Missing type"}
	ErrMissingData      = &ValidationError{Msg: "Missing data"}
	ErrInvalidData      = &ValidationError{Msg: "Invalid data"}
	ErrParentNotFound   = &ValidationError{Msg: "Parent not found"}
	ErrParentNotAFolder = &ValidationError{Msg: "Parent is not a folder"}
)

var (
	ErrUnauthorized = errors.New("Unauthorized")
	ErrNotFound     = errors.New("Not found")
)

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
