package admin

import (
	"errors"
	"fmt"
)

// ErrCommandNotFound is returned when no handler is registered for the requested command.
var ErrCommandNotFound = errors.New("admin command not found")

// ErrValidatorReqDataFormat is returned when the data of an admin request does not have the
// shape the command expects, for example a number where an object is required.
var ErrValidatorReqDataFormat = NewInvalidAdminReqErrorf("invalid request format")

// InvalidAdminReqError is returned by validators when a request is rejected. Rejected requests
// are never passed to the command handler.
type InvalidAdminReqError struct {
	Err error
}

func NewInvalidAdminReqErrorf(msg string, args ...any) InvalidAdminReqError {
	return InvalidAdminReqError{
		Err: fmt.Errorf(msg, args...),
	}
}

// NewInvalidAdminReqFormatError returns an InvalidAdminReqError for request data of the wrong shape.
func NewInvalidAdminReqFormatError(msg string, args ...any) InvalidAdminReqError {
	return NewInvalidAdminReqErrorf("invalid request format: "+msg, args...)
}

// NewInvalidAdminReqParameterError returns an InvalidAdminReqError for a field with an invalid value.
func NewInvalidAdminReqParameterError(field string, msg string, actualVal any) InvalidAdminReqError {
	return NewInvalidAdminReqErrorf("invalid value for '%s': %s. Got: %v", field, msg, actualVal)
}

func IsInvalidAdminParameterError(err error) bool {
	var target InvalidAdminReqError
	return errors.As(err, &target)
}

func (err InvalidAdminReqError) Error() string {
	return err.Err.Error()
}

func (err InvalidAdminReqError) Unwrap() error {
	return err.Err
}
