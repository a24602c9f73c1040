package codec

import (
	"errors"
	"fmt"
)

// ErrInvalidEncoding is returned when an envelope is structurally invalid.
var ErrInvalidEncoding = errors.New("invalid encoding")

// ErrUnknownMsgCode indicates that the code byte of an envelope is unknown.
type ErrUnknownMsgCode struct {
	code uint8
}

func (e ErrUnknownMsgCode) Error() string {
	return fmt.Sprintf("unknown message code: %d", e.code)
}

func NewUnknownMsgCodeErr(code uint8) ErrUnknownMsgCode {
	return ErrUnknownMsgCode{code}
}

func IsErrUnknownMsgCode(err error) bool {
	var e ErrUnknownMsgCode
	return errors.As(err, &e)
}

// ErrMsgUnmarshal indicates that the payload of an envelope does not match its code.
type ErrMsgUnmarshal struct {
	code    uint8
	msgType string
	err     error
}

func (e ErrMsgUnmarshal) Error() string {
	return fmt.Sprintf("could not unmarshal payload of %s (code %d): %v", e.msgType, e.code, e.err)
}

func (e ErrMsgUnmarshal) Unwrap() error {
	return e.err
}

func NewMsgUnmarshalErr(code uint8, msgType string, err error) ErrMsgUnmarshal {
	return ErrMsgUnmarshal{code: code, msgType: msgType, err: err}
}

func IsErrMsgUnmarshal(err error) bool {
	var e ErrMsgUnmarshal
	return errors.As(err, &e)
}
