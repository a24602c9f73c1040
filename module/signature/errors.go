package signature

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat      = errors.New("invalid signature format")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrInsufficientShares = errors.New("insufficient threshold signature shares")
	ErrNoKeyShares        = errors.New("no local key shares")
)

// InsufficientSharesError is returned when aggregation could not gather enough distinct,
// valid signature shares. Invalid lists the share indices whose signature failed verification,
// so the caller can attribute them to their senders.
type InsufficientSharesError struct {
	Valid    int
	Required int
	Invalid  []int
}

func (e InsufficientSharesError) Error() string {
	return fmt.Sprintf("%d valid shares out of %d required (invalid: %v)", e.Valid, e.Required, e.Invalid)
}

func (e InsufficientSharesError) Unwrap() error {
	return ErrInsufficientShares
}

// IsInsufficientSharesError returns whether err is an InsufficientSharesError and,
// if so, the error itself.
func IsInsufficientSharesError(err error) (InsufficientSharesError, bool) {
	var target InsufficientSharesError
	ok := errors.As(err, &target)
	return target, ok
}
