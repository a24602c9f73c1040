package randomness

import (
	"errors"
	"fmt"

	"github.com/mysocial-network/beacon/network"
)

var (
	// ErrMailboxFull is returned when a command could not be enqueued because the mailbox is at
	// capacity. Under correct operation this indicates a caller that outpaces the engine.
	ErrMailboxFull = errors.New("randomness mailbox is full")

	// ErrShutdown is returned when the engine no longer accepts commands.
	ErrShutdown = errors.New("randomness engine is shut down")

	// ErrNoDKGOutput is returned for operations that require key material when the current
	// epoch has no DKG output.
	ErrNoDKGOutput = errors.New("no DKG output for the current epoch")

	// ErrInvalidSignatures is returned when injected signatures fail validation.
	ErrInvalidSignatures = errors.New("invalid signatures")
)

// Errors returned by the Server to remote peers. Errors wrapping network.ErrTransient signal the
// peer that it should retry later.
var (
	ErrMissingPeerID      = errors.New("request without peer identity")
	ErrRequestTooLarge    = fmt.Errorf("request carries too many partial signatures: %w", network.ErrTransient)
	ErrPeerNotAllowed     = fmt.Errorf("peer is not a member of the current committee: %w", network.ErrTransient)
	ErrRateLimited        = fmt.Errorf("rate limited: %w", network.ErrTransient)
	ErrServiceUnavailable = fmt.Errorf("randomness service unavailable: %w", network.ErrTransient)
)

// InvalidEpochUpdateError is returned when an epoch update is rejected. The engine state is
// left unchanged.
type InvalidEpochUpdateError struct {
	err error
}

func NewInvalidEpochUpdateErrorf(msg string, args ...interface{}) error {
	return InvalidEpochUpdateError{err: fmt.Errorf(msg, args...)}
}

func (e InvalidEpochUpdateError) Error() string {
	return fmt.Sprintf("invalid epoch update: %v", e.err)
}

func (e InvalidEpochUpdateError) Unwrap() error {
	return e.err
}

// IsInvalidEpochUpdateError returns whether err is an InvalidEpochUpdateError.
func IsInvalidEpochUpdateError(err error) bool {
	var e InvalidEpochUpdateError
	return errors.As(err, &e)
}
