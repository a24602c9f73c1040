package network

import (
	"errors"
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"
)

var (
	// ErrTransient marks failures the remote peer may recover from, such as rate limiting or an
	// unavailable service. Senders are expected to retry.
	ErrTransient = errors.New("transient failure")

	// ErrPeerUnreachable is returned when no connection to the target peer could be established.
	ErrPeerUnreachable = errors.New("peer unreachable")
)

// Status is the result code of a request, as reported by the remote peer.
type Status uint8

const (
	StatusOK Status = iota
	StatusUnavailable
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnavailable:
		return "unavailable"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// StatusOf classifies a local handler error for the response to the remote peer.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrTransient):
		return StatusUnavailable
	default:
		return StatusRejected
	}
}

// RemoteError is an error reported by the remote peer in its response.
type RemoteError struct {
	Peer    peer.ID
	Status  Status
	Message string
}

func (e RemoteError) Error() string {
	return fmt.Sprintf("peer %s responded %s: %s", e.Peer, e.Status, e.Message)
}

// Unwrap allows callers to detect transient remote failures with errors.Is(err, ErrTransient).
func (e RemoteError) Unwrap() error {
	if e.Status == StatusUnavailable {
		return ErrTransient
	}
	return nil
}

// NewRemoteError returns the error reported by peer with the given status, or nil for StatusOK.
func NewRemoteError(pid peer.ID, status Status, message string) error {
	if status == StatusOK {
		return nil
	}
	return RemoteError{Peer: pid, Status: status, Message: message}
}

// IsRemoteError returns whether err was reported by a remote peer.
func IsRemoteError(err error) bool {
	var e RemoteError
	return errors.As(err, &e)
}
