package network

import (
	"context"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/mysocial-network/beacon/model/randomness"
)

// RandomnessTransport delivers SendSignatures requests to a single peer of the committee.
// It is the only network I/O the random beacon depends on.
type RandomnessTransport interface {
	// SendSignatures sends the request to the given peer and waits for its response.
	// Expected errors during normal operations:
	//   - ErrPeerUnreachable if the peer could not be reached
	//   - RemoteError if the peer rejected the request; it wraps ErrTransient when the peer
	//     asked for a retry
	//   - context errors if ctx was cancelled before a response arrived
	SendSignatures(ctx context.Context, to peer.ID, req *randomness.SendSignaturesRequest) error
}

// SignaturesHandler processes inbound SendSignatures requests. The sender identity is the
// authenticated identity of the remote peer.
type SignaturesHandler interface {
	// SendSignatures handles a request received from the given peer. Errors wrapping
	// ErrTransient are reported to the peer as retryable.
	SendSignatures(ctx context.Context, from peer.ID, req *randomness.SendSignaturesRequest) error
}
