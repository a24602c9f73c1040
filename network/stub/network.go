package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/atomic"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/network"
)

// Network is an in-memory network of a single peer. Requests are delivered synchronously to
// the handler registered on the target peer's network, which makes engine tests fast and
// deterministic.
type Network struct {
	id  peer.ID
	hub *Hub

	mu      sync.RWMutex
	handler network.SignaturesHandler

	sent *atomic.Uint64
}

var _ network.RandomnessTransport = (*Network)(nil)

// NewNetwork creates a network for the given peer and plugs it into the hub.
func NewNetwork(id peer.ID, hub *Hub) *Network {
	net := &Network{
		id:   id,
		hub:  hub,
		sent: atomic.NewUint64(0),
	}
	hub.Plug(net)
	return net
}

func (n *Network) ID() peer.ID {
	return n.id
}

// Register sets the handler for inbound requests to this peer.
func (n *Network) Register(handler network.SignaturesHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handler = handler
}

// Sent returns the number of requests delivered by this network.
func (n *Network) Sent() uint64 {
	return n.sent.Load()
}

// SendSignatures delivers a copy of the request to the handler of the target peer.
func (n *Network) SendSignatures(ctx context.Context, to peer.ID, req *randomness.SendSignaturesRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, ok := n.hub.route(n.id, to)
	if !ok {
		return fmt.Errorf("no route from %s to %s: %w", n.id, to, network.ErrPeerUnreachable)
	}
	target.mu.RLock()
	handler := target.handler
	target.mu.RUnlock()
	if handler == nil {
		return fmt.Errorf("peer %s has no handler: %w", to, network.ErrPeerUnreachable)
	}

	n.sent.Inc()
	err := handler.SendSignatures(ctx, n.id, copyRequest(req))
	return network.NewRemoteError(to, network.StatusOf(err), errString(err))
}

func copyRequest(req *randomness.SendSignaturesRequest) *randomness.SendSignaturesRequest {
	cp := &randomness.SendSignaturesRequest{
		Epoch: req.Epoch,
		Round: req.Round,
	}
	if req.PartialSigs != nil {
		cp.PartialSigs = make([][]byte, 0, len(req.PartialSigs))
		for _, sig := range req.PartialSigs {
			cp.PartialSigs = append(cp.PartialSigs, append([]byte(nil), sig...))
		}
	}
	if req.FullSig != nil {
		cp.FullSig = append([]byte(nil), req.FullSig...)
	}
	return cp
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
