package stub

import (
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
)

// Hub connects stub networks so that they can deliver requests to each other in memory.
type Hub struct {
	mu       sync.RWMutex
	networks map[peer.ID]*Network
	// blocked holds peers whose traffic is dropped in both directions
	blocked map[peer.ID]struct{}
}

// NewNetworkHub returns a hub without any networks.
func NewNetworkHub() *Hub {
	return &Hub{
		networks: make(map[peer.ID]*Network),
		blocked:  make(map[peer.ID]struct{}),
	}
}

// GetNetwork returns the network of the given peer, or nil.
func (h *Hub) GetNetwork(pid peer.ID) *Network {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.networks[pid]
}

// Plug registers the network so other networks on the hub can reach it.
func (h *Hub) Plug(net *Network) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.networks[net.ID()] = net
}

// Unplug removes the network of the given peer.
func (h *Hub) Unplug(pid peer.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.networks, pid)
}

// Block drops all traffic from and to the given peer until Unblock is called.
func (h *Hub) Block(pid peer.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.blocked[pid] = struct{}{}
}

func (h *Hub) Unblock(pid peer.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.blocked, pid)
}

func (h *Hub) route(from, to peer.ID) (*Network, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.blocked[from]; ok {
		return nil, false
	}
	if _, ok := h.blocked[to]; ok {
		return nil, false
	}
	net, ok := h.networks[to]
	return net, ok
}
