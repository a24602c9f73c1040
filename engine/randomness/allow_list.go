package randomness

import (
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
)

// allowList is the set of peers inbound requests are accepted from. The engine replaces it on
// every epoch change, the server reads it concurrently.
type allowList struct {
	mu    sync.RWMutex
	peers map[peer.ID]struct{}
}

func newAllowList() *allowList {
	return &allowList{peers: make(map[peer.ID]struct{})}
}

func (a *allowList) update(peers []peer.ID) {
	allowed := make(map[peer.ID]struct{}, len(peers))
	for _, pid := range peers {
		allowed[pid] = struct{}{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.peers = allowed
}

func (a *allowList) contains(pid peer.ID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.peers[pid]
	return ok
}
