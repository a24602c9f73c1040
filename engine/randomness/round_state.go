package randomness

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/exp/slices"

	"github.com/mysocial-network/beacon/model/randomness"
)

// roundState accumulates the partial signatures of one round of the current epoch.
// It is owned by the engine's event loop.
type roundState struct {
	round randomness.Round

	// partials holds the partial signatures of every sender. A later message of the same sender
	// replaces the earlier one. Share indices of different senders are disjoint.
	partials map[peer.ID][][]byte
	// owners maps every share index to the sender that contributed it.
	owners map[int]peer.ID
	// rejected holds the senders whose shares failed verification in this round. Their later
	// messages for the round are dropped, also when they are not ignored for the epoch.
	rejected map[peer.ID]struct{}

	// aggregating is set while an aggregation of this round runs on the worker pool.
	aggregating bool
	// changed is set when the accumulated shares changed since the last aggregation attempt.
	changed bool
	// attempts counts the failed aggregations since the last new contributor. A stuck round is
	// aggregated again once a sender that has not contributed yet adds shares.
	attempts int
	stuck    bool

	firstSeen time.Time
}

func newRoundState(round randomness.Round, now time.Time) *roundState {
	return &roundState{
		round:     round,
		partials:  make(map[peer.ID][][]byte),
		owners:    make(map[int]peer.ID),
		rejected:  make(map[peer.ID]struct{}),
		firstSeen: now,
	}
}

// add stores the partial signatures of the sender with their share indices. A sender that had
// not contributed before clears the stuck flag and the attempt counter.
func (rs *roundState) add(from peer.ID, sigs [][]byte, indices []int) {
	if !rs.remove(from) && rs.stuck {
		rs.stuck = false
		rs.attempts = 0
	}
	rs.partials[from] = sigs
	for _, index := range indices {
		rs.owners[index] = from
	}
	rs.changed = true
}

// reject drops the contribution of a sender whose shares failed verification and refuses its
// later messages for the round.
func (rs *roundState) reject(from peer.ID) {
	rs.remove(from)
	rs.rejected[from] = struct{}{}
}

func (rs *roundState) isRejected(from peer.ID) bool {
	_, ok := rs.rejected[from]
	return ok
}

// remove drops the contribution of the sender. Returns true if there was one.
func (rs *roundState) remove(from peer.ID) bool {
	if _, ok := rs.partials[from]; !ok {
		return false
	}
	delete(rs.partials, from)
	for index, owner := range rs.owners {
		if owner == from {
			delete(rs.owners, index)
		}
	}
	rs.changed = true
	return true
}

// shareCount is the number of distinct share indices collected.
func (rs *roundState) shareCount() int {
	return len(rs.owners)
}

// collect returns all collected partial signatures ordered by sender, so that aggregation input
// is deterministic for a given set of contributions.
func (rs *roundState) collect() [][]byte {
	senders := make([]peer.ID, 0, len(rs.partials))
	for pid := range rs.partials {
		senders = append(senders, pid)
	}
	slices.Sort(senders)

	sigs := make([][]byte, 0, len(rs.owners))
	for _, pid := range senders {
		sigs = append(sigs, rs.partials[pid]...)
	}
	return sigs
}

// ownerOf returns the sender of the share index.
func (rs *roundState) ownerOf(index int) (peer.ID, bool) {
	pid, ok := rs.owners[index]
	return pid, ok
}
