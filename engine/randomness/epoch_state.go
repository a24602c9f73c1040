package randomness

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/exp/slices"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/module/signature"
)

// epochState is everything the engine knows about the current epoch. It is replaced as a whole
// on an epoch change and owned by the event loop.
type epochState struct {
	epoch       randomness.Epoch
	authorities randomness.AuthorityMap
	threshold   int
	// signer is nil if the epoch has no DKG output.
	signer      *signature.ThresholdSigner
	totalShares int
	self        peer.ID
	// peerShares holds the share indices owned by every committee member, in increasing order.
	peerShares map[peer.ID][]int
	// peers are the committee members other than this node, in a fixed order.
	peers []peer.ID

	// ctx is the parent of all send tasks of the epoch.
	ctx    context.Context
	cancel context.CancelFunc

	// all rounds up to and including completedThrough are complete
	completedThrough    randomness.Round
	hasCompletedThrough bool
	// finished holds rounds beyond completedThrough whose full signature is known.
	finished map[randomness.Round]struct{}

	// requested holds the rounds requested locally and not yet complete, with the request time.
	requested map[randomness.Round]time.Time
	// broadcasts holds the cancel func of the send tasks of every started round.
	broadcasts map[randomness.Round]context.CancelFunc
	rounds     map[randomness.Round]*roundState

	byzantine     map[peer.ID]struct{}
	ignoredWeight int
}

// validateEpochUpdate checks an epoch update against the engine's own identity.
func validateEpochUpdate(name randomness.AuthorityName, current *epochState, u EpochUpdate) error {
	var errs *multierror.Error
	if current != nil && u.Epoch <= current.epoch {
		errs = multierror.Append(errs, fmt.Errorf("epoch %d is not newer than the current epoch %d", u.Epoch, current.epoch))
	}
	if _, ok := u.Authorities[name]; !ok {
		errs = multierror.Append(errs, fmt.Errorf("own authority %s is missing from the committee", name))
	}

	seen := make(map[peer.ID]randomness.AuthorityName, len(u.Authorities))
	for authority, info := range u.Authorities {
		if other, ok := seen[info.PeerID]; ok {
			errs = multierror.Append(errs, fmt.Errorf("authorities %s and %s share peer %s", authority, other, info.PeerID))
		}
		seen[info.PeerID] = authority
	}

	if u.DKGOutput != nil {
		if u.Threshold == 0 || int(u.Threshold) > u.DKGOutput.TotalShares {
			errs = multierror.Append(errs, fmt.Errorf("threshold %d out of range for %d shares", u.Threshold, u.DKGOutput.TotalShares))
		}
		for authority, info := range u.Authorities {
			if len(u.DKGOutput.SharesOf(info.PartyID)) == 0 {
				errs = multierror.Append(errs, fmt.Errorf("party %d of authority %s owns no shares", info.PartyID, authority))
			}
		}
		if err := u.DKGOutput.Validate(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return InvalidEpochUpdateError{err: err}
	}
	return nil
}

// newEpochState builds the state of a validated epoch update.
func newEpochState(parent context.Context, name randomness.AuthorityName, u EpochUpdate) (*epochState, error) {
	s := &epochState{
		epoch:       u.Epoch,
		authorities: u.Authorities,
		threshold:   int(u.Threshold),
		self:        u.Authorities[name].PeerID,
		peerShares:  make(map[peer.ID][]int, len(u.Authorities)),
		peers:       make([]peer.ID, 0, len(u.Authorities)),
		finished:    make(map[randomness.Round]struct{}),
		requested:   make(map[randomness.Round]time.Time),
		broadcasts:  make(map[randomness.Round]context.CancelFunc),
		rounds:      make(map[randomness.Round]*roundState),
		byzantine:   make(map[peer.ID]struct{}),
	}
	if u.RecoveredRound != nil {
		s.completedThrough = *u.RecoveredRound
		s.hasCompletedThrough = true
	}

	if u.DKGOutput != nil {
		signer, err := signature.NewThresholdSigner(u.DKGOutput)
		if err != nil {
			return nil, NewInvalidEpochUpdateErrorf("could not create threshold signer: %w", err)
		}
		s.signer = signer
		s.totalShares = u.DKGOutput.TotalShares
		for _, info := range u.Authorities {
			s.peerShares[info.PeerID] = u.DKGOutput.SharesOf(info.PartyID)
		}
	}

	for _, info := range u.Authorities {
		if info.PeerID != s.self {
			s.peers = append(s.peers, info.PeerID)
		}
	}
	slices.Sort(s.peers)

	s.ctx, s.cancel = context.WithCancel(parent)
	return s, nil
}

func (s *epochState) isCompleted(round randomness.Round) bool {
	if s.hasCompletedThrough && round <= s.completedThrough {
		return true
	}
	_, ok := s.finished[round]
	return ok
}

// tooFarAhead returns true if the round is beyond the window of rounds signatures are accepted for.
func (s *epochState) tooFarAhead(round randomness.Round, window uint64) bool {
	var base uint64
	if s.hasCompletedThrough {
		base = uint64(s.completedThrough)
	}
	return uint64(round) > base+window
}

func (s *epochState) roundState(round randomness.Round, now time.Time) *roundState {
	rs, ok := s.rounds[round]
	if !ok {
		rs = newRoundState(round, now)
		s.rounds[round] = rs
	}
	return rs
}

// dropRound cancels the send tasks and drops all state of the round.
func (s *epochState) dropRound(round randomness.Round) {
	if cancel, ok := s.broadcasts[round]; ok {
		cancel()
		delete(s.broadcasts, round)
	}
	delete(s.rounds, round)
	delete(s.requested, round)
}

// pendingRounds returns the requested rounds that have not been started, in increasing order.
func (s *epochState) pendingRounds() []randomness.Round {
	pending := make([]randomness.Round, 0, len(s.requested))
	for round := range s.requested {
		if _, started := s.broadcasts[round]; !started {
			pending = append(pending, round)
		}
	}
	slices.Sort(pending)
	return pending
}

// validatePartials checks that the partial signatures carry exactly the share indices owned by
// the sender, in increasing order.
func validatePartials(sigs [][]byte, owned []int) error {
	if len(sigs) != len(owned) {
		return fmt.Errorf("expected %d partial signatures, got %d", len(owned), len(sigs))
	}
	for i, raw := range sigs {
		index, err := signature.ShareIndex(raw)
		if err != nil {
			return fmt.Errorf("partial signature %d: %w", i, err)
		}
		if index != owned[i] {
			return fmt.Errorf("partial signature %d carries share index %d, expected %d", i, index, owned[i])
		}
	}
	return nil
}
