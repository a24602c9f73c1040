package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	beacon "github.com/mysocial-network/beacon/engine/randomness"
	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/module/dkg"
)

// driver plays the role of the consensus layer: it runs the epoch transitions and asks every
// validator to sign the next round at a fixed interval.
type driver struct {
	log     zerolog.Logger
	params  LocalnetParams
	nodes   []*localNode
	tracker *progressTracker
}

func newDriver(log zerolog.Logger, params LocalnetParams, nodes []*localNode, tracker *progressTracker) *driver {
	return &driver{
		log:     log.With().Str("component", "driver").Logger(),
		params:  params,
		nodes:   nodes,
		tracker: tracker,
	}
}

// run drives the network from the given epoch until the round limit is reached or the context
// is cancelled. Reaching the round limit waits for every node to observe the last round.
func (d *driver) run(ctx context.Context, epoch randomness.Epoch) error {
	round, err := d.startEpoch(ctx, epoch, true)
	if err != nil {
		return ignoreCancelled(err)
	}

	ticker := time.NewTicker(d.params.RoundInterval)
	defer ticker.Stop()

	var requested uint64
	for {
		if d.params.Rounds > 0 && requested >= d.params.Rounds {
			err := d.tracker.waitFor(ctx, epoch, round-1)
			if err == nil {
				d.log.Info().Uint64("rounds", requested).Msg("round limit reached")
			}
			return ignoreCancelled(err)
		}

		if d.params.EpochRounds > 0 && uint64(round) >= d.params.EpochRounds {
			if err := d.tracker.waitFor(ctx, epoch, round-1); err != nil {
				return ignoreCancelled(err)
			}
			epoch++
			round, err = d.startEpoch(ctx, epoch, false)
			if err != nil {
				return ignoreCancelled(err)
			}
		}

		for _, n := range d.nodes {
			if err := n.handle.SendPartialSignatures(epoch, round); err != nil {
				d.log.Warn().Err(err).Str("node", string(n.name)).Uint64("round", uint64(round)).Msg("could not request round")
			}
		}
		requested++
		round++

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// startEpoch deals the keys of the epoch and switches every node to it. When recovering, each
// node resumes after the highest round it stored for the epoch. Returns the first round to
// request.
func (d *driver) startEpoch(ctx context.Context, epoch randomness.Epoch, recovering bool) (randomness.Round, error) {
	dealer := &dkg.TrustedDealer{
		Weights:   d.params.Weights,
		Threshold: d.params.Threshold,
		Seed:      []byte(fmt.Sprintf("%s/epoch/%d", d.params.Seed, epoch)),
	}
	outputs, err := dealer.Deal()
	if err != nil {
		return 0, fmt.Errorf("could not deal keys of epoch %d: %w", epoch, err)
	}

	authorities := make(randomness.AuthorityMap, len(d.nodes))
	for i, n := range d.nodes {
		authorities[n.name] = randomness.AuthorityInfo{
			PeerID:  n.host.ID(),
			PartyID: randomness.PartyID(i),
		}
	}

	next := randomness.Round(0)
	for i, n := range d.nodes {
		var recovered *randomness.Round
		if recovering {
			recovered, err = n.recoveredRound(epoch)
			if err != nil {
				return 0, fmt.Errorf("could not read recovered round of %s: %w", n.name, err)
			}
		}
		if recovered != nil {
			d.tracker.observe(i, randomness.Output{Epoch: epoch, Round: *recovered})
		}
		// the network resumes after the round every node completed
		switch {
		case i == 0 && recovered != nil:
			next = recovered.Next()
		case recovered == nil:
			next = 0
		case recovered.Next() < next:
			next = recovered.Next()
		}

		result, err := n.handle.UpdateEpoch(beacon.EpochUpdate{
			Epoch:          epoch,
			Authorities:    authorities,
			DKGOutput:      outputs[i],
			Threshold:      uint16(d.params.Threshold),
			RecoveredRound: recovered,
		})
		if err != nil {
			return 0, fmt.Errorf("could not update epoch of %s: %w", n.name, err)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case err := <-result:
			if err != nil {
				return 0, fmt.Errorf("%s rejected epoch %d: %w", n.name, epoch, err)
			}
		}

		if err := n.store.SetLatestEpoch(epoch); err != nil {
			return 0, fmt.Errorf("could not store latest epoch of %s: %w", n.name, err)
		}
		if err := n.store.RemoveEpochsBelow(epoch); err != nil {
			return 0, fmt.Errorf("could not prune rounds of %s: %w", n.name, err)
		}
	}

	d.log.Info().Uint64("epoch", uint64(epoch)).Uint64("first_round", uint64(next)).Msg("epoch started")
	return next, nil
}

func ignoreCancelled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type progressMark struct {
	epoch randomness.Epoch
	round randomness.Round
	set   bool
}

// progressTracker records the highest round observed by every node.
type progressTracker struct {
	mu       sync.Mutex
	observed []progressMark
	changed  chan struct{}
}

func newProgressTracker(nodes int) *progressTracker {
	return &progressTracker{
		observed: make([]progressMark, nodes),
		changed:  make(chan struct{}),
	}
}

func (t *progressTracker) observe(node int, out randomness.Output) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mark := t.observed[node]
	if mark.set && !mark.before(out.Epoch, out.Round) {
		return
	}
	t.observed[node] = progressMark{epoch: out.Epoch, round: out.Round, set: true}
	close(t.changed)
	t.changed = make(chan struct{})
}

func (m progressMark) before(epoch randomness.Epoch, round randomness.Round) bool {
	return m.epoch < epoch || (m.epoch == epoch && m.round < round)
}

// waitFor blocks until every node observed the given round or a later one.
func (t *progressTracker) waitFor(ctx context.Context, epoch randomness.Epoch, round randomness.Round) error {
	for {
		t.mu.Lock()
		reached := true
		for _, mark := range t.observed {
			if !mark.set || mark.before(epoch, round) {
				reached = false
				break
			}
		}
		changed := t.changed
		t.mu.Unlock()

		if reached {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}
