package randomness

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gammazero/workerpool"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/module"
	"github.com/mysocial-network/beacon/module/component"
	"github.com/mysocial-network/beacon/module/irrecoverable"
	"github.com/mysocial-network/beacon/module/signature"
	"github.com/mysocial-network/beacon/network"
	"github.com/mysocial-network/beacon/network/p2p/utils"
)

// byzantineWeightTolerance absorbs rounding of the ignored weight limit.
const byzantineWeightTolerance = 1e-9

type completedKey struct {
	epoch randomness.Epoch
	round randomness.Round
}

type futureKey struct {
	epoch randomness.Epoch
	round randomness.Round
	peer  peer.ID
}

type aggregationResult struct {
	epoch randomness.Epoch
	round randomness.Round
	sig   []byte
	err   error
}

// Engine is the random beacon of a validator. Once per epoch it receives the output of the
// epoch's DKG and from then on produces one random value per requested round: it broadcasts this
// node's partial signatures of the round to the committee, collects the partial signatures of the
// other validators and combines threshold many into the full signature of the round, which is
// the source of the round's randomness.
//
// All state is owned by a single event loop that processes the commands submitted through
// Handles and the Server one at a time. Network sends and signature aggregation run
// concurrently and never block the loop.
type Engine struct {
	*component.ComponentManager
	log     zerolog.Logger
	config  Config
	name    randomness.AuthorityName
	metrics module.RandomnessMetrics
	output  chan<- randomness.Output

	mailbox   *mailbox
	allowList *allowList
	inbound   *utils.RateLimiter
	sender    *sender
	pool      *workerpool.WorkerPool
	results   chan aggregationResult
	completed *lru.Cache[completedKey, []byte]
	now       func() time.Time

	state          *epochState
	futureMessages map[futureKey]receiveSignatures
	futureRequests map[randomness.Epoch]map[randomness.Round]struct{}
	futureCount    int
}

func newEngine(
	log zerolog.Logger,
	config Config,
	name randomness.AuthorityName,
	metrics module.RandomnessMetrics,
	output chan<- randomness.Output,
	transport network.RandomnessTransport,
	mb *mailbox,
	allow *allowList,
	inbound *utils.RateLimiter,
) (*Engine, error) {
	completed, err := lru.New[completedKey, []byte](config.CompletedSignatureCacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create completed signature cache: %w", err)
	}

	log = log.With().Str("engine", "randomness").Str("authority", string(name)).Logger()
	e := &Engine{
		log:            log,
		config:         config,
		name:           name,
		metrics:        metrics,
		output:         output,
		mailbox:        mb,
		allowList:      allow,
		inbound:        inbound,
		sender:         newSender(log, transport, &config),
		pool:           workerpool.New(config.AggregationWorkers),
		results:        make(chan aggregationResult, config.AggregationWorkers),
		completed:      completed,
		now:            time.Now,
		futureMessages: make(map[futureKey]receiveSignatures),
		futureRequests: make(map[randomness.Epoch]map[randomness.Round]struct{}),
	}

	e.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(e.loop).
		AddWorker(e.cleanupLoop).
		Build()

	return e, nil
}

// loop processes commands until every handle was closed and the mailbox is drained, or the
// component is shut down.
func (e *Engine) loop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	defer e.shutdown()
	ready()

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("randomness engine stopped by shutdown")
			return
		case res := <-e.results:
			e.onAggregationResult(ctx, res)
		case cmd, ok := <-e.mailbox.queue:
			if !ok {
				e.log.Info().Msg("all randomness handles closed, engine stopped")
				return
			}
			e.process(ctx, cmd)
		}
	}
}

// cleanupLoop evicts inbound rate limiters of inactive peers while the engine runs.
func (e *Engine) cleanupLoop(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()
	cleanupCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.mailbox.stopped:
			cancel()
		case <-cleanupCtx.Done():
		}
	}()
	e.inbound.CleanupLoop(irrecoverable.WithSignalerContext(ctx, cleanupCtx))
}

// shutdown cancels all send tasks and waits for them and the aggregation workers.
func (e *Engine) shutdown() {
	e.mailbox.stop()
	if e.state != nil {
		e.state.cancel()
	}
	e.sender.wait()
	e.pool.Stop()
}

func (e *Engine) process(ctx irrecoverable.SignalerContext, cmd command) {
	switch c := cmd.(type) {
	case updateEpoch:
		e.onUpdateEpoch(ctx, c)
	case sendPartialSignatures:
		e.onSendPartialSignatures(ctx, c)
	case completeRound:
		e.onCompleteRound(ctx, c)
	case receiveSignatures:
		e.onReceiveSignatures(ctx, c)
	case maybeIgnoreByzantinePeer:
		e.onMaybeIgnoreByzantinePeer(c)
	case adminGetPartialSignatures:
		e.onAdminGetPartialSignatures(c)
	case adminInjectPartialSignatures:
		e.onAdminInjectPartialSignatures(ctx, c)
	case adminInjectFullSignature:
		e.onAdminInjectFullSignature(ctx, c)
	default:
		ctx.Throw(fmt.Errorf("unexpected randomness command %T", cmd))
	}
}

func (e *Engine) onUpdateEpoch(ctx irrecoverable.SignalerContext, c updateEpoch) {
	u := c.update
	log := e.log.With().Uint64("epoch", uint64(u.Epoch)).Logger()

	err := validateEpochUpdate(e.name, e.state, u)
	if err != nil {
		log.Error().Err(err).Msg("rejected epoch update")
		reply(c.result, err)
		return
	}
	state, err := newEpochState(ctx, e.name, u)
	if err != nil {
		log.Error().Err(err).Msg("rejected epoch update")
		reply(c.result, err)
		return
	}

	if e.state != nil {
		e.state.cancel()
	}
	e.state = state
	e.allowList.update(state.peers)

	if requested, ok := e.futureRequests[u.Epoch]; ok {
		now := e.now()
		for round := range requested {
			if !state.isCompleted(round) {
				state.requested[round] = now
			}
		}
	}
	for epoch, requested := range e.futureRequests {
		if epoch <= u.Epoch {
			e.futureCount -= len(requested)
			delete(e.futureRequests, epoch)
		}
	}

	e.metrics.Epoch(uint64(u.Epoch))
	e.metrics.RoundsPending(len(state.requested))
	if u.RecoveredRound != nil {
		e.metrics.RoundCompleted(uint64(*u.RecoveredRound))
	}

	evt := log.Info().
		Int("committee_size", len(u.Authorities)).
		Uint16("threshold", u.Threshold).
		Bool("has_dkg_output", u.DKGOutput != nil)
	if u.RecoveredRound != nil {
		evt = evt.Uint64("recovered_round", uint64(*u.RecoveredRound))
	}
	evt.Msg("randomness epoch updated")

	reply(c.result, nil)

	e.replayFutureMessages(ctx, u.Epoch)
	e.maybeStartPendingRounds(ctx)
}

func (e *Engine) onSendPartialSignatures(ctx irrecoverable.SignalerContext, c sendPartialSignatures) {
	s := e.state
	if s == nil || c.epoch > s.epoch {
		e.bufferFutureRequest(c.epoch, c.round)
		return
	}
	if c.epoch < s.epoch {
		e.log.Debug().Uint64("epoch", uint64(c.epoch)).Uint64("round", uint64(c.round)).Msg("ignoring request for stale epoch")
		return
	}
	if s.isCompleted(c.round) {
		e.log.Debug().Uint64("round", uint64(c.round)).Msg("ignoring request for completed round")
		return
	}
	if _, ok := s.requested[c.round]; !ok {
		s.requested[c.round] = e.now()
	}
	e.metrics.RoundsPending(len(s.requested))
	e.maybeStartPendingRounds(ctx)
}

// maybeStartPendingRounds starts requested rounds in increasing order as long as fewer than
// MaxInflightRounds rounds are broadcasting.
func (e *Engine) maybeStartPendingRounds(ctx irrecoverable.SignalerContext) {
	s := e.state
	if s == nil || s.signer == nil {
		return
	}
	for _, round := range s.pendingRounds() {
		if len(s.broadcasts) >= e.config.MaxInflightRounds {
			return
		}
		e.startRound(ctx, round)
	}
}

func (e *Engine) startRound(ctx irrecoverable.SignalerContext, round randomness.Round) {
	s := e.state
	log := e.log.With().Uint64("epoch", uint64(s.epoch)).Uint64("round", uint64(round)).Logger()

	roundCtx, cancel := context.WithCancel(s.ctx)
	s.broadcasts[round] = cancel
	rs := s.roundState(round, e.now())

	sigs, err := s.signer.SignPartial(s.epoch, round)
	if errors.Is(err, signature.ErrNoKeyShares) {
		log.Warn().Msg("no key shares in this epoch, not contributing partial signatures")
		return
	}
	if err != nil {
		// signing with validated key shares cannot fail
		ctx.Throw(fmt.Errorf("could not sign round %d: %w", round, err))
		return
	}

	rs.add(s.self, sigs, s.peerShares[s.self])
	e.sender.broadcast(roundCtx, s.peers, &randomness.SendSignaturesRequest{
		Epoch:       s.epoch,
		Round:       round,
		PartialSigs: sigs,
	})
	log.Debug().Int("peers", len(s.peers)).Msg("broadcasting partial signatures")

	e.maybeAggregate(round)
}

func (e *Engine) onCompleteRound(ctx irrecoverable.SignalerContext, c completeRound) {
	s := e.state
	if s == nil || c.epoch != s.epoch {
		e.log.Debug().Uint64("epoch", uint64(c.epoch)).Uint64("round", uint64(c.round)).Msg("ignoring round completion for other epoch")
		return
	}
	if s.hasCompletedThrough && c.round <= s.completedThrough {
		return
	}
	s.completedThrough = c.round
	s.hasCompletedThrough = true

	for round := range s.broadcasts {
		if round <= c.round {
			s.dropRound(round)
		}
	}
	for round := range s.rounds {
		if round <= c.round {
			s.dropRound(round)
		}
	}
	for round := range s.requested {
		if round <= c.round {
			s.dropRound(round)
		}
	}
	for round := range s.finished {
		if round <= c.round {
			delete(s.finished, round)
		}
	}

	e.metrics.RoundCompleted(uint64(c.round))
	e.metrics.RoundsPending(len(s.requested))
	e.log.Debug().Uint64("epoch", uint64(c.epoch)).Uint64("round", uint64(c.round)).Msg("rounds completed")

	e.maybeStartPendingRounds(ctx)
}

func (e *Engine) onReceiveSignatures(ctx irrecoverable.SignalerContext, c receiveSignatures) {
	s := e.state
	if s == nil || c.epoch > s.epoch {
		e.bufferFutureMessage(c)
		return
	}
	log := e.log.With().
		Str("peer_id", c.peer.String()).
		Uint64("epoch", uint64(c.epoch)).
		Uint64("round", uint64(c.round)).
		Logger()

	if c.epoch < s.epoch {
		log.Debug().Msg("dropping signatures of stale epoch")
		return
	}
	if s.signer == nil {
		log.Debug().Msg("dropping signatures, no DKG output in this epoch")
		return
	}
	if _, ok := s.byzantine[c.peer]; ok {
		log.Debug().Msg("dropping signatures of byzantine peer")
		return
	}
	owned, ok := s.peerShares[c.peer]
	if !ok || c.peer == s.self {
		log.Debug().Msg("dropping signatures of unknown peer")
		return
	}
	if s.isCompleted(c.round) {
		log.Debug().Msg("dropping signatures of completed round")
		if len(c.fullSig) == 0 {
			e.replyWithFullSignature(c.peer, c.round)
		}
		return
	}
	if s.tooFarAhead(c.round, e.config.MaxPartialSigsRoundsAhead) {
		log.Debug().Msg("dropping signatures too far ahead of the completed rounds")
		return
	}

	if len(c.fullSig) > 0 {
		if err := s.signer.Verify(s.epoch, c.round, c.fullSig); err != nil {
			log.Warn().Err(err).Msg("received invalid full signature")
			return
		}
		log.Debug().Msg("received valid full signature")
		e.completeRound(ctx, c.round, c.fullSig)
		return
	}

	if err := validatePartials(c.partialSigs, owned); err != nil {
		log.Warn().Err(err).Msg("received malformed partial signatures")
		e.ignoreByzantinePeer(c.peer)
		return
	}

	rs := s.roundState(c.round, e.now())
	if rs.isRejected(c.peer) {
		log.Debug().Msg("dropping signatures of peer that sent invalid shares for the round")
		return
	}
	rs.add(c.peer, c.partialSigs, owned)
	e.maybeAggregate(c.round)
}

// replyWithFullSignature sends the cached full signature of a completed round to a peer that is
// still sending partial signatures for it.
func (e *Engine) replyWithFullSignature(to peer.ID, round randomness.Round) {
	s := e.state
	sig, ok := e.completed.Get(completedKey{epoch: s.epoch, round: round})
	if !ok {
		return
	}
	e.sender.sendOnce(s.ctx, to, &randomness.SendSignaturesRequest{
		Epoch:   s.epoch,
		Round:   round,
		FullSig: sig,
	})
}

// maybeAggregate dispatches an aggregation of the round to the worker pool if it collected
// enough shares since the last attempt.
func (e *Engine) maybeAggregate(round randomness.Round) {
	s := e.state
	rs, ok := s.rounds[round]
	if !ok || rs.aggregating || rs.stuck || !rs.changed {
		return
	}
	if rs.shareCount() < s.threshold {
		return
	}
	rs.aggregating = true
	rs.changed = false

	signer, epoch, threshold, partials := s.signer, s.epoch, s.threshold, rs.collect()
	e.pool.Submit(func() {
		sig, err := signer.Aggregate(epoch, round, partials, threshold)
		select {
		case e.results <- aggregationResult{epoch: epoch, round: round, sig: sig, err: err}:
		case <-e.mailbox.stopped:
		}
	})
}

func (e *Engine) onAggregationResult(ctx irrecoverable.SignalerContext, res aggregationResult) {
	s := e.state
	if s == nil || res.epoch != s.epoch {
		return
	}
	rs, ok := s.rounds[res.round]
	if !ok {
		// completed while the aggregation was running
		return
	}
	rs.aggregating = false
	if res.err == nil {
		e.completeRound(ctx, res.round, res.sig)
		return
	}

	log := e.log.With().Uint64("epoch", uint64(s.epoch)).Uint64("round", uint64(res.round)).Logger()
	rs.attempts++

	if insufficient, ok := signature.IsInsufficientSharesError(res.err); ok {
		for _, index := range insufficient.Invalid {
			owner, ok := rs.ownerOf(index)
			if !ok {
				continue
			}
			if owner == s.self {
				log.Error().Int("share_index", index).Msg("own partial signature failed verification")
				continue
			}
			log.Warn().Str("peer_id", owner.String()).Int("share_index", index).Msg("peer sent invalid partial signature")
			e.ignoreByzantinePeer(owner)
			rs.reject(owner)
		}
	}
	log.Warn().Err(res.err).Int("attempt", rs.attempts).Msg("could not aggregate partial signatures")

	if rs.attempts >= e.config.MaxAggregationAttempts {
		rs.stuck = true
		e.metrics.RoundStuck(uint64(res.round))
		log.Warn().Int("shares", rs.shareCount()).Msg("round is stuck, waiting for shares of new senders")
		return
	}
	e.maybeAggregate(res.round)
}

// completeRound finishes a round with its verified full signature and delivers the round's
// randomness downstream. A round is completed at most once.
func (e *Engine) completeRound(ctx irrecoverable.SignalerContext, round randomness.Round, sig []byte) {
	s := e.state
	if s.isCompleted(round) {
		return
	}
	s.finished[round] = struct{}{}
	e.completed.Add(completedKey{epoch: s.epoch, round: round}, sig)

	now := e.now()
	if requestedAt, ok := s.requested[round]; ok {
		e.metrics.RoundGenerationLatency(now.Sub(requestedAt))
	} else if rs, ok := s.rounds[round]; ok {
		e.metrics.RoundObservationLatency(now.Sub(rs.firstSeen))
	}
	e.metrics.RoundCompleted(uint64(round))

	s.dropRound(round)
	e.metrics.RoundsPending(len(s.requested))

	e.log.Info().Uint64("epoch", uint64(s.epoch)).Uint64("round", uint64(round)).Msg("randomness round completed")
	e.emit(ctx, randomness.Output{
		Epoch: s.epoch,
		Round: round,
		Bytes: signature.RandomnessFromSignature(sig),
	})

	e.maybeStartPendingRounds(ctx)
}

// emit blocks until the consumer accepted the output or the engine shuts down.
func (e *Engine) emit(ctx irrecoverable.SignalerContext, out randomness.Output) {
	defer func() {
		if r := recover(); r != nil {
			ctx.Throw(fmt.Errorf("could not deliver randomness of round %d: %v", out.Round, r))
		}
	}()
	select {
	case e.output <- out:
	case <-ctx.Done():
	}
}

func (e *Engine) onMaybeIgnoreByzantinePeer(c maybeIgnoreByzantinePeer) {
	s := e.state
	if s == nil || c.epoch != s.epoch {
		return
	}
	e.ignoreByzantinePeer(c.peer)
}

// ignoreByzantinePeer excludes the peer for the rest of the epoch, unless the total weight of
// ignored peers would exceed MaxIgnoredPeerWeightFactor. Returns true if the peer is ignored.
func (e *Engine) ignoreByzantinePeer(pid peer.ID) bool {
	s := e.state
	if _, ok := s.byzantine[pid]; ok {
		return true
	}
	owned, ok := s.peerShares[pid]
	if !ok || pid == s.self {
		return false
	}
	log := e.log.With().Uint64("epoch", uint64(s.epoch)).Str("peer_id", pid.String()).Logger()

	limit := e.config.MaxIgnoredPeerWeightFactor * float64(s.totalShares)
	if float64(s.ignoredWeight+len(owned)) > limit+byzantineWeightTolerance {
		log.Warn().
			Int("ignored_weight", s.ignoredWeight).
			Int("peer_weight", len(owned)).
			Float64("limit", limit).
			Msg("not ignoring byzantine peer, ignored weight limit reached")
		return false
	}

	s.byzantine[pid] = struct{}{}
	s.ignoredWeight += len(owned)
	for _, rs := range s.rounds {
		rs.remove(pid)
	}
	e.metrics.ByzantinePeerIgnored()
	log.Warn().Int("ignored_weight", s.ignoredWeight).Msg("ignoring byzantine peer for the rest of the epoch")
	return true
}

func (e *Engine) onAdminGetPartialSignatures(c adminGetPartialSignatures) {
	s := e.state
	if s == nil || s.signer == nil {
		reply(c.result, partialSignaturesResult{err: ErrNoDKGOutput})
		return
	}
	sigs, err := s.signer.SignPartial(s.epoch, c.round)
	reply(c.result, partialSignaturesResult{sigs: sigs, err: err})
}

func (e *Engine) onAdminInjectPartialSignatures(ctx irrecoverable.SignalerContext, c adminInjectPartialSignatures) {
	s := e.state
	if s == nil || s.signer == nil {
		reply(c.result, ErrNoDKGOutput)
		return
	}
	info, ok := s.authorities[c.authority]
	if !ok {
		reply(c.result, fmt.Errorf("unknown authority %s: %w", c.authority, ErrInvalidSignatures))
		return
	}
	owned := s.peerShares[info.PeerID]
	if err := validatePartials(c.sigs, owned); err != nil {
		reply(c.result, fmt.Errorf("%v: %w", err, ErrInvalidSignatures))
		return
	}
	for _, sig := range c.sigs {
		if err := s.signer.VerifyPartial(s.epoch, c.round, sig); err != nil {
			reply(c.result, fmt.Errorf("%v: %w", err, ErrInvalidSignatures))
			return
		}
	}
	reply(c.result, nil)

	if s.isCompleted(c.round) {
		return
	}
	e.log.Info().Str("authority", string(c.authority)).Uint64("round", uint64(c.round)).Msg("injected partial signatures")
	rs := s.roundState(c.round, e.now())
	rs.add(info.PeerID, c.sigs, owned)
	e.maybeAggregate(c.round)
}

func (e *Engine) onAdminInjectFullSignature(ctx irrecoverable.SignalerContext, c adminInjectFullSignature) {
	s := e.state
	if s == nil || s.signer == nil {
		reply(c.result, ErrNoDKGOutput)
		return
	}
	if err := s.signer.Verify(s.epoch, c.round, c.sig); err != nil {
		reply(c.result, fmt.Errorf("%v: %w", err, ErrInvalidSignatures))
		return
	}
	reply(c.result, nil)

	e.log.Info().Uint64("round", uint64(c.round)).Msg("injected full signature")
	e.completeRound(ctx, c.round, c.sig)
}

// bufferFutureMessage keeps the first message of every (epoch, round, peer) of an epoch that
// has not started yet.
func (e *Engine) bufferFutureMessage(c receiveSignatures) {
	key := futureKey{epoch: c.epoch, round: c.round, peer: c.peer}
	if _, ok := e.futureMessages[key]; ok {
		return
	}
	if e.futureCount >= e.config.MaxFutureEpochMessages {
		e.log.Debug().Uint64("epoch", uint64(c.epoch)).Str("peer_id", c.peer.String()).Msg("future epoch buffer full, dropping signatures")
		return
	}
	e.futureMessages[key] = c
	e.futureCount++
}

func (e *Engine) bufferFutureRequest(epoch randomness.Epoch, round randomness.Round) {
	requested, ok := e.futureRequests[epoch]
	if !ok {
		requested = make(map[randomness.Round]struct{})
		e.futureRequests[epoch] = requested
	}
	if _, ok := requested[round]; ok {
		return
	}
	if e.futureCount >= e.config.MaxFutureEpochMessages {
		e.log.Debug().Uint64("epoch", uint64(epoch)).Uint64("round", uint64(round)).Msg("future epoch buffer full, dropping request")
		return
	}
	requested[round] = struct{}{}
	e.futureCount++
}

// replayFutureMessages processes the buffered messages of the new epoch and discards those of
// older epochs.
func (e *Engine) replayFutureMessages(ctx irrecoverable.SignalerContext, epoch randomness.Epoch) {
	var replay []receiveSignatures
	for key, msg := range e.futureMessages {
		if key.epoch > epoch {
			continue
		}
		if key.epoch == epoch {
			replay = append(replay, msg)
		}
		delete(e.futureMessages, key)
		e.futureCount--
	}
	sort.Slice(replay, func(i, j int) bool {
		if replay[i].round != replay[j].round {
			return replay[i].round < replay[j].round
		}
		return replay[i].peer < replay[j].peer
	})
	for _, msg := range replay {
		e.onReceiveSignatures(ctx, msg)
	}
}
