package randomness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/network"
	"github.com/mysocial-network/beacon/network/p2p/utils"
)

const sendRetryJitterPercent = 10

// sender runs the outbound send tasks of the engine. Each task delivers one request to one
// peer and is cancelled through its context. The engine waits for all tasks when it stops.
type sender struct {
	log            zerolog.Logger
	transport      network.RandomnessTransport
	limiter        *utils.RateLimiter
	initialBackoff time.Duration
	maxBackoff     time.Duration
	timeout        time.Duration

	wg sync.WaitGroup
}

func newSender(log zerolog.Logger, transport network.RandomnessTransport, config *Config) *sender {
	return &sender{
		log:            log,
		transport:      transport,
		limiter:        utils.NewRateLimiter(rate.Limit(config.SendRateLimit), config.SendRateBurst),
		initialBackoff: config.SendRetryInitialBackoff,
		maxBackoff:     config.SendRetryMaxBackoff,
		timeout:        config.SendTimeout,
	}
}

// broadcast starts one send task per peer. The tasks retry until they succeed or ctx is cancelled.
func (s *sender) broadcast(ctx context.Context, peers []peer.ID, req *randomness.SendSignaturesRequest) {
	for _, pid := range peers {
		s.wg.Add(1)
		go func(pid peer.ID) {
			defer s.wg.Done()
			s.sendWithRetry(ctx, pid, req)
		}(pid)
	}
}

// sendOnce starts a task that makes a single attempt to deliver the request.
func (s *sender) sendOnce(ctx context.Context, to peer.ID, req *randomness.SendSignaturesRequest) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.send(ctx, to, req); err != nil && ctx.Err() == nil {
			s.log.Debug().Err(err).
				Str("peer_id", to.String()).
				Uint64("round", uint64(req.Round)).
				Msg("could not send full signature")
		}
	}()
}

func (s *sender) sendWithRetry(ctx context.Context, to peer.ID, req *randomness.SendSignaturesRequest) {
	log := s.log.With().
		Str("peer_id", to.String()).
		Uint64("epoch", uint64(req.Epoch)).
		Uint64("round", uint64(req.Round)).
		Logger()

	backoff := retry.NewExponential(s.initialBackoff)
	backoff = retry.WithCappedDuration(s.maxBackoff, backoff)
	backoff = retry.WithJitterPercent(sendRetryJitterPercent, backoff)

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := s.send(ctx, to, req)
		if err != nil {
			log.Debug().Err(err).Int("attempt", attempts).Msg("could not send partial signatures, retrying")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		log.Warn().Err(err).Int("attempts", attempts).Msg("gave up sending partial signatures")
	}
}

func (s *sender) send(ctx context.Context, to peer.ID, req *randomness.SendSignaturesRequest) error {
	if err := s.limiter.Wait(ctx, to); err != nil {
		return fmt.Errorf("rate limit wait aborted: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.transport.SendSignatures(ctx, to, req)
}

// wait blocks until all send tasks returned. Callers must cancel the task contexts first.
func (s *sender) wait() {
	s.wg.Wait()
}
