package randomness

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
)

// Config holds the tunables of the random beacon. None of them can be changed at runtime.
type Config struct {
	// MailboxCapacity bounds the number of commands waiting to be processed.
	MailboxCapacity int
	// SendRateLimit is the number of outbound requests per second to a single peer. Zero
	// disables outbound rate limiting.
	SendRateLimit float64
	// SendRateBurst is the number of outbound requests to a single peer that may be sent at once.
	SendRateBurst int
	// SendSignaturesRateLimit is the number of inbound requests per second accepted from a
	// single peer. Zero disables inbound rate limiting.
	SendSignaturesRateLimit float64
	// SendSignaturesRateBurst is the inbound burst per peer.
	SendSignaturesRateBurst int
	// MaxPartialSigsPerMessage bounds the number of partial signatures in one inbound request.
	MaxPartialSigsPerMessage int
	// MaxPartialSigsRoundsAhead is how far beyond the highest completed round signatures are
	// accepted.
	MaxPartialSigsRoundsAhead uint64
	// MaxInflightRounds bounds the number of rounds broadcasting at the same time.
	MaxInflightRounds int
	// MaxFutureEpochMessages bounds the number of messages buffered for epochs not yet started.
	MaxFutureEpochMessages int
	// MaxIgnoredPeerWeightFactor is the largest share of the total key weight that may be ignored
	// as Byzantine within one epoch.
	MaxIgnoredPeerWeightFactor float64
	// MaxAggregationAttempts is the number of failed aggregations after which a round is
	// considered stuck.
	MaxAggregationAttempts int
	// AggregationWorkers is the number of goroutines aggregating signatures.
	AggregationWorkers int
	// SendRetryInitialBackoff and SendRetryMaxBackoff bound the delay between attempts of a
	// send task.
	SendRetryInitialBackoff time.Duration
	SendRetryMaxBackoff     time.Duration
	// SendTimeout bounds a single outbound request.
	SendTimeout time.Duration
	// CompletedSignatureCacheSize is the number of full signatures kept to answer lagging peers.
	CompletedSignatureCacheSize int
}

func DefaultConfig() *Config {
	return &Config{
		MailboxCapacity:             1_000_000,
		SendRateLimit:               20,
		SendRateBurst:               40,
		SendSignaturesRateLimit:     100,
		SendSignaturesRateBurst:     200,
		MaxPartialSigsPerMessage:    1_000,
		MaxPartialSigsRoundsAhead:   50,
		MaxInflightRounds:           20,
		MaxFutureEpochMessages:      10_000,
		MaxIgnoredPeerWeightFactor:  1.0 / 3.0,
		MaxAggregationAttempts:      5,
		AggregationWorkers:          4,
		SendRetryInitialBackoff:     100 * time.Millisecond,
		SendRetryMaxBackoff:         10 * time.Second,
		SendTimeout:                 10 * time.Second,
		CompletedSignatureCacheSize: 100,
	}
}

type OptionFunc func(*Config)

// WithMailboxCapacity sets the number of commands that can be queued.
func WithMailboxCapacity(capacity int) OptionFunc {
	return func(cfg *Config) {
		cfg.MailboxCapacity = capacity
	}
}

// WithSendRateLimit sets the outbound per-peer rate limit.
func WithSendRateLimit(limit float64, burst int) OptionFunc {
	return func(cfg *Config) {
		cfg.SendRateLimit = limit
		cfg.SendRateBurst = burst
	}
}

// WithSendSignaturesRateLimit sets the inbound per-peer rate limit.
func WithSendSignaturesRateLimit(limit float64, burst int) OptionFunc {
	return func(cfg *Config) {
		cfg.SendSignaturesRateLimit = limit
		cfg.SendSignaturesRateBurst = burst
	}
}

func WithMaxInflightRounds(rounds int) OptionFunc {
	return func(cfg *Config) {
		cfg.MaxInflightRounds = rounds
	}
}

func WithMaxPartialSigsRoundsAhead(rounds uint64) OptionFunc {
	return func(cfg *Config) {
		cfg.MaxPartialSigsRoundsAhead = rounds
	}
}

func WithMaxAggregationAttempts(attempts int) OptionFunc {
	return func(cfg *Config) {
		cfg.MaxAggregationAttempts = attempts
	}
}

func WithMaxFutureEpochMessages(messages int) OptionFunc {
	return func(cfg *Config) {
		cfg.MaxFutureEpochMessages = messages
	}
}

func WithMaxIgnoredPeerWeightFactor(factor float64) OptionFunc {
	return func(cfg *Config) {
		cfg.MaxIgnoredPeerWeightFactor = factor
	}
}

// WithSendRetryBackoff sets the backoff range of send tasks.
func WithSendRetryBackoff(initial, max time.Duration) OptionFunc {
	return func(cfg *Config) {
		cfg.SendRetryInitialBackoff = initial
		cfg.SendRetryMaxBackoff = max
	}
}

// Validate checks the config for values the engine cannot run with.
func (c *Config) Validate() error {
	var errs *multierror.Error
	if c.MailboxCapacity <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("mailbox capacity must be positive, got %d", c.MailboxCapacity))
	}
	if c.SendRateLimit < 0 || c.SendSignaturesRateLimit < 0 {
		errs = multierror.Append(errs, fmt.Errorf("rate limits must not be negative"))
	}
	if c.MaxPartialSigsPerMessage <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("max partial signatures per message must be positive, got %d", c.MaxPartialSigsPerMessage))
	}
	if c.MaxInflightRounds <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("max inflight rounds must be positive, got %d", c.MaxInflightRounds))
	}
	if c.MaxFutureEpochMessages < 0 {
		errs = multierror.Append(errs, fmt.Errorf("max future epoch messages must not be negative, got %d", c.MaxFutureEpochMessages))
	}
	if c.MaxIgnoredPeerWeightFactor < 0 || c.MaxIgnoredPeerWeightFactor > 1 {
		errs = multierror.Append(errs, fmt.Errorf("max ignored peer weight factor must be within [0, 1], got %f", c.MaxIgnoredPeerWeightFactor))
	}
	if c.MaxAggregationAttempts <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("max aggregation attempts must be positive, got %d", c.MaxAggregationAttempts))
	}
	if c.AggregationWorkers <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("aggregation workers must be positive, got %d", c.AggregationWorkers))
	}
	if c.SendRetryInitialBackoff <= 0 || c.SendRetryMaxBackoff < c.SendRetryInitialBackoff {
		errs = multierror.Append(errs, fmt.Errorf("invalid send retry backoff range [%s, %s]", c.SendRetryInitialBackoff, c.SendRetryMaxBackoff))
	}
	if c.SendTimeout <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("send timeout must be positive, got %s", c.SendTimeout))
	}
	if c.CompletedSignatureCacheSize <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("completed signature cache size must be positive, got %d", c.CompletedSignatureCacheSize))
	}
	return errs.ErrorOrNil()
}

// BindFlags binds the config to command line flags, using the current values as defaults.
func (c *Config) BindFlags(flags *pflag.FlagSet) {
	flags.IntVar(&c.MailboxCapacity, "randomness-mailbox-capacity", c.MailboxCapacity, "maximum number of queued randomness commands")
	flags.Float64Var(&c.SendRateLimit, "randomness-send-rate-limit", c.SendRateLimit, "outbound randomness requests per second per peer (0 to disable)")
	flags.IntVar(&c.SendRateBurst, "randomness-send-rate-burst", c.SendRateBurst, "outbound randomness request burst per peer")
	flags.Float64Var(&c.SendSignaturesRateLimit, "randomness-inbound-rate-limit", c.SendSignaturesRateLimit, "inbound randomness requests per second per peer (0 to disable)")
	flags.IntVar(&c.SendSignaturesRateBurst, "randomness-inbound-rate-burst", c.SendSignaturesRateBurst, "inbound randomness request burst per peer")
	flags.IntVar(&c.MaxPartialSigsPerMessage, "randomness-max-partial-sigs-per-message", c.MaxPartialSigsPerMessage, "maximum number of partial signatures in one inbound request")
	flags.Uint64Var(&c.MaxPartialSigsRoundsAhead, "randomness-max-rounds-ahead", c.MaxPartialSigsRoundsAhead, "how many rounds beyond the highest completed round signatures are accepted")
	flags.IntVar(&c.MaxInflightRounds, "randomness-max-inflight-rounds", c.MaxInflightRounds, "maximum number of rounds broadcasting concurrently")
	flags.IntVar(&c.MaxFutureEpochMessages, "randomness-max-future-epoch-messages", c.MaxFutureEpochMessages, "maximum number of buffered messages for future epochs")
	flags.Float64Var(&c.MaxIgnoredPeerWeightFactor, "randomness-max-ignored-peer-weight", c.MaxIgnoredPeerWeightFactor, "maximum fraction of key weight ignored as byzantine per epoch")
	flags.IntVar(&c.MaxAggregationAttempts, "randomness-max-aggregation-attempts", c.MaxAggregationAttempts, "failed aggregations after which a round is reported stuck")
	flags.IntVar(&c.AggregationWorkers, "randomness-aggregation-workers", c.AggregationWorkers, "number of signature aggregation workers")
	flags.DurationVar(&c.SendRetryInitialBackoff, "randomness-send-retry-initial-backoff", c.SendRetryInitialBackoff, "initial delay between send attempts")
	flags.DurationVar(&c.SendRetryMaxBackoff, "randomness-send-retry-max-backoff", c.SendRetryMaxBackoff, "maximum delay between send attempts")
	flags.DurationVar(&c.SendTimeout, "randomness-send-timeout", c.SendTimeout, "timeout of a single outbound request")
	flags.IntVar(&c.CompletedSignatureCacheSize, "randomness-completed-cache-size", c.CompletedSignatureCacheSize, "number of full signatures cached for lagging peers")
}
