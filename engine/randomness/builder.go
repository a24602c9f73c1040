package randomness

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/module"
	"github.com/mysocial-network/beacon/module/metrics"
	"github.com/mysocial-network/beacon/network"
	"github.com/mysocial-network/beacon/network/p2p/utils"
)

// Builder assembles the randomness engine in two steps. Build creates the Server first, so it
// can be registered with the network before the transport the engine sends through exists.
type Builder struct {
	log     zerolog.Logger
	name    randomness.AuthorityName
	output  chan<- randomness.Output
	config  *Config
	metrics module.RandomnessMetrics
}

// NewBuilder creates a builder for the engine of the given authority. Completed rounds are
// delivered on output in the order they complete.
func NewBuilder(log zerolog.Logger, name randomness.AuthorityName, output chan<- randomness.Output) *Builder {
	return &Builder{
		log:     log,
		name:    name,
		output:  output,
		config:  DefaultConfig(),
		metrics: metrics.NewNoopCollector(),
	}
}

// WithConfig replaces the default config.
func (b *Builder) WithConfig(config *Config) *Builder {
	b.config = config
	return b
}

// Apply applies the options to the config.
func (b *Builder) Apply(opts ...OptionFunc) *Builder {
	for _, apply := range opts {
		apply(b.config)
	}
	return b
}

func (b *Builder) WithMetrics(metrics module.RandomnessMetrics) *Builder {
	b.metrics = metrics
	return b
}

// Unstarted is an engine whose inbound side exists but which cannot send yet.
type Unstarted struct {
	log       zerolog.Logger
	name      randomness.AuthorityName
	output    chan<- randomness.Output
	config    Config
	metrics   module.RandomnessMetrics
	mailbox   *mailbox
	allowList *allowList
	inbound   *utils.RateLimiter
}

// Build validates the config and creates the server of the engine.
func (b *Builder) Build() (*Unstarted, *Server, error) {
	if b.output == nil {
		return nil, nil, fmt.Errorf("missing randomness output channel")
	}
	if err := b.config.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid randomness config: %w", err)
	}

	u := &Unstarted{
		log:       b.log,
		name:      b.name,
		output:    b.output,
		config:    *b.config,
		metrics:   b.metrics,
		mailbox:   newMailbox(b.config.MailboxCapacity),
		allowList: newAllowList(),
		inbound:   utils.NewRateLimiter(rate.Limit(b.config.SendSignaturesRateLimit), b.config.SendSignaturesRateBurst),
	}
	server := &Server{
		log:       b.log.With().Str("component", "randomness_server").Logger(),
		mailbox:   u.mailbox,
		allowList: u.allowList,
		limiter:   u.inbound,
		maxSigs:   b.config.MaxPartialSigsPerMessage,
	}
	return u, server, nil
}

// Build creates the engine sending through the given transport and the first handle owning it.
// The engine must be started before commands are processed.
func (u *Unstarted) Build(transport network.RandomnessTransport) (*Engine, *Handle, error) {
	handle := newHandle(u.mailbox)
	if handle == nil {
		return nil, nil, ErrShutdown
	}
	e, err := newEngine(u.log, u.config, u.name, u.metrics, u.output, transport, u.mailbox, u.allowList, u.inbound)
	if err != nil {
		handle.Close()
		return nil, nil, err
	}
	return e, handle, nil
}
