package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v2"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/multiformats/go-multiaddr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.dedis.ch/kyber/v4/xof/blake2xb"

	"github.com/mysocial-network/beacon/admin"
	"github.com/mysocial-network/beacon/admin/commands"
	admincommands "github.com/mysocial-network/beacon/admin/commands/randomness"
	beacon "github.com/mysocial-network/beacon/engine/randomness"
	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/module/irrecoverable"
	"github.com/mysocial-network/beacon/module/metrics"
	p2prandomness "github.com/mysocial-network/beacon/network/p2p/randomness"
	"github.com/mysocial-network/beacon/storage"
	storagebadger "github.com/mysocial-network/beacon/storage/badger"
)

// localNode is one validator of the local network: a libp2p host, the beacon engine with its
// inbound service and the store of completed rounds.
type localNode struct {
	log     zerolog.Logger
	index   int
	name    randomness.AuthorityName
	host    host.Host
	db      *badger.DB
	store   *storagebadger.CompletedRounds
	output  chan randomness.Output
	engine  *beacon.Engine
	handle  *beacon.Handle
	service *p2prandomness.Service
	admin   *admin.CommandRunner
	started bool
}

func authorityName(index int) randomness.AuthorityName {
	return randomness.AuthorityName(fmt.Sprintf("validator-%d", index))
}

// identityKey derives the libp2p identity of a validator from the network seed, so that a
// restarted network keeps its peer IDs.
func identityKey(seed string, index int) (crypto.PrivKey, error) {
	source := blake2xb.New([]byte(fmt.Sprintf("%s/identity/%d", seed, index)))
	priv, _, err := crypto.GenerateEd25519Key(source)
	if err != nil {
		return nil, fmt.Errorf("could not generate identity key: %w", err)
	}
	return priv, nil
}

// newLocalNode opens the node's database and host and builds its engine. The node must be
// started before it processes any command.
func newLocalNode(log zerolog.Logger, params LocalnetParams, index int, registerer prometheus.Registerer) (*localNode, error) {
	name := authorityName(index)
	n := &localNode{
		log:    log.With().Str("node", string(name)).Logger(),
		index:  index,
		name:   name,
		output: make(chan randomness.Output, 16),
	}

	db, err := badger.Open(badger.DefaultOptions(filepath.Join(params.DataDir, string(name))).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	n.db = db
	n.store, err = storagebadger.NewCompletedRounds(db, storagebadger.DefaultCacheSize)
	if err != nil {
		n.close()
		return nil, err
	}

	priv, err := identityKey(params.Seed, index)
	if err != nil {
		n.close()
		return nil, err
	}
	port := 0
	if params.BasePort != 0 {
		port = params.BasePort + index
	}
	listen, err := multiaddr.NewMultiaddr(fmt.Sprintf("/ip4/127.0.0.1/tcp/%d", port))
	if err != nil {
		n.close()
		return nil, fmt.Errorf("invalid listen address: %w", err)
	}
	n.host, err = libp2p.New(libp2p.Identity(priv), libp2p.ListenAddrs(listen))
	if err != nil {
		n.close()
		return nil, fmt.Errorf("could not create host: %w", err)
	}

	config := *params.Engine
	collector := metrics.NewRandomnessCollector(prometheus.WrapRegistererWith(prometheus.Labels{"node": string(name)}, registerer))
	unstarted, server, err := beacon.NewBuilder(n.log, name, n.output).
		WithConfig(&config).
		WithMetrics(collector).
		Build()
	if err != nil {
		n.close()
		return nil, fmt.Errorf("could not build beacon: %w", err)
	}
	n.service = p2prandomness.NewService(n.log, n.host, server)
	n.engine, n.handle, err = unstarted.Build(p2prandomness.NewClient(n.log, n.host))
	if err != nil {
		n.close()
		return nil, fmt.Errorf("could not build beacon: %w", err)
	}
	return n, nil
}

// withAdmin adds an admin command runner serving the randomness commands of this node.
func (n *localNode) withAdmin(address string, registerer prometheus.Registerer) error {
	bootstrapper := admin.NewCommandRunnerBootstrapper()
	for name, command := range map[string]commands.AdminCommand{
		admincommands.GetPartialSignaturesCommandName:    admincommands.NewGetPartialSignaturesCommand(n.handle),
		admincommands.InjectPartialSignaturesCommandName: admincommands.NewInjectPartialSignaturesCommand(n.handle),
		admincommands.InjectFullSignatureCommandName:     admincommands.NewInjectFullSignatureCommand(n.handle),
	} {
		if !commands.Register(bootstrapper, name, command) {
			return fmt.Errorf("admin command %s registered twice", name)
		}
	}
	collector := metrics.NewAdminCollector(prometheus.WrapRegistererWith(prometheus.Labels{"node": string(n.name)}, registerer))
	n.admin = bootstrapper.Bootstrap(n.log, address, admin.WithMetrics(collector))
	return nil
}

// start starts the node's components and waits until they are ready.
func (n *localNode) start(ctx irrecoverable.SignalerContext) {
	n.started = true
	n.engine.Start(ctx)
	n.service.Start(ctx)
	<-n.engine.Ready()
	<-n.service.Ready()
	if n.admin != nil {
		n.admin.Start(ctx)
		<-n.admin.Ready()
	}
}

// recoveredRound returns the highest round of the epoch stored before a restart, if any.
func (n *localNode) recoveredRound(epoch randomness.Epoch) (*randomness.Round, error) {
	round, err := n.store.HighestRound(epoch)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// consume persists every output of the engine and reports it to the engine as complete, until
// the output channel is closed or done is closed.
func (n *localNode) consume(done <-chan struct{}, observed func(randomness.Output)) error {
	for {
		select {
		case <-done:
			return nil
		case out := <-n.output:
			if err := n.store.Store(out.Epoch, out.Round, out.Bytes); err != nil {
				return fmt.Errorf("could not store round %d of epoch %d: %w", out.Round, out.Epoch, err)
			}
			if err := n.handle.CompleteRound(out.Epoch, out.Round); err != nil && !errors.Is(err, beacon.ErrShutdown) {
				n.log.Warn().Err(err).Uint64("round", uint64(out.Round)).Msg("could not report completed round")
			}
			n.log.Info().
				Uint64("epoch", uint64(out.Epoch)).
				Uint64("round", uint64(out.Round)).
				Str("randomness", hex.EncodeToString(out.Bytes)).
				Msg("round completed")
			observed(out)
		}
	}
}

// close releases the engine and waits for the started components to stop, then closes the host
// and the database. It must be called after the components' context was cancelled.
func (n *localNode) close() {
	if n.handle != nil {
		n.handle.Close()
	}
	if n.started {
		<-n.engine.Done()
		<-n.service.Done()
		if n.admin != nil {
			<-n.admin.Done()
		}
	}
	if n.host != nil {
		if err := n.host.Close(); err != nil {
			n.log.Warn().Err(err).Msg("could not close host")
		}
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.log.Warn().Err(err).Msg("could not close database")
		}
	}
}
