package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/module/irrecoverable"
	"github.com/mysocial-network/beacon/module/metrics"
	"github.com/mysocial-network/beacon/storage"
)

// firstEpoch is the epoch of a network started without any stored state.
const firstEpoch = randomness.Epoch(1)

// runLocalnet starts one node per validator, drives the rounds and blocks until the round limit
// is reached, the context is cancelled or a component fails.
func runLocalnet(ctx context.Context, params LocalnetParams) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	nodes, err := createNodes(ctx, params, registry)
	defer func() {
		for _, n := range nodes {
			if n != nil {
				n.close()
			}
		}
	}()
	if err != nil {
		return err
	}

	// every node knows the address of every other node, streams are dialed on demand
	for _, n := range nodes {
		for _, other := range nodes {
			if other != n {
				n.host.Peerstore().AddAddrs(other.host.ID(), other.host.Addrs(), peerstore.PermanentAddrTTL)
			}
		}
	}

	if params.AdminAddr != "" {
		if err := nodes[0].withAdmin(params.AdminAddr, registry); err != nil {
			return err
		}
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	signalerCtx, errChan := irrecoverable.WithSignaler(runCtx)

	for _, n := range nodes {
		n.start(signalerCtx)
	}
	if params.MetricsAddr != "" {
		server := metrics.NewServer(log, params.MetricsAddr, registry)
		server.Start(signalerCtx)
		<-server.Ready()
		defer func() {
			cancelRun()
			<-server.Done()
		}()
	}

	epoch, err := latestEpoch(nodes)
	if err != nil {
		return err
	}
	log.Info().
		Int("validators", len(nodes)).
		Int("threshold", params.Threshold).
		Uint64("epoch", uint64(epoch)).
		Msg("local network started")

	tracker := newProgressTracker(len(nodes))
	d := newDriver(log, params, nodes, tracker)

	g, gctx := errgroup.WithContext(runCtx)
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			return n.consume(gctx.Done(), func(out randomness.Output) { tracker.observe(i, out) })
		})
	}
	g.Go(func() error {
		select {
		case err := <-errChan:
			return fmt.Errorf("unrecoverable error: %w", err)
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		defer cancelRun()
		return d.run(gctx, epoch)
	})

	err = g.Wait()
	cancelRun()
	if err != nil {
		return err
	}
	log.Info().Msg("local network stopped")
	return nil
}

// createNodes creates the validators concurrently. On error, the nodes created so far are
// returned so that the caller can close them.
func createNodes(ctx context.Context, params LocalnetParams, registerer prometheus.Registerer) ([]*localNode, error) {
	nodes := make([]*localNode, len(params.Weights))
	g, _ := errgroup.WithContext(ctx)
	for i := range nodes {
		i := i
		g.Go(func() error {
			n, err := newLocalNode(log, params, i, registerer)
			if err != nil {
				return fmt.Errorf("could not create node %d: %w", i, err)
			}
			nodes[i] = n
			return nil
		})
	}
	return nodes, g.Wait()
}

// latestEpoch returns the highest epoch stored by any node, or firstEpoch for a new network.
func latestEpoch(nodes []*localNode) (randomness.Epoch, error) {
	epoch := firstEpoch
	for _, n := range nodes {
		stored, err := n.store.LatestEpoch()
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("could not read latest epoch of %s: %w", n.name, err)
		}
		if stored > epoch {
			epoch = stored
		}
	}
	return epoch, nil
}
