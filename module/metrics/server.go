package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mysocial-network/beacon/module/component"
	"github.com/mysocial-network/beacon/module/irrecoverable"
)

const metricsEndpoint = "/metrics"

// Server is the http server that will be serving the /metrics request for prometheus
type Server struct {
	*component.ComponentManager
	log      zerolog.Logger
	address  string
	gatherer prometheus.Gatherer
}

// NewServer creates a new server that will listen on the given address,
// and responds to only the `/metrics` endpoint
func NewServer(log zerolog.Logger, address string, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		log:      log.With().Str("component", "metrics_server").Logger(),
		address:  address,
		gatherer: gatherer,
	}
	s.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(s.serve).
		Build()
	return s
}

func (s *Server) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		ctx.Throw(fmt.Errorf("could not listen on metrics address %s: %w", s.address, err))
		return
	}

	mux := http.NewServeMux()
	mux.Handle(metricsEndpoint, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil {
			// http.ErrServerClosed is returned when Close or Shutdown is called
			// we don't consider this an error, so print this with debug level instead
			if errors.Is(err, http.ErrServerClosed) {
				s.log.Debug().Err(err).Msg("metrics server shutdown")
			} else {
				s.log.Err(err).Msg("error shutting down metrics server")
			}
		}
	}()
	s.log.Info().Str("address", listener.Addr().String()).Str("endpoint", metricsEndpoint).Msg("metrics server started")
	ready()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
