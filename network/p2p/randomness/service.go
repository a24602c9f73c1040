package randomness

import (
	"fmt"
	"io"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	libp2pnet "github.com/libp2p/go-libp2p/core/network"
	"github.com/rs/zerolog"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/module/component"
	"github.com/mysocial-network/beacon/module/irrecoverable"
	"github.com/mysocial-network/beacon/network"
	"github.com/mysocial-network/beacon/network/codec"
	"github.com/mysocial-network/beacon/network/codec/cbor"
)

// Service serves inbound SendSignatures requests on a libp2p host and forwards them to the
// handler, using the authenticated remote peer of the stream as the sender.
type Service struct {
	*component.ComponentManager
	log            zerolog.Logger
	host           host.Host
	handler        network.SignaturesHandler
	codec          codec.Codec
	timeout        time.Duration
	maxMessageSize int64
}

func NewService(log zerolog.Logger, h host.Host, handler network.SignaturesHandler) *Service {
	s := &Service{
		log:            log.With().Str("component", "randomness_service").Logger(),
		host:           h,
		handler:        handler,
		codec:          cbor.NewCodec(),
		timeout:        DefaultStreamTimeout,
		maxMessageSize: DefaultMaxMessageSize,
	}
	s.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(s.serve).
		Build()
	return s
}

func (s *Service) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	s.host.SetStreamHandler(ProtocolID, func(stream libp2pnet.Stream) {
		s.handleStream(ctx, stream)
	})
	ready()

	<-ctx.Done()
	s.host.RemoveStreamHandler(ProtocolID)
}

func (s *Service) handleStream(ctx irrecoverable.SignalerContext, stream libp2pnet.Stream) {
	remote := stream.Conn().RemotePeer()
	log := s.log.With().Str("peer_id", remote.String()).Logger()

	if err := stream.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		log.Debug().Err(err).Msg("could not set stream deadline")
		_ = stream.Reset()
		return
	}

	v, err := s.codec.NewDecoder(io.LimitReader(stream, s.maxMessageSize)).Decode()
	if err != nil {
		log.Debug().Err(err).Msg("could not decode inbound request")
		_ = stream.Reset()
		return
	}
	req, ok := v.(*randomness.SendSignaturesRequest)
	if !ok {
		log.Debug().Str("type", fmt.Sprintf("%T", v)).Msg("unexpected inbound message type")
		_ = stream.Reset()
		return
	}

	err = s.handler.SendSignatures(ctx, remote, req)
	resp := &randomness.SendSignaturesResponse{Code: uint8(network.StatusOf(err))}
	if err != nil {
		resp.Error = err.Error()
		log.Debug().Err(err).
			Uint64("epoch", uint64(req.Epoch)).
			Uint64("round", uint64(req.Round)).
			Msg("inbound request not accepted")
	}

	if err := s.codec.NewEncoder(stream).Encode(resp); err != nil {
		log.Debug().Err(err).Msg("could not write response")
		_ = stream.Reset()
		return
	}
	_ = stream.Close()
}
