package randomness

import (
	"context"
	"errors"
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/network"
	"github.com/mysocial-network/beacon/network/p2p/utils"
)

// Server handles inbound SendSignatures requests of the committee. It performs the checks that
// do not need engine state and forwards accepted requests to the engine. It does not keep the
// engine alive: once every Handle was closed all requests are rejected as unavailable.
type Server struct {
	log       zerolog.Logger
	mailbox   *mailbox
	allowList *allowList
	limiter   *utils.RateLimiter
	maxSigs   int
}

var _ network.SignaturesHandler = (*Server)(nil)

// SendSignatures checks the request and enqueues it for the engine. It returns as soon as the
// request was accepted, before its signatures are verified.
// Expected errors during normal operations:
//   - ErrMissingPeerID if the sender identity is unknown
//   - ErrPeerNotAllowed if the sender is not a committee member of the current epoch
//   - ErrRequestTooLarge if the request carries too many partial signatures
//   - ErrRateLimited if the sender exceeded its inbound rate
//   - ErrServiceUnavailable if the engine is overloaded or shut down
func (s *Server) SendSignatures(_ context.Context, from peer.ID, req *randomness.SendSignaturesRequest) error {
	if from == "" {
		return ErrMissingPeerID
	}
	if !s.allowList.contains(from) {
		return ErrPeerNotAllowed
	}
	if len(req.PartialSigs) > s.maxSigs {
		return fmt.Errorf("%d partial signatures exceed the limit of %d: %w", len(req.PartialSigs), s.maxSigs, ErrRequestTooLarge)
	}
	if !s.limiter.Allow(from) {
		return ErrRateLimited
	}

	err := s.mailbox.send(receiveSignatures{
		peer:        from,
		epoch:       req.Epoch,
		round:       req.Round,
		partialSigs: req.PartialSigs,
		fullSig:     req.FullSig,
	})
	if errors.Is(err, ErrMailboxFull) || errors.Is(err, ErrShutdown) {
		s.log.Debug().Err(err).Str("peer_id", from.String()).Msg("rejecting signatures")
		return fmt.Errorf("%v: %w", err, ErrServiceUnavailable)
	}
	return err
}
