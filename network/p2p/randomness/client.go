package randomness

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/rs/zerolog"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/network"
	"github.com/mysocial-network/beacon/network/codec"
	"github.com/mysocial-network/beacon/network/codec/cbor"
)

// Client sends SendSignatures requests over libp2p streams. Every request uses a fresh stream
// on the existing connection to the peer.
type Client struct {
	log            zerolog.Logger
	host           host.Host
	codec          codec.Codec
	timeout        time.Duration
	maxMessageSize int64
}

var _ network.RandomnessTransport = (*Client)(nil)

func NewClient(log zerolog.Logger, h host.Host) *Client {
	return &Client{
		log:            log.With().Str("component", "randomness_client").Logger(),
		host:           h,
		codec:          cbor.NewCodec(),
		timeout:        DefaultStreamTimeout,
		maxMessageSize: DefaultMaxMessageSize,
	}
}

// SendSignatures opens a stream to the peer, writes the request and waits for the response.
func (c *Client) SendSignatures(ctx context.Context, to peer.ID, req *randomness.SendSignaturesRequest) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	s, err := c.host.NewStream(ctx, to, ProtocolID)
	if err != nil {
		return fmt.Errorf("could not open stream to %s: %v: %w", to, err, network.ErrPeerUnreachable)
	}
	defer s.Close()

	deadline, _ := ctx.Deadline()
	if err := s.SetDeadline(deadline); err != nil {
		_ = s.Reset()
		return fmt.Errorf("could not set stream deadline: %w", err)
	}
	// unblock pending reads and writes once the caller gives up
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Reset()
		case <-done:
		}
	}()

	if err := c.codec.NewEncoder(s).Encode(req); err != nil {
		_ = s.Reset()
		return fmt.Errorf("could not write request to %s: %w", to, err)
	}
	if err := s.CloseWrite(); err != nil {
		_ = s.Reset()
		return fmt.Errorf("could not close write side of stream to %s: %w", to, err)
	}

	v, err := c.codec.NewDecoder(io.LimitReader(s, c.maxMessageSize)).Decode()
	if err != nil {
		_ = s.Reset()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("could not read response from %s: %w", to, err)
	}
	resp, ok := v.(*randomness.SendSignaturesResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T from %s", v, to)
	}
	return network.NewRemoteError(to, network.Status(resp.Code), resp.Error)
}
