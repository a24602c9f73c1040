package randomness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	testifymock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mysocial-network/beacon/model/randomness"
	"github.com/mysocial-network/beacon/network/mocknetwork"
	"github.com/mysocial-network/beacon/utils/unittest"
)

func newTestSender(t *testing.T) (*sender, *mocknetwork.RandomnessTransport) {
	transport := mocknetwork.NewRandomnessTransport(t)
	config := DefaultConfig()
	WithSendRetryBackoff(time.Millisecond, 10*time.Millisecond)(config)
	WithSendRateLimit(0, 0)(config)
	return newSender(unittest.Logger(), transport, config), transport
}

func waitForSender(t *testing.T, s *sender) {
	unittest.RequireReturnsBefore(t, s.wait, outputTimeout, "send tasks did not return")
}

func TestSender_RetriesUntilDelivered(t *testing.T) {
	s, transport := newTestSender(t)
	to := unittest.PeerIDFixture(t)
	req := &randomness.SendSignaturesRequest{Epoch: 1, Round: 2, PartialSigs: [][]byte{{1}}}

	unreachable := errors.New("unreachable")
	transport.On("SendSignatures", testifymock.Anything, to, req).Return(unreachable).Twice()
	transport.On("SendSignatures", testifymock.Anything, to, req).Return(nil).Once()

	s.broadcast(context.Background(), []peer.ID{to}, req)
	waitForSender(t, s)

	transport.AssertNumberOfCalls(t, "SendSignatures", 3)
}

func TestSender_CancelStopsRetries(t *testing.T) {
	s, transport := newTestSender(t)
	peers := []peer.ID{unittest.PeerIDFixture(t), unittest.PeerIDFixture(t)}
	req := &randomness.SendSignaturesRequest{Epoch: 1, Round: 2}

	attempted := make(chan struct{}, 100)
	transport.On("SendSignatures", testifymock.Anything, testifymock.Anything, req).
		Run(func(testifymock.Arguments) {
			select {
			case attempted <- struct{}{}:
			default:
			}
		}).
		Return(errors.New("unreachable"))

	ctx, cancel := context.WithCancel(context.Background())
	s.broadcast(ctx, peers, req)
	for i := 0; i < 4; i++ {
		select {
		case <-attempted:
		case <-time.After(outputTimeout):
			require.FailNow(t, "send tasks did not retry")
		}
	}

	cancel()
	waitForSender(t, s)
}

func TestSender_SendOnce(t *testing.T) {
	s, transport := newTestSender(t)
	to := unittest.PeerIDFixture(t)
	req := &randomness.SendSignaturesRequest{Epoch: 1, Round: 2, FullSig: []byte{1}}

	transport.On("SendSignatures", testifymock.Anything, to, req).Return(errors.New("unreachable")).Once()

	s.sendOnce(context.Background(), to, req)
	waitForSender(t, s)

	transport.AssertNumberOfCalls(t, "SendSignatures", 1)
}
