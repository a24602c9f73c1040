package randomness

import (
	"context"
	"errors"

	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/atomic"

	"github.com/mysocial-network/beacon/model/randomness"
)

// errStubHandle is returned by admin operations of a stub handle.
var errStubHandle = errors.New("stub randomness handle")

// Handle submits commands to the randomness engine. Every method returns without waiting for
// the command to be processed, except for the admin operations, which wait for their result.
//
// A Handle keeps the engine alive. Clone returns an additional owner; each owner must call
// Close exactly once. Once every owner closed, the engine processes the commands already
// queued and shuts down. A Handle is safe for concurrent use.
type Handle struct {
	mailbox  *mailbox
	released *atomic.Bool
}

func newHandle(mb *mailbox) *Handle {
	if !mb.acquire() {
		return nil
	}
	return &Handle{mailbox: mb, released: atomic.NewBool(false)}
}

// NewStubHandle returns a handle whose commands are accepted and discarded. It is meant for
// tests of components that depend on a Handle.
func NewStubHandle() *Handle {
	mb := newMailbox(1024)
	h := newHandle(mb)
	go func() {
		defer mb.stop()
		for cmd := range mb.queue {
			switch c := cmd.(type) {
			case updateEpoch:
				reply(c.result, nil)
			case adminGetPartialSignatures:
				reply(c.result, partialSignaturesResult{err: errStubHandle})
			case adminInjectPartialSignatures:
				reply(c.result, errStubHandle)
			case adminInjectFullSignature:
				reply(c.result, errStubHandle)
			}
		}
	}()
	return h
}

// Clone returns a new owner of the engine.
// Expected errors during normal operations:
//   - ErrShutdown if all owners already closed their handles
func (h *Handle) Clone() (*Handle, error) {
	clone := newHandle(h.mailbox)
	if clone == nil {
		return nil, ErrShutdown
	}
	return clone, nil
}

// Close releases this owner. Closing a handle twice has no effect.
func (h *Handle) Close() {
	if h.released.CompareAndSwap(false, true) {
		h.mailbox.release()
	}
}

// Done returns a channel that is closed once the engine stopped processing commands.
func (h *Handle) Done() <-chan struct{} {
	return h.mailbox.stopped
}

func (h *Handle) send(cmd command) error {
	if h.released.Load() {
		return ErrShutdown
	}
	return h.mailbox.send(cmd)
}

// UpdateEpoch switches the engine to a new epoch. The returned channel receives nil once the
// update was applied, or the reason it was rejected.
// Expected errors during normal operations:
//   - ErrMailboxFull, ErrShutdown
func (h *Handle) UpdateEpoch(update EpochUpdate) (<-chan error, error) {
	result := make(chan error, 1)
	if err := h.send(updateEpoch{update: update, result: result}); err != nil {
		return nil, err
	}
	return result, nil
}

// SendPartialSignatures asks the engine to broadcast this node's partial signatures for the round.
// Expected errors during normal operations:
//   - ErrMailboxFull, ErrShutdown
func (h *Handle) SendPartialSignatures(epoch randomness.Epoch, round randomness.Round) error {
	return h.send(sendPartialSignatures{epoch: epoch, round: round})
}

// CompleteRound notifies the engine that the round was completed through another path. All
// rounds up to and including round are considered complete.
// Expected errors during normal operations:
//   - ErrMailboxFull, ErrShutdown
func (h *Handle) CompleteRound(epoch randomness.Epoch, round randomness.Round) error {
	return h.send(completeRound{epoch: epoch, round: round})
}

// ReceiveSignatures forwards signatures received from a peer.
// Expected errors during normal operations:
//   - ErrMailboxFull, ErrShutdown
func (h *Handle) ReceiveSignatures(from peer.ID, epoch randomness.Epoch, round randomness.Round, partialSigs [][]byte, fullSig []byte) error {
	return h.send(receiveSignatures{
		peer:        from,
		epoch:       epoch,
		round:       round,
		partialSigs: partialSigs,
		fullSig:     fullSig,
	})
}

// MaybeIgnoreByzantinePeer asks the engine to ignore the peer for the rest of the epoch.
// Expected errors during normal operations:
//   - ErrMailboxFull, ErrShutdown
func (h *Handle) MaybeIgnoreByzantinePeer(epoch randomness.Epoch, from peer.ID) error {
	return h.send(maybeIgnoreByzantinePeer{epoch: epoch, peer: from})
}

// AdminGetPartialSignatures returns this node's partial signatures for the round of the current
// epoch.
// Expected errors during normal operations:
//   - ErrNoDKGOutput if the current epoch has no DKG output
//   - signature.ErrNoKeyShares if this node owns no key shares
//   - ErrMailboxFull, ErrShutdown
//   - context errors
func (h *Handle) AdminGetPartialSignatures(ctx context.Context, round randomness.Round) ([][]byte, error) {
	result := make(chan partialSignaturesResult, 1)
	if err := h.send(adminGetPartialSignatures{round: round, result: result}); err != nil {
		return nil, err
	}
	res, err := await(ctx, h.mailbox, result)
	if err != nil {
		return nil, err
	}
	return res.sigs, res.err
}

// AdminInjectPartialSignatures processes the partial signatures as if they were received from
// the given authority. The signatures are verified first.
// Expected errors during normal operations:
//   - ErrInvalidSignatures if the signatures do not belong to the authority or do not verify
//   - ErrNoDKGOutput if the current epoch has no DKG output
//   - ErrMailboxFull, ErrShutdown
//   - context errors
func (h *Handle) AdminInjectPartialSignatures(ctx context.Context, authority randomness.AuthorityName, round randomness.Round, sigs [][]byte) error {
	result := make(chan error, 1)
	if err := h.send(adminInjectPartialSignatures{authority: authority, round: round, sigs: sigs, result: result}); err != nil {
		return err
	}
	err, waitErr := await(ctx, h.mailbox, result)
	if waitErr != nil {
		return waitErr
	}
	return err
}

// AdminInjectFullSignature completes the round of the current epoch with the given signature
// after verifying it.
// Expected errors during normal operations:
//   - ErrInvalidSignatures if the signature does not verify
//   - ErrNoDKGOutput if the current epoch has no DKG output
//   - ErrMailboxFull, ErrShutdown
//   - context errors
func (h *Handle) AdminInjectFullSignature(ctx context.Context, round randomness.Round, sig []byte) error {
	result := make(chan error, 1)
	if err := h.send(adminInjectFullSignature{round: round, sig: sig, result: result}); err != nil {
		return err
	}
	err, waitErr := await(ctx, h.mailbox, result)
	if waitErr != nil {
		return waitErr
	}
	return err
}

// await waits for a one-shot result, the engine stopping, or ctx.
func await[T any](ctx context.Context, mb *mailbox, result <-chan T) (T, error) {
	var zero T
	select {
	case v := <-result:
		return v, nil
	case <-mb.stopped:
		// the result may have been delivered right before the engine stopped
		select {
		case v := <-result:
			return v, nil
		default:
		}
		return zero, ErrShutdown
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
