package irrecoverable

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"go.uber.org/atomic"
)

// Signaler forwards the first irrecoverable error thrown by any goroutine holding it.
// Subsequent errors are discarded, the component is already shutting down at that point.
type Signaler struct {
	errChan   chan error
	errThrown *atomic.Bool
}

// NewSignaler returns a signaler and the channel on which the first thrown error is delivered.
// The channel is closed after the error was sent.
func NewSignaler() (*Signaler, <-chan error) {
	errChan := make(chan error, 1)
	return &Signaler{
		errChan:   errChan,
		errThrown: atomic.NewBool(false),
	}, errChan
}

// Throw records the error and terminates the calling goroutine.
// It is a replacement for panic and log.Fatal in code that runs under a component.
func (s *Signaler) Throw(err error) {
	defer runtime.Goexit()
	if s.errThrown.CompareAndSwap(false, true) {
		s.errChan <- err
		close(s.errChan)
	}
}

// SignalerContext is a context.Context that can also propagate irrecoverable errors.
type SignalerContext interface {
	context.Context
	Throw(err error)
	sealed()
}

type signalerCtx struct {
	context.Context
	*Signaler
}

func (sc signalerCtx) sealed() {}

// WithSignaler wraps the parent context with a new signaler. The returned channel receives the
// first error thrown through the context.
func WithSignaler(parent context.Context) (SignalerContext, <-chan error) {
	sig, errChan := NewSignaler()
	return &signalerCtx{parent, sig}, errChan
}

// WithSignalerContext derives a SignalerContext from ctx that shares the signaler of parent.
func WithSignalerContext(parent SignalerContext, ctx context.Context) SignalerContext {
	switch p := parent.(type) {
	case *signalerCtx:
		return &signalerCtx{ctx, p.Signaler}
	default:
		return &forwardingCtx{ctx, parent}
	}
}

type forwardingCtx struct {
	context.Context
	parent SignalerContext
}

func (fc *forwardingCtx) sealed()         {}
func (fc *forwardingCtx) Throw(err error) { fc.parent.Throw(err) }

// Throw throws err on ctx if it is a SignalerContext. Otherwise there is no safe way to continue
// and the process is terminated.
func Throw(ctx context.Context, err error) {
	if sc, ok := ctx.(SignalerContext); ok {
		sc.Throw(err)
		return
	}
	fmt.Fprintf(os.Stderr, "irrecoverable error without signaler context: %v\n", err)
	os.Exit(1)
}
