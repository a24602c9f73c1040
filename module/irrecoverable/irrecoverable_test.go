package irrecoverable_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysocial-network/beacon/module/irrecoverable"
)

func TestThrowTerminatesGoroutine(t *testing.T) {
	ctx, errChan := irrecoverable.WithSignaler(context.Background())

	reached := make(chan struct{})
	go func() {
		ctx.Throw(errors.New("fatal"))
		close(reached)
	}()

	select {
	case err := <-errChan:
		assert.EqualError(t, err, "fatal")
	case <-time.After(time.Second):
		t.Fatal("error was not propagated")
	}

	select {
	case <-reached:
		t.Fatal("goroutine continued after Throw")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOnlyFirstErrorIsDelivered(t *testing.T) {
	ctx, errChan := irrecoverable.WithSignaler(context.Background())

	for i := 0; i < 3; i++ {
		done := make(chan struct{})
		go func() {
			defer close(done)
			ctx.Throw(errors.New("fatal"))
		}()
		<-done
	}

	err, ok := <-errChan
	require.True(t, ok)
	assert.EqualError(t, err, "fatal")

	_, ok = <-errChan
	assert.False(t, ok, "error channel must be closed after the first error")
}

func TestWithSignalerContextSharesSignaler(t *testing.T) {
	parent, errChan := irrecoverable.WithSignaler(context.Background())
	inner, cancel := context.WithCancel(parent)
	defer cancel()

	child := irrecoverable.WithSignalerContext(parent, inner)
	go child.Throw(errors.New("from child"))

	select {
	case err := <-errChan:
		assert.EqualError(t, err, "from child")
	case <-time.After(time.Second):
		t.Fatal("error was not propagated")
	}
}
