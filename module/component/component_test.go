package component_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mysocial-network/beacon/module"
	"github.com/mysocial-network/beacon/module/component"
	"github.com/mysocial-network/beacon/module/irrecoverable"
	"github.com/mysocial-network/beacon/utils/unittest"
)

func TestComponentManager_ReadyAndDone(t *testing.T) {
	cm := component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			<-ctx.Done()
		}).
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			ready() // calling ready twice is harmless
			<-ctx.Done()
		}).
		Build()

	ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	cm.Start(ctx)

	unittest.RequireCloseBefore(t, cm.Ready(), time.Second, "component did not become ready")
	select {
	case <-cm.Done():
		t.Fatal("component stopped before cancellation")
	default:
	}

	cancel()
	unittest.RequireCloseBefore(t, cm.ShutdownSignal(), time.Second, "shutdown was not signalled")
	unittest.RequireCloseBefore(t, cm.Done(), time.Second, "component did not stop")
}

func TestComponentManager_StartTwicePanics(t *testing.T) {
	cm := component.NewComponentManagerBuilder().Build()
	ctx, cancel := irrecoverable.NewMockSignalerContextWithCancel(t, context.Background())
	defer cancel()

	cm.Start(ctx)
	assert.PanicsWithValue(t, module.ErrMultipleStartup, func() { cm.Start(ctx) })
}

func TestComponentManager_PropagatesThrownError(t *testing.T) {
	thrown := errors.New("worker failed")
	cm := component.NewComponentManagerBuilder().
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			ctx.Throw(thrown)
		}).
		AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
			ready()
			<-ctx.Done()
		}).
		Build()

	parent, errChan := irrecoverable.WithSignaler(context.Background())
	cm.Start(parent)

	select {
	case err := <-errChan:
		require.ErrorIs(t, err, thrown)
	case <-time.After(time.Second):
		t.Fatal("error was not propagated to the parent")
	}
	unittest.RequireCloseBefore(t, cm.Done(), time.Second, "remaining workers were not stopped")
}
