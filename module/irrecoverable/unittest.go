package irrecoverable

import (
	"context"
	"testing"
)

// MockSignalerContext fails the test on any thrown error, unless an expected error was set.
type MockSignalerContext struct {
	context.Context
	t           *testing.T
	expectError error
	thrown      chan struct{}
}

var _ SignalerContext = &MockSignalerContext{}

func (m MockSignalerContext) sealed() {}

func (m MockSignalerContext) Throw(err error) {
	if m.expectError != nil && err.Error() == m.expectError.Error() {
		select {
		case m.thrown <- struct{}{}:
		default:
		}
		return
	}
	m.t.Fatalf("mock signaler context received error: %v", err)
}

func NewMockSignalerContext(t *testing.T, ctx context.Context) *MockSignalerContext {
	return &MockSignalerContext{
		Context: ctx,
		t:       t,
	}
}

func NewMockSignalerContextWithCancel(t *testing.T, parent context.Context) (*MockSignalerContext, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	return NewMockSignalerContext(t, ctx), cancel
}

// NewMockSignalerContextExpectError returns a context that accepts exactly the given error.
func NewMockSignalerContextExpectError(t *testing.T, ctx context.Context, err error) *MockSignalerContext {
	return &MockSignalerContext{
		Context:     ctx,
		t:           t,
		expectError: err,
		thrown:      make(chan struct{}, 1),
	}
}

// Thrown receives a value after the expected error was thrown.
func (m MockSignalerContext) Thrown() <-chan struct{} {
	return m.thrown
}
