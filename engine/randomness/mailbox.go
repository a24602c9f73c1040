package randomness

import (
	"sync"
)

// mailbox is the multi-producer single-consumer queue of the engine. Handles own it through a
// reference count; when the last handle is closed the queue is closed and the engine stops once
// it drained the remaining commands. Other holders, like the server, use the mailbox without
// owning it and observe ErrShutdown once it is closed.
type mailbox struct {
	mu     sync.RWMutex
	queue  chan command
	closed bool
	refs   int

	// stopped is closed when the consumer exits.
	stopped  chan struct{}
	stopOnce sync.Once
}

func newMailbox(capacity int) *mailbox {
	return &mailbox{
		queue:   make(chan command, capacity),
		stopped: make(chan struct{}),
	}
}

// send enqueues the command without blocking.
// Expected errors during normal operations:
//   - ErrShutdown if the mailbox is closed or the consumer stopped
//   - ErrMailboxFull if the mailbox is at capacity
func (m *mailbox) send(cmd command) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrShutdown
	}
	select {
	case <-m.stopped:
		return ErrShutdown
	default:
	}
	select {
	case m.queue <- cmd:
		return nil
	default:
		return ErrMailboxFull
	}
}

func (m *mailbox) acquire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.refs++
	return true
}

func (m *mailbox) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.refs--
	if m.refs <= 0 {
		m.closed = true
		close(m.queue)
	}
}

// stop marks the consumer as gone. Commands still queued are never processed.
func (m *mailbox) stop() {
	m.stopOnce.Do(func() {
		close(m.stopped)
	})
}

func (m *mailbox) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
