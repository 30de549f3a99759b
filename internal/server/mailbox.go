package server

import (
	"sync"

	"lanshare/internal/listener"
)

// event is either a TransferPort change or an accepted connection.
type event struct {
	portChanged bool
	handle      *listener.Handle
}

// mailbox is an unbounded FIFO feeding the dispatcher.  post never
// blocks, so the accept goroutine can always hand off and exit.
type mailbox struct {
	mu     sync.Mutex
	queue  []event
	closed bool
	wake   chan struct{}
}

// post appends ev and wakes the dispatcher.  It reports false once the
// mailbox is closed.
func (m *mailbox) post(ev event) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, ev)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// take removes and returns everything queued.
func (m *mailbox) take() []event {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}

// close refuses further posts and returns what was still queued.
func (m *mailbox) close() []event {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	q := m.queue
	m.queue = nil
	return q
}
