package session

import "sync"

// mailbox is an unbounded FIFO of work for the controller goroutine.
type mailbox struct {
	queue  []func()
	closed bool
	notify chan struct{}
	mu     sync.Mutex
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

// post enqueues fn. It reports false once the mailbox is closed.
func (m *mailbox) post(fn func()) bool {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()

		return false
	}

	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}

	return true
}

// drain takes every queued item.
func (m *mailbox) drain() []func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue := m.queue
	m.queue = nil

	return queue
}

// close rejects further posts and discards the backlog.
func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.queue = nil
}
