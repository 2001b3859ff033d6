package session

import (
	"sync"
	"time"

	"github.com/oshokin/safe-walk/internal/domain/walk"
	"github.com/oshokin/safe-walk/internal/logger"
)

type subscription struct {
	ch      chan *walk.Snapshot
	dropped uint64
	once    sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() {
		close(s.ch)
	})
}

// buildSnapshot captures the loop-owned state.
func (c *Controller) buildSnapshot() *walk.Snapshot {
	snapshot := &walk.Snapshot{
		Sequence:               c.sequence,
		SessionID:              c.sessionID,
		State:                  c.state,
		Elapsed:                c.elapsed,
		StartedAt:              c.startedAt,
		ArmedAt:                c.armedAt,
		FallSuspected:          c.state == walk.StateFallSuspected,
		FallDetectionAvailable: c.processor.Available(),
		LastAlert:              c.lastAlert.Clone(),
		At:                     time.Now(),
	}

	if c.remaining != nil {
		remaining := *c.remaining
		snapshot.Countdown = &remaining
	}

	if p, ok := c.locations.Current(); ok {
		snapshot.Location = &p
	}

	return snapshot
}

// publish stores a new snapshot and hands it to every subscriber.
// A subscriber whose buffer is full loses its oldest pending snapshot.
func (c *Controller) publish() {
	c.sequence++

	snapshot := c.buildSnapshot()
	c.current.Store(snapshot)

	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	for sub := range c.subs {
		select {
		case sub.ch <- snapshot.Clone():
			continue
		default:
		}

		select {
		case <-sub.ch:
			sub.dropped++
		default:
		}

		select {
		case sub.ch <- snapshot.Clone():
		default:
		}

		if sub.dropped == 1 || sub.dropped%100 == 0 {
			logger.WarnKV(c.sessionCtx, "Slow snapshot subscriber, dropping oldest",
				"dropped", sub.dropped,
			)
		}
	}
}

// Subscribe returns a channel that receives the current snapshot followed by
// every later change. The channel is closed by cancel or when Run returns.
func (c *Controller) Subscribe() (<-chan *walk.Snapshot, func()) {
	sub := &subscription{ch: make(chan *walk.Snapshot, subscriberBuffer)}

	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	select {
	case <-c.done:
		sub.close()

		return sub.ch, func() {}
	default:
	}

	sub.ch <- c.current.Load().Clone()
	c.subs[sub] = struct{}{}

	cancel := func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()

		if _, ok := c.subs[sub]; ok {
			delete(c.subs, sub)
			sub.close()
		}
	}

	return sub.ch, cancel
}

func (c *Controller) closeSubscribers() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	for sub := range c.subs {
		delete(c.subs, sub)
		sub.close()
	}
}
