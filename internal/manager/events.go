package manager

import (
	"context"
	"sync"

	"procmon/internal/models"
)

// EventQueue is the ordered, unbounded hand-off between the collection loop
// and the presentation layer. Send never blocks; consumers poll Drain on their
// own cadence or block in Next.
type EventQueue struct {
	mu      sync.Mutex
	pending []models.Event
	ready   chan struct{}
	done    chan struct{}
	closed  bool
}

// NewEventQueue returns an open, empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Send enqueues e. It reports false once the queue is closed.
func (q *EventQueue) Send(e models.Event) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, e)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// Drain removes and returns every pending event in send order.
func (q *EventQueue) Drain() []models.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}

// Done is closed when the producer closes the queue.
func (q *EventQueue) Done() <-chan struct{} {
	return q.done
}

// Close stops accepting events. Pending events remain drainable.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Next blocks until at least one event is pending, the queue is closed and
// empty, or ctx ends. The boolean is false when no more events will arrive.
func (q *EventQueue) Next(ctx context.Context) ([]models.Event, bool) {
	for {
		if events := q.Drain(); len(events) > 0 {
			return events, true
		}
		select {
		case <-q.ready:
		case <-q.done:
			if events := q.Drain(); len(events) > 0 {
				return events, true
			}
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}
