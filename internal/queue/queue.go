// Package queue implements an in-memory at-least-once delivery queue and the
// worker manager draining it.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"booksync/internal/obs"
)

// Message is one queued synchronization request. Deliveries counts how many
// times it has been handed to a worker, including the current delivery.
type Message struct {
	ID         string
	Body       []byte
	Deliveries int
}

// Queue is a buffered message queue with a background broker. Messages stay
// in flight until acknowledged; unacknowledged messages are redelivered up
// to a delivery cap and then dead-lettered.
type Queue struct {
	mu           sync.Mutex
	backlog      []Message
	inflight     map[string]Message
	dead         []Message
	notify       chan struct{}
	out          chan Message
	shuttingDown atomic.Bool

	maxDeliveries int

	enqueued     atomic.Uint64
	acked        atomic.Uint64
	redelivered  atomic.Uint64
	deadLettered atomic.Uint64
}

// New creates a Queue with a buffered output channel and a per-message
// delivery cap.
func New(outBuffer, maxDeliveries int) *Queue {
	if outBuffer <= 0 {
		outBuffer = 64
	}
	if maxDeliveries <= 0 {
		maxDeliveries = 5
	}
	return &Queue{
		inflight:      make(map[string]Message),
		notify:        make(chan struct{}, 1),
		out:           make(chan Message, outBuffer),
		maxDeliveries: maxDeliveries,
	}
}

// Start runs the broker loop.
func (q *Queue) Start(ctx context.Context) {
	go q.broker(ctx)
}

// broker moves backlog items to the output channel.
func (q *Queue) broker(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		q.flushOnce()
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
		case <-ticker.C:
		}
	}
}

// flushOnce drains backlog into the output buffer, marking each message in
// flight.
func (q *Queue) flushOnce() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.backlog) > 0 && len(q.out) < cap(q.out) {
		item := q.backlog[0]
		q.backlog = q.backlog[1:]
		item.Deliveries++
		q.inflight[item.ID] = item
		q.out <- item
	}
}

// Enqueue appends a message and returns its id. It returns false once
// intake has been closed.
func (q *Queue) Enqueue(body []byte) (string, bool) {
	if q.shuttingDown.Load() {
		return "", false
	}
	msg := Message{ID: uuid.NewString(), Body: body}
	q.enqueued.Add(1)
	q.mu.Lock()
	q.backlog = append(q.backlog, msg)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return msg.ID, true
}

// Out exposes the output channel of messages.
func (q *Queue) Out() <-chan Message { return q.out }

// Ack removes a delivered message for good.
func (q *Queue) Ack(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inflight[id]; ok {
		delete(q.inflight, id)
		q.acked.Add(1)
	}
}

// Nack returns a delivered message to the backlog for redelivery, or moves
// it to the dead-letter list once its delivery cap is spent.
func (q *Queue) Nack(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	msg, ok := q.inflight[id]
	if !ok {
		return
	}
	delete(q.inflight, id)
	if msg.Deliveries >= q.maxDeliveries {
		q.dead = append(q.dead, msg)
		q.deadLettered.Add(1)
		obs.Logger.Warn("message dead-lettered", "message_id", msg.ID, "deliveries", msg.Deliveries)
		return
	}
	q.backlog = append(q.backlog, msg)
	q.redelivered.Add(1)
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// BacklogSize returns the number of enqueued-but-not-yet-output messages.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// InflightSize returns the number of delivered-but-unacknowledged messages.
func (q *Queue) InflightSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight)
}

// DeadLetters returns a copy of the dead-letter list.
func (q *Queue) DeadLetters() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Message, len(q.dead))
	copy(out, q.dead)
	return out
}

// Metrics returns counters for observability.
func (q *Queue) Metrics() (enqueued, acked, redelivered, deadLettered uint64) {
	return q.enqueued.Load(), q.acked.Load(), q.redelivered.Load(), q.deadLettered.Load()
}

// CloseIntake disallows future enqueues.
func (q *Queue) CloseIntake() { q.shuttingDown.Store(true) }

// IsShuttingDown reports if intake has been closed.
func (q *Queue) IsShuttingDown() bool { return q.shuttingDown.Load() }
