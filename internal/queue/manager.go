package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"booksync/internal/obs"
	"booksync/internal/syncer"
)

// Handler processes one decoded synchronization request.
type Handler interface {
	Handle(ctx context.Context, req syncer.SyncRequest) syncer.Outcome
}

// Manager runs a fixed pool of workers draining the queue. Each worker
// decodes a message, hands it to the Handler, and acknowledges it unless
// the outcome asks for redelivery.
type Manager struct {
	q              *Queue
	handler        Handler
	workers        int
	redeliverAfter time.Duration

	wg sync.WaitGroup
}

func NewManager(q *Queue, handler Handler, workers int, redeliverAfter time.Duration) *Manager {
	if workers <= 0 {
		workers = 1
	}
	return &Manager{q: q, handler: handler, workers: workers, redeliverAfter: redeliverAfter}
}

// Start launches the broker and the worker pool.
func (m *Manager) Start(ctx context.Context) {
	m.q.Start(ctx)
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx)
	}
	obs.Logger.Info("sync workers started", "worker_count", m.workers)
}

// Wait blocks until all workers have returned.
func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.q.Out():
			m.process(ctx, msg)
		}
	}
}

func (m *Manager) process(ctx context.Context, msg Message) {
	var req syncer.SyncRequest
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		// An unparseable body will never parse on redelivery.
		obs.Logger.Warn("dropping undecodable message", "message_id", msg.ID, "error", err)
		m.q.Ack(msg.ID)
		return
	}

	outcome := m.handler.Handle(ctx, req)
	if outcome.Ack() {
		m.q.Ack(msg.ID)
		return
	}

	obs.Logger.Warn("sync failed, scheduling redelivery",
		"message_id", msg.ID, "isbn", req.ISBN, "reason", outcome.Reason, "deliveries", msg.Deliveries)
	if m.redeliverAfter > 0 {
		select {
		case <-time.After(m.redeliverAfter):
		case <-ctx.Done():
		}
	}
	m.q.Nack(msg.ID)
}
