package capi

import (
	"context"
	"sync"

	"github.com/trackify-io/trackify/model"
)

type queueKey struct{}

// queue buffers the events of one request until Flush. Events are kept in
// the order they were queued.
type queue struct {
	mux    sync.Mutex
	events []model.Event
}

func (q *queue) push(event model.Event) {
	q.mux.Lock()
	defer q.mux.Unlock()
	q.events = append(q.events, event)
}

func (q *queue) drain() []model.Event {
	q.mux.Lock()
	defer q.mux.Unlock()
	events := q.events
	q.events = nil
	return events
}

// WithQueue opens a request-scoped queue. Events sent with the returned
// context are held until Flush when use_queue is on.
func WithQueue(ctx context.Context) context.Context {
	if _, ok := ctx.Value(queueKey{}).(*queue); ok {
		return ctx
	}
	return context.WithValue(ctx, queueKey{}, &queue{})
}

func queueFromContext(ctx context.Context) (*queue, bool) {
	q, ok := ctx.Value(queueKey{}).(*queue)
	return q, ok
}

// Pending returns the number of events waiting in the queue of ctx.
func Pending(ctx context.Context) int {
	q, ok := queueFromContext(ctx)
	if !ok {
		return 0
	}
	q.mux.Lock()
	defer q.mux.Unlock()
	return len(q.events)
}
