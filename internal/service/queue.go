package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/metrics"
)

// ErrQueueClosed is returned by Enqueue after Close
var ErrQueueClosed = errors.New("queue closed")

// Queue is the bounded FIFO between transports and workers
type Queue struct {
	items     chan *domain.ChatMessage
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a queue holding at most capacity messages
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		items: make(chan *domain.ChatMessage, capacity),
		done:  make(chan struct{}),
	}
}

// Enqueue adds a message, blocking while the queue is full.
// It fails only when the queue is closed or ctx is done.
func (q *Queue) Enqueue(ctx context.Context, msg *domain.ChatMessage) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.items <- msg:
		metrics.MessagesIngested.WithLabelValues(msg.Source).Inc()
		metrics.QueueDepth.Set(float64(len(q.items)))
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a message is available. ok is false once the queue is
// closed and drained, or when ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (*domain.ChatMessage, bool) {
	select {
	case msg := <-q.items:
		metrics.QueueDepth.Set(float64(len(q.items)))
		return msg, true
	case <-q.done:
		select {
		case msg := <-q.items:
			metrics.QueueDepth.Set(float64(len(q.items)))
			return msg, true
		default:
			return nil, false
		}
	case <-ctx.Done():
		return nil, false
	}
}

// Close stops accepting messages. Messages already queued can still be dequeued.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Len returns the number of queued messages
func (q *Queue) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity
func (q *Queue) Cap() int {
	return cap(q.items)
}
