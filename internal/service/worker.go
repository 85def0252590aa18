package service

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/usecase"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"
	"github.com/rehanumarkhan/tele-monitor/internal/metrics"
)

// Processor handles one dequeued message
type Processor interface {
	Process(ctx context.Context, msg *domain.ChatMessage) (*usecase.ProcessResult, error)
}

// WorkerPool runs N workers draining the queue
type WorkerPool struct {
	queue   *Queue
	proc    Processor
	workers int
	log     zerolog.Logger
}

// NewWorkerPool creates a worker pool
func NewWorkerPool(queue *Queue, proc Processor, workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		queue:   queue,
		proc:    proc,
		workers: workers,
		log:     logging.Component("Worker"),
	}
}

// Serve runs the workers until ctx is done or the queue is closed and drained
func (p *WorkerPool) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(ctx, id)
		}(i)
	}
	p.log.Info().Int("workers", p.workers).Int("queue_capacity", p.queue.Cap()).Msg("workers started")
	wg.Wait()
	p.log.Info().Msg("workers stopped")
	if ctx.Err() == nil {
		// queue closed and drained
		return suture.ErrDoNotRestart
	}
	return ctx.Err()
}

func (p *WorkerPool) String() string {
	return "worker-pool"
}

func (p *WorkerPool) work(ctx context.Context, id int) {
	for {
		msg, ok := p.queue.Dequeue(ctx)
		if !ok {
			return
		}
		// A dequeued message finishes even if shutdown starts meanwhile
		p.handle(context.WithoutCancel(ctx), id, msg)
	}
}

func (p *WorkerPool) handle(ctx context.Context, id int, msg *domain.ChatMessage) {
	defer func() {
		if r := recover(); r != nil {
			metrics.WorkerPanics.Inc()
			p.log.Error().
				Int("worker", id).
				Str("msg_id", msg.ID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("error in message worker")
		}
	}()

	result, err := p.proc.Process(ctx, msg)
	if err != nil {
		p.log.Error().Err(err).Int("worker", id).Str("msg_id", msg.ID).Msg("error in message worker")
		return
	}
	if result != nil && len(result.Matches) > 0 {
		p.log.Debug().Int("worker", id).Str("msg_id", msg.ID).Int("matches", len(result.Matches)).Msg("message processed")
	}
}
