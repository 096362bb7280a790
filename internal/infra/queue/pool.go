package queue

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Pool runs a fixed number of workers per category queue. Each worker
// blocks on its queue and hands dequeued tasks to the processor.
type Pool struct {
	manager *Manager
	proc    *Processor
	workers int
	wg      sync.WaitGroup
	log     *zerolog.Logger
}

func NewPool(manager *Manager, proc *Processor, workersPerCategory int, logger *zerolog.Logger) *Pool {
	if workersPerCategory <= 0 {
		workersPerCategory = 1
	}
	l := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{manager: manager, proc: proc, workers: workersPerCategory, log: &l}
}

func (p *Pool) Start(ctx context.Context) {
	for cat, q := range p.manager.queues {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.run(ctx, string(cat), q, i)
		}
	}
	p.log.Info().Int("per_category", p.workers).Msg("worker pool started")
}

func (p *Pool) run(ctx context.Context, category string, q *categoryQueue, id int) {
	defer p.wg.Done()
	log := p.log.With().Str("category", category).Int("worker", id).Logger()
	for {
		task, err := q.pop(ctx)
		if err != nil {
			log.Debug().Msg("worker stopping")
			return
		}
		p.proc.Process(ctx, task)
	}
}

// Wait blocks until all workers observed context cancellation.
func (p *Pool) Wait() {
	p.wg.Wait()
}
