package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"ezshare-gateway/frontdoor/domain"
)

// ErrPoolClosed é retornado por Submit depois de Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// PoolStats contém as estatísticas do pool.
type PoolStats struct {
	Name      string `json:"name"`
	Workers   int    `json:"workers"`
	Active    int64  `json:"active"`
	Queued    int    `json:"queued"`
	Completed int64  `json:"completed"`
	Failed    int64  `json:"failed"`
}

// WorkerPool é um pool fixo de goroutines que consomem uma fila FIFO sem limite.
//
// Submit só empilha e acorda um worker, então nunca bloqueia o loop de accept.
// Cada worker executa uma tarefa por vez, até o fim.
type WorkerPool struct {
	name    string
	workers int
	handler domain.ConnectionHandler
	metrics *Metrics

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []domain.ConnTask
	closed bool

	active    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type PoolOption func(*WorkerPool)

func WithPoolMetrics(m *Metrics) PoolOption {
	return func(p *WorkerPool) { p.metrics = m }
}

// NewWorkerPool cria o pool e já inicia os workers.
func NewWorkerPool(name string, workers int, handler domain.ConnectionHandler, opts ...PoolOption) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		name:    name,
		workers: workers,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit implementa domain.Dispatcher.
func (p *WorkerPool) Submit(task domain.ConnTask) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.queue = append(p.queue, task)
	p.metrics.setQueued(len(p.queue))
	p.mu.Unlock()

	p.cond.Signal()
	return nil
}

// next bloqueia até haver tarefa ou o pool fechar.
func (p *WorkerPool) next() (domain.ConnTask, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return domain.ConnTask{}, false
	}

	task := p.queue[0]
	p.queue[0] = domain.ConnTask{}
	p.queue = p.queue[1:]
	p.metrics.setQueued(len(p.queue))
	return task, true
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		task, ok := p.next()
		if !ok {
			return
		}
		p.run(id, task)
	}
}

func (p *WorkerPool) run(workerID int, task domain.ConnTask) {
	p.active.Add(1)
	p.metrics.workerBusy()
	defer func() {
		p.active.Add(-1)
		p.metrics.workerIdle()
	}()

	start := time.Now()
	if err := p.handle(task); err != nil {
		p.failed.Add(1)
		p.metrics.taskFailed()
		slog.Debug("Connection handler failed",
			"pool", p.name, "worker", workerID, "index", task.Index, "addr", task.Address,
			"duration", time.Since(start), "err", err)
		return
	}
	p.completed.Add(1)
}

// handle isola o pool de panics do colaborador.
func (p *WorkerPool) handle(task domain.ConnTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if task.Conn != nil {
				_ = task.Conn.Close()
			}
			err = fmt.Errorf("panic in connection handler: %v", r)
		}
	}()

	if p.handler == nil {
		if task.Conn != nil {
			_ = task.Conn.Close()
		}
		return errors.New("no connection handler configured")
	}
	return p.handler.Handle(p.ctx, task)
}

// Stats retorna as estatísticas atuais do pool.
func (p *WorkerPool) Stats() PoolStats {
	p.mu.Lock()
	queued := len(p.queue)
	p.mu.Unlock()

	return PoolStats{
		Name:      p.name,
		Workers:   p.workers,
		Active:    p.active.Load(),
		Queued:    queued,
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close para de aceitar tarefas, fecha os sockets que ainda estavam na fila,
// cancela o contexto dos handlers e espera os workers saírem.
// Não há drenagem: tarefas enfileiradas não são executadas.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	pending := p.queue
	p.queue = nil
	p.metrics.setQueued(0)
	p.mu.Unlock()

	p.cond.Broadcast()
	p.cancel()

	for _, task := range pending {
		if task.Conn != nil {
			_ = task.Conn.Close()
		}
	}

	p.wg.Wait()
}
