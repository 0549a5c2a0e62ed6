package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"linequery/internal/index"
	"linequery/internal/logger"
	"linequery/internal/search"
	"linequery/internal/types"

	"golang.org/x/sync/errgroup"
)

var (
	ErrClosed          = errors.New("worker pool is closed")
	ErrCancelled       = errors.New("task cancelled before it started")
	ErrShutdownTimeout = errors.New("worker pool did not drain in time")
)

// forceWait bounds how long Shutdown waits for tasks after cancelling them.
const forceWait = time.Second

// WorkerContext is the read-only state every worker carries.
type WorkerContext struct {
	DatasetPath string
	Search      search.Func
	Index       index.Index
}

// Task runs on a worker. ctx is cancelled when the pool is forced down.
type Task func(ctx context.Context, wc WorkerContext) (bool, error)

type Options struct {
	Workers   int // 0 means 2 x NumCPU
	QueueSize int // 0 means 4 x Workers
}

// Future is the pending result of a submitted task.
type Future struct {
	done chan struct{}
	res  types.ResponseContext
}

// Wait blocks until the task finishes or ctx ends. A ctx error does not
// cancel the task.
func (f *Future) Wait(ctx context.Context) (bool, error) {
	select {
	case <-f.done:
		return f.res.Found, f.res.Error
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (f *Future) resolve(found bool, err error) {
	f.res = types.ResponseContext{Found: found, Error: err}
	close(f.done)
}

type job struct {
	ctx    context.Context
	task   Task
	future *Future
}

// Pool is a fixed set of worker goroutines fed from a bounded queue.
type Pool struct {
	wc      WorkerContext
	workers int

	requests chan job
	quit     chan struct{}

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	inFlight atomic.Int64
	once     sync.Once
	quitOnce sync.Once
}

func New(wc WorkerContext, opts Options) *Pool {
	workers := opts.Workers
	if workers <= 0 {
		workers = 2 * runtime.NumCPU()
	}
	queue := opts.QueueSize
	if queue <= 0 {
		queue = 4 * workers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		wc:       wc,
		workers:  workers,
		requests: make(chan job, queue),
		quit:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (p *Pool) Start() {
	p.once.Do(func() {
		p.group = &errgroup.Group{}
		for i := 0; i < p.workers; i++ {
			p.group.Go(p.run)
		}
		logger.Debug("worker pool started with %d workers", p.workers)
	})
}

// Submit queues task. It blocks while the queue is full until ctx ends or
// the pool shuts down.
func (p *Pool) Submit(ctx context.Context, task Task) (*Future, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}

	f := &Future{done: make(chan struct{})}
	select {
	case p.requests <- job{ctx: ctx, task: task, future: f}:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		return nil, ErrClosed
	}
}

// Do submits task and waits for its result.
func (p *Pool) Do(ctx context.Context, task Task) (bool, error) {
	f, err := p.Submit(ctx, task)
	if err != nil {
		return false, err
	}
	return f.Wait(ctx)
}

func (p *Pool) run() error {
	for {
		select {
		case <-p.quit:
			return nil
		case j := <-p.requests:
			// select picks at random when both are ready; queued work
			// must not start once shutdown has begun.
			select {
			case <-p.quit:
				j.future.resolve(false, ErrCancelled)
				return nil
			default:
			}
			p.execute(j)
		}
	}
}

func (p *Pool) execute(j job) {
	if err := j.ctx.Err(); err != nil {
		j.future.resolve(false, ErrCancelled)
		return
	}

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	ctx, cancel := context.WithCancel(j.ctx)
	stop := context.AfterFunc(p.ctx, cancel)
	defer func() {
		stop()
		cancel()
	}()

	var (
		found bool
		err   error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("worker panic: %v", r)
				logger.Error("worker recovered from panic: %v", r)
			}
		}()
		found, err = j.task(ctx, p.wc)
	}()
	j.future.resolve(found, err)
}

// Shutdown stops accepting work, cancels queued tasks and waits up to
// grace for running ones. Past grace running tasks are cancelled and
// ErrShutdownTimeout is returned if they still do not finish.
func (p *Pool) Shutdown(grace time.Duration) error {
	first := false
	p.quitOnce.Do(func() {
		close(p.quit)
		first = true
	})
	if !first {
		return nil
	}
	// Blocked submitters observe quit and release the read lock.
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	drained := 0
	for {
		select {
		case j := <-p.requests:
			j.future.resolve(false, ErrCancelled)
			drained++
			continue
		default:
		}
		break
	}
	if drained > 0 {
		logger.Debug("worker pool cancelled %d queued tasks", drained)
	}

	if p.group == nil {
		p.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.group.Wait()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-timer.C:
	}

	logger.Warn("worker pool grace period of %s elapsed, cancelling running tasks", grace)
	p.cancel()
	select {
	case <-done:
		return nil
	case <-time.After(forceWait):
		return fmt.Errorf("%w: %d tasks still running", ErrShutdownTimeout, p.inFlight.Load())
	}
}

type Stats struct {
	Workers  int
	InFlight int
	Queued   int
}

func (p *Pool) Stats() Stats {
	return Stats{
		Workers:  p.workers,
		InFlight: int(p.inFlight.Load()),
		Queued:   len(p.requests),
	}
}
