package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const memoryBufferSize = 1024

// MemoryOptions configure the in-process broker.
type MemoryOptions struct {
	// Concurrency returns the worker count for a stage. Nil means 5 workers
	// per stage.
	Concurrency func(Stage) int
	// MaxAttempts is the delivery limit per job, including the first.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry; it doubles on each
	// subsequent attempt.
	InitialBackoff time.Duration
}

// MemoryBroker runs all stage queues in-process on buffered channels. It is
// the default broker for single-binary runs and for tests; Wait lets callers
// block until every published job reaches a terminal outcome.
type MemoryBroker struct {
	opts     MemoryOptions
	channels map[Stage]chan Job
	handlers map[Stage]Handler

	mu      sync.Mutex
	dead    []DeadLetter
	closed  bool
	started bool

	inflight sync.WaitGroup
	cancel   context.CancelFunc
	workers  sync.WaitGroup
}

// NewMemory creates a stopped in-process broker. Register handlers with
// Subscribe, then call Start.
func NewMemory(opts MemoryOptions) *MemoryBroker {
	if opts.Concurrency == nil {
		opts.Concurrency = func(Stage) int { return 5 }
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 3 * time.Second
	}
	channels := make(map[Stage]chan Job, len(Stages))
	for _, st := range Stages {
		channels[st] = make(chan Job, memoryBufferSize)
	}
	return &MemoryBroker{
		opts:     opts,
		channels: channels,
		handlers: make(map[Stage]Handler, len(Stages)),
	}
}

func (b *MemoryBroker) Subscribe(stage Stage, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[stage] = h
}

// Start launches the stage workers. It returns immediately; workers run until
// Close.
func (b *MemoryBroker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return eris.New("queue: memory broker already started")
	}
	b.started = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel

	for stage, h := range b.handlers {
		n := b.opts.Concurrency(stage)
		if n <= 0 {
			n = 5
		}
		for i := 0; i < n; i++ {
			b.workers.Add(1)
			go b.work(runCtx, stage, h)
		}
	}
	return nil
}

func (b *MemoryBroker) work(ctx context.Context, stage Stage, h Handler) {
	defer b.workers.Done()
	ch := b.channels[stage]
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-ch:
			b.deliver(ctx, job, h)
		}
	}
}

func (b *MemoryBroker) deliver(ctx context.Context, job Job, h Handler) {
	err := h(ctx, job)
	if err == nil {
		b.inflight.Done()
		return
	}

	if job.Attempt >= b.opts.MaxAttempts {
		zap.L().Error("job dead-lettered",
			zap.String("stage", string(job.Stage)),
			zap.String("job_id", job.ID),
			zap.Int("attempts", job.Attempt),
			zap.Error(err),
		)
		b.mu.Lock()
		b.dead = append(b.dead, DeadLetter{Job: job, Reason: err.Error(), FailedAt: time.Now().UTC()})
		b.mu.Unlock()
		b.inflight.Done()
		return
	}

	backoff := b.opts.InitialBackoff << (job.Attempt - 1)
	zap.L().Warn("job failed, scheduling retry",
		zap.String("stage", string(job.Stage)),
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
		zap.Duration("backoff", backoff),
		zap.Error(err),
	)
	job.Attempt++
	b.enqueueAfter(job, backoff)
}

func (b *MemoryBroker) Publish(ctx context.Context, stage Stage, payload any, opts ...PublishOption) error {
	var po PublishOptions
	for _, opt := range opts {
		opt(&po)
	}

	job, err := NewJob(stage, payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return eris.New("queue: memory broker closed")
	}
	b.inflight.Add(1)
	b.mu.Unlock()

	if po.Delay > 0 {
		b.enqueueAfter(job, po.Delay)
		return nil
	}

	select {
	case b.channels[stage] <- job:
		return nil
	case <-ctx.Done():
		b.inflight.Done()
		return eris.Wrap(ctx.Err(), "queue: publish")
	}
}

// enqueueAfter schedules an already-accounted job. The inflight counter stays
// held until the job reaches a terminal outcome.
func (b *MemoryBroker) enqueueAfter(job Job, d time.Duration) {
	time.AfterFunc(d, func() {
		b.mu.Lock()
		closed := b.closed
		b.mu.Unlock()
		if closed {
			b.inflight.Done()
			return
		}
		b.channels[job.Stage] <- job
	})
}

// Wait blocks until every published job has succeeded or been dead-lettered.
func (b *MemoryBroker) Wait() {
	b.inflight.Wait()
}

func (b *MemoryBroker) Depth(stage Stage) int {
	return len(b.channels[stage])
}

func (b *MemoryBroker) DeadLetters() []DeadLetter {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]DeadLetter, len(b.dead))
	copy(out, b.dead)
	return out
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	cancel := b.cancel
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.workers.Wait()
	return nil
}
