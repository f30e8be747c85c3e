package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"ionbatch/internal/identify"
	"ionbatch/internal/instance"
	"ionbatch/internal/logging"
	"ionbatch/internal/services"
)

// ErrNoJob marks an engine that returned neither a job nor an error.
var ErrNoJob = errors.New("engine produced no job")

// Sequence is a forward-only stream of instances ending with io.EOF.
type Sequence interface {
	Next(ctx context.Context) (*instance.Instance, error)
}

// PrepareFunc turns an instance into its job handle. It runs on the
// scheduling goroutine right before submission.
type PrepareFunc func(ctx context.Context, inst *instance.Instance) identify.Handle

// Completion is a finished job, successful or not.
type Completion struct {
	Handle     identify.Handle
	Candidates []identify.Candidate
	Err        error
}

// Reconciler consumes completions on the scheduling goroutine.
type Reconciler interface {
	Reconcile(ctx context.Context, c Completion)
}

// ReconcilerFunc adapts a function to the Reconciler interface.
type ReconcilerFunc func(ctx context.Context, c Completion)

// Reconcile calls f.
func (f ReconcilerFunc) Reconcile(ctx context.Context, c Completion) { f(ctx, c) }

// Options configures a Scheduler.
type Options struct {
	// InitialBuffer is the number of instances loaded before the first
	// submission. Zero or negative loads the whole sequence eagerly.
	InitialBuffer int
	// MaxBuffer caps resident instances. Values below InitialBuffer are raised to it.
	MaxBuffer  int
	Pool       Pool
	Engine     identify.Engine
	Prepare    PrepareFunc
	Reconciler Reconciler
	Logger     *slog.Logger
}

// Stats summarizes a finished run.
type Stats struct {
	Loaded      int
	Reconciled  int
	MaxResident int
}

// Scheduler drives instances from a sequence through the pool.
type Scheduler struct {
	opts     Options
	logger   *slog.Logger
	resident atomic.Int64
	peak     atomic.Int64
}

// New validates opts and returns a scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Pool == nil || opts.Engine == nil || opts.Reconciler == nil {
		return nil, services.Wrap(services.ErrConfiguration, "scheduler", "init", "pool, engine and reconciler are required", nil)
	}
	if opts.Prepare == nil {
		opts.Prepare = func(_ context.Context, inst *instance.Instance) identify.Handle {
			return identify.Handle{Instance: inst}
		}
	}
	if opts.InitialBuffer > 0 && opts.MaxBuffer < opts.InitialBuffer {
		opts.MaxBuffer = opts.InitialBuffer
	}
	return &Scheduler{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "scheduler")}, nil
}

// Resident returns the number of instances loaded but not yet reconciled.
func (s *Scheduler) Resident() int {
	return int(s.resident.Load())
}

// Bounded reports whether the buffer watermarks are in effect.
func (s *Scheduler) Bounded() bool {
	return s.opts.InitialBuffer > 0
}

// Run consumes seq until it is exhausted and every submitted job has been
// reconciled. A sequence error stops further loading; jobs already submitted
// are still drained and reconciled before it is returned.
func (s *Scheduler) Run(ctx context.Context, seq Sequence) (Stats, error) {
	var (
		stats    Stats
		seqErr   error
		drained  bool
		inflight int
	)
	load := func() (*instance.Instance, bool) {
		if drained {
			return nil, false
		}
		inst, err := seq.Next(ctx)
		if err != nil {
			drained = true
			if !errors.Is(err, io.EOF) {
				seqErr = err
			}
			return nil, false
		}
		stats.Loaded++
		s.track(1)
		return inst, true
	}

	var (
		preload []*instance.Instance
		done    chan Completion
	)
	if s.Bounded() {
		for len(preload) < s.opts.InitialBuffer {
			inst, ok := load()
			if !ok {
				break
			}
			preload = append(preload, inst)
		}
		done = make(chan Completion, s.opts.MaxBuffer)
	} else {
		for {
			inst, ok := load()
			if !ok {
				break
			}
			preload = append(preload, inst)
		}
		done = make(chan Completion, len(preload))
	}
	s.logger.Debug("initial buffer loaded",
		logging.Int("instances", len(preload)),
		logging.Int("initial_buffer", s.opts.InitialBuffer),
		logging.Int("max_buffer", s.opts.MaxBuffer),
	)

	for _, inst := range preload {
		s.submit(ctx, inst, done)
		inflight++
	}
	preload = nil

	for inflight > 0 {
		c := <-done
		inflight--
		s.opts.Reconciler.Reconcile(ctx, c)
		stats.Reconciled++
		s.track(-1)

		if !s.Bounded() || ctx.Err() != nil {
			continue
		}
		for s.Resident() < s.opts.MaxBuffer {
			inst, ok := load()
			if !ok {
				break
			}
			s.submit(ctx, inst, done)
			inflight++
		}
	}
	stats.MaxResident = int(s.peak.Load())
	if seqErr == nil && ctx.Err() != nil {
		seqErr = ctx.Err()
	}
	return stats, seqErr
}

func (s *Scheduler) track(delta int64) {
	n := s.resident.Add(delta)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (s *Scheduler) submit(ctx context.Context, inst *instance.Instance, done chan<- Completion) {
	handle := s.opts.Prepare(ctx, inst)
	if handle.Instance == nil {
		handle.Instance = inst
	}
	if handle.CorrelationID == "" {
		handle.CorrelationID = uuid.NewString()
	}
	engine := s.opts.Engine
	err := s.opts.Pool.Submit(func(poolCtx context.Context) {
		jobCtx := services.WithInstanceIndex(poolCtx, handle.Instance.Index)
		jobCtx = services.WithSourceFile(jobCtx, handle.Instance.SourceFile)
		jobCtx = services.WithRequestID(jobCtx, handle.CorrelationID)
		done <- execute(jobCtx, engine, handle)
	})
	if err != nil {
		// done holds one slot per resident instance, so this never blocks.
		s.logger.Warn("job submission refused",
			logging.Int(logging.FieldInstanceIndex, handle.Instance.Index),
			logging.Error(err),
		)
		done <- Completion{Handle: handle, Err: fmt.Errorf("submit job: %w", err)}
	}
}

func execute(ctx context.Context, engine identify.Engine, handle identify.Handle) (c Completion) {
	c.Handle = handle
	defer func() {
		if r := recover(); r != nil {
			c.Candidates = nil
			c.Err = fmt.Errorf("identification panicked: %v", r)
		}
	}()
	job, err := engine.Identify(ctx, handle)
	switch {
	case err != nil:
		c.Err = err
	case job == nil:
		c.Err = ErrNoJob
	default:
		c.Candidates, c.Err = job.Await(ctx)
	}
	return c
}
