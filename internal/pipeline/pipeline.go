package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"ionbatch/internal/chem"
	"ionbatch/internal/config"
	"ionbatch/internal/identify"
	"ionbatch/internal/ingest"
	"ionbatch/internal/instance"
	"ionbatch/internal/ionization"
	"ionbatch/internal/logging"
	"ionbatch/internal/outcome"
	"ionbatch/internal/preflight"
	"ionbatch/internal/project"
	"ionbatch/internal/reconcile"
	"ionbatch/internal/scheduler"
	"ionbatch/internal/services"
	"ionbatch/internal/services/engine"
)

const progressEvery = 100

// Options carries the run inputs that do not live in the configuration file.
type Options struct {
	Inputs []string
	Direct ingest.DirectInput
	// Formulas is an explicit candidate formula list for every instance.
	Formulas []chem.Formula
	// CandidatesSet reports that the candidate count was requested explicitly,
	// which disables the single known formula whitelist.
	CandidatesSet bool
	// Engine overrides the configured engine binary.
	Engine   identify.Engine
	Registry *ingest.Registry
	// Out receives per-instance summaries and the final timing line.
	Out    io.Writer
	Logger *slog.Logger
}

// Result summarizes a finished or aborted run.
type Result struct {
	RunID         string
	Offset        int
	Merge         bool
	Files         int
	Loaded        int
	Reconciled    int
	MaxResident   int
	Counts        map[outcome.Kind]int
	WriteFailures int
	Ingest        ingest.Stats
	Elapsed       time.Duration
}

// Run executes one batch against cfg. A returned error is fatal; per-instance
// failures are only visible in Result.Counts and the project store.
func Run(ctx context.Context, cfg *config.Config, opts Options) (result Result, err error) {
	start := time.Now()
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	logger := logging.NewComponentLogger(opts.Logger, "pipeline")
	defer func() {
		result.Elapsed = time.Since(start)
		writeFinalLine(out, result, err)
	}()

	if cfg == nil {
		return result, services.Wrap(services.ErrConfiguration, "pipeline", "start", "configuration is required", nil)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "pipeline", "start", "create directories", err)
	}
	if err := preflight.Err(preflight.RunAll(cfg)); err != nil {
		return result, err
	}
	settings, err := buildSettings(cfg, opts)
	if err != nil {
		return result, err
	}

	store, err := project.Open(cfg.Paths.ProjectDir)
	if err != nil {
		return result, err
	}
	sinks := []project.Sink{store}
	if cfg.Paths.SummaryFile != "" {
		tsv, err := project.NewTSVSink(cfg.Paths.SummaryFile)
		if err != nil {
			_ = store.Close()
			return result, err
		}
		sinks = append(sinks, tsv)
	}
	fanout := project.NewFanout(sinks...)
	defer func() {
		if closeErr := fanout.Close(); closeErr != nil {
			logging.ErrorWithContext(logger, "closing outputs failed", "output_close_failed",
				logging.Error(closeErr),
				logging.String(logging.FieldErrorHint, "check free space and permissions of the project directory"),
			)
			if err == nil {
				err = closeErr
			}
		}
	}()

	offset, merge, err := store.MaxIndex(ctx)
	if err != nil {
		return result, err
	}
	result.Offset = offset
	result.Merge = merge

	direct := opts.Direct
	if direct.Enabled() && len(direct.IonTypes) == 0 {
		direct.IonTypes = settings.ionTypes
	}
	source, err := ingest.NewSource(ingest.Options{
		Inputs:         opts.Inputs,
		Direct:         direct,
		Registry:       opts.Registry,
		Offset:         offset,
		Merge:          merge,
		MaxMZ:          cfg.Ingest.MaxMZ,
		Elements:       settings.elements,
		AutoElements:   cfg.Ingest.AutoElements,
		MostIntenseMS2: cfg.Ingest.MostIntenseMS2,
		Logger:         opts.Logger,
	})
	if err != nil {
		return result, err
	}
	defer source.Close()
	result.Files = len(source.Files())

	eng := opts.Engine
	if eng == nil {
		client, err := engine.New(cfg.Identification.EngineBinary, engine.WithArgs(cfg.Identification.EngineArgs...))
		if err != nil {
			return result, err
		}
		eng = client
	}

	result.RunID = uuid.NewString()
	ctx = services.WithRunID(ctx, result.RunID)
	if err := store.BeginRun(ctx, result.RunID, opts.Inputs, offset); err != nil {
		return result, err
	}
	logger.Info("run started",
		logging.String(logging.FieldRunID, result.RunID),
		logging.Int("count", result.Files),
		logging.Int("index_offset", offset),
		logging.Int("workers", cfg.Scheduler.Cores),
		logging.Int("initial_buffer", cfg.Scheduler.InitialBuffer),
		logging.Int("max_buffer", cfg.Scheduler.MaxBuffer),
	)

	pool := scheduler.NewWorkerPool(ctx, cfg.Scheduler.Cores)
	rec := reconcile.New(reconcile.Options{
		Sink:   fanout,
		Out:    out,
		Limit:  cfg.Identification.SummaryLimit,
		Logger: opts.Logger,
	})
	progress := logging.NewProgressSampler(progressEvery)
	sched, err := scheduler.New(scheduler.Options{
		InitialBuffer: cfg.Scheduler.InitialBuffer,
		MaxBuffer:     cfg.Scheduler.MaxBuffer,
		Pool:          pool,
		Engine:        eng,
		Prepare: func(_ context.Context, inst *instance.Instance) identify.Handle {
			return identify.NewHandle(inst, settings.identify)
		},
		Reconciler: scheduler.ReconcilerFunc(func(ctx context.Context, c scheduler.Completion) {
			// Drained completions are still persisted after cancellation.
			rec.Reconcile(context.WithoutCancel(ctx), c)
			if done := rec.Total(); progress.ShouldLog(done) {
				logger.Info("progress", logging.Int("count", done))
			}
		}),
		Logger: opts.Logger,
	})
	if err != nil {
		_ = pool.Close()
		return result, err
	}

	seq := &resolvingSequence{
		source:   source,
		resolver: ionization.NewResolver(settings.resolver),
		logger:   logger,
	}
	stats, runErr := sched.Run(ctx, seq)
	if poolErr := pool.Close(); poolErr != nil && !errors.Is(poolErr, context.Canceled) {
		runErr = multierror.Append(runErr, poolErr)
	}

	result.Loaded = stats.Loaded
	result.Reconciled = stats.Reconciled
	result.MaxResident = stats.MaxResident
	result.Counts = rec.Counts()
	result.WriteFailures = rec.WriteFailures()
	result.Ingest = source.Stats()

	if finishErr := store.FinishRun(context.WithoutCancel(ctx), result.RunID, result.Reconciled, runErr); finishErr != nil {
		logging.WarnWithContext(logger, "recording run status failed", "run_finish_failed",
			logging.Error(finishErr),
			logging.String(logging.FieldImpact, "run history shows this run as running"),
		)
	}
	logger.Info("run finished",
		logging.String(logging.FieldRunID, result.RunID),
		logging.Int("loaded", result.Loaded),
		logging.Int("reconciled", result.Reconciled),
		logging.Int("max_resident", result.MaxResident),
		logging.Int("write_failures", result.WriteFailures),
		logging.Int("rejected_records", result.Ingest.RejectedRecord),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result, runErr
}
