package reconcile

import (
	"context"
	"io"
	"log/slog"

	"ionbatch/internal/logging"
	"ionbatch/internal/outcome"
	"ionbatch/internal/scheduler"
	"ionbatch/internal/services"
)

// Sink persists outcome records.
type Sink interface {
	Write(ctx context.Context, rec outcome.Record) error
}

// Options configures a Reconciler.
type Options struct {
	Sink Sink
	// Out receives the per-instance summaries. Nil discards them.
	Out io.Writer
	// Limit caps the candidates printed per instance; zero prints all.
	Limit  int
	Logger *slog.Logger
}

// Reconciler implements scheduler.Reconciler.
type Reconciler struct {
	sink          Sink
	out           io.Writer
	limit         int
	logger        *slog.Logger
	counts        map[outcome.Kind]int
	writeFailures int
}

// New returns a reconciler writing to opts.Sink.
func New(opts Options) *Reconciler {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Reconciler{
		sink:   opts.Sink,
		out:    out,
		limit:  opts.Limit,
		logger: logging.NewComponentLogger(opts.Logger, "reconcile"),
		counts: make(map[outcome.Kind]int),
	}
}

// Reconcile classifies c, prints its summary and writes it to the sink.
func (r *Reconciler) Reconcile(ctx context.Context, c scheduler.Completion) {
	rec := Classify(c)
	r.counts[rec.Kind]++

	logCtx := services.WithInstanceIndex(ctx, rec.Index)
	logCtx = services.WithSourceFile(logCtx, rec.SourceFile)
	logCtx = services.WithRequestID(logCtx, rec.CorrelationID)
	logger := logging.WithContext(logCtx, r.logger)

	switch rec.Kind {
	case outcome.KindSuccess:
		best, _ := rec.Best()
		logger.Info("instance identified",
			logging.String(logging.FieldOutcome, string(rec.Kind)),
			logging.String("formula", best.Formula.String()),
			logging.Float64("score", best.Score),
			logging.Int("candidates", len(rec.Candidates)),
		)
	case outcome.KindNoResults:
		logging.WarnWithContext(logger, "no candidates found", "identify_no_results",
			logging.String(logging.FieldOutcome, string(rec.Kind)),
			logging.String(logging.FieldErrorHint, "increase ppm_max or check the MS2 spectra"),
			logging.String(logging.FieldImpact, "instance recorded without candidates"),
		)
	case outcome.KindTimeout:
		logging.WarnWithContext(logger, "identification timed out", "identify_timeout",
			logging.String(logging.FieldOutcome, string(rec.Kind)),
			logging.String(logging.FieldErrorHint, "raise identification.instance_timeout or tree_timeout"),
			logging.String(logging.FieldImpact, "instance recorded as timeout"),
		)
	default:
		logger.Debug("identification failed", logging.Error(c.Err))
		logging.WarnWithContext(logger, "identification failed", "identify_error",
			logging.String(logging.FieldOutcome, string(rec.Kind)),
			logging.String("reason", rec.Message),
			logging.String(logging.FieldImpact, "instance recorded as error"),
		)
	}

	if _, err := io.WriteString(r.out, RenderSummary(rec, r.limit)); err != nil {
		r.logger.Debug("summary output failed", logging.Error(err))
	}

	if r.sink == nil {
		return
	}
	if err := r.sink.Write(ctx, rec); err != nil {
		r.writeFailures++
		logging.ErrorWithContext(logger, "outcome write failed", "sink_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the project directory and disk space"),
		)
	}
}

// Counts returns the number of records per outcome kind.
func (r *Reconciler) Counts() map[outcome.Kind]int {
	out := make(map[outcome.Kind]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// Total returns the number of reconciled records.
func (r *Reconciler) Total() int {
	total := 0
	for _, v := range r.counts {
		total += v
	}
	return total
}

// WriteFailures returns how many sink writes failed.
func (r *Reconciler) WriteFailures() int {
	return r.writeFailures
}
