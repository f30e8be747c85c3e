package pipeline

import (
	"context"
	"log/slog"

	"ionbatch/internal/instance"
	"ionbatch/internal/ionization"
	"ionbatch/internal/logging"
)

// instanceSource is the part of ingest.Source the pipeline consumes.
type instanceSource interface {
	Next(ctx context.Context) (*instance.Instance, error)
}

// resolvingSequence attaches ion type hypotheses to every instance as it
// leaves ingestion, before the scheduler sees it.
type resolvingSequence struct {
	source   instanceSource
	resolver *ionization.Resolver
	logger   *slog.Logger
}

func (s *resolvingSequence) Next(ctx context.Context) (*instance.Instance, error) {
	inst, err := s.source.Next(ctx)
	if err != nil {
		return nil, err
	}
	branch := s.resolver.Resolve(inst)
	if s.logger.Enabled(ctx, slog.LevelDebug) {
		attrs := logging.DecisionAttrs("ion_type_hypotheses", string(branch), inst.Annotations.Hypotheses.String())
		attrs = append(attrs, logging.InstanceAttrs(inst.Index, inst.Experiment.Name, inst.SourceFile)...)
		attrs = append(attrs, logging.String("ion_type", inst.Experiment.IonType.String()))
		s.logger.Debug("ion types resolved", logging.Args(attrs...)...)
	}
	return inst, nil
}
