// Package refresh rebuilds provider catalogs: once at startup and then on
// a fixed interval, reporting build duration and health.
package refresh

import (
	"context"
	"time"

	"go.uber.org/zap"

	"onrampprovider/internal/catalog"
	"onrampprovider/internal/fanout"
	"onrampprovider/internal/metrics"
)

// Builder is the part of a provider the scheduler drives.
type Builder interface {
	Name() string
	BuildCatalog(ctx context.Context) error
	Catalog() *catalog.Catalog
}

type Scheduler struct {
	builders     []Builder
	interval     time.Duration
	buildTimeout time.Duration
	logger       *zap.SugaredLogger
}

func New(builders []Builder, interval, buildTimeout time.Duration, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		builders:     builders,
		interval:     interval,
		buildTimeout: buildTimeout,
		logger:       logger,
	}
}

// Start runs an immediate build of every provider, then rebuilds on each
// tick until the context is canceled. It blocks.
func (s *Scheduler) Start(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("refresh scheduler stopping")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce rebuilds every provider catalog concurrently. Each build is
// bounded by the build timeout and settles independently; one provider
// failing never blocks another's rebuild.
func (s *Scheduler) RunOnce(ctx context.Context) {
	tasks := make([]func(context.Context) (struct{}, error), 0, len(s.builders))
	for _, b := range s.builders {
		b := b
		tasks = append(tasks, func(ctx context.Context) (struct{}, error) {
			buildCtx, cancel := context.WithTimeout(ctx, s.buildTimeout)
			defer cancel()

			start := time.Now()
			err := b.BuildCatalog(buildCtx)
			took := time.Since(start)
			metrics.BuildDuration.WithLabelValues(b.Name()).Observe(took.Seconds())
			if err != nil {
				metrics.BuildFailures.WithLabelValues(b.Name()).Inc()
				s.logger.Errorw("catalog build failed", "provider", b.Name(), "took", took, "err", err)
				return struct{}{}, err
			}
			metrics.LastBuildSuccess.WithLabelValues(b.Name()).SetToCurrentTime()
			metrics.CatalogAssets.WithLabelValues(b.Name()).Set(float64(len(b.Catalog().Assets)))
			return struct{}{}, nil
		})
	}
	fanout.All(ctx, tasks)
}
