package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/do/v2"

	"github.com/diegopettorossi/pack-data-challenge/pkg/config"
	"github.com/diegopettorossi/pack-data-challenge/pkg/dimension"
	"github.com/diegopettorossi/pack-data-challenge/pkg/facts"
	"github.com/diegopettorossi/pack-data-challenge/pkg/ingest"
	"github.com/diegopettorossi/pack-data-challenge/pkg/job"
	"github.com/diegopettorossi/pack-data-challenge/pkg/observability"
	"github.com/diegopettorossi/pack-data-challenge/pkg/quality"
	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
	"github.com/diegopettorossi/pack-data-challenge/pkg/warehouse"
)

const databaseOpenTimeout = 15 * time.Second

func setupDI(cfg config.Pipeline, logger *slog.Logger, tel *telemetry) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue[observability.MetricsRecorder](injector, tel.metrics)
	do.ProvideValue[observability.SpanManager](injector, tel.spans)

	do.Provide(injector, func(i do.Injector) (*warehouse.DB, error) {
		cfg := do.MustInvoke[config.Pipeline](i)
		driver, err := warehouse.ParseDriver(cfg.DBDriver)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), databaseOpenTimeout)
		defer cancel()
		db, err := warehouse.Open(ctx, driver, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open %s warehouse: %w", driver, err)
		}
		return db, nil
	})

	do.Provide(injector, func(i do.Injector) (facts.Store, error) {
		return facts.NewSQLStore(do.MustInvoke[*warehouse.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (dimension.Store, error) {
		return dimension.NewSQLStore(do.MustInvoke[*warehouse.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*ingest.RawStore, error) {
		return ingest.NewRawStore(do.MustInvoke[*warehouse.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*warehouse.RunLog, error) {
		return warehouse.NewRunLog(do.MustInvoke[*warehouse.DB](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*ingest.Loader, error) {
		return ingest.NewLoader(do.MustInvoke[*slog.Logger](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*reconcile.Reconciler, error) {
		cfg := do.MustInvoke[config.Pipeline](i)
		return reconcile.New(cfg.DefaultSessionDuration,
			reconcile.WithWorkers(cfg.Workers),
			reconcile.WithLogger(do.MustInvoke[*slog.Logger](i)),
		)
	})
	do.Provide(injector, func(i do.Injector) (*facts.Deriver, error) {
		return facts.NewDeriver(do.MustInvoke[facts.Store](i),
			facts.WithLogger(do.MustInvoke[*slog.Logger](i)),
			facts.WithMetrics(do.MustInvoke[observability.MetricsRecorder](i)),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*dimension.Tracker, error) {
		return dimension.NewTracker(do.MustInvoke[dimension.Store](i),
			dimension.WithLogger(do.MustInvoke[*slog.Logger](i)),
			dimension.WithMetrics(do.MustInvoke[observability.MetricsRecorder](i)),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*quality.Checker, error) {
		cfg := do.MustInvoke[config.Pipeline](i)
		return quality.NewChecker(quality.Thresholds{
			MaxOrphanRate:      cfg.MaxOrphanRate,
			MaxDurationMinutes: cfg.MaxDurationMinutes,
			TierGroupA:         cfg.TierGroupA,
			TierGroupB:         cfg.TierGroupB,
			KnownTiers:         cfg.KnownTiers,
		},
			quality.WithLogger(do.MustInvoke[*slog.Logger](i)),
			quality.WithMetrics(do.MustInvoke[observability.MetricsRecorder](i)),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*job.Job, error) {
		return job.New(job.Deps{
			Config:     do.MustInvoke[config.Pipeline](i),
			Loader:     do.MustInvoke[*ingest.Loader](i),
			Raw:        do.MustInvoke[*ingest.RawStore](i),
			Reconciler: do.MustInvoke[*reconcile.Reconciler](i),
			Facts:      do.MustInvoke[facts.Store](i),
			Deriver:    do.MustInvoke[*facts.Deriver](i),
			Tracker:    do.MustInvoke[*dimension.Tracker](i),
			Checker:    do.MustInvoke[*quality.Checker](i),
			RunLog:     do.MustInvoke[*warehouse.RunLog](i),
			Logger:     do.MustInvoke[*slog.Logger](i),
			Metrics:    do.MustInvoke[observability.MetricsRecorder](i),
			Spans:      do.MustInvoke[observability.SpanManager](i),
		})
	})

	return injector
}
