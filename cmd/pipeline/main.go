// Command pipeline runs the mentoring event pipeline once.
//
// Usage:
//
//	pipeline [-mode full|ingest-only|transform-only|quality-only] [-config config.yaml] [-clean]
//
// Exit codes: 0 on success, 1 when the input data is invalid or a data-quality
// check fails, 2 on any other failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/diegopettorossi/pack-data-challenge/pkg/config"
	perrors "github.com/diegopettorossi/pack-data-challenge/pkg/errors"
	"github.com/diegopettorossi/pack-data-challenge/pkg/job"
	"github.com/diegopettorossi/pack-data-challenge/pkg/quality"
	"github.com/diegopettorossi/pack-data-challenge/pkg/warehouse"
)

const (
	exitOK        = 0
	exitData      = 1
	exitInfra     = 2
	defaultMode   = string(job.ModeFull)
	defaultCfg    = "config.yaml"
	defaultDotEnv = ".env"
)

func main() {
	os.Exit(run())
}

func run() int {
	modeFlag := flag.String("mode", defaultMode, "run mode: full, ingest-only, transform-only, quality-only")
	cfgPath := flag.String("config", defaultCfg, "path to the YAML or JSON config file")
	clean := flag.Bool("clean", false, "drop all warehouse tables, history included, before running")
	envFile := flag.String("env-file", defaultDotEnv, "optional dotenv file loaded before reading PIPELINE_* variables")
	flag.Parse()

	mode, err := job.ParseMode(*modeFlag)
	if err != nil {
		slog.Error("invalid flags", "error", err)
		return exitInfra
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		slog.Error("load env file", "error", err)
		return exitInfra
	}
	cfg, warnings, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("config validation failed", "error", err)
		return exitInfra
	}
	logger := initLogger(cfg)
	for _, w := range warnings {
		logger.Warn("config", "warning", w)
	}

	telemetry, err := setupTelemetry(logger)
	if err != nil {
		logger.Error("telemetry setup failed", "error", err)
		return exitInfra
	}
	defer telemetry.shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	injector := setupDI(cfg, logger, telemetry)

	db, err := do.Invoke[*warehouse.DB](injector)
	if err != nil {
		logger.Error("open warehouse", "error", err)
		return exitInfra
	}
	defer db.Close()

	if *clean {
		logger.Warn("dropping warehouse tables", slog.String("db_path", cfg.DBPath))
		if err := db.Clean(ctx); err != nil {
			logger.Error("clean warehouse", "error", err)
			return exitInfra
		}
	}
	if err := db.Migrate(ctx); err != nil {
		logger.Error("migrate warehouse", "error", err)
		return exitInfra
	}

	j, err := do.Invoke[*job.Job](injector)
	if err != nil {
		logger.Error("build pipeline", "error", err)
		return exitInfra
	}

	sum, runErr := j.Run(ctx, mode)
	telemetry.report(context.Background())
	printSummary(sum)
	if runErr != nil {
		logger.Error("pipeline run failed", "run_id", sum.RunID, "status", sum.Status, "error", runErr)
	}
	return exitCode(runErr)
}

func initLogger(cfg config.Pipeline) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Environment == config.EnvDev {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case perrors.Categorize(err) == perrors.CategoryIntegrity,
		errors.Is(err, quality.ErrChecksFailed):
		return exitData
	default:
		return exitInfra
	}
}

func printSummary(sum job.Summary) {
	dq := "not run"
	if sum.DQPassed != nil {
		dq = "failed"
		if *sum.DQPassed {
			dq = "passed"
		}
	}
	fmt.Fprintf(os.Stderr, "run %s (%s): %s in %s\n", sum.RunID, sum.Mode, sum.Status, sum.Duration)
	fmt.Fprintf(os.Stderr, "  new events:      %d\n", sum.NewEvents)
	fmt.Fprintf(os.Stderr, "  new users:       %d\n", sum.NewUsers)
	fmt.Fprintf(os.Stderr, "  facts inserted:  %d (skipped %d)\n", sum.FactsInserted, sum.FactsSkipped)
	fmt.Fprintf(os.Stderr, "  mentor versions: %d opened, %d changed, %d unchanged\n",
		sum.Dimension.Opened, sum.Dimension.Changed, sum.Dimension.Unchanged)
	fmt.Fprintf(os.Stderr, "  data quality:    %s\n", dq)
	for _, w := range sum.Warnings {
		fmt.Fprintf(os.Stderr, "  ! %s\n", w)
	}
}
