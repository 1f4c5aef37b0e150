package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
	"github.com/joseph-ayodele/candidate-search/internal/export"
	"github.com/joseph-ayodele/candidate-search/internal/ingest"
)

// CandidateSink receives the flat table of every successful run.
type CandidateSink interface {
	ReplaceAll(ctx context.Context, rows []entity.CandidateRow) error
}

// RefreshNotifier announces finished runs.
type RefreshNotifier interface {
	PublishRefresh(ctx context.Context, ev entity.RefreshEvent) error
}

type RunnerConfig struct {
	Source    ingest.Source
	Collector *Collector
	Exporter  *export.Service
	Sink      CandidateSink   // optional
	Notifier  RefreshNotifier // optional
	Metrics   *Metrics        // optional
}

// Runner executes one full batch: list -> collect -> export -> store -> notify.
type Runner struct {
	cfg    RunnerConfig
	logger *slog.Logger
}

// Report summarizes one run.
type Report struct {
	RunID    string
	Dir      ingest.DirStats
	Batch    BatchStats
	Written  export.Written
	Outcomes []Outcome
	Elapsed  time.Duration
}

func NewRunner(cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run regenerates the whole collection. A missing source is fatal
// (common.ErrSourceNotFound); a cancelled run leaves previous outputs untouched.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	rep := Report{RunID: uuid.NewString()}
	ctx = common.WithRunID(ctx, rep.RunID)
	r.logger.Info("pipeline.run.start", "run_id", rep.RunID)

	fail := func(stage string, err error) (Report, error) {
		rep.Elapsed = time.Since(start)
		r.cfg.Metrics.run("error", 0)
		r.logger.Error("pipeline.run.failed",
			"run_id", rep.RunID,
			"stage", stage,
			"err", err,
			"elapsed_ms", rep.Elapsed.Milliseconds(),
		)
		return rep, fmt.Errorf("%s: %w", stage, err)
	}

	docs, dirStats, err := r.cfg.Source.List(ctx)
	rep.Dir = dirStats
	if err != nil {
		return fail("list documents", err)
	}

	candidates, outcomes := r.cfg.Collector.CollectWithOutcomes(ctx, docs)
	rep.Outcomes = outcomes
	rep.Batch = Summarize(outcomes)
	if err := ctx.Err(); err != nil {
		return fail("collect", err)
	}

	written, err := r.cfg.Exporter.Write(ctx, candidates)
	rep.Written = written
	if err != nil {
		return fail("export", err)
	}

	if r.cfg.Sink != nil {
		if err := r.cfg.Sink.ReplaceAll(ctx, export.Flatten(candidates)); err != nil {
			return fail("store", err)
		}
	}

	rep.Elapsed = time.Since(start)
	r.cfg.Metrics.run("ok", len(candidates))

	if r.cfg.Notifier != nil {
		ev := entity.RefreshEvent{
			RunID:      rep.RunID,
			Candidates: len(candidates),
			Parsed:     rep.Batch.Parsed,
			Failed:     rep.Batch.Failed(),
			CSVPath:    written.CSVPath,
			FinishedAt: time.Now().UTC(),
		}
		if err := r.cfg.Notifier.PublishRefresh(ctx, ev); err != nil {
			r.logger.Warn("pipeline.run.notify_failed", "run_id", rep.RunID, "err", err)
		}
	}

	r.logger.Info("pipeline.run.ok",
		"run_id", rep.RunID,
		"scanned", rep.Dir.Scanned,
		"matched", rep.Dir.Matched,
		"candidates", len(candidates),
		"parsed", rep.Batch.Parsed,
		"failed", rep.Batch.Failed(),
		"elapsed_ms", rep.Elapsed.Milliseconds(),
	)
	return rep, nil
}
