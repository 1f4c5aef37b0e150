package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/export"
	"github.com/joseph-ayodele/candidate-search/internal/extract"
	"github.com/joseph-ayodele/candidate-search/internal/ingest"
	"github.com/joseph-ayodele/candidate-search/internal/llm"
	"github.com/joseph-ayodele/candidate-search/internal/llm/gemini"
	"github.com/joseph-ayodele/candidate-search/internal/llm/openai"
	"github.com/joseph-ayodele/candidate-search/internal/notify"
	"github.com/joseph-ayodele/candidate-search/internal/pipeline"
	"github.com/joseph-ayodele/candidate-search/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	cfg := common.LoadConfig()

	// Flags override the environment
	var (
		dir         = flag.String("dir", cfg.Source.Dir, "directory to read resumes from")
		out         = flag.String("out", cfg.Output.Dir, "directory to write resumes.json / resumes.csv to")
		xlsx        = flag.Bool("xlsx", cfg.Output.WriteXLSX, "also write resumes.xlsx")
		provider    = flag.String("provider", cfg.LLM.Provider, "llm provider: openai or gemini")
		workers     = flag.Int("workers", cfg.Pipeline.Workers, "documents extracted concurrently")
		sqlitePath  = flag.String("sqlite", cfg.Database.SQLitePath, "also store the table in this sqlite file")
		watch       = flag.Bool("watch", false, "keep running and re-run when resumes change")
		metricsAddr = flag.String("metrics-addr", "", "serve /metrics on this address (watch mode)")
	)
	flag.Parse()

	cfg.Source.Dir = *dir
	cfg.Output.Dir = *out
	cfg.Output.WriteXLSX = *xlsx
	cfg.Pipeline.Workers = *workers
	cfg.Database.SQLitePath = *sqlitePath
	if *provider != cfg.LLM.Provider {
		cfg.SetProvider(*provider)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := cfg.ValidateBatch(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *watch, *metricsAddr, logger); err != nil {
		logger.Error("batch failed", "error", err)
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, watch bool, metricsAddr string, logger *slog.Logger) error {
	fields, err := newFieldExtractor(ctx, cfg, logger)
	if err != nil {
		return err
	}

	source, err := newSource(ctx, cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(reg)

	text := extract.NewExtractor(extract.ConfigFrom(cfg.Extract), logger)
	collector := pipeline.NewCollector(text, fields, logger,
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithDocumentTimeout(cfg.Pipeline.DocumentTimeout),
		pipeline.WithMetrics(metrics),
	)

	runnerCfg := pipeline.RunnerConfig{
		Source:    source,
		Collector: collector,
		Exporter:  export.NewService(cfg.Output, logger),
		Metrics:   metrics,
	}

	if cfg.Database.DSN != "" || cfg.Database.SQLitePath != "" {
		store, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("open candidate store: %w", err)
		}
		defer store.Close()
		runnerCfg.Sink = store
	}

	if cfg.Broker.URL != "" {
		conn, ch, err := notify.Dial(cfg.Broker.URL, cfg.Broker.Exchange)
		if err != nil {
			// the dashboard can still be reloaded by hand
			logger.Warn("refresh notifications disabled", "error", err)
		} else {
			defer conn.Close()
			defer ch.Close()
			runnerCfg.Notifier = notify.NewPublisher(ch, cfg.Broker.Exchange, logger)
		}
	}

	runner := pipeline.NewRunner(runnerCfg, logger)
	if !watch {
		rep, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		printReport(rep)
		return nil
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
	return watchLoop(ctx, cfg, runner, logger)
}

// watchLoop runs once, then again after every debounced batch of changes.
func watchLoop(ctx context.Context, cfg *common.Config, runner *pipeline.Runner, logger *slog.Logger) error {
	if cfg.Source.Dir == "" {
		return common.NewAppError("CONFIG_ERROR", "-watch needs a resume directory", common.ErrInvalidInput)
	}
	changes, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:      []string{cfg.Source.Dir},
		SkipHidden: cfg.Source.SkipHidden,
		Debounce:   cfg.Pipeline.WatchDebounce,
	}, logger)
	if err != nil {
		return err
	}

	if rep, err := runner.Run(ctx); err != nil {
		logger.Error("initial run failed", "error", err)
	} else {
		printReport(rep)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		case paths, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Info("resumes changed", "paths", len(paths))
			if rep, err := runner.Run(ctx); err != nil {
				logger.Error("run failed", "error", err)
			} else {
				printReport(rep)
			}
		}
	}
}

func newFieldExtractor(ctx context.Context, cfg *common.Config, logger *slog.Logger) (llm.FieldExtractor, error) {
	switch cfg.LLM.Provider {
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			MaxChars:    cfg.Extract.MaxChars,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Gemini client initialized", "model", cfg.LLM.Model)
		return c, nil
	case "openai":
		c := openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			MaxChars:    cfg.Extract.MaxChars,
		}, logger)
		logger.Info("OpenAI client initialized", "model", cfg.LLM.Model)
		return c, nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unknown llm provider "+cfg.LLM.Provider, common.ErrInvalidInput)
	}
}

func newSource(ctx context.Context, cfg *common.Config, logger *slog.Logger) (ingest.Source, error) {
	if cfg.Source.S3Bucket == "" {
		return ingest.NewDirectory(cfg.Source.Dir, cfg.Source.SkipHidden, logger), nil
	}
	client, err := ingest.NewS3Client(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}
	logger.Info("reading resumes from object storage", "bucket", cfg.Source.S3Bucket, "prefix", cfg.Source.S3Prefix)
	return ingest.NewS3Source(client, cfg.Source.S3Bucket, cfg.Source.S3Prefix, cfg.Source.SkipHidden, logger), nil
}

func printReport(rep pipeline.Report) {
	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Run: %s\n", rep.RunID)
	fmt.Printf("- Files scanned: %d (matched %d, skipped %d)\n", rep.Dir.Scanned, rep.Dir.Matched, rep.Dir.Skipped)
	fmt.Printf("- Candidates: %d (parsed %d, failed %d)\n", rep.Batch.Documents, rep.Batch.Parsed, rep.Batch.Failed())
	fmt.Printf("- JSON: %s\n", rep.Written.JSONPath)
	fmt.Printf("- CSV: %s\n", rep.Written.CSVPath)
	if rep.Written.XLSXPath != "" {
		fmt.Printf("- XLSX: %s\n", rep.Written.XLSXPath)
	}
	fmt.Printf("- Elapsed: %s\n", rep.Elapsed.Round(time.Millisecond))
}
