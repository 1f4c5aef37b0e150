package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/candidate-search/constants"
	"github.com/joseph-ayodele/candidate-search/internal/common"
	"github.com/joseph-ayodele/candidate-search/internal/entity"
	"github.com/joseph-ayodele/candidate-search/internal/extract"
	"github.com/joseph-ayodele/candidate-search/internal/ingest"
	"github.com/joseph-ayodele/candidate-search/internal/llm"
	"github.com/joseph-ayodele/candidate-search/internal/normalize"
)

// Outcome is the per-document result of a collection.
type Outcome struct {
	File     string
	Status   constants.DocumentStatus
	Err      string
	Duration time.Duration
}

// Collector turns documents into candidates: text -> fields -> parse -> normalize.
// Per-document failures degrade to an empty record and never abort the batch.
type Collector struct {
	text    extract.TextExtractor
	fields  llm.FieldExtractor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	metrics *Metrics
}

func NewCollector(text extract.TextExtractor, fields llm.FieldExtractor, logger *slog.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collector{
		text:    text,
		fields:  fields,
		logger:  logger,
		workers: 4,
		timeout: 2 * time.Minute,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Collect returns one candidate per document, in input order.
func (c *Collector) Collect(ctx context.Context, docs []ingest.Document) []entity.Candidate {
	out, _ := c.CollectWithOutcomes(ctx, docs)
	return out
}

// CollectWithOutcomes is Collect plus the per-document outcomes, index-aligned with docs.
// Once ctx is cancelled no new document is started; remaining slots are marked skipped.
func (c *Collector) CollectWithOutcomes(ctx context.Context, docs []ingest.Document) ([]entity.Candidate, []Outcome) {
	start := time.Now()
	candidates := make([]entity.Candidate, len(docs))
	outcomes := make([]Outcome, len(docs))

	c.logger.Info("pipeline.collect.start",
		"run_id", common.RunIDFromContext(ctx),
		"documents", len(docs),
		"workers", c.workers,
	)

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i := range docs {
		if ctx.Err() != nil {
			candidates[i], outcomes[i] = skipped(docs[i])
			continue
		}
		g.Go(func() error {
			candidates[i], outcomes[i] = c.collectOne(ctx, docs[i])
			return nil
		})
	}
	_ = g.Wait()
	for _, o := range outcomes {
		if o.Status == constants.DocumentStatusSkipped {
			c.metrics.observe(o)
		}
	}

	stats := Summarize(outcomes)
	c.logger.Info("pipeline.collect.done",
		"run_id", common.RunIDFromContext(ctx),
		"documents", stats.Documents,
		"parsed", stats.Parsed,
		"empty_text", stats.EmptyText,
		"llm_failed", stats.LLMFailed,
		"unparseable", stats.Unparseable,
		"skipped", stats.Skipped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return candidates, outcomes
}

func (c *Collector) collectOne(parent context.Context, doc ingest.Document) (entity.Candidate, Outcome) {
	if parent.Err() != nil {
		return skipped(doc)
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	finish := func(raw entity.RawRecord, status constants.DocumentStatus, err error) (entity.Candidate, Outcome) {
		cand := normalize.Normalize(raw)
		cand.SourceFile = doc.Name
		o := Outcome{File: doc.Name, Status: status, Duration: time.Since(start)}
		if err != nil {
			o.Err = err.Error()
		}
		c.metrics.observe(o)
		return cand, o
	}

	res, err := c.text.Extract(ctx, doc.Name, doc.Data)
	if err != nil {
		c.logger.Warn("pipeline.collect.text_failed", "file", doc.Name, "err", err)
	}
	if err != nil || strings.TrimSpace(res.Text) == "" {
		return finish(nil, constants.DocumentStatusEmptyText, err)
	}

	// the batch was cancelled while extracting text; don't start an LLM call
	if parent.Err() != nil {
		return skipped(doc)
	}

	content, err := c.fields.ExtractFields(ctx, llm.ExtractRequest{Text: res.Text, Filename: doc.Name})
	if err != nil {
		if errors.Is(err, context.Canceled) && parent.Err() != nil {
			return skipped(doc)
		}
		c.logger.Warn("pipeline.collect.llm_failed", "file", doc.Name, "err", err)
		return finish(nil, constants.DocumentStatusLLMFailed, err)
	}

	raw, err := llm.ParseAndCheck(content, c.logger, "file", doc.Name)
	if err != nil {
		c.logger.Warn("pipeline.collect.unparseable", "file", doc.Name, "err", err, "content_len", len(content))
		return finish(nil, constants.DocumentStatusUnparseable, err)
	}

	c.logger.Debug("pipeline.collect.parsed",
		"file", doc.Name,
		"pages", res.Pages,
		"method", res.Method,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return finish(raw, constants.DocumentStatusParsed, nil)
}

func skipped(doc ingest.Document) (entity.Candidate, Outcome) {
	cand := normalize.Normalize(nil)
	cand.SourceFile = doc.Name
	return cand, Outcome{File: doc.Name, Status: constants.DocumentStatusSkipped, Err: context.Canceled.Error()}
}
