package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/candidate-search/constants"
	"github.com/joseph-ayodele/candidate-search/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	MaxChars  int    // 0 = no limit

	// OCR fallback for scanned PDFs
	OCR           bool
	Pdftoppm      string // default "pdftoppm"
	Tesseract     string // default "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // default 300
	MaxPages      int // 0 = all pages
}

// ConfigFrom maps the environment-level extraction settings.
func ConfigFrom(c common.ExtractConfig) Config {
	return Config{
		Pdftotext:     c.Pdftotext,
		MaxChars:      c.MaxChars,
		OCR:           c.OCR,
		Pdftoppm:      c.Pdftoppm,
		Tesseract:     c.Tesseract,
		TesseractLang: c.TesseractLang,
		TessdataDir:   c.TessdataDir,
		DPI:           c.OCRDPI,
		MaxPages:      c.OCRMaxPages,
	}
}

// Extractor picks a strategy from the document's extension.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner used for the pdftotext and OCR fallbacks.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) Extract(ctx context.Context, name string, data []byte) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(name))
	e.logger.Debug("extract.start", "file", name, "ext", ext, "bytes", len(data))

	var (
		res Result
		err error
	)
	switch format := constants.MapExtToFormat(ext); format {
	case constants.PDF:
		res, err = e.extractPDF(ctx, name, data)
	case constants.DOCX:
		res, err = extractDOCX(data)
	case constants.TXT:
		res = Result{Text: string(data), Pages: 1, Method: "plain"}
	default:
		e.logger.Error("extract.unsupported", "file", name, "extension", ext)
		return Result{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	res.Format = constants.MapExtToFormat(ext)
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Warn("extract.failed", "file", name, "method", res.Method, "err", err)
		return res, err
	}

	var truncated bool
	res.Text, truncated = Clean(res.Text, e.cfg.MaxChars)
	if truncated {
		res.Warnings = append(res.Warnings, fmt.Sprintf("text truncated to %d chars", e.cfg.MaxChars))
	}
	e.logger.Debug("extract.ok",
		"file", name,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
