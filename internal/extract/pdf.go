package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF reads the embedded text layer and falls back to pdftotext when that yields
// nothing (unusual encodings, broken xref tables). With OCR enabled, a document that still
// has no text is rasterized and run through tesseract.
func (e *Extractor) extractPDF(ctx context.Context, name string, data []byte) (Result, error) {
	text, pages, err := pdfText(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return Result{Text: text, Pages: pages, Method: "pdf-text"}, nil
	}

	var warns []string
	if err != nil {
		warns = append(warns, err.Error())
	}
	e.logger.Debug("extract.pdf.fallback", "file", name, "err", err)

	path, cleanup, err := writeTemp(data)
	if err != nil {
		return Result{Method: "pdftotext", Warnings: warns}, fmt.Errorf("failed to stage pdf: %w", err)
	}
	defer cleanup()

	text, pages, w, ferr := e.pdfToText(ctx, path)
	warns = append(warns, w...)
	if ferr == nil && (strings.TrimSpace(text) != "" || !e.cfg.OCR) {
		return Result{Text: text, Pages: pages, Method: "pdftotext", Warnings: warns}, nil
	}
	if !e.cfg.OCR {
		return Result{Method: "pdftotext", Warnings: warns}, fmt.Errorf("pdf text extraction failed: %w", ferr)
	}
	if ferr != nil {
		warns = append(warns, ferr.Error())
	}

	e.logger.Info("extract.pdf.ocr", "file", name)
	text, pages, w, oerr := e.pdfToOCR(ctx, path)
	warns = append(warns, w...)
	if oerr != nil {
		return Result{Method: "pdf-ocr", Warnings: warns}, fmt.Errorf("pdf ocr failed: %w", oerr)
	}
	return Result{Text: text, Pages: pages, Method: "pdf-ocr", Warnings: warns}, nil
}

func pdfText(data []byte) (text string, pages int, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to read pdf: %w", err)
	}
	var b strings.Builder
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		t, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t)
	}
	return b.String(), pages, nil
}

// writeTemp stages the document on disk for the command-line tools.
func writeTemp(data []byte) (string, func(), error) {
	tmp, err := os.CreateTemp("", "cs-pdf-*.pdf")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return tmp.Name(), cleanup, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = string(out)
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	return text, pages, nil, nil
}
