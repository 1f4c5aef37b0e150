package extract

import (
	"context"
	"time"
)

//go:generate mockgen -source=./contracts.go -destination=./mocks/text_extractor.mock.go -package=extractmocks TextExtractor

// TextExtractor is stage 1 of the collector: document bytes -> plain text.
type TextExtractor interface {
	Extract(ctx context.Context, name string, data []byte) (Result, error)
}

type Result struct {
	Text     string
	Pages    int
	Format   string // constants.PDF | constants.DOCX | constants.TXT
	Method   string // "pdf-text" | "pdftotext" | "docx-xml" | "plain"
	Duration time.Duration
	Warnings []string
}
