package llm

import "context"

type ExtractRequest struct {
	Text     string // extracted resume text
	Filename string // source document name, used as a hint and for logging
}

//go:generate mockgen -source=./contracts.go -destination=./mocks/field_extractor.mock.go -package=llmmocks FieldExtractor

// FieldExtractor is the interface our pipeline depends on. It returns the model's raw
// response text; parsing and coercion happen downstream.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (string, error)
}
