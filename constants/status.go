package constants

// DocumentStatus is the per-document outcome recorded by the batch collector.
type DocumentStatus string

// Stable values (logged and counted, never persisted).
const (
	DocumentStatusParsed      DocumentStatus = "PARSED"      // fields extracted and parsed
	DocumentStatusEmptyText   DocumentStatus = "EMPTY_TEXT"  // text extraction yielded nothing
	DocumentStatusLLMFailed   DocumentStatus = "LLM_FAILED"  // field extractor returned an error
	DocumentStatusUnparseable DocumentStatus = "UNPARSEABLE" // response was not valid JSON
	DocumentStatusSkipped     DocumentStatus = "SKIPPED"     // context cancelled before extraction
)
