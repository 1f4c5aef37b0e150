package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/candidate-search/internal/entity"
)

var fence = regexp.MustCompile("```(?:json|JSON)?")

// ErrNoJSONObject is returned when a response holds no decodable JSON object.
var ErrNoJSONObject = errors.New("response is not a JSON object")

// StripCodeFences removes markdown code fences (```json and ```) anywhere in s.
func StripCodeFences(s string) string {
	return strings.TrimSpace(fence.ReplaceAllString(s, ""))
}

// ParseRaw decodes a model response into a RawRecord. Fences are stripped first; if the
// remainder is not an object, the outermost {...} span is tried before giving up.
// On failure the returned record is empty, never nil.
func ParseRaw(content string) (entity.RawRecord, error) {
	cleaned := StripCodeFences(content)
	if rec, err := decodeObject(cleaned); err == nil {
		return rec, nil
	}

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start >= 0 && end > start {
		if rec, err := decodeObject(cleaned[start : end+1]); err == nil {
			return rec, nil
		}
	}
	return entity.RawRecord{}, fmt.Errorf("%w (%d bytes)", ErrNoJSONObject, len(content))
}

// ParseAndCheck is ParseRaw plus a warn-only schema check.
func ParseAndCheck(content string, logger *slog.Logger, attrs ...any) (entity.RawRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rec, err := ParseRaw(content)
	if err != nil {
		return rec, err
	}
	b, _ := json.Marshal(rec)
	if vErr := ValidateJSONAgainstSchema(BuildResumeJSONSchema(), b); vErr != nil {
		logger.Warn("llm.parse.schema_mismatch", append(attrs, "error", vErr)...)
	}
	return rec, nil
}

func decodeObject(s string) (entity.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoJSONObject
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON object")
	}
	return rec, nil
}
