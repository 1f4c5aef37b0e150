package pipeline

import "github.com/joseph-ayodele/candidate-search/constants"

// BatchStats tallies outcomes by status.
type BatchStats struct {
	Documents   int `json:"documents"`
	Parsed      int `json:"parsed"`
	EmptyText   int `json:"empty_text"`
	LLMFailed   int `json:"llm_failed"`
	Unparseable int `json:"unparseable"`
	Skipped     int `json:"skipped"`
}

func Summarize(outcomes []Outcome) BatchStats {
	s := BatchStats{Documents: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case constants.DocumentStatusParsed:
			s.Parsed++
		case constants.DocumentStatusEmptyText:
			s.EmptyText++
		case constants.DocumentStatusLLMFailed:
			s.LLMFailed++
		case constants.DocumentStatusUnparseable:
			s.Unparseable++
		case constants.DocumentStatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// Failed counts documents that produced an empty record.
func (s BatchStats) Failed() int {
	return s.EmptyText + s.LLMFailed + s.Unparseable + s.Skipped
}
