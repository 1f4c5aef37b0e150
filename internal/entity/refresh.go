package entity

import "time"

// RefreshEvent announces that a batch run replaced the candidate collection.
type RefreshEvent struct {
	RunID      string    `json:"run_id"`
	Candidates int       `json:"candidates"`
	Parsed     int       `json:"parsed"`
	Failed     int       `json:"failed"`
	CSVPath    string    `json:"csv_path,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
