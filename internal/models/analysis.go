package models

import "time"

// AnalysisStatus tells whether a recommendation exists for a run.
type AnalysisStatus string

const (
	AnalysisOK     AnalysisStatus = "ok"
	AnalysisAbsent AnalysisStatus = "absent"
)

// AnalysisRecord is the outcome of asking the analysis service about a run.
// An absent record is a valid terminal state, not a data error.
type AnalysisRecord struct {
	RunID     string         `json:"run_id"`
	CreatedAt time.Time      `json:"created_at"`
	Status    AnalysisStatus `json:"status"`

	// Recommendation is the service's text. Empty when Status is absent.
	Recommendation string `json:"recommendation,omitempty"`

	// Reason explains an absent record.
	Reason string `json:"reason,omitempty"`

	// Attempts is how many calls were made to the service.
	Attempts int `json:"attempts"`

	Model string `json:"model,omitempty"`
}

// Absent reports whether no recommendation was produced.
func (a AnalysisRecord) Absent() bool {
	return a.Status != AnalysisOK
}
