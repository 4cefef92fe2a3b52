package indexer

import "time"

// Status is one state of the per-project index-run state machine:
// idle → indexing → {completed, error}.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusIndexing  Status = "indexing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Progress is the observable state of the most recent (or in-flight) index
// run for a project. Terminal states persist until a new run overwrites them.
type Progress struct {
	Status     Status    `json:"status"`
	TotalFiles int       `json:"total_files"`
	Processed  int       `json:"processed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Error      string    `json:"error,omitempty"`
}
