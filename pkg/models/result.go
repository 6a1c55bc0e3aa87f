package models

import "time"

// Status is the terminal state of one processed file.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// LocaleBatch pairs a locale code with the raw screenshot files discovered
// under its input subdirectory. Immutable for the duration of one run.
type LocaleBatch struct {
	Locale string   `json:"locale"`
	Dir    string   `json:"dir"`
	Files  []string `json:"files"`
}

// ProcessingResult records the outcome for a single input file. Results are
// append-only: created once during processing, never mutated afterwards.
type ProcessingResult struct {
	Locale       string    `json:"locale"`
	InputPath    string    `json:"input_path"`
	OutputPath   string    `json:"output_path,omitempty"`
	Status       Status    `json:"status"`
	ErrorKind    ErrorKind `json:"error_kind,omitempty"`
	ErrorDetail  string    `json:"error_detail,omitempty"`
	InputWidth   int       `json:"input_width,omitempty"`
	InputHeight  int       `json:"input_height,omitempty"`
	OutputWidth  int       `json:"output_width,omitempty"`
	OutputHeight int       `json:"output_height,omitempty"`
	ProcessedAt  time.Time `json:"processed_at"`
}

// RunSummary aggregates one pipeline run.
type RunSummary struct {
	RunID     string             `json:"run_id"`
	Mode      string             `json:"mode"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Skipped   int                `json:"skipped"`
	Promoted  bool               `json:"promoted"`
	DryRun    bool               `json:"dry_run"`
	Results   []ProcessingResult `json:"results"`
}

// Failures returns the failed results only, for per-failure reporting.
func (s *RunSummary) Failures() []ProcessingResult {
	var out []ProcessingResult
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}
