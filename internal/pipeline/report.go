package pipeline

import (
	"time"

	"github.com/couchcryptid/health-environment-etl/internal/domain"
)

// Report describes a completed transform run.
type Report struct {
	RunID           string                      `json:"run_id"`
	StartedAt       time.Time                   `json:"started_at"`
	DurationSeconds float64                     `json:"duration_seconds"`
	Sources         map[string]SourceReport     `json:"sources"`
	GoldRows        int                         `json:"gold_rows"`
	Completeness    map[domain.Completeness]int `json:"completeness"`
	BeforeStart     int                         `json:"before_start"`
	Summary         domain.FeatureSummary       `json:"summary"`
	Published       bool                        `json:"published"`
}

// SourceReport tallies one silver cleaner.
type SourceReport struct {
	Input   int                        `json:"input"`
	Kept    int                        `json:"kept"`
	Dropped int                        `json:"dropped"`
	Flags   map[domain.QualityFlag]int `json:"flags"`
}

func newSourceReport[T any](res domain.CleanResult[T]) SourceReport {
	return SourceReport{
		Input:   res.Input(),
		Kept:    len(res.Rows),
		Dropped: res.Dropped(),
		Flags:   res.Flags,
	}
}
