package domain

import "time"

// FeatureSummary describes a written gold table: how many weeks it holds and
// the range they span. FirstWeek and LastWeek are nil for an empty table.
type FeatureSummary struct {
	Rows      int        `json:"rows" db:"rows"`
	FirstWeek *time.Time `json:"first_week,omitempty" db:"first_week"`
	LastWeek  *time.Time `json:"last_week,omitempty" db:"last_week"`
}

// SummarizeFeatures computes the summary of rows in memory.
func SummarizeFeatures(rows []WeeklyFeatureRow) FeatureSummary {
	s := FeatureSummary{Rows: len(rows)}
	for i := range rows {
		wk := rows[i].WeekStartDate
		if s.FirstWeek == nil || wk.Before(*s.FirstWeek) {
			s.FirstWeek = ptr(wk)
		}
		if s.LastWeek == nil || wk.After(*s.LastWeek) {
			s.LastWeek = ptr(wk)
		}
	}
	return s
}
