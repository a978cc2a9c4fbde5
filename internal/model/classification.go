package model

import "time"

// Classification is the full derived output for one permit revision.
// It replaces any previously stored derived rows for that revision.
type Classification struct {
	Key          PermitKey      `json:"key"`
	ProjectType  *string        `json:"project_type"`
	ScopeTags    []string       `json:"scope_tags"`
	ScopeSource  *ScopeSource   `json:"scope_source"`
	TradeMatches []TradeMatch   `json:"trade_matches"`
	Products     []ProductMatch `json:"products"`
	ClassifiedAt time.Time      `json:"classified_at"`
}

// ReclassifyStats aggregates the outcome of a batch reclassification run.
type ReclassifyStats struct {
	RunID             string    `json:"run_id"`
	Classified        int       `json:"classified"`
	Errors            int       `json:"errors"`
	TradeMatchesTotal int       `json:"trade_matches_total"`
	ProductsTotal     int       `json:"products_total"`
	Propagated        int       `json:"propagated"`
	// Unclassified counts companion permits left without a scope source
	// because no sibling carried scope tags. They may still hold trade
	// matches from their own fields.
	Unclassified int       `json:"unclassified"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Processed returns the number of permits attempted.
func (s ReclassifyStats) Processed() int {
	return s.Classified + s.Errors
}

// ErrorRate returns errors over processed permits, or 0 when nothing ran.
func (s ReclassifyStats) ErrorRate() float64 {
	n := s.Processed()
	if n == 0 {
		return 0
	}
	return float64(s.Errors) / float64(n)
}
