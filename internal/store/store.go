// Package store persists permits, their derived classification rows, the
// reference catalogs and the reclassification run log.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/permit-leads/internal/model"
)

// ErrNotFound is returned by point reads and writes of a missing permit.
var ErrNotFound = eris.New("store: not found")

// PermitFilter narrows the permits a batch run visits. Zero values match
// everything.
type PermitFilter struct {
	PermitType   string     `json:"permit_type,omitempty"`
	IncludeTypes []string   `json:"include_types,omitempty"`
	ExcludeTypes []string   `json:"exclude_types,omitempty"`
	IssuedSince  *time.Time `json:"issued_since,omitempty"`
}

// Run statuses in reclassify_runs.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// Run is one row of the reclassification run log.
type Run struct {
	ID          string                 `json:"id"`
	Status      string                 `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Stats       *model.ReclassifyStats `json:"stats,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// Store is the persistence interface for the classification core.
type Store interface {
	// Permits
	UpsertPermits(ctx context.Context, permits []model.Permit) error
	GetPermit(ctx context.Context, key model.PermitKey) (*model.Permit, error)
	ListPermits(ctx context.Context, filter PermitFilter, after model.PermitKey, limit int) ([]model.Permit, error)
	ListSiblings(ctx context.Context, basePermitNum string) ([]model.Permit, error)

	// Derived rows
	ReplaceDerived(ctx context.Context, c model.Classification) error
	GetDerived(ctx context.Context, key model.PermitKey) (*model.Classification, error)

	// Reference catalogs
	LoadActiveRules(ctx context.Context) ([]model.Rule, error)
	ListTrades(ctx context.Context) ([]model.Trade, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	SeedRules(ctx context.Context, rules []model.Rule) (int64, error)
	SeedTrades(ctx context.Context, trades []model.Trade) (int64, error)
	SeedProducts(ctx context.Context, products []model.Product) (int64, error)

	// Run log
	StartRun(ctx context.Context, id string, startedAt time.Time) error
	CompleteRun(ctx context.Context, stats model.ReclassifyStats) error
	FailRun(ctx context.Context, id string, completedAt time.Time, runErr error) error
	GetRun(ctx context.Context, id string) (*Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// basePrefixPattern returns the LIKE pattern matching permit numbers that
// extend base with further tokens. Wildcards in base are escaped with a
// backslash; queries must declare ESCAPE '\'.
func basePrefixPattern(base string) string {
	return likeEscaper.Replace(base) + " %"
}

// windowBounds splits a rule window into nullable columns.
func windowBounds(w *model.Window) (minAge, maxAge *int) {
	if w == nil {
		return nil, nil
	}
	lo, hi := w.MinAgeMonths, w.MaxAgeMonths
	return &lo, &hi
}

// windowFrom rebuilds a window; it is nil unless both bounds are set.
func windowFrom(minAge, maxAge *int) *model.Window {
	if minAge == nil || maxAge == nil {
		return nil
	}
	return &model.Window{MinAgeMonths: *minAge, MaxAgeMonths: *maxAge}
}

func scopeSourceArg(s *model.ScopeSource) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func scopeSourceFrom(s *string) *model.ScopeSource {
	if s == nil || *s == "" {
		return nil
	}
	v := model.ScopeSource(*s)
	return &v
}
