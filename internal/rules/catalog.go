// Package rules holds the tiered trade-mapping rule catalog. A Catalog is
// loaded once per classification run and never mutated afterwards.
package rules

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/model"
)

// Catalog source names.
const (
	SourceBuiltin = "builtin"
	SourceStore   = "store"
	SourceFile    = "file"
)

// Source supplies the active rules from a persistent location.
type Source interface {
	LoadActiveRules(ctx context.Context) ([]model.Rule, error)
}

// Catalog is an immutable, compiled rule set ordered by tier then id.
type Catalog struct {
	rules   []CompiledRule
	source  string
	skipped int
}

// NewCatalog compiles the active rules in rs. Rules that fail validation or
// compilation are logged and skipped; they never fail the catalog.
func NewCatalog(rs []model.Rule, source string) *Catalog {
	log := zap.L().With(zap.String("component", "rules.catalog"))

	c := &Catalog{source: source}
	for _, r := range rs {
		if !r.Active {
			continue
		}
		cr, err := Compile(r)
		if err != nil {
			c.skipped++
			log.Warn("skipping rule",
				zap.Int64("rule_id", r.ID),
				zap.Int("trade_id", r.TradeID),
				zap.String("pattern", r.MatchPattern),
				zap.Error(err),
			)
			continue
		}
		c.rules = append(c.rules, cr)
	}
	sort.SliceStable(c.rules, func(i, j int) bool {
		if c.rules[i].Tier != c.rules[j].Tier {
			return c.rules[i].Tier < c.rules[j].Tier
		}
		return c.rules[i].ID < c.rules[j].ID
	})
	return c
}

// Load builds a catalog from the first source in srcs that yields an
// active rule, falling back to the built-in defaults when none does.
func Load(ctx context.Context, srcs ...Source) (*Catalog, error) {
	for _, src := range srcs {
		if src == nil {
			continue
		}
		rs, err := src.LoadActiveRules(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "rules: load active rules")
		}
		if !anyActive(rs) {
			continue
		}

		name := SourceStore
		if n, ok := src.(interface{ Name() string }); ok {
			name = n.Name()
		}
		c := NewCatalog(rs, name)
		zap.L().Info("rules: catalog loaded",
			zap.String("source", c.source),
			zap.Int("rules", len(c.rules)),
			zap.Int("skipped", c.skipped),
		)
		return c, nil
	}

	zap.L().Info("rules: no active rules in any source, using built-in catalog")
	return NewCatalog(DefaultRules(), SourceBuiltin), nil
}

func anyActive(rs []model.Rule) bool {
	for _, r := range rs {
		if r.Active {
			return true
		}
	}
	return false
}

// Active returns the compiled rules ordered by tier then id. The returned
// slice is a copy.
func (c *Catalog) Active() []CompiledRule {
	out := make([]CompiledRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Len returns the number of usable rules.
func (c *Catalog) Len() int { return len(c.rules) }

// Source returns where the catalog was loaded from.
func (c *Catalog) Source() string { return c.source }

// Skipped returns how many active rules were rejected at load time.
func (c *Catalog) Skipped() int { return c.skipped }
