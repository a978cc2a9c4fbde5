// Package classify runs the full classification pipeline for one permit:
// scope (or propagation for companions), trade matching, phase resolution,
// lead scoring and product matching.
package classify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/permit-leads/internal/matcher"
	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/phase"
	"github.com/sells-group/permit-leads/internal/product"
	"github.com/sells-group/permit-leads/internal/propagate"
	"github.com/sells-group/permit-leads/internal/rules"
	"github.com/sells-group/permit-leads/internal/scope"
	"github.com/sells-group/permit-leads/internal/scorer"
	"github.com/sells-group/permit-leads/internal/trade"
)

// Engine holds the catalogs for one run. It is safe for concurrent use;
// nothing in it is mutated after construction.
type Engine struct {
	rules    *rules.Catalog
	trades   *trade.Catalog
	products *product.Catalog
	now      func() time.Time
	source   model.ScopeSource
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock pins the engine's notion of "now".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithAsOf evaluates every permit as of t.
func WithAsOf(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

// WithScopeSource sets the scope source recorded for directly classified
// permits. The default is reclassified.
func WithScopeSource(s model.ScopeSource) Option {
	return func(e *Engine) { e.source = s }
}

// NewEngine builds an Engine from loaded catalogs. Nil trade or product
// catalogs fall back to the built-in defaults.
func NewEngine(rc *rules.Catalog, tc *trade.Catalog, pc *product.Catalog, opts ...Option) *Engine {
	if tc == nil {
		tc = trade.NewCatalog(trade.DefaultTrades())
	}
	if pc == nil {
		pc = product.NewCatalog(product.DefaultProducts())
	}
	if rc == nil {
		rc = rules.NewCatalog(rules.DefaultRules(), rules.SourceBuiltin)
	}
	e := &Engine{
		rules:    rc,
		trades:   tc,
		products: pc,
		now:      time.Now,
		source:   model.ScopeSourceReclassified,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// CatalogStore supplies the reference data an Engine is built from.
type CatalogStore interface {
	rules.Source
	ListTrades(ctx context.Context) ([]model.Trade, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
}

// LoadEngine loads the rule, trade and product catalogs concurrently. Rules
// come from rulesFile when set, then the store, then the built-in set.
// Empty trade or product tables fall back to the built-in catalogs. A nil
// store loads built-ins only.
func LoadEngine(ctx context.Context, st CatalogStore, rulesFile string, opts ...Option) (*Engine, error) {
	var (
		rc       *rules.Catalog
		trades   []model.Trade
		products []model.Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srcs := []rules.Source{rules.FileSource{Path: rulesFile}}
		if st != nil {
			srcs = append(srcs, st)
		}
		var err error
		rc, err = rules.Load(gctx, srcs...)
		return err
	})
	if st != nil {
		g.Go(func() error {
			var err error
			trades, err = st.ListTrades(gctx)
			return eris.Wrap(err, "classify: load trades")
		})
		g.Go(func() error {
			var err error
			products, err = st.ListProducts(gctx)
			return eris.Wrap(err, "classify: load products")
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tc *trade.Catalog
	if len(trades) > 0 {
		tc = trade.NewCatalog(trades)
	}
	var pc *product.Catalog
	if len(products) > 0 {
		pc = product.NewCatalog(products)
	}
	e := NewEngine(rc, tc, pc, opts...)

	zap.L().Info("classify: engine ready",
		zap.String("rules_source", rc.Source()),
		zap.Int("rules", rc.Len()),
		zap.Int("rules_skipped", rc.Skipped()),
		zap.Int("trades", e.trades.Len()),
		zap.Int("products", e.products.Len()),
	)
	return e, nil
}

// Rules returns the engine's rule catalog.
func (e *Engine) Rules() *rules.Catalog { return e.rules }

// Trades returns the engine's trade catalog.
func (e *Engine) Trades() *trade.Catalog { return e.trades }

// Products returns the engine's product catalog.
func (e *Engine) Products() *product.Catalog { return e.products }

// Now returns the engine's current time.
func (e *Engine) Now() time.Time { return e.now() }

// Classify classifies p from its own fields. Companion permits are left
// unclassified here; use ClassifyWithSiblings to propagate their scope.
func (e *Engine) Classify(p model.Permit) model.Classification {
	return e.ClassifyWithSiblings(p, nil)
}

// ClassifyWithSiblings classifies p. When p is a companion permit its scope
// is copied from the first qualifying sibling instead of being derived.
func (e *Engine) ClassifyWithSiblings(p model.Permit, siblings []model.Permit) model.Classification {
	now := e.now()
	out := model.Classification{
		Key:          p.Key(),
		ScopeTags:    []string{},
		ClassifiedAt: now,
	}

	if propagate.IsCompanion(p.PermitType) {
		if src, ok := propagate.FromSiblings(p.Key(), siblings); ok {
			s := model.ScopeSourcePropagated
			out.ProjectType = src.ProjectType
			out.ScopeTags = src.Tags
			out.ScopeSource = &s
		}
	} else {
		res := scope.Classify(p)
		s := e.source
		out.ProjectType = res.ProjectType
		out.ScopeTags = res.Tags
		out.ScopeSource = &s
	}

	age := phase.AgeMonths(p.IssuedDate, now)
	ph := phase.Resolve(p.Status, p.IssuedDate, now)

	matches := matcher.Match(p, out.ScopeTags, e.rules, age, e.trades)
	for i := range matches {
		matches[i].Phase = ph
		matches[i].LeadScore = scorer.Score(p, matches[i], ph, now)
	}
	out.TradeMatches = matches
	out.Products = e.products.Match(p.Key(), out.ScopeTags)
	return out
}
