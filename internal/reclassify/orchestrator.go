// Package reclassify runs the classification engine over stored permits and
// writes the derived rows back, one permit per transaction.
package reclassify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/permit-leads/internal/classify"
	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/monitoring"
	"github.com/sells-group/permit-leads/internal/propagate"
	"github.com/sells-group/permit-leads/internal/store"
)

// DefaultBatchSize is the page size used when RunOpts.BatchSize is unset.
const DefaultBatchSize = 500

// Orchestrator drives batch and single-permit reclassification.
type Orchestrator struct {
	store   store.Store
	engine  *classify.Engine
	limiter *rate.Limiter
	alerter *monitoring.Alerter
	newID   func() string
	clock   func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRateLimit caps permits processed per second. Zero or less disables it.
func WithRateLimit(perSecond float64) Option {
	return func(o *Orchestrator) {
		if perSecond > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithAlerter evaluates each finished run and reports failed runs.
func WithAlerter(a *monitoring.Alerter) Option {
	return func(o *Orchestrator) { o.alerter = a }
}

// WithRunIDs overrides run id generation.
func WithRunIDs(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

// WithRunClock overrides the clock used for run log timestamps.
func WithRunClock(f func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = f }
}

// New creates an Orchestrator.
func New(st store.Store, eng *classify.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  st,
		engine: eng,
		newID:  func() string { return uuid.New().String() },
		clock:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunOpts selects the permits a batch run visits.
type RunOpts struct {
	BatchSize      int
	Filter         store.PermitFilter
	CompanionsOnly bool
}

// ReclassifyAll reclassifies every permit matching opts. Primary permits are
// processed before companions so propagation reads this run's primary tags.
// A failure on one permit is logged and counted; only store errors while
// paging or a cancelled context abort the run.
func (o *Orchestrator) ReclassifyAll(ctx context.Context, opts RunOpts) (model.ReclassifyStats, error) {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	stats := model.ReclassifyStats{
		RunID:     o.newID(),
		StartedAt: o.clock(),
	}
	log := zap.L().With(zap.String("component", "reclassify"), zap.String("run_id", stats.RunID))

	if err := o.store.StartRun(ctx, stats.RunID, stats.StartedAt); err != nil {
		return stats, eris.Wrap(err, "reclassify: start run")
	}
	log.Info("reclassify run started", zap.Int("batch_size", batch), zap.Bool("companions_only", opts.CompanionsOnly))

	for _, ps := range passes(opts) {
		if err := o.runPass(ctx, log.With(zap.String("pass", ps.name)), ps, batch, &stats); err != nil {
			stats.CompletedAt = o.clock()
			o.failRun(ctx, log, stats, err)
			return stats, err
		}
	}

	stats.CompletedAt = o.clock()
	if err := o.store.CompleteRun(ctx, stats); err != nil {
		return stats, eris.Wrap(err, "reclassify: complete run")
	}

	log.Info("reclassify run complete",
		zap.Int("classified", stats.Classified),
		zap.Int("errors", stats.Errors),
		zap.Int("trade_matches", stats.TradeMatchesTotal),
		zap.Int("products", stats.ProductsTotal),
		zap.Int("propagated", stats.Propagated),
		zap.Int("unclassified", stats.Unclassified),
		zap.Duration("elapsed", stats.CompletedAt.Sub(stats.StartedAt)),
	)
	if o.alerter != nil {
		o.alerter.Check(ctx, stats)
	}
	return stats, nil
}

type pass struct {
	name       string
	companions bool
	filter     store.PermitFilter
}

// passes splits the run into a primary pass and a companion pass. Both page
// through the caller's filter; which permits a pass keeps is decided by
// propagate.IsCompanion, the same check the engine applies.
func passes(opts RunOpts) []pass {
	var out []pass
	if !opts.CompanionsOnly {
		out = append(out, pass{name: "primary", filter: opts.Filter})
	}

	f := opts.Filter
	if len(f.IncludeTypes) > 0 {
		var keep []string
		for _, t := range f.IncludeTypes {
			if propagate.IsCompanion(t) {
				keep = append(keep, t)
			}
		}
		if len(keep) == 0 {
			return out
		}
		f.IncludeTypes = keep
	}
	return append(out, pass{name: "companion", companions: true, filter: f})
}

func (o *Orchestrator) runPass(ctx context.Context, log *zap.Logger, ps pass, batch int, stats *model.ReclassifyStats) error {
	var after model.PermitKey
	for {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "reclassify: cancelled")
		}

		page, err := o.store.ListPermits(ctx, ps.filter, after, batch)
		if err != nil {
			return eris.Wrap(err, "reclassify: list permits")
		}

		for _, p := range page {
			if propagate.IsCompanion(p.PermitType) != ps.companions {
				continue
			}
			if o.limiter != nil {
				if err := o.limiter.Wait(ctx); err != nil {
					return eris.Wrap(err, "reclassify: cancelled")
				}
			} else if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "reclassify: cancelled")
			}

			c, err := o.classifyAndWrite(ctx, p)
			if err != nil {
				if ctx.Err() != nil {
					return eris.Wrap(ctx.Err(), "reclassify: cancelled")
				}
				stats.Errors++
				log.Error("reclassify: permit failed",
					zap.String("permit_num", p.PermitNum),
					zap.String("revision_num", p.RevisionNum),
					zap.Error(err),
				)
				continue
			}
			record(stats, p, c)
		}

		log.Debug("reclassify: page done", zap.Int("permits", len(page)), zap.Int("classified", stats.Classified))
		if len(page) < batch {
			return nil
		}
		after = page[len(page)-1].Key()
	}
}

func record(stats *model.ReclassifyStats, p model.Permit, c model.Classification) {
	stats.Classified++
	stats.TradeMatchesTotal += len(c.TradeMatches)
	stats.ProductsTotal += len(c.Products)
	if c.ScopeSource != nil && *c.ScopeSource == model.ScopeSourcePropagated {
		stats.Propagated++
	}
	if propagate.IsCompanion(p.PermitType) && c.ScopeSource == nil {
		stats.Unclassified++
	}
}

// classifyAndWrite classifies p, looking up siblings for companions, and
// replaces its derived rows.
func (o *Orchestrator) classifyAndWrite(ctx context.Context, p model.Permit) (model.Classification, error) {
	var siblings []model.Permit
	if propagate.IsCompanion(p.PermitType) {
		base := propagate.BasePermitNum(p.PermitNum)
		var err error
		siblings, err = o.store.ListSiblings(ctx, base)
		if err != nil {
			return model.Classification{}, eris.Wrapf(err, "reclassify: siblings of %s", p.Key())
		}
	}

	c := o.engine.ClassifyWithSiblings(p, siblings)
	if err := o.store.ReplaceDerived(ctx, c); err != nil {
		return model.Classification{}, eris.Wrapf(err, "reclassify: write %s", p.Key())
	}
	return c, nil
}

func (o *Orchestrator) failRun(ctx context.Context, log *zap.Logger, stats model.ReclassifyStats, runErr error) {
	log.Error("reclassify run failed", zap.Error(runErr), zap.Int("classified", stats.Classified))

	writeCtx := context.WithoutCancel(ctx)
	if err := o.store.FailRun(writeCtx, stats.RunID, stats.CompletedAt, runErr); err != nil {
		log.Error("failed to record run failure", zap.Error(err))
	}
	if o.alerter != nil {
		o.alerter.SendAlerts(writeCtx, []monitoring.Alert{o.alerter.RunFailed(stats.RunID, runErr, stats.CompletedAt)})
	}
}

// ReclassifyOne runs the full pipeline for a single permit revision and
// writes the result.
func (o *Orchestrator) ReclassifyOne(ctx context.Context, key model.PermitKey) (model.Classification, error) {
	p, err := o.store.GetPermit(ctx, key)
	if err != nil {
		return model.Classification{}, eris.Wrapf(err, "reclassify: get %s", key)
	}
	c, err := o.classifyAndWrite(ctx, *p)
	if err != nil {
		return model.Classification{}, err
	}
	zap.L().Debug("reclassify: permit written",
		zap.String("permit_num", key.PermitNum),
		zap.String("revision_num", key.RevisionNum),
		zap.Int("trade_matches", len(c.TradeMatches)),
	)
	return c, nil
}
