package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/permit-leads/internal/classify"
	"github.com/sells-group/permit-leads/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "permits.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// engineOptions builds engine options from the classify config section.
func engineOptions(extra ...classify.Option) ([]classify.Option, error) {
	asOf, err := cfg.Classify.AsOfTime()
	if err != nil {
		return nil, err
	}
	var opts []classify.Option
	if !asOf.IsZero() {
		opts = append(opts, classify.WithAsOf(asOf))
	}
	return append(opts, extra...), nil
}

// loadEngine builds the engine from the store's catalogs, or from the rules
// file and built-ins when st is nil.
func loadEngine(ctx context.Context, st store.Store, extra ...classify.Option) (*classify.Engine, error) {
	opts, err := engineOptions(extra...)
	if err != nil {
		return nil, err
	}
	var cs classify.CatalogStore
	if st != nil {
		cs = st
	}
	return classify.LoadEngine(ctx, cs, cfg.Classify.RulesFile, opts...)
}
