package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/permit-leads/internal/db"
	"github.com/sells-group/permit-leads/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS permits (
	permit_num          TEXT NOT NULL,
	revision_num        TEXT NOT NULL,
	permit_type         TEXT NOT NULL DEFAULT '',
	structure_type      TEXT NOT NULL DEFAULT '',
	work                TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL DEFAULT '',
	issued_date         DATE,
	est_const_cost      DOUBLE PRECISION,
	project_type        TEXT,
	scope_tags          TEXT[] NOT NULL DEFAULT '{}',
	scope_classified_at TIMESTAMPTZ,
	scope_source        TEXT,
	PRIMARY KEY (permit_num, revision_num)
);

CREATE INDEX IF NOT EXISTS idx_permits_permit_type ON permits(permit_type);
CREATE INDEX IF NOT EXISTS idx_permits_issued_date ON permits(issued_date);
CREATE INDEX IF NOT EXISTS idx_permits_permit_num_prefix ON permits(permit_num text_pattern_ops);

CREATE TABLE IF NOT EXISTS trades (
	id   INTEGER PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
	id   INTEGER PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trade_mapping_rules (
	id             BIGINT PRIMARY KEY,
	trade_id       INTEGER NOT NULL,
	tier           SMALLINT NOT NULL CHECK (tier BETWEEN 1 AND 3),
	match_field    TEXT NOT NULL,
	match_pattern  TEXT NOT NULL,
	confidence     DOUBLE PRECISION NOT NULL,
	min_age_months INTEGER,
	max_age_months INTEGER,
	is_active      BOOLEAN NOT NULL DEFAULT true
);

CREATE INDEX IF NOT EXISTS idx_trade_mapping_rules_active ON trade_mapping_rules(is_active, tier);

CREATE TABLE IF NOT EXISTS permit_trades (
	permit_num    TEXT NOT NULL,
	revision_num  TEXT NOT NULL,
	trade_id      INTEGER NOT NULL,
	trade_slug    TEXT NOT NULL,
	trade_name    TEXT NOT NULL,
	tier          SMALLINT NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL,
	phase         TEXT NOT NULL,
	lead_score    INTEGER NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT true,
	classified_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (permit_num, revision_num, trade_id),
	FOREIGN KEY (permit_num, revision_num) REFERENCES permits(permit_num, revision_num) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_permit_trades_trade_score ON permit_trades(trade_id, lead_score DESC);

CREATE TABLE IF NOT EXISTS permit_products (
	permit_num    TEXT NOT NULL,
	revision_num  TEXT NOT NULL,
	product_id    INTEGER NOT NULL,
	product_slug  TEXT NOT NULL,
	product_name  TEXT NOT NULL,
	classified_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (permit_num, revision_num, product_id),
	FOREIGN KEY (permit_num, revision_num) REFERENCES permits(permit_num, revision_num) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS reclassify_runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	stats        JSONB,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_reclassify_runs_started_at ON reclassify_runs(started_at DESC);
`

const permitColumns = `permit_num, revision_num, permit_type, structure_type, work, description, status, issued_date, est_const_cost, project_type, scope_tags, scope_classified_at, scope_source`

var (
	permitSourceColumns = []string{
		"permit_num", "revision_num", "permit_type", "structure_type", "work",
		"description", "status", "issued_date", "est_const_cost",
	}
	permitTradeColumns = []string{
		"permit_num", "revision_num", "trade_id", "trade_slug", "trade_name",
		"tier", "confidence", "phase", "lead_score", "is_active", "classified_at",
	}
	permitProductColumns = []string{
		"permit_num", "revision_num", "product_id", "product_slug", "product_name", "classified_at",
	}
	ruleColumns = []string{
		"id", "trade_id", "tier", "match_field", "match_pattern", "confidence",
		"min_age_months", "max_age_months", "is_active",
	}
)

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// UpsertPermits writes the source-owned permit fields. Derived fields are
// left untouched on existing rows.
func (s *PostgresStore) UpsertPermits(ctx context.Context, permits []model.Permit) error {
	rows := make([][]any, len(permits))
	for i, p := range permits {
		rows[i] = []any{
			p.PermitNum, p.RevisionNum, p.PermitType, p.StructureType, p.Work,
			p.Description, p.Status, p.IssuedDate, p.EstConstCost,
		}
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "permits",
		Columns:      permitSourceColumns,
		ConflictKeys: []string{"permit_num", "revision_num"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert permits")
}

func scanPermit(row pgx.Row) (*model.Permit, error) {
	var p model.Permit
	var source *string
	err := row.Scan(
		&p.PermitNum, &p.RevisionNum, &p.PermitType, &p.StructureType, &p.Work,
		&p.Description, &p.Status, &p.IssuedDate, &p.EstConstCost,
		&p.ProjectType, &p.ScopeTags, &p.ScopeClassifiedAt, &source,
	)
	if err != nil {
		return nil, err
	}
	p.ScopeSource = scopeSourceFrom(source)
	return &p, nil
}

// GetPermit reads one permit revision.
func (s *PostgresStore) GetPermit(ctx context.Context, key model.PermitKey) (*model.Permit, error) {
	p, err := scanPermit(s.pool.QueryRow(ctx,
		`SELECT `+permitColumns+` FROM permits WHERE permit_num = $1 AND revision_num = $2`,
		key.PermitNum, key.RevisionNum,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get permit %s", key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get permit %s", key)
	}
	return p, nil
}

// ListPermits returns up to limit permits ordered by key, strictly after
// the given key.
func (s *PostgresStore) ListPermits(ctx context.Context, filter PermitFilter, after model.PermitKey, limit int) ([]model.Permit, error) {
	query := `SELECT ` + permitColumns + ` FROM permits WHERE (permit_num, revision_num) > ($1, $2)`
	args := []any{after.PermitNum, after.RevisionNum}
	argIdx := 3

	if filter.PermitType != "" {
		query += fmt.Sprintf(` AND permit_type = $%d`, argIdx)
		args = append(args, filter.PermitType)
		argIdx++
	}
	if len(filter.IncludeTypes) > 0 {
		query += fmt.Sprintf(` AND permit_type = ANY($%d)`, argIdx)
		args = append(args, filter.IncludeTypes)
		argIdx++
	}
	if len(filter.ExcludeTypes) > 0 {
		query += fmt.Sprintf(` AND NOT (permit_type = ANY($%d))`, argIdx)
		args = append(args, filter.ExcludeTypes)
		argIdx++
	}
	if filter.IssuedSince != nil {
		query += fmt.Sprintf(` AND issued_date >= $%d`, argIdx)
		args = append(args, *filter.IssuedSince)
		argIdx++
	}

	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(` ORDER BY permit_num, revision_num LIMIT $%d`, argIdx)
	args = append(args, limit)

	return s.queryPermits(ctx, "list permits", query, args...)
}

// ListSiblings returns every permit sharing the base permit number.
func (s *PostgresStore) ListSiblings(ctx context.Context, basePermitNum string) ([]model.Permit, error) {
	return s.queryPermits(ctx, "list siblings",
		`SELECT `+permitColumns+` FROM permits WHERE permit_num = $1 OR permit_num LIKE $2 ESCAPE '\' ORDER BY permit_num, revision_num`,
		basePermitNum, basePrefixPattern(basePermitNum),
	)
}

func (s *PostgresStore) queryPermits(ctx context.Context, op, query string, args ...any) ([]model.Permit, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", op)
	}
	defer rows.Close()

	var out []model.Permit
	for rows.Next() {
		p, err := scanPermit(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan permit")
		}
		out = append(out, *p)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: iterate %s", op)
}

// ReplaceDerived swaps the permit's scope fields, trade matches and product
// matches in one transaction. Nothing is written if any step fails.
func (s *PostgresStore) ReplaceDerived(ctx context.Context, c model.Classification) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: replace derived: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	key := c.Key
	tags := c.ScopeTags
	if tags == nil {
		tags = []string{}
	}
	tag, err := tx.Exec(ctx,
		`UPDATE permits SET project_type = $1, scope_tags = $2, scope_classified_at = $3, scope_source = $4 WHERE permit_num = $5 AND revision_num = $6`,
		c.ProjectType, tags, c.ClassifiedAt, scopeSourceArg(c.ScopeSource), key.PermitNum, key.RevisionNum,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update scope %s", key)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: update scope %s", key)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM permit_trades WHERE permit_num = $1 AND revision_num = $2`, key.PermitNum, key.RevisionNum); err != nil {
		return eris.Wrapf(err, "postgres: delete trades %s", key)
	}
	if _, err := db.CopyFrom(ctx, tx, "permit_trades", permitTradeColumns, tradeRows(c)); err != nil {
		return eris.Wrapf(err, "postgres: insert trades %s", key)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM permit_products WHERE permit_num = $1 AND revision_num = $2`, key.PermitNum, key.RevisionNum); err != nil {
		return eris.Wrapf(err, "postgres: delete products %s", key)
	}
	if _, err := db.CopyFrom(ctx, tx, "permit_products", permitProductColumns, productRows(c)); err != nil {
		return eris.Wrapf(err, "postgres: insert products %s", key)
	}

	return eris.Wrapf(tx.Commit(ctx), "postgres: replace derived: commit %s", key)
}

func tradeRows(c model.Classification) [][]any {
	rows := make([][]any, len(c.TradeMatches))
	for i, m := range c.TradeMatches {
		rows[i] = []any{
			c.Key.PermitNum, c.Key.RevisionNum, m.TradeID, m.TradeSlug, m.TradeName,
			int(m.Tier), m.Confidence, string(m.Phase), m.LeadScore, m.IsActive, c.ClassifiedAt,
		}
	}
	return rows
}

func productRows(c model.Classification) [][]any {
	rows := make([][]any, len(c.Products))
	for i, p := range c.Products {
		rows[i] = []any{c.Key.PermitNum, c.Key.RevisionNum, p.ProductID, p.ProductSlug, p.ProductName, c.ClassifiedAt}
	}
	return rows
}

// GetDerived reads back the stored classification of one permit.
func (s *PostgresStore) GetDerived(ctx context.Context, key model.PermitKey) (*model.Classification, error) {
	p, err := s.GetPermit(ctx, key)
	if err != nil {
		return nil, err
	}
	c := &model.Classification{
		Key:          key,
		ProjectType:  p.ProjectType,
		ScopeTags:    p.ScopeTags,
		ScopeSource:  p.ScopeSource,
		TradeMatches: []model.TradeMatch{},
		Products:     []model.ProductMatch{},
	}
	if p.ScopeClassifiedAt != nil {
		c.ClassifiedAt = *p.ScopeClassifiedAt
	}

	rows, err := s.pool.Query(ctx,
		`SELECT trade_id, trade_slug, trade_name, tier, confidence, phase, lead_score, is_active FROM permit_trades WHERE permit_num = $1 AND revision_num = $2 ORDER BY trade_id`,
		key.PermitNum, key.RevisionNum,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get trades %s", key)
	}
	defer rows.Close()
	for rows.Next() {
		m := model.TradeMatch{PermitNum: key.PermitNum, RevisionNum: key.RevisionNum}
		var tier int
		var ph string
		if err := rows.Scan(&m.TradeID, &m.TradeSlug, &m.TradeName, &tier, &m.Confidence, &ph, &m.LeadScore, &m.IsActive); err != nil {
			return nil, eris.Wrap(err, "postgres: scan trade match")
		}
		m.Tier = model.Tier(tier)
		m.Phase = model.Phase(ph)
		c.TradeMatches = append(c.TradeMatches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: iterate trades %s", key)
	}

	prows, err := s.pool.Query(ctx,
		`SELECT product_id, product_slug, product_name FROM permit_products WHERE permit_num = $1 AND revision_num = $2 ORDER BY product_id`,
		key.PermitNum, key.RevisionNum,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get products %s", key)
	}
	defer prows.Close()
	for prows.Next() {
		pm := model.ProductMatch{PermitNum: key.PermitNum, RevisionNum: key.RevisionNum}
		if err := prows.Scan(&pm.ProductID, &pm.ProductSlug, &pm.ProductName); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product match")
		}
		c.Products = append(c.Products, pm)
	}
	return c, eris.Wrapf(prows.Err(), "postgres: iterate products %s", key)
}

// LoadActiveRules implements rules.Source.
func (s *PostgresStore) LoadActiveRules(ctx context.Context) ([]model.Rule, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, trade_id, tier, match_field, match_pattern, confidence, min_age_months, max_age_months FROM trade_mapping_rules WHERE is_active ORDER BY tier, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load active rules")
	}
	defer rows.Close()

	var out []model.Rule
	for rows.Next() {
		r := model.Rule{Active: true}
		var tier int
		var field string
		var minAge, maxAge *int
		if err := rows.Scan(&r.ID, &r.TradeID, &tier, &field, &r.MatchPattern, &r.Confidence, &minAge, &maxAge); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rule")
		}
		r.Tier = model.Tier(tier)
		r.MatchField = model.MatchField(field)
		r.Window = windowFrom(minAge, maxAge)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate rules")
}

// ListTrades returns the trade catalog ordered by id.
func (s *PostgresStore) ListTrades(ctx context.Context) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, slug, name FROM trades ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list trades")
	}
	defer rows.Close()

	var out []model.Trade
	for rows.Next() {
		var t model.Trade
		if err := rows.Scan(&t.ID, &t.Slug, &t.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan trade")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate trades")
}

// ListProducts returns the product catalog ordered by id.
func (s *PostgresStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, slug, name FROM products ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list products")
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate products")
}

// SeedRules upserts rules by id.
func (s *PostgresStore) SeedRules(ctx context.Context, rs []model.Rule) (int64, error) {
	rows := make([][]any, len(rs))
	for i, r := range rs {
		minAge, maxAge := windowBounds(r.Window)
		rows[i] = []any{r.ID, r.TradeID, int(r.Tier), string(r.MatchField), r.MatchPattern, r.Confidence, minAge, maxAge, r.Active}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "trade_mapping_rules",
		Columns:      ruleColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: seed rules")
}

// SeedTrades upserts the trade catalog by id.
func (s *PostgresStore) SeedTrades(ctx context.Context, trades []model.Trade) (int64, error) {
	rows := make([][]any, len(trades))
	for i, t := range trades {
		rows[i] = []any{t.ID, t.Slug, t.Name}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "trades",
		Columns:      []string{"id", "slug", "name"},
		ConflictKeys: []string{"id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: seed trades")
}

// SeedProducts upserts the product catalog by id.
func (s *PostgresStore) SeedProducts(ctx context.Context, products []model.Product) (int64, error) {
	rows := make([][]any, len(products))
	for i, p := range products {
		rows[i] = []any{p.ID, p.Slug, p.Name}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "products",
		Columns:      []string{"id", "slug", "name"},
		ConflictKeys: []string{"id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: seed products")
}

// StartRun records a new running reclassification run.
func (s *PostgresStore) StartRun(ctx context.Context, id string, startedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reclassify_runs (id, status, started_at) VALUES ($1, $2, $3)`,
		id, RunStatusRunning, startedAt,
	)
	return eris.Wrapf(err, "postgres: start run %s", id)
}

// CompleteRun marks a run complete and stores its statistics.
func (s *PostgresStore) CompleteRun(ctx context.Context, stats model.ReclassifyStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE reclassify_runs SET status = $1, completed_at = $2, stats = $3 WHERE id = $4`,
		RunStatusComplete, stats.CompletedAt, statsJSON, stats.RunID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", stats.RunID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", stats.RunID)
	}
	return nil
}

// FailRun marks a run failed with its error.
func (s *PostgresStore) FailRun(ctx context.Context, id string, completedAt time.Time, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE reclassify_runs SET status = $1, completed_at = $2, error = $3 WHERE id = $4`,
		RunStatusFailed, completedAt, msg, id,
	)
	return eris.Wrapf(err, "postgres: fail run %s", id)
}

// GetRun reads one run log entry.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var r Run
	var statsJSON []byte
	var errMsg *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, status, started_at, completed_at, stats, error FROM reclassify_runs WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.Status, &r.StartedAt, &r.CompletedAt, &statsJSON, &errMsg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	if len(statsJSON) > 0 {
		r.Stats = &model.ReclassifyStats{}
		if err := json.Unmarshal(statsJSON, r.Stats); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal stats")
		}
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}
