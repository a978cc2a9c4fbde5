package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/permit-leads/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS permits (
	permit_num          TEXT NOT NULL,
	revision_num        TEXT NOT NULL,
	permit_type         TEXT NOT NULL DEFAULT '',
	structure_type      TEXT NOT NULL DEFAULT '',
	work                TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL DEFAULT '',
	issued_date         TEXT,
	est_const_cost      REAL,
	project_type        TEXT,
	scope_tags          TEXT NOT NULL DEFAULT '[]',
	scope_classified_at TEXT,
	scope_source        TEXT,
	PRIMARY KEY (permit_num, revision_num)
);

CREATE INDEX IF NOT EXISTS idx_permits_permit_type ON permits(permit_type);
CREATE INDEX IF NOT EXISTS idx_permits_issued_date ON permits(issued_date);

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
	id             INTEGER PRIMARY KEY,
	trade_id       INTEGER NOT NULL,
	tier           INTEGER NOT NULL CHECK (tier BETWEEN 1 AND 3),
	match_field    TEXT NOT NULL,
	match_pattern  TEXT NOT NULL,
	confidence     REAL NOT NULL,
	min_age_months INTEGER,
	max_age_months INTEGER,
	is_active      INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS permit_trades (
	permit_num    TEXT NOT NULL,
	revision_num  TEXT NOT NULL,
	trade_id      INTEGER NOT NULL,
	trade_slug    TEXT NOT NULL,
	trade_name    TEXT NOT NULL,
	tier          INTEGER NOT NULL,
	confidence    REAL NOT NULL,
	phase         TEXT NOT NULL,
	lead_score    INTEGER NOT NULL,
	is_active     INTEGER NOT NULL DEFAULT 1,
	classified_at TEXT NOT NULL,
	PRIMARY KEY (permit_num, revision_num, trade_id),
	FOREIGN KEY (permit_num, revision_num) REFERENCES permits(permit_num, revision_num) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS permit_products (
	permit_num    TEXT NOT NULL,
	revision_num  TEXT NOT NULL,
	product_id    INTEGER NOT NULL,
	product_slug  TEXT NOT NULL,
	product_name  TEXT NOT NULL,
	classified_at TEXT NOT NULL,
	PRIMARY KEY (permit_num, revision_num, product_id),
	FOREIGN KEY (permit_num, revision_num) REFERENCES permits(permit_num, revision_num) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS reclassify_runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TEXT NOT NULL,
	completed_at TEXT,
	stats        TEXT,
	error        TEXT
);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertPermits(ctx context.Context, permits []model.Permit) error {
	if len(permits) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert permits: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO permits (permit_num, revision_num, permit_type, structure_type, work, description, status, issued_date, est_const_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (permit_num, revision_num) DO UPDATE SET
			permit_type = excluded.permit_type,
			structure_type = excluded.structure_type,
			work = excluded.work,
			description = excluded.description,
			status = excluded.status,
			issued_date = excluded.issued_date,
			est_const_cost = excluded.est_const_cost`)
	if err != nil {
		return eris.Wrap(err, "sqlite: upsert permits: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	for _, p := range permits {
		var cost sql.NullFloat64
		if p.EstConstCost != nil {
			cost = sql.NullFloat64{Float64: *p.EstConstCost, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			p.PermitNum, p.RevisionNum, p.PermitType, p.StructureType, p.Work,
			p.Description, p.Status, timeArg(p.IssuedDate), cost,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert permit %s", p.Key())
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: upsert permits: commit")
}

// GetPermit reads one permit revision.
func (s *SQLiteStore) GetPermit(ctx context.Context, key model.PermitKey) (*model.Permit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+permitColumns+` FROM permits WHERE permit_num = ? AND revision_num = ?`,
		key.PermitNum, key.RevisionNum,
	)
	p, err := scanSQLitePermit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get permit %s", key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get permit %s", key)
	}
	return p, nil
}

func (s *SQLiteStore) ListPermits(ctx context.Context, filter PermitFilter, after model.PermitKey, limit int) ([]model.Permit, error) {
	query := `SELECT ` + permitColumns + ` FROM permits WHERE (permit_num > ? OR (permit_num = ? AND revision_num > ?))`
	args := []any{after.PermitNum, after.PermitNum, after.RevisionNum}

	if filter.PermitType != "" {
		query += ` AND permit_type = ?`
		args = append(args, filter.PermitType)
	}
	if len(filter.IncludeTypes) > 0 {
		query += ` AND permit_type IN (` + placeholders(len(filter.IncludeTypes)) + `)`
		for _, t := range filter.IncludeTypes {
			args = append(args, t)
		}
	}
	if len(filter.ExcludeTypes) > 0 {
		query += ` AND permit_type NOT IN (` + placeholders(len(filter.ExcludeTypes)) + `)`
		for _, t := range filter.ExcludeTypes {
			args = append(args, t)
		}
	}
	if filter.IssuedSince != nil {
		query += ` AND issued_date >= ?`
		args = append(args, filter.IssuedSince.UTC().Format(sqliteTimeLayout))
	}

	if limit <= 0 {
		limit = 500
	}
	query += ` ORDER BY permit_num, revision_num LIMIT ?`
	args = append(args, limit)

	return s.queryPermits(ctx, "list permits", query, args...)
}

func (s *SQLiteStore) ListSiblings(ctx context.Context, basePermitNum string) ([]model.Permit, error) {
	return s.queryPermits(ctx, "list siblings",
		`SELECT `+permitColumns+` FROM permits WHERE permit_num = ? OR permit_num LIKE ? ESCAPE '\' ORDER BY permit_num, revision_num`,
		basePermitNum, basePrefixPattern(basePermitNum),
	)
}

func (s *SQLiteStore) queryPermits(ctx context.Context, op, query string, args ...any) ([]model.Permit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", op)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Permit
	for rows.Next() {
		p, err := scanSQLitePermit(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan permit")
		}
		out = append(out, *p)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: iterate %s", op)
}

// ReplaceDerived swaps the permit's derived rows in one transaction.
func (s *SQLiteStore) ReplaceDerived(ctx context.Context, c model.Classification) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: replace derived: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	key := c.Key
	tags := c.ScopeTags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal scope tags")
	}
	classifiedAt := c.ClassifiedAt.UTC().Format(sqliteTimeLayout)

	res, err := tx.ExecContext(ctx,
		`UPDATE permits SET project_type = ?, scope_tags = ?, scope_classified_at = ?, scope_source = ? WHERE permit_num = ? AND revision_num = ?`,
		nullString(c.ProjectType), string(tagsJSON), classifiedAt, nullString(scopeSourceArg(c.ScopeSource)),
		key.PermitNum, key.RevisionNum,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update scope %s", key)
	}
	if n, err := res.RowsAffected(); err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	} else if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: update scope %s", key)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM permit_trades WHERE permit_num = ? AND revision_num = ?`, key.PermitNum, key.RevisionNum); err != nil {
		return eris.Wrapf(err, "sqlite: delete trades %s", key)
	}
	for _, m := range c.TradeMatches {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO permit_trades (`+strings.Join(permitTradeColumns, ", ")+`) VALUES (`+placeholders(len(permitTradeColumns))+`)`,
			key.PermitNum, key.RevisionNum, m.TradeID, m.TradeSlug, m.TradeName,
			int(m.Tier), m.Confidence, string(m.Phase), m.LeadScore, m.IsActive, classifiedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert trade %d for %s", m.TradeID, key)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM permit_products WHERE permit_num = ? AND revision_num = ?`, key.PermitNum, key.RevisionNum); err != nil {
		return eris.Wrapf(err, "sqlite: delete products %s", key)
	}
	for _, pm := range c.Products {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO permit_products (`+strings.Join(permitProductColumns, ", ")+`) VALUES (`+placeholders(len(permitProductColumns))+`)`,
			key.PermitNum, key.RevisionNum, pm.ProductID, pm.ProductSlug, pm.ProductName, classifiedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert product %d for %s", pm.ProductID, key)
		}
	}

	return eris.Wrapf(tx.Commit(), "sqlite: replace derived: commit %s", key)
}

// GetDerived reads back the stored classification of one permit.
func (s *SQLiteStore) GetDerived(ctx context.Context, key model.PermitKey) (*model.Classification, error) {
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

	rows, err := s.db.QueryContext(ctx,
		`SELECT trade_id, trade_slug, trade_name, tier, confidence, phase, lead_score, is_active FROM permit_trades WHERE permit_num = ? AND revision_num = ? ORDER BY trade_id`,
		key.PermitNum, key.RevisionNum,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get trades %s", key)
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		m := model.TradeMatch{PermitNum: key.PermitNum, RevisionNum: key.RevisionNum}
		var tier int
		var ph string
		if err := rows.Scan(&m.TradeID, &m.TradeSlug, &m.TradeName, &tier, &m.Confidence, &ph, &m.LeadScore, &m.IsActive); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan trade match")
		}
		m.Tier = model.Tier(tier)
		m.Phase = model.Phase(ph)
		c.TradeMatches = append(c.TradeMatches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: iterate trades %s", key)
	}

	prows, err := s.db.QueryContext(ctx,
		`SELECT product_id, product_slug, product_name FROM permit_products WHERE permit_num = ? AND revision_num = ? ORDER BY product_id`,
		key.PermitNum, key.RevisionNum,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get products %s", key)
	}
	defer prows.Close() //nolint:errcheck
	for prows.Next() {
		pm := model.ProductMatch{PermitNum: key.PermitNum, RevisionNum: key.RevisionNum}
		if err := prows.Scan(&pm.ProductID, &pm.ProductSlug, &pm.ProductName); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product match")
		}
		c.Products = append(c.Products, pm)
	}
	return c, eris.Wrapf(prows.Err(), "sqlite: iterate products %s", key)
}

func (s *SQLiteStore) LoadActiveRules(ctx context.Context) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trade_id, tier, match_field, match_pattern, confidence, min_age_months, max_age_months FROM trade_mapping_rules WHERE is_active = 1 ORDER BY tier, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load active rules")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Rule
	for rows.Next() {
		r := model.Rule{Active: true}
		var tier int
		var field string
		var minAge, maxAge sql.NullInt64
		if err := rows.Scan(&r.ID, &r.TradeID, &tier, &field, &r.MatchPattern, &r.Confidence, &minAge, &maxAge); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rule")
		}
		r.Tier = model.Tier(tier)
		r.MatchField = model.MatchField(field)
		r.Window = windowFrom(nullInt(minAge), nullInt(maxAge))
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate rules")
}

func (s *SQLiteStore) ListTrades(ctx context.Context) ([]model.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, slug, name FROM trades ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list trades")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Trade
	for rows.Next() {
		var t model.Trade
		if err := rows.Scan(&t.ID, &t.Slug, &t.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan trade")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate trades")
}

func (s *SQLiteStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, slug, name FROM products ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list products")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate products")
}

func (s *SQLiteStore) SeedRules(ctx context.Context, rs []model.Rule) (int64, error) {
	rows := make([][]any, len(rs))
	for i, r := range rs {
		minAge, maxAge := windowBounds(r.Window)
		rows[i] = []any{r.ID, r.TradeID, int(r.Tier), string(r.MatchField), r.MatchPattern, r.Confidence, nullIntArg(minAge), nullIntArg(maxAge), r.Active}
	}
	return s.seed(ctx, "trade_mapping_rules", ruleColumns, rows)
}

func (s *SQLiteStore) SeedTrades(ctx context.Context, trades []model.Trade) (int64, error) {
	rows := make([][]any, len(trades))
	for i, t := range trades {
		rows[i] = []any{t.ID, t.Slug, t.Name}
	}
	return s.seed(ctx, "trades", []string{"id", "slug", "name"}, rows)
}

func (s *SQLiteStore) SeedProducts(ctx context.Context, products []model.Product) (int64, error) {
	rows := make([][]any, len(products))
	for i, p := range products {
		rows[i] = []any{p.ID, p.Slug, p.Name}
	}
	return s.seed(ctx, "products", []string{"id", "slug", "name"}, rows)
}

// seed upserts rows keyed by the first column, which must be "id".
func (s *SQLiteStore) seed(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	sets := make([]string, 0, len(columns)-1)
	for _, c := range columns[1:] {
		sets = append(sets, c+" = excluded."+c)
	}
	query := `INSERT INTO ` + table + ` (` + strings.Join(columns, ", ") + `) VALUES (` + placeholders(len(columns)) + `) ON CONFLICT (id) DO UPDATE SET ` + strings.Join(sets, ", ")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: seed %s: begin tx", table)
	}
	defer tx.Rollback() //nolint:errcheck

	var total int64
	for _, row := range rows {
		res, err := tx.ExecContext(ctx, query, row...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: seed %s", table)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: seed %s: commit", table)
	}
	return total, nil
}

func (s *SQLiteStore) StartRun(ctx context.Context, id string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reclassify_runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, RunStatusRunning, startedAt.UTC().Format(sqliteTimeLayout),
	)
	return eris.Wrapf(err, "sqlite: start run %s", id)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, stats model.ReclassifyStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE reclassify_runs SET status = ?, completed_at = ?, stats = ? WHERE id = ?`,
		RunStatusComplete, stats.CompletedAt.UTC().Format(sqliteTimeLayout), string(statsJSON), stats.RunID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", stats.RunID)
	}
	return checkRowsAffected(res, "run", stats.RunID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, id string, completedAt time.Time, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE reclassify_runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		RunStatusFailed, completedAt.UTC().Format(sqliteTimeLayout), msg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", id)
	}
	return checkRowsAffected(res, "run", id)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var r Run
	var startedAt string
	var completedAt, statsJSON, errMsg sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, started_at, completed_at, stats, error FROM reclassify_runs WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.Status, &startedAt, &completedAt, &statsJSON, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", id)
	}

	if r.StartedAt, err = time.Parse(sqliteTimeLayout, startedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse started_at")
	}
	if r.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse completed_at")
	}
	if statsJSON.Valid {
		r.Stats = &model.ReclassifyStats{}
		if err := json.Unmarshal([]byte(statsJSON.String), r.Stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal stats")
		}
	}
	r.Error = errMsg.String
	return &r, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLitePermit(row scannable) (*model.Permit, error) {
	var p model.Permit
	var issued, classifiedAt, projectType, source sql.NullString
	var cost sql.NullFloat64
	var tagsJSON string

	err := row.Scan(
		&p.PermitNum, &p.RevisionNum, &p.PermitType, &p.StructureType, &p.Work,
		&p.Description, &p.Status, &issued, &cost,
		&projectType, &tagsJSON, &classifiedAt, &source,
	)
	if err != nil {
		return nil, err
	}

	if p.IssuedDate, err = parseNullTime(issued); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse issued_date")
	}
	if p.ScopeClassifiedAt, err = parseNullTime(classifiedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse scope_classified_at")
	}
	if cost.Valid {
		v := cost.Float64
		p.EstConstCost = &v
	}
	if projectType.Valid {
		v := projectType.String
		p.ProjectType = &v
	}
	if err := json.Unmarshal([]byte(tagsJSON), &p.ScopeTags); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal scope tags")
	}
	if source.Valid {
		p.ScopeSource = scopeSourceFrom(&source.String)
	}
	return &p, nil
}

func timeArg(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(sqliteTimeLayout), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(sqliteTimeLayout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullIntArg(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
