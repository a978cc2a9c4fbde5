package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/permit-leads/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedPermits(t *testing.T, st *SQLiteStore, permits ...model.Permit) {
	t.Helper()
	require.NoError(t, st.UpsertPermits(context.Background(), permits))
}

func TestSQLite_UpsertAndGetPermit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	issued := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cost := 120000.0
	seedPermits(t, st, model.Permit{
		PermitNum: "24 101234 BLD", RevisionNum: "00", PermitType: "Small Residential Projects",
		Work: "Addition(s)", Description: "rear addition", Status: "Permit Issued",
		IssuedDate: &issued, EstConstCost: &cost,
	})

	p, err := st.GetPermit(ctx, model.PermitKey{PermitNum: "24 101234 BLD", RevisionNum: "00"})
	require.NoError(t, err)
	assert.Equal(t, "Addition(s)", p.Work)
	require.NotNil(t, p.IssuedDate)
	assert.True(t, issued.Equal(*p.IssuedDate))
	require.NotNil(t, p.EstConstCost)
	assert.InDelta(t, 120000.0, *p.EstConstCost, 0.001)
	assert.Empty(t, p.ScopeTags)
	assert.Nil(t, p.ProjectType)
	assert.Nil(t, p.ScopeSource)
}

func TestSQLite_GetPermit_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetPermit(context.Background(), model.PermitKey{PermitNum: "nope", RevisionNum: "00"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_UpsertPermits_PreservesDerived(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	key := model.PermitKey{PermitNum: "24 1 BLD", RevisionNum: "00"}

	seedPermits(t, st, model.Permit{PermitNum: key.PermitNum, RevisionNum: key.RevisionNum, Status: "Application Received"})
	src := model.ScopeSourceClassified
	require.NoError(t, st.ReplaceDerived(ctx, model.Classification{
		Key: key, ScopeTags: []string{"new:deck"}, ScopeSource: &src,
		ClassifiedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	seedPermits(t, st, model.Permit{PermitNum: key.PermitNum, RevisionNum: key.RevisionNum, Status: "Permit Issued"})

	p, err := st.GetPermit(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Permit Issued", p.Status)
	assert.Equal(t, []string{"new:deck"}, p.ScopeTags)
}

func TestSQLite_ListPermits_KeysetAndFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	seedPermits(t, st,
		model.Permit{PermitNum: "24 000001 BLD", RevisionNum: "00", PermitType: "New Houses", IssuedDate: &jan},
		model.Permit{PermitNum: "24 000001 BLD", RevisionNum: "01", PermitType: "New Houses", IssuedDate: &jun},
		model.Permit{PermitNum: "24 000002 PS", RevisionNum: "00", PermitType: "Plumbing(PS)", IssuedDate: &jun},
		model.Permit{PermitNum: "24 000003 MS", RevisionNum: "00", PermitType: "Mechanical(MS)"},
	)

	t.Run("pages in key order", func(t *testing.T) {
		page1, err := st.ListPermits(ctx, PermitFilter{}, model.PermitKey{}, 2)
		require.NoError(t, err)
		require.Len(t, page1, 2)
		assert.Equal(t, "00", page1[0].RevisionNum)
		assert.Equal(t, "01", page1[1].RevisionNum)

		page2, err := st.ListPermits(ctx, PermitFilter{}, page1[1].Key(), 2)
		require.NoError(t, err)
		require.Len(t, page2, 2)
		assert.Equal(t, "24 000002 PS", page2[0].PermitNum)
		assert.Equal(t, "24 000003 MS", page2[1].PermitNum)

		page3, err := st.ListPermits(ctx, PermitFilter{}, page2[1].Key(), 2)
		require.NoError(t, err)
		assert.Empty(t, page3)
	})

	t.Run("include types", func(t *testing.T) {
		got, err := st.ListPermits(ctx, PermitFilter{IncludeTypes: []string{"Plumbing(PS)", "Mechanical(MS)"}}, model.PermitKey{}, 10)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("exclude types", func(t *testing.T) {
		got, err := st.ListPermits(ctx, PermitFilter{ExcludeTypes: []string{"Plumbing(PS)", "Mechanical(MS)"}}, model.PermitKey{}, 10)
		require.NoError(t, err)
		assert.Len(t, got, 2)
		for _, p := range got {
			assert.Equal(t, "New Houses", p.PermitType)
		}
	})

	t.Run("issued since", func(t *testing.T) {
		since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		got, err := st.ListPermits(ctx, PermitFilter{IssuedSince: &since}, model.PermitKey{}, 10)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("single permit type", func(t *testing.T) {
		got, err := st.ListPermits(ctx, PermitFilter{PermitType: "Mechanical(MS)"}, model.PermitKey{}, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "24 000003 MS", got[0].PermitNum)
	})
}

func TestSQLite_ListSiblings(t *testing.T) {
	st := newTestSQLiteStore(t)

	seedPermits(t, st,
		model.Permit{PermitNum: "24 055123 BLD", RevisionNum: "00"},
		model.Permit{PermitNum: "24 055123 DM", RevisionNum: "00"},
		model.Permit{PermitNum: "24 055123", RevisionNum: "00"},
		model.Permit{PermitNum: "24 0551234 BLD", RevisionNum: "00"},
		model.Permit{PermitNum: "24 055124 BLD", RevisionNum: "00"},
	)

	got, err := st.ListSiblings(context.Background(), "24 055123")
	require.NoError(t, err)
	nums := make([]string, len(got))
	for i, p := range got {
		nums[i] = p.PermitNum
	}
	assert.Equal(t, []string{"24 055123", "24 055123 BLD", "24 055123 DM"}, nums)
}

func TestSQLite_ListSiblings_WildcardsInBase(t *testing.T) {
	st := newTestSQLiteStore(t)

	seedPermits(t, st,
		model.Permit{PermitNum: "AB_1", RevisionNum: "00"},
		model.Permit{PermitNum: "AB_1 DM", RevisionNum: "00"},
		model.Permit{PermitNum: "ABC1 DM", RevisionNum: "00"},
		model.Permit{PermitNum: "AB%1 DM", RevisionNum: "00"},
	)

	got, err := st.ListSiblings(context.Background(), "AB_1")
	require.NoError(t, err)
	nums := make([]string, len(got))
	for i, p := range got {
		nums[i] = p.PermitNum
	}
	assert.Equal(t, []string{"AB_1", "AB_1 DM"}, nums)
}

func TestBasePrefixPattern(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{"digits", "24 055123", "24 055123 %"},
		{"underscore", "AB_1", `AB\_1 %`},
		{"percent", "AB%1", `AB\%1 %`},
		{"backslash", `AB\1`, `AB\\1 %`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, basePrefixPattern(tt.base))
		})
	}
}

func TestSQLite_ReplaceDerived_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	key := model.PermitKey{PermitNum: "24 101234 PS", RevisionNum: "00"}
	seedPermits(t, st, model.Permit{PermitNum: key.PermitNum, RevisionNum: key.RevisionNum, PermitType: "Plumbing(PS)"})

	pt := "new-construction"
	src := model.ScopeSourcePropagated
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := model.Classification{
		Key: key, ProjectType: &pt, ScopeTags: []string{"new:sfd"}, ScopeSource: &src,
		TradeMatches: []model.TradeMatch{
			{PermitNum: key.PermitNum, RevisionNum: key.RevisionNum, TradeID: 7, TradeSlug: "plumbing", TradeName: "Plumbing", Tier: model.TierCategorical, Confidence: 0.95, Phase: model.PhaseStructural, LeadScore: 85, IsActive: true},
			{PermitNum: key.PermitNum, RevisionNum: key.RevisionNum, TradeID: 9, TradeSlug: "drain-plumbing", TradeName: "Drain Plumbing", Tier: model.TierCurated, Confidence: 0.8, Phase: model.PhaseStructural, LeadScore: 70, IsActive: true},
		},
		Products: []model.ProductMatch{
			{PermitNum: key.PermitNum, RevisionNum: key.RevisionNum, ProductID: 3, ProductSlug: "plumbing-fixtures", ProductName: "Plumbing Fixtures"},
		},
		ClassifiedAt: at,
	}
	require.NoError(t, st.ReplaceDerived(ctx, c))

	got, err := st.GetDerived(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, c.ProjectType, got.ProjectType)
	assert.Equal(t, c.ScopeTags, got.ScopeTags)
	assert.Equal(t, c.ScopeSource, got.ScopeSource)
	assert.Equal(t, c.TradeMatches, got.TradeMatches)
	assert.Equal(t, c.Products, got.Products)
	assert.True(t, at.Equal(got.ClassifiedAt))

	// A second write replaces rather than accumulates.
	c.TradeMatches = c.TradeMatches[:1]
	c.Products = nil
	c.ProjectType = nil
	require.NoError(t, st.ReplaceDerived(ctx, c))

	got, err = st.GetDerived(ctx, key)
	require.NoError(t, err)
	assert.Len(t, got.TradeMatches, 1)
	assert.Empty(t, got.Products)
	assert.Nil(t, got.ProjectType)
}

func TestSQLite_ReplaceDerived_MissingPermit(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.ReplaceDerived(context.Background(), model.Classification{
		Key: model.PermitKey{PermitNum: "ghost", RevisionNum: "00"},
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ReplaceDerived_AtomicOnFailure(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	key := model.PermitKey{PermitNum: "24 1 BLD", RevisionNum: "00"}
	seedPermits(t, st, model.Permit{PermitNum: key.PermitNum, RevisionNum: key.RevisionNum})

	first := model.Classification{
		Key: key, ScopeTags: []string{"new:deck"},
		TradeMatches: []model.TradeMatch{{TradeID: 3, TradeSlug: "framing", TradeName: "Framing", Tier: model.TierCurated, Confidence: 0.7, Phase: model.PhaseStructural, LeadScore: 50, IsActive: true}},
		ClassifiedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.ReplaceDerived(ctx, first))

	// Duplicate trade ids violate the primary key and abort the write.
	bad := first
	bad.ScopeTags = []string{"alter:interior-alterations"}
	bad.TradeMatches = append([]model.TradeMatch{}, first.TradeMatches[0], first.TradeMatches[0])
	require.Error(t, st.ReplaceDerived(ctx, bad))

	got, err := st.GetDerived(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"new:deck"}, got.ScopeTags)
	assert.Len(t, got.TradeMatches, 1)
}

func TestSQLite_RulesSeedAndLoad(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.SeedRules(ctx, []model.Rule{
		{ID: 2, TradeID: 7, Tier: model.TierCategorical, MatchField: model.FieldPermitType, MatchPattern: "Plumbing(PS)", Confidence: 0.95, Active: true},
		{ID: 1, TradeID: 1, Tier: model.TierCategorical, MatchField: model.FieldPermitType, MatchPattern: "New Houses", Confidence: 0.9, Window: &model.Window{MinAgeMonths: 0, MaxAgeMonths: 9}, Active: true},
		{ID: 3, TradeID: 2, Tier: model.TierLoose, MatchField: model.FieldDescription, MatchPattern: "shoring", Confidence: 0.5, Active: false},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	rules, err := st.LoadActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, int64(1), rules[0].ID)
	require.NotNil(t, rules[0].Window)
	assert.Equal(t, 9, rules[0].Window.MaxAgeMonths)
	assert.Nil(t, rules[1].Window)

	// Reseeding updates in place.
	_, err = st.SeedRules(ctx, []model.Rule{{ID: 3, TradeID: 2, Tier: model.TierLoose, MatchField: model.FieldDescription, MatchPattern: "shoring", Confidence: 0.5, Active: true}})
	require.NoError(t, err)
	rules, err = st.LoadActiveRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 3)
}

func TestSQLite_CatalogSeedAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SeedTrades(ctx, []model.Trade{{ID: 7, Slug: "plumbing", Name: "Plumbing"}, {ID: 1, Slug: "excavation", Name: "Excavation"}})
	require.NoError(t, err)
	_, err = st.SeedProducts(ctx, []model.Product{{ID: 1, Slug: "decking", Name: "Decking"}})
	require.NoError(t, err)

	trades, err := st.ListTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, 1, trades[0].ID)

	products, err := st.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Product{{ID: 1, Slug: "decking", Name: "Decking"}}, products)

	n, err := st.SeedTrades(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_RunLog(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	started := time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC)

	require.NoError(t, st.StartRun(ctx, "run-ok", started))
	run, err := st.GetRun(ctx, "run-ok")
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.Nil(t, run.CompletedAt)
	assert.Nil(t, run.Stats)

	stats := model.ReclassifyStats{RunID: "run-ok", Classified: 4, Propagated: 1, StartedAt: started, CompletedAt: started.Add(time.Minute)}
	require.NoError(t, st.CompleteRun(ctx, stats))
	run, err = st.GetRun(ctx, "run-ok")
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, run.Status)
	require.NotNil(t, run.CompletedAt)
	assert.True(t, stats.CompletedAt.Equal(*run.CompletedAt))
	require.NotNil(t, run.Stats)
	assert.Equal(t, 1, run.Stats.Propagated)

	require.NoError(t, st.StartRun(ctx, "run-bad", started))
	require.NoError(t, st.FailRun(ctx, "run-bad", started.Add(time.Second), errors.New("store unavailable")))
	run, err = st.GetRun(ctx, "run-bad")
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, "store unavailable", run.Error)
}

func TestSQLite_RunLog_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	assert.True(t, eris.Is(err, ErrNotFound))

	err = st.CompleteRun(ctx, model.ReclassifyStats{RunID: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: missing")
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestStoreInterfaces(t *testing.T) {
	var _ Store = (*SQLiteStore)(nil)
	var _ Store = (*PostgresStore)(nil)
}
