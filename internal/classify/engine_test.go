package classify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/rules"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func engine() *Engine {
	return NewEngine(nil, nil, nil, WithAsOf(now))
}

func TestClassify_IssuedPlumbingCompanion(t *testing.T) {
	p := model.Permit{
		PermitNum:    "24 100200 PLB",
		RevisionNum:  "00",
		PermitType:   "Plumbing(PS)",
		Status:       "Permit Issued",
		IssuedDate:   ptr(now.AddDate(0, 0, -10)),
		EstConstCost: ptr(120000.0),
	}

	c := engine().Classify(p)

	assert.Equal(t, p.Key(), c.Key)
	assert.Empty(t, c.ScopeTags)
	assert.Nil(t, c.ScopeSource, "companion without siblings stays unclassified")
	assert.Nil(t, c.ProjectType)
	require.Len(t, c.TradeMatches, 1)
	m := c.TradeMatches[0]
	assert.Equal(t, "plumbing", m.TradeSlug)
	assert.Equal(t, model.TierCategorical, m.Tier)
	assert.Equal(t, 0.95, m.Confidence)
	assert.Equal(t, model.PhaseEarlyConstruction, m.Phase)
	assert.Equal(t, 85, m.LeadScore)
	assert.True(t, m.IsActive)
}

func TestClassify_RevokedPlumbing(t *testing.T) {
	p := model.Permit{
		PermitNum:    "24 100200 PLB",
		RevisionNum:  "00",
		PermitType:   "Plumbing(PS)",
		Status:       "Revoked",
		IssuedDate:   ptr(now.AddDate(0, 0, -10)),
		EstConstCost: ptr(120000.0),
	}
	c := engine().Classify(p)
	require.Len(t, c.TradeMatches, 1)
	assert.Equal(t, 30, c.TradeMatches[0].LeadScore)
}

func TestClassifyWithSiblings_Propagates(t *testing.T) {
	primary := model.Permit{
		PermitNum:   "24 055123 BLD",
		RevisionNum: "00",
		PermitType:  "Small Residential Projects",
		Work:        "Second Suite",
		ProjectType: ptr("second-suite"),
		ScopeTags:   []string{"new:second-suite"},
	}
	dm := model.Permit{
		PermitNum:   "24 055123 DM",
		RevisionNum: "00",
		PermitType:  "Demolition Folder (DM)",
		Status:      "Permit Issued",
		IssuedDate:  ptr(now.AddDate(0, -1, 0)),
	}

	c := engine().ClassifyWithSiblings(dm, []model.Permit{primary, dm})

	assert.Equal(t, []string{"new:second-suite"}, c.ScopeTags)
	require.NotNil(t, c.ScopeSource)
	assert.Equal(t, model.ScopeSourcePropagated, *c.ScopeSource)
	require.NotNil(t, c.ProjectType)
	assert.Equal(t, "second-suite", *c.ProjectType)

	var slugs []string
	for _, m := range c.TradeMatches {
		slugs = append(slugs, m.TradeSlug)
	}
	assert.Contains(t, slugs, "demolition")
	assert.Contains(t, slugs, "plumbing", "propagated tags feed scope_tags rules")
	assert.NotEmpty(t, c.Products)
}

func TestClassify_PrimaryDirect(t *testing.T) {
	p := model.Permit{
		PermitNum:   "24 200300 BLD",
		RevisionNum: "01",
		PermitType:  "Small Residential Projects",
		Work:        "Deck",
		Description: "Construct new rear deck",
		Status:      "Inspection",
		IssuedDate:  ptr(now.AddDate(0, -14, 0)),
	}

	c := engine().Classify(p)

	require.NotNil(t, c.ScopeSource)
	assert.Equal(t, model.ScopeSourceReclassified, *c.ScopeSource)
	assert.Equal(t, []string{"new:deck"}, c.ScopeTags)
	require.NotEmpty(t, c.TradeMatches)
	for _, m := range c.TradeMatches {
		assert.Equal(t, model.PhaseFinishing, m.Phase)
		assert.GreaterOrEqual(t, m.LeadScore, 0)
		assert.LessOrEqual(t, m.LeadScore, 100)
	}
	assert.Equal(t, now, c.ClassifiedAt)
}

func TestClassify_NoSignal(t *testing.T) {
	c := engine().Classify(model.Permit{PermitNum: "x", RevisionNum: "0", PermitType: "Sign Permit"})
	assert.Nil(t, c.ProjectType)
	assert.Empty(t, c.ScopeTags)
	assert.Empty(t, c.TradeMatches)
	assert.Empty(t, c.Products)
}

func TestClassify_Deterministic(t *testing.T) {
	p := model.Permit{
		PermitNum:    "24 300400 BLD",
		RevisionNum:  "00",
		PermitType:   "New Houses",
		Work:         "New Building",
		Description:  "Construct new 3 storey dwelling with finished basement, kitchen, 3 bathrooms and rear deck",
		Status:       "Permit Issued",
		IssuedDate:   ptr(now.AddDate(0, -5, 0)),
		EstConstCost: ptr(1_250_000.0),
	}
	e := engine()
	first := e.Classify(p)
	for range 5 {
		assert.Equal(t, first, e.Classify(p))
	}
}

func TestWithScopeSource(t *testing.T) {
	e := NewEngine(nil, nil, nil, WithAsOf(now), WithScopeSource(model.ScopeSourceClassified))
	c := e.Classify(model.Permit{Work: "Deck"})
	require.NotNil(t, c.ScopeSource)
	assert.Equal(t, model.ScopeSourceClassified, *c.ScopeSource)
}

type mockCatalogStore struct {
	mock.Mock
}

func (m *mockCatalogStore) LoadActiveRules(ctx context.Context) ([]model.Rule, error) {
	args := m.Called(ctx)
	rs, _ := args.Get(0).([]model.Rule)
	return rs, args.Error(1)
}

func (m *mockCatalogStore) ListTrades(ctx context.Context) ([]model.Trade, error) {
	args := m.Called(ctx)
	ts, _ := args.Get(0).([]model.Trade)
	return ts, args.Error(1)
}

func (m *mockCatalogStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func TestLoadEngine_FromStore(t *testing.T) {
	st := new(mockCatalogStore)
	st.On("LoadActiveRules", mock.Anything).Return([]model.Rule{{
		ID: 1, TradeID: 2, Tier: 1, MatchField: model.FieldPermitType,
		MatchPattern: "Shoring", Confidence: 0.9, Active: true,
	}}, nil)
	st.On("ListTrades", mock.Anything).Return([]model.Trade{{ID: 2, Slug: "shoring", Name: "Shoring"}}, nil)
	st.On("ListProducts", mock.Anything).Return(nil, nil)

	e, err := LoadEngine(context.Background(), st, "", WithAsOf(now))
	require.NoError(t, err)
	st.AssertExpectations(t)

	assert.Equal(t, rules.SourceStore, e.Rules().Source())
	assert.Equal(t, 1, e.Rules().Len())
	assert.Equal(t, 1, e.Trades().Len())
	assert.Equal(t, 16, e.Products().Len(), "empty products table falls back to built-ins")

	c := e.Classify(model.Permit{PermitType: "shoring"})
	require.Len(t, c.TradeMatches, 1)
	assert.Equal(t, "Shoring", c.TradeMatches[0].TradeName)
}

func TestLoadEngine_FileOverridesStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`rules:
  - id: 7
    trade_id: 8
    tier: 1
    match_field: permit_type
    match_pattern: Plumbing(PS)
    confidence: 0.5
    active: true
`), 0o600))

	st := new(mockCatalogStore)
	st.On("ListTrades", mock.Anything).Return(nil, nil)
	st.On("ListProducts", mock.Anything).Return(nil, nil)

	e, err := LoadEngine(context.Background(), st, path, WithAsOf(now))
	require.NoError(t, err)
	assert.Equal(t, rules.SourceFile, e.Rules().Source())
	st.AssertNotCalled(t, "LoadActiveRules", mock.Anything)
}

func TestLoadEngine_StoreError(t *testing.T) {
	st := new(mockCatalogStore)
	st.On("LoadActiveRules", mock.Anything).Return(nil, nil)
	st.On("ListTrades", mock.Anything).Return(nil, errors.New("connection refused"))
	st.On("ListProducts", mock.Anything).Return(nil, nil)

	_, err := LoadEngine(context.Background(), st, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classify: load trades")
}

func TestLoadEngine_NilStore(t *testing.T) {
	e, err := LoadEngine(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, rules.SourceBuiltin, e.Rules().Source())
	assert.Positive(t, e.Rules().Len())
}
