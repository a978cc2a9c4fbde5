package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type staticSource struct {
	rules []model.Rule
	err   error
	calls int
}

func (s *staticSource) LoadActiveRules(context.Context) ([]model.Rule, error) {
	s.calls++
	return s.rules, s.err
}

func TestNewCatalog_SkipsInvalidAndOrders(t *testing.T) {
	rs := []model.Rule{
		{ID: 5, TradeID: 8, Tier: 3, MatchField: model.FieldDescription, MatchPattern: `PLUMB`, Confidence: 0.5, Active: true},
		{ID: 4, TradeID: 8, Tier: 3, MatchField: model.FieldDescription, MatchPattern: `(BROKEN`, Confidence: 0.5, Active: true},
		{ID: 3, TradeID: 8, Tier: 2, MatchField: model.FieldWork, MatchPattern: "Second Suite", Confidence: 0.8, Active: true},
		{ID: 2, TradeID: 8, Tier: 1, MatchField: model.FieldPermitType, MatchPattern: "Plumbing(PS)", Confidence: 0.95, Active: true},
		{ID: 1, TradeID: 8, Tier: 1, MatchField: model.FieldPermitType, MatchPattern: "Inactive", Confidence: 0.95, Active: false},
	}

	c := NewCatalog(rs, SourceStore)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 1, c.Skipped())
	assert.Equal(t, SourceStore, c.Source())
	var ids []int64
	for _, r := range c.Active() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{2, 3, 5}, ids)
}

func TestCatalog_ActiveIsCopy(t *testing.T) {
	c := NewCatalog(DefaultRules(), SourceBuiltin)
	a := c.Active()
	a[0].Confidence = 0
	assert.NotEqual(t, 0.0, c.Active()[0].Confidence)
}

func TestLoad_FirstSourceWithRulesWins(t *testing.T) {
	empty := &staticSource{}
	inactive := &staticSource{rules: []model.Rule{{ID: 1, TradeID: 8, Tier: 1, MatchField: model.FieldPermitType, MatchPattern: "X", Confidence: 1}}}
	store := &staticSource{rules: []model.Rule{{ID: 9, TradeID: 8, Tier: 1, MatchField: model.FieldPermitType, MatchPattern: "X", Confidence: 1, Active: true}}}
	unused := &staticSource{}

	c, err := Load(context.Background(), nil, empty, inactive, store, unused)
	require.NoError(t, err)
	assert.Equal(t, SourceStore, c.Source())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, unused.calls)
}

func TestLoad_FallsBackToBuiltin(t *testing.T) {
	c, err := Load(context.Background(), &staticSource{}, FileSource{})
	require.NoError(t, err)
	assert.Equal(t, SourceBuiltin, c.Source())
	assert.Equal(t, len(DefaultRules()), c.Len())
	assert.Zero(t, c.Skipped())
}

func TestLoad_SourceError(t *testing.T) {
	_, err := Load(context.Background(), &staticSource{err: errors.New("boom")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules: load active rules")
}
