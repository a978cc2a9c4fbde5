package trade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/permit-leads/internal/model"
)

func TestDefaultTrades_UniqueIDsAndSlugs(t *testing.T) {
	ids := map[int]bool{}
	slugs := map[string]bool{}
	for _, tr := range DefaultTrades() {
		assert.False(t, ids[tr.ID], "duplicate id %d", tr.ID)
		assert.False(t, slugs[tr.Slug], "duplicate slug %s", tr.Slug)
		ids[tr.ID] = true
		slugs[tr.Slug] = true
	}
}

func TestDefaultTrades_ReturnsCopy(t *testing.T) {
	a := DefaultTrades()
	a[0].Name = "changed"
	assert.NotEqual(t, "changed", DefaultTrades()[0].Name)
}

func TestCatalog_Lookup(t *testing.T) {
	c := NewCatalog([]model.Trade{
		{ID: 2, Slug: "roofing", Name: "Roofing"},
		{ID: 1, Slug: "plumbing", Name: "Plumbing"},
		{ID: 2, Slug: "dupe", Name: "Dupe"},
	})

	require.Equal(t, 2, c.Len())

	tr, ok := c.ByID(1)
	require.True(t, ok)
	assert.Equal(t, "plumbing", tr.Slug)

	tr, ok = c.BySlug("roofing")
	require.True(t, ok)
	assert.Equal(t, 2, tr.ID)

	_, ok = c.BySlug("dupe")
	assert.False(t, ok)

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].ID)
	assert.Equal(t, 2, all[1].ID)
}
