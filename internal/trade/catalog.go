// Package trade holds the trade reference catalog.
package trade

import (
	"sort"

	"github.com/sells-group/permit-leads/internal/model"
)

// defaultTrades is the built-in trade catalog used when the trades table is empty.
var defaultTrades = []model.Trade{
	{ID: 1, Slug: "excavation", Name: "Excavation"},
	{ID: 2, Slug: "shoring", Name: "Shoring & Underpinning"},
	{ID: 3, Slug: "concrete", Name: "Concrete"},
	{ID: 4, Slug: "structural-steel", Name: "Structural Steel"},
	{ID: 5, Slug: "framing", Name: "Framing"},
	{ID: 6, Slug: "masonry", Name: "Masonry"},
	{ID: 7, Slug: "roofing", Name: "Roofing"},
	{ID: 8, Slug: "plumbing", Name: "Plumbing"},
	{ID: 9, Slug: "hvac", Name: "HVAC"},
	{ID: 10, Slug: "electrical", Name: "Electrical"},
	{ID: 11, Slug: "fire-protection", Name: "Fire Protection"},
	{ID: 12, Slug: "insulation", Name: "Insulation"},
	{ID: 13, Slug: "drywall", Name: "Drywall"},
	{ID: 14, Slug: "painting", Name: "Painting"},
	{ID: 15, Slug: "flooring", Name: "Flooring"},
	{ID: 16, Slug: "glazing", Name: "Windows & Glazing"},
	{ID: 17, Slug: "elevator", Name: "Elevator"},
	{ID: 18, Slug: "demolition", Name: "Demolition"},
	{ID: 19, Slug: "landscaping", Name: "Landscaping"},
	{ID: 20, Slug: "waterproofing", Name: "Waterproofing"},
	{ID: 21, Slug: "trim-work", Name: "Trim Work"},
	{ID: 22, Slug: "millwork-cabinetry", Name: "Millwork & Cabinetry"},
	{ID: 23, Slug: "tiling", Name: "Tiling"},
	{ID: 24, Slug: "stone-countertops", Name: "Stone & Countertops"},
	{ID: 25, Slug: "decking-fences", Name: "Decking & Fences"},
	{ID: 26, Slug: "eavestrough-siding", Name: "Eavestrough & Siding"},
	{ID: 27, Slug: "pool-installation", Name: "Pool Installation"},
	{ID: 28, Slug: "solar", Name: "Solar"},
	{ID: 29, Slug: "security", Name: "Security Systems"},
	{ID: 30, Slug: "temporary-fencing", Name: "Temporary Fencing"},
	{ID: 31, Slug: "drain-plumbing", Name: "Drain & Sewer"},
}

// DefaultTrades returns a copy of the built-in trade catalog.
func DefaultTrades() []model.Trade {
	out := make([]model.Trade, len(defaultTrades))
	copy(out, defaultTrades)
	return out
}

// Catalog is an immutable id-indexed view of the trade reference data.
type Catalog struct {
	byID   map[int]model.Trade
	bySlug map[string]model.Trade
}

// NewCatalog indexes trades. Later duplicates of an id are ignored.
func NewCatalog(trades []model.Trade) *Catalog {
	c := &Catalog{
		byID:   make(map[int]model.Trade, len(trades)),
		bySlug: make(map[string]model.Trade, len(trades)),
	}
	for _, t := range trades {
		if _, dup := c.byID[t.ID]; dup {
			continue
		}
		c.byID[t.ID] = t
		c.bySlug[t.Slug] = t
	}
	return c
}

// ByID looks up a trade by id.
func (c *Catalog) ByID(id int) (model.Trade, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// BySlug looks up a trade by slug.
func (c *Catalog) BySlug(slug string) (model.Trade, bool) {
	t, ok := c.bySlug[slug]
	return t, ok
}

// All returns the trades ordered by id.
func (c *Catalog) All() []model.Trade {
	out := make([]model.Trade, 0, len(c.byID))
	for _, t := range c.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of trades.
func (c *Catalog) Len() int {
	return len(c.byID)
}
