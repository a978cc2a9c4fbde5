// Package product maps scope-tag components onto product groups.
package product

import (
	"sort"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/scope"
)

var defaultProducts = []model.Product{
	{ID: 1, Slug: "kitchen-cabinets", Name: "Kitchen Cabinets"},
	{ID: 2, Slug: "countertops", Name: "Countertops"},
	{ID: 3, Slug: "bathroom-fixtures", Name: "Bathroom Fixtures"},
	{ID: 4, Slug: "windows-doors", Name: "Windows & Doors"},
	{ID: 5, Slug: "roofing-materials", Name: "Roofing Materials"},
	{ID: 6, Slug: "decking-lumber", Name: "Decking Lumber"},
	{ID: 7, Slug: "pool-equipment", Name: "Pool Equipment"},
	{ID: 8, Slug: "fencing", Name: "Fencing"},
	{ID: 9, Slug: "hvac-equipment", Name: "HVAC Equipment"},
	{ID: 10, Slug: "solar-panels", Name: "Solar Panels"},
	{ID: 11, Slug: "elevators-lifts", Name: "Elevators & Lifts"},
	{ID: 12, Slug: "fireplaces-stoves", Name: "Fireplaces & Stoves"},
	{ID: 13, Slug: "garage-doors", Name: "Garage Doors"},
	{ID: 14, Slug: "waterproofing-membranes", Name: "Waterproofing Membranes"},
	{ID: 15, Slug: "flooring", Name: "Flooring"},
	{ID: 16, Slug: "railings", Name: "Railings"},
}

// byComponent lists the product slugs each scope component implies.
var byComponent = map[string][]string{
	scope.CompKitchen:             {"kitchen-cabinets", "countertops", "flooring"},
	scope.CompBathroom:            {"bathroom-fixtures", "countertops"},
	scope.CompWindows:             {"windows-doors"},
	scope.CompRoof:                {"roofing-materials"},
	scope.CompDeck:                {"decking-lumber", "railings"},
	scope.CompPorch:               {"decking-lumber", "railings"},
	scope.CompBalcony:             {"railings"},
	scope.CompPool:                {"pool-equipment", "fencing"},
	scope.CompFence:               {"fencing"},
	scope.CompHVAC:                {"hvac-equipment"},
	scope.CompSolar:               {"solar-panels"},
	scope.CompElevator:            {"elevators-lifts"},
	scope.CompFireplace:           {"fireplaces-stoves"},
	scope.CompGarage:              {"garage-doors"},
	scope.CompUnderpinning:        {"waterproofing-membranes"},
	scope.CompBasement:            {"waterproofing-membranes", "flooring"},
	scope.CompSecondSuite:         {"kitchen-cabinets", "bathroom-fixtures", "flooring"},
	scope.CompLanewaySuite:        {"kitchen-cabinets", "bathroom-fixtures", "windows-doors"},
	scope.CompInteriorAlterations: {"flooring"},
}

// DefaultProducts returns a copy of the built-in product catalog.
func DefaultProducts() []model.Product {
	out := make([]model.Product, len(defaultProducts))
	copy(out, defaultProducts)
	return out
}

// Catalog is an immutable slug-indexed product set.
type Catalog struct {
	bySlug map[string]model.Product
}

// NewCatalog indexes products by slug. Later duplicates are ignored.
func NewCatalog(products []model.Product) *Catalog {
	c := &Catalog{bySlug: make(map[string]model.Product, len(products))}
	for _, p := range products {
		if _, dup := c.bySlug[p.Slug]; !dup {
			c.bySlug[p.Slug] = p
		}
	}
	return c
}

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.bySlug) }

// All returns the products ordered by id.
func (c *Catalog) All() []model.Product {
	out := make([]model.Product, 0, len(c.bySlug))
	for _, p := range c.bySlug {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Match returns one product match per product implied by the permit's scope
// tags, ordered by product id. Products missing from the catalog are skipped.
func (c *Catalog) Match(key model.PermitKey, scopeTags []string) []model.ProductMatch {
	seen := make(map[int]bool)
	out := make([]model.ProductMatch, 0)
	for _, comp := range scope.Components(scopeTags) {
		for _, slug := range byComponent[comp] {
			p, ok := c.bySlug[slug]
			if !ok || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, model.ProductMatch{
				PermitNum:   key.PermitNum,
				RevisionNum: key.RevisionNum,
				ProductID:   p.ID,
				ProductSlug: p.Slug,
				ProductName: p.Name,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
