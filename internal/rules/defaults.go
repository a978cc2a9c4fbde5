package rules

import (
	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/trade"
)

type ruleDef struct {
	tier    model.Tier
	field   model.MatchField
	pattern string
	trade   string
	conf    float64
	window  *model.Window
}

func window(minMonths, maxMonths int) *model.Window {
	return &model.Window{MinAgeMonths: minMonths, MaxAgeMonths: maxMonths}
}

var defaultDefs = []ruleDef{
	// Tier 1: permit type.
	{1, model.FieldPermitType, "Plumbing(PS)", "plumbing", 0.95, nil},
	{1, model.FieldPermitType, "Mechanical(MS)", "hvac", 0.95, nil},
	{1, model.FieldPermitType, "Drain and Site Service", "drain-plumbing", 0.95, nil},
	{1, model.FieldPermitType, "Drain and Site Service", "excavation", 0.75, nil},
	{1, model.FieldPermitType, "Demolition Folder (DM)", "demolition", 0.95, nil},
	{1, model.FieldPermitType, "Fire/Security Upgrade", "fire-protection", 0.90, nil},
	{1, model.FieldPermitType, "Fire/Security Upgrade", "security", 0.80, nil},
	{1, model.FieldPermitType, "New Houses", "framing", 0.90, nil},
	{1, model.FieldPermitType, "New Houses", "concrete", 0.85, nil},
	{1, model.FieldPermitType, "New Houses", "excavation", 0.85, window(0, 9)},
	{1, model.FieldPermitType, "New Houses", "roofing", 0.80, nil},
	{1, model.FieldPermitType, "New Building", "concrete", 0.90, nil},
	{1, model.FieldPermitType, "New Building", "excavation", 0.85, window(0, 9)},
	{1, model.FieldPermitType, "Designated Structures", "structural-steel", 0.75, nil},

	// Tier 2: work category.
	{2, model.FieldWork, "Re-Roofing", "roofing", 0.90, nil},
	{2, model.FieldWork, "Deck", "decking-fences", 0.85, nil},
	{2, model.FieldWork, "Porch", "decking-fences", 0.70, nil},
	{2, model.FieldWork, "Porch", "masonry", 0.60, nil},
	{2, model.FieldWork, "Garage", "framing", 0.75, nil},
	{2, model.FieldWork, "Garage", "concrete", 0.70, nil},
	{2, model.FieldWork, "Underpinning", "shoring", 0.90, nil},
	{2, model.FieldWork, "Underpinning", "waterproofing", 0.75, nil},
	{2, model.FieldWork, "Underpinning", "excavation", 0.70, window(0, 9)},
	{2, model.FieldWork, "Interior Alterations", "drywall", 0.75, nil},
	{2, model.FieldWork, "Interior Alterations", "painting", 0.70, nil},
	{2, model.FieldWork, "Interior Alterations", "flooring", 0.65, nil},
	{2, model.FieldWork, "Interior Alterations", "electrical", 0.60, nil},
	{2, model.FieldWork, "Second Suite", "plumbing", 0.80, nil},
	{2, model.FieldWork, "Second Suite", "electrical", 0.80, nil},
	{2, model.FieldWork, "Second Suite", "drywall", 0.75, nil},
	{2, model.FieldWork, "Second Suite", "fire-protection", 0.65, nil},
	{2, model.FieldWork, "Addition(s)", "framing", 0.85, nil},
	{2, model.FieldWork, "Addition(s)", "roofing", 0.70, nil},
	{2, model.FieldWork, "Addition(s)", "concrete", 0.65, nil},
	{2, model.FieldWork, "Balcony/Guard Repairs", "masonry", 0.75, nil},
	{2, model.FieldWork, "Fire Alarm", "fire-protection", 0.90, nil},
	{2, model.FieldWork, "Sprinklers", "fire-protection", 0.90, nil},
	{2, model.FieldWork, "Swimming Pool", "pool-installation", 0.90, nil},
	{2, model.FieldWork, "Demolition", "demolition", 0.90, nil},
	{2, model.FieldWork, "New Building", "temporary-fencing", 0.70, window(0, 18)},
	{2, model.FieldWork, "New Building", "landscaping", 0.60, window(10, 120)},

	// Tier 2: structure type.
	{2, model.FieldStructureType, "Apartment Building", "elevator", 0.70, nil},
	{2, model.FieldStructureType, "Industrial", "structural-steel", 0.70, nil},
	{2, model.FieldStructureType, "Office", "glazing", 0.60, nil},
	{2, model.FieldStructureType, "Laneway / Rear Yard Suite", "framing", 0.75, nil},

	// Tier 2: curated description phrases.
	{2, model.FieldDescription, "kitchen", "millwork-cabinetry", 0.80, nil},
	{2, model.FieldDescription, "kitchen", "stone-countertops", 0.70, nil},
	{2, model.FieldDescription, "bathroom", "tiling", 0.75, nil},
	{2, model.FieldDescription, "washroom", "tiling", 0.70, nil},
	{2, model.FieldDescription, "windows", "glazing", 0.75, nil},
	{2, model.FieldDescription, "elevator", "elevator", 0.85, nil},
	{2, model.FieldDescription, "sprinkler", "fire-protection", 0.85, nil},
	{2, model.FieldDescription, "fire alarm", "fire-protection", 0.85, nil},
	{2, model.FieldDescription, "solar panels", "solar", 0.90, nil},
	{2, model.FieldDescription, "eavestrough", "eavestrough-siding", 0.85, nil},
	{2, model.FieldDescription, "siding", "eavestrough-siding", 0.75, nil},
	{2, model.FieldDescription, "fence", "decking-fences", 0.70, nil},
	{2, model.FieldDescription, "waterproofing", "waterproofing", 0.85, nil},
	{2, model.FieldDescription, "insulation", "insulation", 0.80, nil},
	{2, model.FieldDescription, "hvac", "hvac", 0.80, nil},
	{2, model.FieldDescription, "steel beam", "structural-steel", 0.75, nil},

	// Tier 2: scope tags.
	{2, model.FieldScopeTags, "new:deck", "decking-fences", 0.85, nil},
	{2, model.FieldScopeTags, "pool", "pool-installation", 0.85, nil},
	{2, model.FieldScopeTags, "underpinning", "shoring", 0.85, nil},
	{2, model.FieldScopeTags, "basement", "waterproofing", 0.65, nil},
	{2, model.FieldScopeTags, "new:storey-addition", "framing", 0.80, nil},
	{2, model.FieldScopeTags, "roof", "roofing", 0.75, nil},
	{2, model.FieldScopeTags, "kitchen", "millwork-cabinetry", 0.75, nil},
	{2, model.FieldScopeTags, "bathroom", "tiling", 0.70, nil},
	{2, model.FieldScopeTags, "new:second-suite", "plumbing", 0.75, nil},
	{2, model.FieldScopeTags, "fireplace", "masonry", 0.65, nil},
	{2, model.FieldScopeTags, "solar", "solar", 0.85, nil},
	{2, model.FieldScopeTags, "new:garage", "framing", 0.70, nil},

	// Tier 3: loose description patterns.
	{3, model.FieldDescription, `\bPLUMB(ING|ER)?\b`, "plumbing", 0.60, nil},
	{3, model.FieldDescription, `\b(ELECTRICAL|WIRING|PANEL UPGRADE)\b`, "electrical", 0.60, nil},
	{3, model.FieldDescription, `\b(FURNACE|AIR CONDITION(ING|ER)?|HVAC|DUCTWORK|HEAT PUMP)\b`, "hvac", 0.60, nil},
	{3, model.FieldDescription, `\b(RE-?)?ROOF(ING|S)?\b`, "roofing", 0.55, nil},
	{3, model.FieldDescription, `\b(DRYWALL|GYPSUM)\b`, "drywall", 0.55, nil},
	{3, model.FieldDescription, `\bPAINT(ING)?\b`, "painting", 0.50, nil},
	{3, model.FieldDescription, `\b(FLOORING|HARDWOOD|LAMINATE)\b`, "flooring", 0.45, nil},
	{3, model.FieldDescription, `\bTIL(E|ES|ING)\b`, "tiling", 0.50, nil},
	{3, model.FieldDescription, `\b(MASONRY|BRICK|BLOCK WALL|STONE VENEER)\b`, "masonry", 0.55, nil},
	{3, model.FieldDescription, `\bEXCAVAT\w*`, "excavation", 0.55, window(0, 9)},
	{3, model.FieldDescription, `\b(FOUNDATIONS?|FOOTINGS?|CONCRETE|SLAB)\b`, "concrete", 0.55, nil},
	{3, model.FieldDescription, `\b(FRAMING|JOISTS?|STUDS)\b`, "framing", 0.50, nil},
	{3, model.FieldDescription, `\b(LANDSCAP\w*|INTERLOCK\w*|SOD)\b`, "landscaping", 0.55, nil},
	{3, model.FieldDescription, `\bDEMOLI\w*`, "demolition", 0.55, window(0, 9)},
	{3, model.FieldDescription, `\bSHORING\b`, "shoring", 0.60, nil},
	{3, model.FieldDescription, `\b(CABINET\w*|MILLWORK)\b`, "millwork-cabinetry", 0.55, nil},
	{3, model.FieldDescription, `\b(COUNTERTOPS?|QUARTZ|GRANITE)\b`, "stone-countertops", 0.50, nil},
	{3, model.FieldDescription, `\b(TRIM|BASEBOARDS?|CROWN MOULDING)\b`, "trim-work", 0.45, nil},
	{3, model.FieldDescription, `\b(CCTV|SECURITY SYSTEM|ACCESS CONTROL)\b`, "security", 0.55, nil},
	{3, model.FieldDescription, `\b(DRAINS?|SEWER|BACKWATER VALVE)\b`, "drain-plumbing", 0.55, nil},
	{3, model.FieldDescription, `\bSKYLIGHTS?\b`, "glazing", 0.50, nil},
}

// DefaultRules returns the built-in rule catalog. Ids are assigned in
// declaration order starting at 1.
func DefaultRules() []model.Rule {
	trades := trade.NewCatalog(trade.DefaultTrades())
	out := make([]model.Rule, 0, len(defaultDefs))
	for i, s := range defaultDefs {
		t, ok := trades.BySlug(s.trade)
		if !ok {
			continue
		}
		r := model.Rule{
			ID:           int64(i + 1),
			TradeID:      t.ID,
			Tier:         s.tier,
			MatchField:   s.field,
			MatchPattern: s.pattern,
			Confidence:   s.conf,
			Active:       true,
		}
		if s.window != nil {
			w := *s.window
			r.Window = &w
		}
		out = append(out, r)
	}
	return out
}
