package model

// Tier ranks rule reliability. Lower is more reliable.
type Tier int

const (
	TierCategorical Tier = 1 // exact permit_type match
	TierCurated     Tier = 2 // work/structure match or curated phrase
	TierLoose       Tier = 3 // free-text pattern
)

// MatchField names the permit attribute a rule is evaluated against.
type MatchField string

const (
	FieldPermitType    MatchField = "permit_type"
	FieldWork          MatchField = "work"
	FieldStructureType MatchField = "structure_type"
	FieldDescription   MatchField = "description"
	FieldScopeTags     MatchField = "scope_tags"
)

// Categorical reports whether the field holds a categorical value.
func (f MatchField) Categorical() bool {
	switch f {
	case FieldPermitType, FieldWork, FieldStructureType:
		return true
	default:
		return false
	}
}

// Window bounds the permit age, in months, for which a rule applies.
// Both ends are inclusive.
type Window struct {
	MinAgeMonths int `json:"min_age_months" yaml:"min_age_months" validate:"gte=0"`
	MaxAgeMonths int `json:"max_age_months" yaml:"max_age_months" validate:"gtefield=MinAgeMonths"`
}

// Contains reports whether ageMonths falls inside the window.
func (w Window) Contains(ageMonths int) bool {
	return ageMonths >= w.MinAgeMonths && ageMonths <= w.MaxAgeMonths
}

// Rule maps a permit attribute pattern to a trade.
type Rule struct {
	ID           int64      `json:"id" yaml:"id"`
	TradeID      int        `json:"trade_id" yaml:"trade_id" validate:"gt=0"`
	Tier         Tier       `json:"tier" yaml:"tier" validate:"min=1,max=3"`
	MatchField   MatchField `json:"match_field" yaml:"match_field" validate:"required,oneof=permit_type work structure_type description scope_tags"`
	MatchPattern string     `json:"match_pattern" yaml:"match_pattern" validate:"required"`
	Confidence   float64    `json:"confidence" yaml:"confidence" validate:"gte=0,lte=1"`
	Window       *Window    `json:"window,omitempty" yaml:"window,omitempty"`
	Active       bool       `json:"active" yaml:"active"`
}
