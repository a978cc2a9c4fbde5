package rules

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/normalize"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateTierField, model.Rule{})
	return v
}

// validateTierField enforces that tier 1 rules only target permit_type.
func validateTierField(sl validator.StructLevel) {
	r := sl.Current().Interface().(model.Rule)
	if r.Tier == model.TierCategorical && r.MatchField != model.FieldPermitType {
		sl.ReportError(r.MatchField, "MatchField", "match_field", "tier1_permit_type", "")
	}
}

// CompiledRule is a validated rule with its predicate prepared.
type CompiledRule struct {
	model.Rule

	value string // normalized equality operand
	re    *regexp.Regexp
}

// Compile validates r and prepares its predicate.
func Compile(r model.Rule) (CompiledRule, error) {
	if err := validate.Struct(r); err != nil {
		return CompiledRule{}, eris.Wrapf(err, "rules: invalid rule %d", r.ID)
	}

	cr := CompiledRule{Rule: r}
	var err error
	switch {
	case r.MatchField == model.FieldScopeTags:
		cr.value = strings.ToLower(strings.TrimSpace(r.MatchPattern))
	case r.Tier == model.TierLoose:
		cr.re, err = regexp.Compile("(?i)" + r.MatchPattern)
	case r.MatchField == model.FieldDescription:
		cr.re, err = phrase(normalize.Text(r.MatchPattern))
	default:
		cr.value = normalize.Text(r.MatchPattern)
	}
	if err != nil {
		return CompiledRule{}, eris.Wrapf(err, "rules: compile pattern for rule %d", r.ID)
	}
	if cr.re == nil && cr.value == "" {
		return CompiledRule{}, eris.Errorf("rules: empty pattern for rule %d", r.ID)
	}
	return cr, nil
}

// phrase builds a matcher for p bounded by non-alphanumerics.
func phrase(p string) (*regexp.Regexp, error) {
	if p == "" {
		return nil, nil
	}
	return regexp.Compile(`(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(p) + `(?:$|[^\p{L}\p{N}])`)
}

// Subject is the normalized view of a permit that rules are evaluated against.
type Subject struct {
	PermitType    string
	Work          string
	StructureType string
	Description   string

	tags map[string]bool
}

// NewSubject normalizes the permit's fields and indexes its scope tags by
// full tag and by bare component.
func NewSubject(p model.Permit, scopeTags []string) Subject {
	s := Subject{
		PermitType:    normalize.Text(p.PermitType),
		Work:          normalize.Text(p.Work),
		StructureType: normalize.Text(p.StructureType),
		Description:   normalize.Text(p.Description),
		tags:          make(map[string]bool, len(scopeTags)*2),
	}
	for _, t := range scopeTags {
		t = strings.ToLower(t)
		s.tags[t] = true
		if i := strings.IndexByte(t, ':'); i >= 0 {
			s.tags[t[i+1:]] = true
		}
	}
	return s
}

// Matches evaluates the rule's predicate against s.
func (r CompiledRule) Matches(s Subject) bool {
	switch r.MatchField {
	case model.FieldPermitType:
		return r.matchValue(s.PermitType)
	case model.FieldWork:
		return r.matchValue(s.Work)
	case model.FieldStructureType:
		return r.matchValue(s.StructureType)
	case model.FieldDescription:
		return r.re != nil && r.re.MatchString(s.Description)
	case model.FieldScopeTags:
		return s.tags[r.value]
	default:
		return false
	}
}

func (r CompiledRule) matchValue(v string) bool {
	if v == "" {
		return false
	}
	if r.re != nil {
		return r.re.MatchString(v)
	}
	return v == r.value
}
