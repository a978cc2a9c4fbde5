// Package phase derives a permit's construction lifecycle phase from its
// status and age, and answers which trades are working in each phase.
package phase

import (
	"sort"
	"time"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/normalize"
)

// Age boundaries in months (inclusive upper bounds).
const (
	earlyMaxMonths      = 3
	structuralMaxMonths = 9
	finishingMaxMonths  = 18
)

// Resolve returns the lifecycle phase for a permit status and issue date
// evaluated at now.
//   - completed / closed: landscaping, regardless of age
//   - application / not issued: early_construction, regardless of age
//   - otherwise by months since issue: <=3 early, <=9 structural,
//     <=18 finishing, >18 landscaping (early when never issued)
func Resolve(status string, issued *time.Time, now time.Time) model.Phase {
	switch normalize.Status(status) {
	case normalize.StatusCompleted, normalize.StatusClosed:
		return model.PhaseLandscaping
	case normalize.StatusApplication, normalize.StatusNotIssued:
		return model.PhaseEarlyConstruction
	}
	if issued == nil {
		return model.PhaseEarlyConstruction
	}
	return ForAge(AgeMonths(issued, now))
}

// ForAge maps an age in months onto a phase.
func ForAge(months int) model.Phase {
	switch {
	case months <= earlyMaxMonths:
		return model.PhaseEarlyConstruction
	case months <= structuralMaxMonths:
		return model.PhaseStructural
	case months <= finishingMaxMonths:
		return model.PhaseFinishing
	default:
		return model.PhaseLandscaping
	}
}

// AgeMonths returns the whole calendar months elapsed from issued to now.
// A missing or future issue date is age 0.
func AgeMonths(issued *time.Time, now time.Time) int {
	if issued == nil {
		return 0
	}
	from := issued.UTC()
	to := now.UTC()
	if !to.After(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// membership lists the trade slugs active in each phase. A trade may
// appear in more than one phase.
var membership = map[model.Phase]map[string]bool{
	model.PhaseEarlyConstruction: set(
		"excavation", "shoring", "demolition", "temporary-fencing",
		"concrete", "waterproofing", "drain-plumbing",
	),
	model.PhaseStructural: set(
		"concrete", "structural-steel", "framing", "masonry", "roofing",
		"plumbing", "hvac", "electrical", "elevator", "fire-protection",
		"waterproofing",
	),
	model.PhaseFinishing: set(
		"insulation", "drywall", "painting", "flooring", "glazing",
		"trim-work", "millwork-cabinetry", "tiling", "stone-countertops",
		"plumbing", "hvac", "electrical", "security", "fire-protection", "solar",
	),
	model.PhaseLandscaping: set(
		"landscaping", "decking-fences", "eavestrough-siding", "pool-installation",
	),
}

func set(slugs ...string) map[string]bool {
	m := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		m[s] = true
	}
	return m
}

// IsActiveIn reports whether the trade identified by slug works during ph.
func IsActiveIn(tradeSlug string, ph model.Phase) bool {
	return membership[ph][tradeSlug]
}

// ActiveTrades returns the sorted trade slugs active in ph.
func ActiveTrades(ph model.Phase) []string {
	slugs := make([]string, 0, len(membership[ph]))
	for s := range membership[ph] {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs
}

// All returns the phases in lifecycle order.
func All() []model.Phase {
	return []model.Phase{
		model.PhaseEarlyConstruction,
		model.PhaseStructural,
		model.PhaseFinishing,
		model.PhaseLandscaping,
	}
}
