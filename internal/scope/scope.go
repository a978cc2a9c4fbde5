// Package scope derives a permit's project type and its set of
// "<action>:<component>" scope tags from the work category, structure type
// and free-text description.
package scope

import (
	"sort"
	"strings"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/normalize"
)

// Project types.
const (
	ProjectNewConstruction    = "new-construction"
	ProjectAddition           = "addition"
	ProjectInteriorAlteration = "interior-alteration"
	ProjectSecondSuite        = "second-suite"
	ProjectDemolition         = "demolition"
	ProjectAccessory          = "accessory-structure"
	ProjectRepair             = "repair"
	ProjectMechanical         = "mechanical"
	ProjectMultiple           = "multiple-projects"
)

const (
	workInteriorAlterations = "INTERIOR ALTERATIONS"
	workMultipleProjects    = "MULTIPLE PROJECTS"
	workNewBuilding         = "NEW BUILDING"
)

// Result is the scope classification of one permit.
type Result struct {
	ProjectType *string
	Tags        []string
}

// Classify runs the component detectors over p and applies the dedup and
// false-positive guards. Tags are sorted and never nil.
func Classify(p model.Permit) Result {
	work := normalize.Text(p.Work)
	desc := normalize.Text(p.Description)
	defaultAction := defaultActionFor(work, normalize.Text(p.PermitType))

	workTag, hasWorkTag := workComponents[work]

	actions := make(map[string]Action)
	for _, d := range detectors {
		def := defaultAction
		if hasWorkTag && workTag.Component == d.component {
			def = workTag.Action
		}
		if a, ok := detect(d, desc, def); ok {
			actions[d.component] = a
		}
	}

	// The work category fills in components the description is silent on.
	if hasWorkTag {
		if _, seen := actions[workTag.Component]; !seen {
			actions[workTag.Component] = workTag.Action
		}
	}
	if strings.Contains(normalize.Text(p.StructureType), "LANEWAY") {
		if _, seen := actions[CompLanewaySuite]; !seen {
			actions[CompLanewaySuite] = ActionNew
		}
	}

	applyGuards(actions, work)

	tags := make([]string, 0, len(actions))
	for comp, a := range actions {
		tags = append(tags, Tag{Action: a, Component: comp}.String())
	}
	sort.Strings(tags)

	return Result{
		ProjectType: projectType(work, normalize.Text(p.PermitType), actions),
		Tags:        tags,
	}
}

// defaultActionFor resolves ties between new and alter cues.
func defaultActionFor(work, permitType string) Action {
	if work == workMultipleProjects || work == workNewBuilding || strings.HasPrefix(permitType, "NEW ") {
		return ActionNew
	}
	return ActionAlter
}

// detect reports whether d fires in text and which action its closest verb
// cue implies across all of its mentions.
func detect(d detector, text string, def Action) (Action, bool) {
	if text == "" {
		return "", false
	}
	hits := d.pattern.FindAllStringIndex(text, -1)
	if len(hits) == 0 {
		return "", false
	}

	newHits := newVerbs.FindAllStringIndex(text, -1)
	alterHits := alterVerbs.FindAllStringIndex(text, -1)

	bestNew, bestAlter := maxCueDistance+1, maxCueDistance+1
	for _, h := range hits {
		bestNew = min(bestNew, nearest(h, newHits))
		bestAlter = min(bestAlter, nearest(h, alterHits))
	}

	switch {
	case bestNew < bestAlter:
		return ActionNew, true
	case bestAlter < bestNew:
		return ActionAlter, true
	default:
		return def, true
	}
}

// nearest returns the byte gap between span and the closest span in others.
// Overlapping spans are at distance 0.
func nearest(span []int, others [][]int) int {
	best := maxCueDistance + 1
	for _, o := range others {
		var d int
		switch {
		case o[1] <= span[0]:
			d = span[0] - o[1]
		case o[0] >= span[1]:
			d = o[0] - span[1]
		default:
			d = 0
		}
		if d < best {
			best = d
		}
	}
	return best
}

// applyGuards removes tag combinations that are known false positives or
// that double-count the same work.
func applyGuards(actions map[string]Action, work string) {
	if work == workInteriorAlterations {
		delete(actions, CompStoreyAddition)
	}
	if actions[CompBasement] == ActionNew && actions[CompUnderpinning] == ActionNew {
		delete(actions, CompUnderpinning)
	}
	if actions[CompSecondSuite] == ActionNew && actions[CompInteriorAlterations] == ActionAlter {
		delete(actions, CompInteriorAlterations)
	}
}

var projectByWork = map[string]string{
	"NEW BUILDING":                 ProjectNewConstruction,
	"NEW HOUSES":                   ProjectNewConstruction,
	"ADDITION(S)":                  ProjectAddition,
	"ADDITION":                     ProjectAddition,
	"ADDITIONS":                    ProjectAddition,
	"INTERIOR ALTERATIONS":         ProjectInteriorAlteration,
	"SECOND SUITE":                 ProjectSecondSuite,
	"DEMOLITION":                   ProjectDemolition,
	"DECK":                         ProjectAccessory,
	"PORCH":                        ProjectAccessory,
	"GARAGE":                       ProjectAccessory,
	"CARPORT":                      ProjectAccessory,
	"SWIMMING POOL":                ProjectAccessory,
	"FENCE":                        ProjectAccessory,
	"SHED":                         ProjectAccessory,
	"LANEWAY / REAR YARD SUITE":    ProjectAccessory,
	"RE-ROOFING":                   ProjectRepair,
	"BALCONY/GUARD REPAIRS":        ProjectRepair,
	"UNDERPINNING":                 ProjectRepair,
	"FIRE DAMAGE":                  ProjectRepair,
	"RE-CLADDING":                  ProjectRepair,
	"GARAGE REPAIR/RECONSTRUCTION": ProjectRepair,
	"FIRE ALARM":                   ProjectMechanical,
	"SPRINKLERS":                   ProjectMechanical,
	"HVAC":                         ProjectMechanical,
	"MECHANICAL":                   ProjectMechanical,
	"FIREPLACE/WOODSTOVES":         ProjectMechanical,
	"DRAIN":                        ProjectMechanical,
	"BACKFLOW PREVENTER":           ProjectMechanical,
}

var projectByPermitType = map[string]string{
	"NEW HOUSES":             ProjectNewConstruction,
	"NEW BUILDING":           ProjectNewConstruction,
	"DEMOLITION FOLDER (DM)": ProjectDemolition,
}

var accessoryComponents = []string{
	CompDeck, CompPorch, CompGarage, CompCarport, CompPool, CompFence, CompLanewaySuite,
}

// projectType looks the work category up in the decision table. Multiple
// Projects and unknown categories fall back to the scope tags; with no
// signal at all the result is nil.
func projectType(work, permitType string, actions map[string]Action) *string {
	if pt, ok := projectByWork[work]; ok {
		return &pt
	}
	if work != workMultipleProjects {
		if pt, ok := projectByPermitType[permitType]; ok {
			return &pt
		}
	}

	pt, ok := projectFromTags(actions)
	if !ok {
		if work == workMultipleProjects {
			pt = ProjectMultiple
		} else {
			return nil
		}
	}
	return &pt
}

func projectFromTags(actions map[string]Action) (string, bool) {
	switch {
	case actions[CompSecondSuite] == ActionNew:
		return ProjectSecondSuite, true
	case actions[CompStoreyAddition] != "" || actions[CompRearAddition] != "":
		return ProjectAddition, true
	case actions[CompInteriorAlterations] != "":
		return ProjectInteriorAlteration, true
	}
	for _, c := range accessoryComponents {
		if actions[c] == ActionNew {
			return ProjectAccessory, true
		}
	}
	return "", false
}
