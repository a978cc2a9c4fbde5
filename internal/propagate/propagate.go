// Package propagate copies scope classification from a primary permit to the
// companion permits issued under the same base permit number.
package propagate

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/normalize"
)

// companionTypes are narrow-scope permit types whose own text carries too
// little signal to classify directly.
var companionTypes = map[string]bool{
	"PLUMBING(PS)":           true,
	"MECHANICAL(MS)":         true,
	"DRAIN AND SITE SERVICE": true,
	"DEMOLITION FOLDER (DM)": true,
}

// IsCompanion reports whether permitType is a companion permit type.
func IsCompanion(permitType string) bool {
	return companionTypes[normalize.Text(permitType)]
}

// BasePermitNum keeps the leading all-digit tokens of a permit number, so
// "24 055123 DM" and "24 055123 PLB" both yield "24 055123". A number with
// no leading digits is returned trimmed.
func BasePermitNum(permitNum string) string {
	fields := strings.Fields(permitNum)
	n := 0
	for n < len(fields) && allDigits(fields[n]) {
		n++
	}
	if n == 0 {
		return strings.TrimSpace(permitNum)
	}
	return strings.Join(fields[:n], " ")
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// Source is the primary permit a companion's scope was copied from.
type Source struct {
	Key         model.PermitKey
	ProjectType *string
	Tags        []string
}

// FromSiblings picks the sibling whose scope the companion inherits.
// Companions, the permit itself and siblings without tags are skipped; of
// the rest the lowest permit number, then revision, wins. The second
// result is false when no sibling qualifies.
func FromSiblings(self model.PermitKey, siblings []model.Permit) (Source, bool) {
	var candidates []model.Permit
	for _, s := range siblings {
		if s.Key() == self || IsCompanion(s.PermitType) || len(s.ScopeTags) == 0 {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		return Source{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Key().Less(candidates[j].Key())
	})

	primary := candidates[0]
	tags := append([]string(nil), primary.ScopeTags...)
	sort.Strings(tags)
	src := Source{Key: primary.Key(), Tags: tags}
	if primary.ProjectType != nil {
		pt := *primary.ProjectType
		src.ProjectType = &pt
	}
	return src, true
}
