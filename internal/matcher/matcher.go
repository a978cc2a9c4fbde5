// Package matcher applies the tiered rule catalog to a permit and its scope
// tags, keeping one match per trade.
package matcher

import (
	"sort"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/rules"
	"github.com/sells-group/permit-leads/internal/trade"
)

// WindowApplies reports whether a matching rule counts for a permit of the
// given age. A rule outside its window is dropped, not demoted.
func WindowApplies(r model.Rule, ageMonths int) bool {
	if r.Window == nil {
		return true
	}
	return r.Window.Contains(ageMonths)
}

// Match evaluates every rule in cat against p and its scope tags. For each
// trade the candidate with the lowest tier wins, then the highest
// confidence, then the lowest rule id. Phase and lead score are left unset.
// Rules naming a trade absent from trades are ignored.
func Match(p model.Permit, scopeTags []string, cat *rules.Catalog, ageMonths int, trades *trade.Catalog) []model.TradeMatch {
	if cat == nil {
		return []model.TradeMatch{}
	}
	subj := rules.NewSubject(p, scopeTags)

	best := make(map[int]model.Rule)
	for _, r := range cat.Active() {
		if !r.Matches(subj) || !WindowApplies(r.Rule, ageMonths) {
			continue
		}
		if cur, ok := best[r.TradeID]; !ok || beats(r.Rule, cur) {
			best[r.TradeID] = r.Rule
		}
	}

	out := make([]model.TradeMatch, 0, len(best))
	for tradeID, r := range best {
		t, ok := trades.ByID(tradeID)
		if !ok {
			continue
		}
		out = append(out, model.TradeMatch{
			PermitNum:   p.PermitNum,
			RevisionNum: p.RevisionNum,
			TradeID:     t.ID,
			TradeSlug:   t.Slug,
			TradeName:   t.Name,
			Tier:        r.Tier,
			Confidence:  r.Confidence,
			IsActive:    true,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeID < out[j].TradeID })
	return out
}

func beats(a, b model.Rule) bool {
	if a.Tier != b.Tier {
		return a.Tier < b.Tier
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.ID < b.ID
}
