// Package scorer computes the bounded composite lead score for a trade match.
package scorer

import (
	"math"
	"time"

	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/normalize"
	"github.com/sells-group/permit-leads/internal/phase"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// Breakdown holds the individual score components. Penalties are stored as
// positive numbers and subtracted in Total.
type Breakdown struct {
	Base       int `json:"base"`
	Cost       int `json:"cost"`
	Freshness  int `json:"freshness"`
	Phase      int `json:"phase"`
	Confidence int `json:"confidence"`
	Staleness  int `json:"staleness"`
	Revocation int `json:"revocation"`
}

// Total sums the components and clamps the result to [MinScore, MaxScore].
func (b Breakdown) Total() int {
	sum := b.Base + b.Cost + b.Freshness + b.Phase + b.Confidence - b.Staleness - b.Revocation
	return clamp(sum, MinScore, MaxScore)
}

// Score returns the lead score for m on permit p in phase ph, evaluated at now.
// It never fails: absent or non-finite inputs count as zero.
func Score(p model.Permit, m model.TradeMatch, ph model.Phase, now time.Time) int {
	return Compute(p, m, ph, now).Total()
}

// Compute returns the per-component breakdown behind Score.
func Compute(p model.Permit, m model.TradeMatch, ph model.Phase, now time.Time) Breakdown {
	status := normalize.Status(p.Status)
	days, dated := daysSince(p.IssuedDate, now)

	b := Breakdown{
		Base:       scoreBase(status),
		Cost:       scoreCost(p.EstConstCost),
		Confidence: scoreConfidence(m.Confidence),
		Revocation: penaltyRevocation(status),
	}
	if phase.IsActiveIn(m.TradeSlug, ph) {
		b.Phase = 15
	}
	if dated {
		b.Freshness = scoreFreshness(days)
		b.Staleness = penaltyStaleness(days)
	} else {
		b.Staleness = 10
	}
	return b
}

var baseByStatus = map[string]int{
	normalize.StatusIssued:          50,
	normalize.StatusUnderInspection: 40,
	normalize.StatusApplication:     30,
	normalize.StatusNotIssued:       20,
	normalize.StatusCompleted:       15,
	normalize.StatusClosed:          10,
}

func scoreBase(status string) int {
	if v, ok := baseByStatus[status]; ok {
		return v
	}
	return 25
}

func scoreCost(cost *float64) int {
	if cost == nil || math.IsNaN(*cost) {
		return 0
	}
	c := *cost
	switch {
	case c >= 10_000_000:
		return 15
	case c >= 5_000_000:
		return 12
	case c >= 1_000_000:
		return 10
	case c >= 500_000:
		return 8
	case c >= 100_000:
		return 5
	case c >= 50_000:
		return 3
	case c > 0:
		return 1
	default:
		return 0
	}
}

// scoreFreshness expects days since issue; negative (future) is freshest.
func scoreFreshness(days int) int {
	switch {
	case days <= 30:
		return 20
	case days <= 90:
		return 15
	case days <= 180:
		return 10
	case days <= 365:
		return 5
	default:
		return 0
	}
}

func scoreConfidence(conf float64) int {
	if math.IsNaN(conf) {
		return 0
	}
	return clamp(int(math.Round(conf*10)), 0, 10)
}

func penaltyStaleness(days int) int {
	switch {
	case days <= 730:
		return 0
	case days <= 1095:
		return 10
	default:
		return 20
	}
}

func penaltyRevocation(status string) int {
	switch status {
	case normalize.StatusRevoked, normalize.StatusCancelled:
		return 30
	case normalize.StatusSuspended:
		return 20
	default:
		return 0
	}
}

// daysSince counts calendar days from issued to now in UTC. The second
// result is false when there is no issue date.
func daysSince(issued *time.Time, now time.Time) (int, bool) {
	if issued == nil || issued.IsZero() {
		return 0, false
	}
	from := truncateDay(issued.UTC())
	to := truncateDay(now.UTC())
	return int(to.Sub(from).Hours() / 24), true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
