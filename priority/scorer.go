// Package priority computes explainable priority scores for commitments.
// The scorer is pure: identical inputs and reference time always produce
// identical score and reason.
package priority

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Input carries the scoring signals. Nil pointer fields mean "absent"; an
// absent factor is excluded from the reason and contributes its documented
// default to the weighted sum.
type Input struct {
	DueDate       *time.Time
	AmountCents   *int64
	Domain        string
	Severity      *float64
	EffortHours   *float64
	IsBlocked     bool
	BlocksCount   int
	UserBoost     bool
	ReferenceTime time.Time
}

// Result is the bounded score paired with its justification. Factors holds
// every sub-score so callers can persist the full breakdown.
type Result struct {
	Score    float64
	Reason   string
	Factors  map[string]float64
	Metadata map[string]any
}

// Fixed weights per factor; they sum to 1.0 so sub-scores in [0,100]
// produce a total in [0,100] before the final clamp.
const (
	weightTime       = 0.30
	weightSeverity   = 0.20
	weightAmount     = 0.15
	weightDependency = 0.15
	weightEffort     = 0.10
	weightUser       = 0.10
)

// Domain severity table. Absent or unknown domains fall back to mid-range.
var domainSeverity = map[string]float64{
	"legal":       100,
	"health":      90,
	"finance":     80,
	"customer":    60,
	"internal":    50,
	"maintenance": 40,
	"enhancement": 30,
	"research":    20,
	"personal":    10,
}

const defaultSeverity = 50

// Calculate combines six independent sub-scores into one bounded score with
// a human-readable reason. Clauses appear only for active factors, in fixed
// order: time, amount, domain, dependency, user.
func Calculate(in Input) Result {
	ref := in.ReferenceTime
	if ref.IsZero() {
		ref = time.Now()
	}

	timeScore, timeClause := timePressure(in.DueDate, ref)
	severityScore, domainClause := severity(in.Domain, in.Severity)
	amountScore, amountClause := amountPressure(in.AmountCents)
	effortScore := effort(in.EffortHours)
	depScore, depClause := dependency(in.IsBlocked, in.BlocksCount)
	userScore, userClause := userPreference(in.UserBoost)

	total := weightTime*timeScore +
		weightSeverity*severityScore +
		weightAmount*amountScore +
		weightDependency*depScore +
		weightEffort*effortScore +
		weightUser*userScore

	score := clamp(total, 0, 100)

	clauses := make([]string, 0, 5)
	for _, clause := range []string{timeClause, amountClause, domainClause, depClause, userClause} {
		if clause != "" {
			clauses = append(clauses, clause)
		}
	}
	if len(clauses) == 0 {
		clauses = append(clauses, "routine priority from baseline severity")
	}

	return Result{
		Score:  score,
		Reason: strings.Join(clauses, "; "),
		Factors: map[string]float64{
			"time_pressure":   timeScore,
			"severity":        severityScore,
			"amount":          amountScore,
			"effort":          effortScore,
			"dependency":      depScore,
			"user_preference": userScore,
		},
		Metadata: map[string]any{
			"weights": map[string]float64{
				"time_pressure":   weightTime,
				"severity":        weightSeverity,
				"amount":          weightAmount,
				"effort":          weightEffort,
				"dependency":      weightDependency,
				"user_preference": weightUser,
			},
			"reference_time": ref.UTC().Format(time.RFC3339),
		},
	}
}

// timePressure decreases monotonically with time until the due date.
// Overdue commitments score highest and keep rising with days overdue.
func timePressure(due *time.Time, ref time.Time) (float64, string) {
	if due == nil {
		return 0, ""
	}

	days := due.Sub(ref).Hours() / 24
	switch {
	case days < 0:
		overdue := int(math.Ceil(-days))
		score := math.Min(100, 85+float64(overdue))
		return score, fmt.Sprintf("overdue by %s", pluralDays(overdue))
	case days <= 1:
		return 85, "due today"
	case days <= 2:
		return 80, "due in 2 days"
	case days <= 3:
		return 75, "due in 3 days"
	case days <= 7:
		return 60, fmt.Sprintf("due in %s", pluralDays(int(math.Ceil(days))))
	case days <= 14:
		return 45, fmt.Sprintf("due in %s", pluralDays(int(math.Ceil(days))))
	case days <= 30:
		return 30, fmt.Sprintf("due in %s", pluralDays(int(math.Ceil(days))))
	case days <= 90:
		return 15, fmt.Sprintf("due in %s", pluralDays(int(math.Ceil(days))))
	default:
		return 5, ""
	}
}

func severity(domain string, explicit *float64) (float64, string) {
	if explicit != nil {
		return clamp(*explicit, 0, 100), ""
	}
	if domain == "" {
		return defaultSeverity, ""
	}
	weight, ok := domainSeverity[strings.ToLower(domain)]
	if !ok {
		return defaultSeverity, ""
	}
	return weight, fmt.Sprintf("%s domain", strings.ToLower(domain))
}

// amountPressure saturates logarithmically: ~$100k and above pins near the
// maximum, low five figures land between 50 and 90.
func amountPressure(cents *int64) (float64, string) {
	if cents == nil || *cents <= 0 {
		return 0, ""
	}
	dollars := float64(*cents) / 100
	score := clamp((math.Log10(dollars)-2)/3*100, 0, 100)
	return score, fmt.Sprintf("%s at stake", FormatCents(*cents))
}

// effort rewards quick wins: sub-hour work scores high, multi-week work low.
func effort(hours *float64) float64 {
	if hours == nil || *hours < 0 {
		return 50
	}
	h := *hours
	switch {
	case h < 1:
		return 85
	case h <= 4:
		return 75
	case h <= 16:
		return 65
	case h <= 40:
		return 55
	case h <= 160:
		return 45
	default:
		return 30
	}
}

// dependency: being blocked zeroes the sub-score no matter what else is
// true; blocking several others pushes it near the top.
func dependency(isBlocked bool, blocksCount int) (float64, string) {
	if isBlocked {
		return 0, "blocked by another commitment"
	}
	switch {
	case blocksCount >= 3:
		return 95, fmt.Sprintf("blocks %d other commitments", blocksCount)
	case blocksCount > 0:
		return 70, fmt.Sprintf("blocks %d other commitment(s)", blocksCount)
	default:
		return 50, ""
	}
}

func userPreference(boost bool) (float64, string) {
	if boost {
		return 95, "manually boosted"
	}
	return 50, ""
}

// FormatCents renders an amount of cents as "$X,XXX.XX".
func FormatCents(cents int64) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	fmt.Fprintf(&b, ".%02d", frac)
	return b.String()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
