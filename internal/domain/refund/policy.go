package refund

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPolicyName is used whenever a resource names no policy or an unknown one.
const DefaultPolicyName = "moderate"

// Policy is a named set of cancellation thresholds.
type Policy struct {
	Name               string          `json:"name"`
	FullRefundHours    int             `json:"full_refund_hours"`
	PartialRefundHours int             `json:"partial_refund_hours"`
	PartialPercentage  decimal.Decimal `json:"partial_percentage"`
}

var policies = map[string]Policy{
	"flexible": {Name: "flexible", FullRefundHours: 1, PartialRefundHours: 0, PartialPercentage: decimal.NewFromInt(50)},
	"moderate": {Name: "moderate", FullRefundHours: 2, PartialRefundHours: 1, PartialPercentage: decimal.NewFromInt(50)},
	"strict":   {Name: "strict", FullRefundHours: 24, PartialRefundHours: 2, PartialPercentage: decimal.NewFromInt(50)},
}

// LookupPolicy returns the named policy, falling back to the default for empty or unknown names.
func LookupPolicy(name string) Policy {
	if p, ok := policies[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return policies[DefaultPolicyName]
}

// Policies returns every known policy ordered from most to least lenient.
func Policies() []Policy {
	out := make([]Policy, 0, len(policies))
	for _, p := range policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullRefundHours < out[j].FullRefundHours })
	return out
}

// ComputeRefund returns what a seeker is owed for cancelling a reservation worth
// total that starts at start, if they cancel at now. The result is rounded to cents.
func (p Policy) ComputeRefund(total decimal.Decimal, start, now time.Time) decimal.Decimal {
	until := start.Sub(now)
	switch {
	case until >= hours(p.FullRefundHours):
		return total
	case until >= hours(p.PartialRefundHours):
		return total.Mul(p.PartialPercentage).Div(decimal.NewFromInt(100)).Round(2)
	default:
		return decimal.Zero
	}
}

// Describe renders the policy as text from the same thresholds ComputeRefund uses.
func (p Policy) Describe() string {
	pct := p.PartialPercentage.String()
	partial := fmt.Sprintf("Cancel at least %s before start for a %s%% refund.", plural(p.PartialRefundHours), pct)
	none := fmt.Sprintf("Cancellations less than %s before start are not refunded.", plural(p.PartialRefundHours))
	if p.PartialRefundHours == 0 {
		partial = fmt.Sprintf("Cancel any time before start for a %s%% refund.", pct)
		none = "Cancellations after start are not refunded."
	}
	return fmt.Sprintf("Cancel at least %s before start for a full refund. %s %s",
		plural(p.FullRefundHours), partial, none)
}

func hours(n int) time.Duration {
	return time.Duration(n) * time.Hour
}

func plural(h int) string {
	if h == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", h)
}
