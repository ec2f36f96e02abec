package rules

import (
	"math"
	"sort"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/model"
)

// MatchConfidence is the confidence assigned to any explicit rule match.
// Rules are the highest tier and always outrank heuristic and AI results.
const MatchConfidence = 1.0

// Matcher evaluates candidate descriptions against a fixed snapshot of a
// user's rules. The snapshot is taken once at job start; rule edits made
// while a job is in flight do not affect it.
type Matcher struct {
	rules []model.Rule
}

// NewMatcher creates a matcher over the given rules, sorted into evaluation
// order: priority descending, then creation order (id) ascending.
func NewMatcher(rules []model.Rule) *Matcher {
	sorted := make([]model.Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].ID < sorted[j].ID
	})
	return &Matcher{rules: sorted}
}

// Match returns the first rule, in evaluation order, whose keyword set has
// at least one substring hit in the cleaned description and whose amount
// bounds (when set) contain abs(amount). Evaluation stops at the first
// match; lower-priority rules are never consulted once a higher one
// matches. Returns nil when no rule matches.
func (m *Matcher) Match(cleanedDescription string, amount float64) *model.Rule {
	for i := range m.rules {
		rule := &m.rules[i]
		if !matchesKeywords(cleanedDescription, rule.Keywords) {
			continue
		}
		if !matchesAmount(amount, rule.MinAmount, rule.MaxAmount) {
			continue
		}
		return rule
	}
	return nil
}

// matchesKeywords is an OR across the rule's keyword set.
func matchesKeywords(cleanedDescription string, keywords []string) bool {
	for _, kw := range keywords {
		if ContainsKeyword(cleanedDescription, kw) {
			return true
		}
	}
	return false
}

// matchesAmount checks min/max bounds against the absolute amount, so a
// $-45.00 expense satisfies a rule bounded to [10, 100].
func matchesAmount(amount float64, minAmount, maxAmount *float64) bool {
	abs := math.Abs(amount)
	if minAmount != nil && abs < *minAmount {
		return false
	}
	if maxAmount != nil && abs > *maxAmount {
		return false
	}
	return true
}

// Clean normalizes a raw description for matching.
func Clean(description string) string {
	return common.NormalizeText(description)
}
