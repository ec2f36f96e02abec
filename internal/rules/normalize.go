// Package rules implements user-defined categorization rules: the Tier-1
// matcher plus the service that validates, previews, and applies rules.
package rules

import (
	"sort"
	"strings"

	"github.com/finch-money/finch/internal/common"
)

// NormalizeKeywords lower-cases, whitespace-collapses, de-duplicates and
// sorts a keyword set. Blank entries are dropped. Two semantically identical
// rules therefore produce identical keyword slices.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = common.NormalizeText(kw)
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		normalized = append(normalized, kw)
	}
	sort.Strings(normalized)
	return normalized
}

// ContainsKeyword reports whether the normalized keyword occurs as a
// substring of the normalized description. Blank keywords never match.
func ContainsKeyword(normalizedDescription, keyword string) bool {
	if keyword == "" {
		return false
	}
	return strings.Contains(normalizedDescription, keyword)
}
