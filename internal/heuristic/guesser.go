package heuristic

import (
	"strings"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/model"
)

// Resolution confidences. All are strictly below the Tier-1 rule confidence
// of 1.0 and strictly above the AI fallback ceiling.
const (
	// ConfidenceExactName applies when a generic category name exactly
	// matches one of the user's buckets.
	ConfidenceExactName = 0.7
	// ConfidenceAlias applies when the alias table bridges a generic
	// category to a user bucket.
	ConfidenceAlias = 0.6
	// ConfidenceKeywordName applies when the hit keyword itself appears in
	// a bucket name. Highest of the three: the user named the bucket after
	// the merchant directly.
	ConfidenceKeywordName = 0.8
)

// Match is a resolved heuristic guess.
type Match struct {
	Bucket     model.Bucket
	Confidence float64
}

// Guesser resolves taxonomy hits against a snapshot of the user's buckets.
type Guesser struct {
	buckets []model.Bucket
	byName  map[string]model.Bucket
}

// NewGuesser creates a guesser over the user's buckets.
func NewGuesser(buckets []model.Bucket) *Guesser {
	byName := make(map[string]model.Bucket, len(buckets))
	for _, b := range buckets {
		byName[common.NormalizeText(b.Name)] = b
	}
	return &Guesser{buckets: buckets, byName: byName}
}

// Guess scans the cleaned description for taxonomy keyword hits and
// resolves the first hit to one of the user's buckets. Resolution attempts,
// in order: exact generic-name match, alias table, keyword substring of a
// bucket name. The first resolving tier wins; unresolved hits contribute
// nothing. Users name buckets inconsistently, so the guesser degrades
// gracefully rather than failing closed.
func (g *Guesser) Guess(cleanedDescription string) (Match, bool) {
	for _, entry := range taxonomy {
		for _, kw := range entry.Keywords {
			if !strings.Contains(cleanedDescription, kw) {
				continue
			}
			if match, ok := g.resolve(entry.Generic, kw); ok {
				return match, true
			}
		}
	}
	return Match{}, false
}

func (g *Guesser) resolve(generic, keyword string) (Match, bool) {
	// (1) exact case-insensitive name match
	if bucket, ok := g.byName[common.NormalizeText(generic)]; ok {
		return Match{Bucket: bucket, Confidence: ConfidenceExactName}, true
	}

	// (2) fixed alias table
	for _, alias := range aliases[generic] {
		if bucket, ok := g.byName[alias]; ok {
			return Match{Bucket: bucket, Confidence: ConfidenceAlias}, true
		}
	}

	// (3) hit keyword appears in a bucket name
	kw := strings.TrimSpace(keyword)
	for _, bucket := range g.buckets {
		if strings.Contains(common.NormalizeText(bucket.Name), kw) {
			return Match{Bucket: bucket, Confidence: ConfidenceKeywordName}, true
		}
	}

	return Match{}, false
}
