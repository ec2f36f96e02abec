// Package engine composes the categorization decision chain and drives
// ingestion batches end to end.
package engine

import (
	"github.com/finch-money/finch/internal/heuristic"
	"github.com/finch-money/finch/internal/model"
	"github.com/finch-money/finch/internal/rules"
)

// tierMatcher is one stage of the decision chain. Each stage returns a
// result tagged with its own tier and confidence, so the confidence
// ordering between tiers is enforced by construction rather than by
// accident.
type tierMatcher interface {
	Evaluate(cleanedDescription string, amount float64) (model.CategorizationResult, bool)
}

// Categorizer runs candidates through the ordered chain: explicit rules,
// then the heuristic guesser. AI fallback is batched separately by the
// pipeline. The chain operates on snapshots taken once at job start; rule
// or bucket edits during a job do not retroactively affect it.
type Categorizer struct {
	bucketNames map[int64]string
	tiers       []tierMatcher
}

// NewCategorizer builds the chain over snapshots of the user's rules and
// buckets.
func NewCategorizer(ruleSet []model.Rule, buckets []model.Bucket) *Categorizer {
	bucketNames := make(map[int64]string, len(buckets))
	for _, b := range buckets {
		bucketNames[b.ID] = b.Name
	}

	return &Categorizer{
		bucketNames: bucketNames,
		tiers: []tierMatcher{
			ruleTier{matcher: rules.NewMatcher(ruleSet)},
			heuristicTier{guesser: heuristic.NewGuesser(buckets)},
		},
	}
}

// Categorize assigns a bucket, confidence and source tier to a candidate,
// or leaves it unassigned with TierNone for the AI fallback to pick up.
func (c *Categorizer) Categorize(candidate model.CandidateTransaction) model.CategorizationResult {
	cleaned := rules.Clean(candidate.Description)

	for _, tier := range c.tiers {
		if result, ok := tier.Evaluate(cleaned, candidate.Amount); ok {
			result.Candidate = candidate
			if result.BucketName == "" {
				result.BucketName = c.bucketNames[result.BucketID]
			}
			return result
		}
	}

	return model.CategorizationResult{
		Candidate: candidate,
		Tier:      model.TierNone,
	}
}

// ruleTier adapts the Tier-1 rule matcher to the chain.
type ruleTier struct {
	matcher *rules.Matcher
}

func (t ruleTier) Evaluate(cleanedDescription string, amount float64) (model.CategorizationResult, bool) {
	rule := t.matcher.Match(cleanedDescription, amount)
	if rule == nil {
		return model.CategorizationResult{}, false
	}
	return model.CategorizationResult{
		BucketID:   rule.BucketID,
		Confidence: rules.MatchConfidence,
		Tier:       model.TierRule,
		Tags:       rule.Tags,
		AssignTo:   rule.AssignTo,
		// A markForReview rule still assigns bucket and tags, but the
		// committed transaction must remain unverified.
		ForceReview: rule.MarkForReview,
	}, true
}

// heuristicTier adapts the Tier-2 guesser to the chain.
type heuristicTier struct {
	guesser *heuristic.Guesser
}

func (t heuristicTier) Evaluate(cleanedDescription string, _ float64) (model.CategorizationResult, bool) {
	match, ok := t.guesser.Guess(cleanedDescription)
	if !ok {
		return model.CategorizationResult{}, false
	}
	return model.CategorizationResult{
		BucketID:   match.Bucket.ID,
		BucketName: match.Bucket.Name,
		Confidence: match.Confidence,
		Tier:       model.TierHeuristic,
	}, true
}
