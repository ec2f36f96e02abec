package model

// Tier identifies which stage of the categorization chain produced a result.
type Tier string

// Categorization tiers, in decreasing confidence order.
const (
	TierRule       Tier = "RULE"
	TierHeuristic  Tier = "HEURISTIC"
	TierAIFallback Tier = "AI_FALLBACK"
	TierNone       Tier = "NONE"
)

// CategorizationResult is the engine's verdict for one candidate. It may be
// overridden by the user before the confirmation stage commits it.
type CategorizationResult struct {
	Candidate   CandidateTransaction
	BucketName  string
	AssignTo    string
	Tags        []string
	BucketID    int64 // 0 when Tier == TierNone
	Confidence  float64
	Tier        Tier
	ForceReview bool
}
