// Package llm provides the AI fallback adapter: batched categorization of
// candidates no earlier tier could resolve, via an external model provider.
package llm

import (
	"context"
	"time"
)

// DefaultBatchSize caps how many candidates go into one external call.
const DefaultBatchSize = 50

// DefaultConfidenceCeiling caps AI-reported confidence. It is a policy
// constant kept below the lowest heuristic confidence so tier ordering
// holds no matter what the external service reports.
const DefaultConfidenceCeiling = 0.55

// DefaultTimeout bounds each external call.
const DefaultTimeout = 30 * time.Second

// Config holds adapter configuration.
type Config struct {
	Provider          string // "openai", "anthropic", or "" / "disabled"
	APIKey            string
	Model             string
	Timeout           time.Duration
	BatchSize         int
	ConfidenceCeiling float64
	Temperature       float64
	MaxTokens         int
}

// BatchRequest is one unresolved candidate in a batch call. Index refers
// back to the caller's ordering.
type BatchRequest struct {
	Description string
	Index       int
	Amount      float64
}

// BatchSuggestion is the adapter's suggestion for one candidate. Bucket is
// a name, not an id; the caller must match it against the user's real
// buckets and discard inventions.
type BatchSuggestion struct {
	Bucket     string
	Confidence float64
}

// Client is the external categorization interface. Implementations must
// clamp returned confidences to the configured ceiling.
type Client interface {
	// CategorizeBatch suggests a bucket for each request it can resolve,
	// keyed by request index. Requests the model cannot place are simply
	// absent from the map.
	CategorizeBatch(ctx context.Context, requests []BatchRequest, bucketNames []string) (map[int]BatchSuggestion, error)
}

// withDefaults fills in unset config values.
func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ConfidenceCeiling <= 0 {
		c.ConfidenceCeiling = DefaultConfidenceCeiling
	}
	if c.Temperature == 0 {
		c.Temperature = 0.2
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	return c
}
