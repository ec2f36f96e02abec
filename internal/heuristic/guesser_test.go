package heuristic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finch-money/finch/internal/model"
)

func TestGuesser_Guess(t *testing.T) {
	tests := []struct {
		name           string
		buckets        []model.Bucket
		description    string
		wantBucket     string
		wantConfidence float64
		wantMiss       bool
	}{
		{
			name: "exact generic name match",
			buckets: []model.Bucket{
				{ID: 1, Name: "Groceries"},
			},
			description:    "woolworths 1234 sydney",
			wantBucket:     "Groceries",
			wantConfidence: ConfidenceExactName,
		},
		{
			name: "exact match is case insensitive",
			buckets: []model.Bucket{
				{ID: 1, Name: "groceries"},
			},
			description:    "coles express",
			wantBucket:     "groceries",
			wantConfidence: ConfidenceExactName,
		},
		{
			name: "alias table bridges generic to user bucket",
			buckets: []model.Bucket{
				{ID: 1, Name: "Eating Out"},
			},
			description:    "mcdonald's kingsford",
			wantBucket:     "Eating Out",
			wantConfidence: ConfidenceAlias,
		},
		{
			name: "hit keyword inside bucket name",
			buckets: []model.Bucket{
				{ID: 1, Name: "Netflix & Chill"},
			},
			description:    "netflix.com monthly",
			wantBucket:     "Netflix & Chill",
			wantConfidence: ConfidenceKeywordName,
		},
		{
			name: "no taxonomy hit",
			buckets: []model.Bucket{
				{ID: 1, Name: "Groceries"},
			},
			description: "acme widget co invoice 992",
			wantMiss:    true,
		},
		{
			name: "taxonomy hit but no resolvable bucket",
			buckets: []model.Bucket{
				{ID: 1, Name: "Mortgage"},
			},
			description: "woolworths 1234",
			wantMiss:    true,
		},
		{
			name:        "no buckets at all",
			buckets:     nil,
			description: "woolworths 1234",
			wantMiss:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guesser := NewGuesser(tt.buckets)
			match, ok := guesser.Guess(tt.description)

			if tt.wantMiss {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantBucket, match.Bucket.Name)
			assert.Equal(t, tt.wantConfidence, match.Confidence)
		})
	}
}

func TestGuesser_ExactNameBeatsAlias(t *testing.T) {
	// When both an exact generic and an alias bucket exist, the exact
	// name wins with the higher confidence.
	guesser := NewGuesser([]model.Bucket{
		{ID: 1, Name: "Eating Out"},
		{ID: 2, Name: "Dining"},
	})

	match, ok := guesser.Guess("starbucks 221 pitt st")
	require.True(t, ok)
	assert.Equal(t, int64(2), match.Bucket.ID)
	assert.Equal(t, ConfidenceExactName, match.Confidence)
}

func TestConfidenceOrdering(t *testing.T) {
	// Heuristic confidences sit strictly between the rule confidence of
	// 1.0 and the AI fallback ceiling.
	assert.Less(t, ConfidenceKeywordName, 1.0)
	assert.Less(t, ConfidenceAlias, ConfidenceExactName)
	assert.Less(t, ConfidenceExactName, ConfidenceKeywordName)
	assert.Greater(t, ConfidenceAlias, 0.55)
}
