package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finch-money/finch/internal/model"
)

func floatPtr(f float64) *float64 { return &f }

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name        string
		rules       []model.Rule
		description string
		amount      float64
		wantRuleID  int64
		wantNone    bool
	}{
		{
			name: "single keyword hit",
			rules: []model.Rule{
				{ID: 1, Keywords: []string{"woolworths"}, BucketID: 10},
			},
			description: "woolworths 1234 sydney",
			amount:      -45.00,
			wantRuleID:  1,
		},
		{
			name: "keyword is a substring",
			rules: []model.Rule{
				{ID: 1, Keywords: []string{"netflix"}, BucketID: 10},
			},
			description: "netflix.com 866-579-7172",
			amount:      -15.99,
			wantRuleID:  1,
		},
		{
			name: "keywords are an or",
			rules: []model.Rule{
				{ID: 1, Keywords: []string{"coles", "woolworths"}, BucketID: 10},
			},
			description: "coles express 0012",
			amount:      -30.00,
			wantRuleID:  1,
		},
		{
			name: "higher priority wins",
			rules: []model.Rule{
				{ID: 1, Priority: 5, Keywords: []string{"uber"}, BucketID: 10},
				{ID: 2, Priority: 10, Keywords: []string{"uber eats"}, BucketID: 20},
			},
			description: "uber eats sydney",
			amount:      -25.00,
			wantRuleID:  2,
		},
		{
			name: "equal priority breaks ties by id",
			rules: []model.Rule{
				{ID: 7, Priority: 5, Keywords: []string{"spotify"}, BucketID: 10},
				{ID: 3, Priority: 5, Keywords: []string{"spotify"}, BucketID: 20},
			},
			description: "spotify premium",
			amount:      -11.99,
			wantRuleID:  3,
		},
		{
			name: "amount bounds use absolute value",
			rules: []model.Rule{
				{ID: 1, Keywords: []string{"amazon"}, BucketID: 10, MinAmount: floatPtr(10), MaxAmount: floatPtr(100)},
			},
			description: "amazon marketplace",
			amount:      -45.00,
			wantRuleID:  1,
		},
		{
			name: "amount below min skips rule",
			rules: []model.Rule{
				{ID: 1, Keywords: []string{"amazon"}, BucketID: 10, MinAmount: floatPtr(10)},
				{ID: 2, Keywords: []string{"amazon"}, BucketID: 20},
			},
			description: "amazon marketplace",
			amount:      -5.00,
			wantRuleID:  2,
		},
		{
			name: "amount above max skips rule",
			rules: []model.Rule{
				{ID: 1, Keywords: []string{"amazon"}, BucketID: 10, MaxAmount: floatPtr(100)},
			},
			description: "amazon marketplace",
			amount:      -250.00,
			wantNone:    true,
		},
		{
			name: "no keyword hit",
			rules: []model.Rule{
				{ID: 1, Keywords: []string{"woolworths"}, BucketID: 10},
			},
			description: "shell coburg",
			amount:      -60.00,
			wantNone:    true,
		},
		{
			name:        "no rules",
			rules:       nil,
			description: "anything",
			amount:      -1.00,
			wantNone:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := NewMatcher(tt.rules)
			got := matcher.Match(Clean(tt.description), tt.amount)

			if tt.wantNone {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantRuleID, got.ID)
		})
	}
}

func TestMatcher_StopsAtFirstMatch(t *testing.T) {
	// Both rules match; the higher-priority one must win even though the
	// lower-priority one also applies.
	matcher := NewMatcher([]model.Rule{
		{ID: 1, Priority: 1, Keywords: []string{"uber"}, BucketID: 10},
		{ID: 2, Priority: 9, Keywords: []string{"uber"}, BucketID: 20},
	})

	got := matcher.Match("uber trip melbourne", -18.00)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
}

func TestMatcher_DoesNotMutateInput(t *testing.T) {
	rules := []model.Rule{
		{ID: 2, Priority: 1, Keywords: []string{"a"}},
		{ID: 1, Priority: 9, Keywords: []string{"b"}},
	}
	NewMatcher(rules)

	assert.Equal(t, int64(2), rules[0].ID)
	assert.Equal(t, int64(1), rules[1].ID)
}

func TestContainsKeyword(t *testing.T) {
	tests := []struct {
		name        string
		description string
		keyword     string
		want        bool
	}{
		{"substring hit", "woolworths 1234", "woolworths", true},
		{"exact hit", "netflix", "netflix", true},
		{"miss", "shell coburg", "netflix", false},
		{"blank keyword never matches", "anything", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsKeyword(tt.description, tt.keyword))
		})
	}
}

func TestNormalizeKeywords(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		want     []string
	}{
		{
			name:     "lowercases and collapses whitespace",
			keywords: []string{"  Woolworths  ", "UBER\tEATS"},
			want:     []string{"uber eats", "woolworths"},
		},
		{
			name:     "drops blanks and duplicates",
			keywords: []string{"netflix", "", "  ", "NETFLIX"},
			want:     []string{"netflix"},
		},
		{
			name:     "sorted output",
			keywords: []string{"zebra", "apple", "mango"},
			want:     []string{"apple", "mango", "zebra"},
		},
		{
			name:     "all blank collapses to empty",
			keywords: []string{"", "   "},
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKeywords(tt.keywords))
		})
	}
}
