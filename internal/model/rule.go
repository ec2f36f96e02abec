package model

import (
	"strings"
	"time"
)

// Rule is a user-defined categorization rule evaluated by the Tier-1 matcher.
// Keywords are stored normalized, de-duplicated and sorted so two
// semantically identical rules compare equal.
type Rule struct {
	CreatedAt     time.Time
	UpdatedAt     time.Time
	MinAmount     *float64
	MaxAmount     *float64
	OwnerID       string
	AssignTo      string
	Keywords      []string
	Tags          []string
	ID            int64
	BucketID      int64
	Priority      int // Higher = evaluated first
	MarkForReview bool
}

// KeywordKey returns a canonical representation of the rule's keyword set,
// used to detect duplicate rules for the same owner. Keywords must already
// be normalized.
func (r *Rule) KeywordKey() string {
	return strings.Join(r.Keywords, "\x1f")
}
