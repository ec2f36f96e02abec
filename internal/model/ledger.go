package model

import "time"

// LedgerEntry is a committed transaction row owned by a user. Entries are
// created by the confirmation stage and looked up by the deduplicator.
type LedgerEntry struct {
	Date        time.Time
	CreatedAt   time.Time
	OwnerID     string
	Description string
	ExternalID  string
	Fingerprint string
	AssignedTo  string
	Tags        []string
	ID          int64
	BucketID    int64 // 0 = uncategorized
	Amount      float64
	Confidence  float64
	Verified    bool
}

// Bucket is a hierarchical category node. The categorization engine only
// needs its id, name, and owner; budgets and reporting live elsewhere.
type Bucket struct {
	CreatedAt time.Time
	OwnerID   string
	Name      string
	ID        int64
	ParentID  int64
}
