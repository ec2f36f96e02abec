package dedup

import "github.com/finch-money/finch/internal/model"

// Outcome is the result of classifying one candidate.
type Outcome int

// Classification outcomes.
const (
	Unique Outcome = iota
	Duplicate
)

// Index is a point-in-time view of the ledger window used for duplicate
// checks. Build it once per ingestion batch; lookups are then O(1) per
// candidate. The index never mutates the ledger.
type Index struct {
	externalIDs  map[string]struct{}
	fingerprints map[string]struct{}
}

// NewIndex builds a duplicate-check index from the owner's recent ledger
// entries. Entries missing a stored fingerprint are fingerprinted on the
// fly so older rows still participate.
func NewIndex(window []model.LedgerEntry) *Index {
	idx := &Index{
		externalIDs:  make(map[string]struct{}, len(window)),
		fingerprints: make(map[string]struct{}, len(window)),
	}
	for _, entry := range window {
		if entry.ExternalID != "" {
			idx.externalIDs[entry.ExternalID] = struct{}{}
		}
		fp := entry.Fingerprint
		if fp == "" {
			fp = EntryFingerprint(entry)
		}
		idx.fingerprints[fp] = struct{}{}
	}
	return idx
}

// Classify reports whether the candidate duplicates an existing ledger
// entry. A feed-provided external id is authoritative: the feed already
// guarantees unique ids, so when one is present it alone decides the
// outcome, regardless of fingerprint. Candidates without an external id
// fall back to the content fingerprint.
func (idx *Index) Classify(c model.CandidateTransaction) Outcome {
	if c.ExternalID != "" {
		if _, ok := idx.externalIDs[c.ExternalID]; ok {
			return Duplicate
		}
		return Unique
	}
	if _, ok := idx.fingerprints[Fingerprint(c)]; ok {
		return Duplicate
	}
	return Unique
}
