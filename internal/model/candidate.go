// Package model defines the core domain models used throughout the application.
package model

import "time"

// CandidateTransaction is an unpersisted transaction produced by a statement
// or feed parser. It has not yet been deduplicated or categorized.
// Candidates are immutable once produced.
type CandidateTransaction struct {
	Date        time.Time
	Description string // Raw merchant text
	ExternalID  string // Feed-provided unique id, empty for file imports
	Amount      float64 // Signed; negative = expense
}

// Valid reports whether the candidate carries enough data to be processed.
// Candidates failing this check are skipped during ingestion, not fatal.
// Zero amounts are legitimate (fee reversals, card verifications); only a
// missing date or description marks a candidate malformed.
func (c CandidateTransaction) Valid() bool {
	return !c.Date.IsZero() && c.Description != ""
}
