// Package dedup classifies candidate transactions as unique or duplicate
// against a window of the user's existing ledger.
package dedup

import (
	"crypto/sha256"
	"fmt"
	"math"
	"time"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/model"
)

// Fingerprint computes a deterministic digest of a candidate's normalized
// date, amount, and description. Two candidates with equal fingerprints are
// considered the same economic event. The computation is pure and total:
// every candidate produces exactly one fingerprint.
func Fingerprint(c model.CandidateTransaction) string {
	data := fmt.Sprintf("%s|%d|%s",
		c.Date.Format("2006-01-02"),
		cents(c.Amount),
		common.NormalizeText(c.Description))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// EntryFingerprint computes the fingerprint of an existing ledger entry
// using the same normalization as Fingerprint.
func EntryFingerprint(e model.LedgerEntry) string {
	return Fingerprint(model.CandidateTransaction{
		Date:        e.Date,
		Description: e.Description,
		Amount:      e.Amount,
	})
}

// cents rounds an amount to an integer number of cents.
func cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// WindowStart returns the beginning of the deduplication lookback window:
// midnight UTC, months calendar months before now.
func WindowStart(now time.Time, months int) time.Time {
	start := now.AddDate(0, -months, 0)
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}
