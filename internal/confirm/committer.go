// Package confirm commits user-reviewed categorization results to the
// ledger. It is the only stage that writes transaction rows.
package confirm

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/dedup"
	"github.com/finch-money/finch/internal/model"
	"github.com/finch-money/finch/internal/service"
)

// SplitEpsilon is the tolerance when checking that split parts sum to the
// original amount.
const SplitEpsilon = 0.01

// SplitPart is one categorized piece of a split transaction.
type SplitPart struct {
	Description string
	BucketID    int64
	Amount      float64
}

// Item is one adjusted result to commit. A positive LedgerID updates an
// existing row; zero or negative means the row has not been persisted yet
// and is inserted. UserChosen marks a bucket the user picked explicitly at
// confirmation time, which overrides whatever tier produced the result.
type Item struct {
	Candidate   model.CandidateTransaction
	Tags        []string
	AssignTo    string
	Splits      []SplitPart
	LedgerID    int64
	BucketID    int64
	Confidence  float64
	Tier        model.Tier
	UserChosen  bool
	ForceReview bool
}

// Committer validates and commits adjusted results.
type Committer struct {
	storage service.Storage
	logger  *slog.Logger
}

// NewCommitter creates a committer backed by the given storage.
func NewCommitter(storage service.Storage) *Committer {
	return &Committer{
		storage: storage,
		logger:  slog.Default().With("component", "confirm"),
	}
}

// Commit writes the adjusted results as ledger rows in a single database
// transaction and returns the created/updated ids. Bucket ownership is
// re-validated for every referenced bucket; neither engine output nor
// client-supplied ids are trusted. Any validation failure rolls the whole
// commit back.
func (c *Committer) Commit(ctx context.Context, ownerID string, items []Item) ([]int64, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id", common.ErrMissingConfig)
	}
	if len(items) == 0 {
		return nil, nil
	}

	for i := range items {
		if err := validateItem(&items[i]); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	tx, err := c.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var ids []int64
	for i := range items {
		itemIDs, err := c.commitItem(ctx, tx, ownerID, &items[i])
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		ids = append(ids, itemIDs...)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	c.logger.Info("Committed ledger entries",
		"owner", ownerID,
		"items", len(items),
		"rows", len(ids))
	return ids, nil
}

func validateItem(item *Item) error {
	if !item.Candidate.Valid() && item.LedgerID <= 0 {
		return fmt.Errorf("%w: incomplete candidate on insert", common.ErrInvalidConfig)
	}
	if len(item.Splits) == 1 {
		return fmt.Errorf("%w: a split needs at least two parts", common.ErrSplitMismatch)
	}
	if len(item.Splits) > 1 {
		if !item.Candidate.Valid() {
			return fmt.Errorf("%w: split requires the original candidate", common.ErrSplitMismatch)
		}
		sum := 0.0
		for _, part := range item.Splits {
			sum += part.Amount
		}
		if math.Abs(sum-item.Candidate.Amount) > SplitEpsilon {
			return fmt.Errorf("%w: parts sum to %.2f, original is %.2f",
				common.ErrSplitMismatch, sum, item.Candidate.Amount)
		}
	}
	return nil
}

func (c *Committer) commitItem(ctx context.Context, tx service.Transaction, ownerID string, item *Item) ([]int64, error) {
	if len(item.Splits) > 1 {
		return c.commitSplits(ctx, tx, ownerID, item)
	}

	if item.LedgerID > 0 {
		existing, err := tx.GetLedgerEntry(ctx, ownerID, item.LedgerID)
		if err != nil {
			return nil, err
		}

		// An update may carry only the adjustment (bucket, tags), in
		// which case the row keeps its stored candidate fields.
		candidate := item.Candidate
		if !candidate.Valid() {
			candidate = model.CandidateTransaction{
				Date:        existing.Date,
				Description: existing.Description,
				Amount:      existing.Amount,
				ExternalID:  existing.ExternalID,
			}
		}

		entry, err := c.buildEntry(ctx, tx, ownerID, item, candidate, item.BucketID)
		if err != nil {
			return nil, err
		}
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
		if err := tx.UpdateLedgerEntry(ctx, entry); err != nil {
			return nil, err
		}
		return []int64{entry.ID}, nil
	}

	entry, err := c.buildEntry(ctx, tx, ownerID, item, item.Candidate, item.BucketID)
	if err != nil {
		return nil, err
	}

	id, err := tx.InsertLedgerEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	return []int64{id}, nil
}

// commitSplits writes one row per part. When the item references an
// existing row, the first part reuses it and the remaining parts are
// inserted alongside.
func (c *Committer) commitSplits(ctx context.Context, tx service.Transaction, ownerID string, item *Item) ([]int64, error) {
	var ids []int64
	for i, part := range item.Splits {
		candidate := item.Candidate
		candidate.Amount = part.Amount
		if part.Description != "" {
			candidate.Description = part.Description
		}
		// Parts must not collide with each other or the original on
		// re-import.
		candidate.ExternalID = splitExternalID(item.Candidate.ExternalID, i)

		entry, err := c.buildEntry(ctx, tx, ownerID, item, candidate, part.BucketID)
		if err != nil {
			return nil, err
		}

		if i == 0 && item.LedgerID > 0 {
			existing, err := tx.GetLedgerEntry(ctx, ownerID, item.LedgerID)
			if err != nil {
				return nil, err
			}
			entry.ID = existing.ID
			entry.CreatedAt = existing.CreatedAt
			if err := tx.UpdateLedgerEntry(ctx, entry); err != nil {
				return nil, err
			}
			ids = append(ids, entry.ID)
			continue
		}

		id, err := tx.InsertLedgerEntry(ctx, entry)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// buildEntry assembles a ledger row from an item, re-validating bucket
// ownership and applying the user-override confidence policy.
func (c *Committer) buildEntry(ctx context.Context, tx service.Transaction, ownerID string, item *Item, candidate model.CandidateTransaction, bucketID int64) (*model.LedgerEntry, error) {
	if bucketID != 0 {
		bucket, err := tx.GetBucket(ctx, bucketID)
		if err != nil {
			return nil, err
		}
		if bucket.OwnerID != ownerID {
			return nil, fmt.Errorf("bucket %d: %w", bucketID, common.ErrNotOwned)
		}
	}

	confidence := item.Confidence
	verified := false
	if item.UserChosen && bucketID != 0 {
		confidence = 1.0
		verified = true
	}
	if item.ForceReview {
		verified = false
	}

	return &model.LedgerEntry{
		OwnerID:     ownerID,
		Date:        candidate.Date,
		Description: candidate.Description,
		Amount:      candidate.Amount,
		ExternalID:  candidate.ExternalID,
		Fingerprint: dedup.Fingerprint(candidate),
		BucketID:    bucketID,
		Tags:        item.Tags,
		AssignedTo:  item.AssignTo,
		Confidence:  confidence,
		Verified:    verified,
	}, nil
}

func splitExternalID(externalID string, part int) string {
	if externalID == "" || part == 0 {
		return externalID
	}
	return fmt.Sprintf("%s/split-%d", externalID, part)
}
