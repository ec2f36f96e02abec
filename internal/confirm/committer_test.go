package confirm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/dedup"
	"github.com/finch-money/finch/internal/model"
	"github.com/finch-money/finch/internal/testutil"
)

const testOwner = "user-1"

func candidate(description string, amount float64) model.CandidateTransaction {
	return model.CandidateTransaction{
		Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: description,
		Amount:      amount,
	}
}

func TestCommitter_InsertsNewEntries(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testOwner, "Groceries")
	committer := NewCommitter(db.Storage)

	cand := candidate("WOOLWORTHS 1234", -45.00)
	ids, err := committer.Commit(ctx, testOwner, []Item{{
		Candidate:  cand,
		BucketID:   db.MustBucket("Groceries").ID,
		Confidence: 0.7,
		Tier:       model.TierHeuristic,
		Tags:       []string{"food"},
	}})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	entry, err := db.Storage.GetLedgerEntry(ctx, testOwner, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "WOOLWORTHS 1234", entry.Description)
	assert.Equal(t, db.MustBucket("Groceries").ID, entry.BucketID)
	assert.Equal(t, 0.7, entry.Confidence)
	assert.False(t, entry.Verified)
	assert.Equal(t, []string{"food"}, entry.Tags)
	// Committed rows carry a fingerprint so future imports deduplicate.
	assert.Equal(t, dedup.Fingerprint(cand), entry.Fingerprint)
}

func TestCommitter_UserChosenOverride(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testOwner, "Groceries")
	committer := NewCommitter(db.Storage)

	ids, err := committer.Commit(ctx, testOwner, []Item{{
		Candidate:  candidate("ACME WIDGET CO", -120.00),
		BucketID:   db.MustBucket("Groceries").ID,
		Confidence: 0.3,
		Tier:       model.TierAIFallback,
		UserChosen: true,
	}})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	entry, err := db.Storage.GetLedgerEntry(ctx, testOwner, ids[0])
	require.NoError(t, err)
	// A user picking the bucket explicitly outranks any tier verdict.
	assert.Equal(t, 1.0, entry.Confidence)
	assert.True(t, entry.Verified)
}

func TestCommitter_ForceReviewStaysUnverified(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testOwner, "Groceries")
	committer := NewCommitter(db.Storage)

	ids, err := committer.Commit(ctx, testOwner, []Item{{
		Candidate:   candidate("WOOLWORTHS 1234", -45.00),
		BucketID:    db.MustBucket("Groceries").ID,
		Confidence:  1.0,
		Tier:        model.TierRule,
		UserChosen:  true,
		ForceReview: true,
	}})
	require.NoError(t, err)

	entry, err := db.Storage.GetLedgerEntry(ctx, testOwner, ids[0])
	require.NoError(t, err)
	assert.False(t, entry.Verified)
}

func TestCommitter_UpdatesExistingEntry(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testOwner, "Groceries", "Dining")
	committer := NewCommitter(db.Storage)

	cand := candidate("HIPSTER RAMEN BAR", -22.00)
	existingID, err := db.Storage.InsertLedgerEntry(ctx, &model.LedgerEntry{
		OwnerID:     testOwner,
		Date:        cand.Date,
		Description: cand.Description,
		Amount:      cand.Amount,
		Fingerprint: dedup.Fingerprint(cand),
		BucketID:    db.MustBucket("Groceries").ID,
	})
	require.NoError(t, err)

	// Adjustment carries only the new bucket; stored fields must survive.
	ids, err := committer.Commit(ctx, testOwner, []Item{{
		LedgerID:   existingID,
		BucketID:   db.MustBucket("Dining").ID,
		UserChosen: true,
	}})
	require.NoError(t, err)
	require.Equal(t, []int64{existingID}, ids)

	entry, err := db.Storage.GetLedgerEntry(ctx, testOwner, existingID)
	require.NoError(t, err)
	assert.Equal(t, db.MustBucket("Dining").ID, entry.BucketID)
	assert.Equal(t, "HIPSTER RAMEN BAR", entry.Description)
	assert.Equal(t, -22.00, entry.Amount)
}

func TestCommitter_SplitSumsToOriginal(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testOwner, "Groceries", "Dining")
	committer := NewCommitter(db.Storage)

	ids, err := committer.Commit(ctx, testOwner, []Item{{
		Candidate: model.CandidateTransaction{
			Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Description: "COSTCO WHOLESALE",
			Amount:      -100.00,
			ExternalID:  "txn-42",
		},
		Splits: []SplitPart{
			{BucketID: db.MustBucket("Groceries").ID, Amount: -60.00},
			{BucketID: db.MustBucket("Dining").ID, Amount: -40.00, Description: "COSTCO FOOD COURT"},
		},
	}})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	first, err := db.Storage.GetLedgerEntry(ctx, testOwner, ids[0])
	require.NoError(t, err)
	assert.Equal(t, -60.00, first.Amount)
	assert.Equal(t, "COSTCO WHOLESALE", first.Description)
	assert.Equal(t, "txn-42", first.ExternalID)

	second, err := db.Storage.GetLedgerEntry(ctx, testOwner, ids[1])
	require.NoError(t, err)
	assert.Equal(t, -40.00, second.Amount)
	assert.Equal(t, "COSTCO FOOD COURT", second.Description)
	// Part ids diverge so the rows cannot collide on re-import.
	assert.Equal(t, "txn-42/split-1", second.ExternalID)
}

func TestCommitter_SplitMismatchRejectsAtomically(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testOwner, "Groceries", "Dining")
	committer := NewCommitter(db.Storage)

	items := []Item{
		{
			Candidate: candidate("SHELL COBURG", -60.00),
			BucketID:  db.MustBucket("Groceries").ID,
		},
		{
			Candidate: candidate("COSTCO WHOLESALE", -100.00),
			Splits: []SplitPart{
				{BucketID: db.MustBucket("Groceries").ID, Amount: -60.00},
				{BucketID: db.MustBucket("Dining").ID, Amount: -30.00},
			},
		},
	}

	_, err := committer.Commit(ctx, testOwner, items)
	assert.ErrorIs(t, err, common.ErrSplitMismatch)

	// The valid first item must not have been committed either.
	entries, getErr := db.Storage.GetLedgerEntries(ctx, testOwner)
	require.NoError(t, getErr)
	assert.Empty(t, entries)
}

func TestCommitter_SplitNeedsAtLeastTwoParts(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testOwner, "Groceries")
	committer := NewCommitter(db.Storage)

	_, err := committer.Commit(ctx, testOwner, []Item{{
		Candidate: candidate("COSTCO WHOLESALE", -100.00),
		Splits: []SplitPart{
			{BucketID: db.MustBucket("Groceries").ID, Amount: -100.00},
		},
	}})
	assert.ErrorIs(t, err, common.ErrSplitMismatch)
}

func TestCommitter_SplitEpsilonTolerance(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testOwner, "Groceries", "Dining")
	committer := NewCommitter(db.Storage)

	// Off by less than a cent is accepted.
	ids, err := committer.Commit(ctx, testOwner, []Item{{
		Candidate: candidate("COSTCO WHOLESALE", -100.00),
		Splits: []SplitPart{
			{BucketID: db.MustBucket("Groceries").ID, Amount: -60.005},
			{BucketID: db.MustBucket("Dining").ID, Amount: -39.999},
		},
	}})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestCommitter_RejectsForeignBucket(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testOwner, "Groceries")
	committer := NewCommitter(db.Storage)

	foreign := &model.Bucket{OwnerID: "someone-else", Name: "Their Bucket"}
	foreignID, err := db.Storage.CreateBucket(ctx, foreign)
	require.NoError(t, err)

	_, err = committer.Commit(ctx, testOwner, []Item{{
		Candidate: candidate("WOOLWORTHS 1234", -45.00),
		BucketID:  foreignID,
	}})
	assert.ErrorIs(t, err, common.ErrNotOwned)

	entries, getErr := db.Storage.GetLedgerEntries(ctx, testOwner)
	require.NoError(t, getErr)
	assert.Empty(t, entries)
}

func TestCommitter_RejectsIncompleteInsert(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testOwner, "Groceries")
	committer := NewCommitter(db.Storage)

	_, err := committer.Commit(ctx, testOwner, []Item{{
		BucketID: db.MustBucket("Groceries").ID,
	}})
	assert.Error(t, err)
}

func TestCommitter_EmptyBatchIsNoop(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t, testOwner, "Groceries")
	committer := NewCommitter(db.Storage)

	ids, err := committer.Commit(ctx, testOwner, nil)
	assert.NoError(t, err)
	assert.Empty(t, ids)
}
