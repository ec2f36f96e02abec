package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/model"
)

const testOwner = "user-1"

func setupStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func testEntry(description string, amount float64) *model.LedgerEntry {
	return &model.LedgerEntry{
		OwnerID:     testOwner,
		Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: description,
		Amount:      amount,
		Fingerprint: "fp-" + description,
	}
}

func TestSQLiteStorage_Migrate_Idempotent(t *testing.T) {
	store := setupStorage(t)
	// Running migrations again must be a no-op.
	assert.NoError(t, store.Migrate(context.Background()))
}

func TestSQLiteStorage_BucketCRUD(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)

	id, err := store.CreateBucket(ctx, &model.Bucket{OwnerID: testOwner, Name: "Groceries"})
	require.NoError(t, err)
	assert.Positive(t, id)

	bucket, err := store.GetBucket(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", bucket.Name)
	assert.Equal(t, testOwner, bucket.OwnerID)

	_, err = store.CreateBucket(ctx, &model.Bucket{OwnerID: testOwner, Name: "Transport"})
	require.NoError(t, err)

	buckets, err := store.GetBucketsByOwner(ctx, testOwner)
	require.NoError(t, err)
	assert.Len(t, buckets, 2)

	// Same name under a different owner is fine.
	_, err = store.CreateBucket(ctx, &model.Bucket{OwnerID: "user-2", Name: "Groceries"})
	assert.NoError(t, err)

	// Same name under the same owner is not.
	_, err = store.CreateBucket(ctx, &model.Bucket{OwnerID: testOwner, Name: "Groceries"})
	assert.Error(t, err)

	_, err = store.GetBucket(ctx, 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_BucketValidation(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)

	_, err := store.CreateBucket(ctx, &model.Bucket{OwnerID: testOwner})
	assert.ErrorIs(t, err, ErrInvalidBucket)

	_, err = store.CreateBucket(ctx, &model.Bucket{Name: "Groceries"})
	assert.ErrorIs(t, err, ErrInvalidBucket)

	_, err = store.CreateBucket(ctx, nil)
	assert.ErrorIs(t, err, ErrNilParameter)
}

func TestSQLiteStorage_LedgerCRUD(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)

	entry := testEntry("WOOLWORTHS 1234", -45.00)
	entry.Tags = []string{"food", "weekly"}
	entry.ExternalID = "txn-1"
	entry.Confidence = 0.7

	id, err := store.InsertLedgerEntry(ctx, entry)
	require.NoError(t, err)

	stored, err := store.GetLedgerEntry(ctx, testOwner, id)
	require.NoError(t, err)
	assert.Equal(t, "WOOLWORTHS 1234", stored.Description)
	assert.Equal(t, -45.00, stored.Amount)
	assert.Equal(t, []string{"food", "weekly"}, stored.Tags)
	assert.Equal(t, "txn-1", stored.ExternalID)
	assert.Equal(t, 0.7, stored.Confidence)
	assert.False(t, stored.Verified)

	stored.Verified = true
	stored.BucketID = 3
	require.NoError(t, store.UpdateLedgerEntry(ctx, stored))

	updated, err := store.GetLedgerEntry(ctx, testOwner, id)
	require.NoError(t, err)
	assert.True(t, updated.Verified)
	assert.Equal(t, int64(3), updated.BucketID)

	// Entries belong to their owner.
	_, err = store.GetLedgerEntry(ctx, "user-2", id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_LedgerValidation(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)

	tests := []struct {
		mutate func(*model.LedgerEntry)
		name   string
	}{
		{func(e *model.LedgerEntry) { e.OwnerID = "" }, "missing owner"},
		{func(e *model.LedgerEntry) { e.Date = time.Time{} }, "missing date"},
		{func(e *model.LedgerEntry) { e.Description = "" }, "missing description"},
		{func(e *model.LedgerEntry) { e.Fingerprint = "" }, "missing fingerprint"},
		{func(e *model.LedgerEntry) { e.Confidence = 1.5 }, "confidence out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := testEntry("SHELL COBURG", -60.00)
			tt.mutate(entry)
			_, err := store.InsertLedgerEntry(ctx, entry)
			assert.ErrorIs(t, err, ErrInvalidLedgerRow)
		})
	}
}

func TestSQLiteStorage_GetLedgerWindow(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)

	recent := testEntry("RECENT", -10.00)
	recent.Date = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.InsertLedgerEntry(ctx, recent)
	require.NoError(t, err)

	old := testEntry("OLD", -20.00)
	old.Date = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = store.InsertLedgerEntry(ctx, old)
	require.NoError(t, err)

	window, err := store.GetLedgerWindow(ctx, testOwner, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "RECENT", window[0].Description)
}

func TestSQLiteStorage_GetUnverifiedEntries(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)

	unverified := testEntry("UNVERIFIED", -10.00)
	_, err := store.InsertLedgerEntry(ctx, unverified)
	require.NoError(t, err)

	verified := testEntry("VERIFIED", -20.00)
	verified.Verified = true
	_, err = store.InsertLedgerEntry(ctx, verified)
	require.NoError(t, err)

	entries, err := store.GetUnverifiedEntries(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "UNVERIFIED", entries[0].Description)
}

func TestSQLiteStorage_RuleCRUD(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)

	minAmount := 10.0
	rule := &model.Rule{
		OwnerID:   testOwner,
		BucketID:  1,
		Keywords:  []string{"woolworths", "coles"},
		Priority:  5,
		Tags:      []string{"food"},
		AssignTo:  "alex",
		MinAmount: &minAmount,
	}

	id, err := store.CreateRule(ctx, rule)
	require.NoError(t, err)

	stored, err := store.GetRule(ctx, testOwner, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"woolworths", "coles"}, stored.Keywords)
	assert.Equal(t, []string{"food"}, stored.Tags)
	assert.Equal(t, "alex", stored.AssignTo)
	require.NotNil(t, stored.MinAmount)
	assert.Equal(t, 10.0, *stored.MinAmount)
	assert.Nil(t, stored.MaxAmount)

	stored.Priority = 9
	require.NoError(t, store.UpdateRule(ctx, stored))

	updated, err := store.GetRule(ctx, testOwner, id)
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Priority)

	require.NoError(t, store.DeleteRule(ctx, testOwner, id))
	_, err = store.GetRule(ctx, testOwner, id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_GetRulesByOwner_EvaluationOrder(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)

	for _, r := range []model.Rule{
		{OwnerID: testOwner, BucketID: 1, Keywords: []string{"a"}, Priority: 1},
		{OwnerID: testOwner, BucketID: 1, Keywords: []string{"b"}, Priority: 9},
		{OwnerID: testOwner, BucketID: 1, Keywords: []string{"c"}, Priority: 9},
	} {
		rule := r
		_, err := store.CreateRule(ctx, &rule)
		require.NoError(t, err)
	}

	rules, err := store.GetRulesByOwner(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	// Priority descending, then id ascending within equal priorities.
	assert.Equal(t, []string{"b"}, rules[0].Keywords)
	assert.Equal(t, []string{"c"}, rules[1].Keywords)
	assert.Equal(t, []string{"a"}, rules[2].Keywords)
}

func TestSQLiteStorage_Transaction(t *testing.T) {
	ctx := context.Background()
	store := setupStorage(t)

	bucketID, err := store.CreateBucket(ctx, &model.Bucket{OwnerID: testOwner, Name: "Groceries"})
	require.NoError(t, err)

	// Rolled-back writes must not persist.
	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	entry := testEntry("ROLLED BACK", -10.00)
	entry.BucketID = bucketID
	_, err = tx.InsertLedgerEntry(ctx, entry)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	entries, err := store.GetLedgerEntries(ctx, testOwner)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Committed writes persist and are visible inside the transaction.
	tx, err = store.BeginTx(ctx)
	require.NoError(t, err)

	id, err := tx.InsertLedgerEntry(ctx, testEntry("COMMITTED", -20.00))
	require.NoError(t, err)

	inside, err := tx.GetLedgerEntry(ctx, testOwner, id)
	require.NoError(t, err)
	assert.Equal(t, "COMMITTED", inside.Description)

	bucket, err := tx.GetBucket(ctx, bucketID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", bucket.Name)

	require.NoError(t, tx.Commit())

	entries, err = store.GetLedgerEntries(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "COMMITTED", entries[0].Description)
}
