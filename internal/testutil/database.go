// Package testutil provides shared helpers for finch tests.
// It offers isolated in-memory databases and seed data builders.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/finch-money/finch/internal/model"
	"github.com/finch-money/finch/internal/service"
	"github.com/finch-money/finch/internal/storage"
)

// TestDB represents an isolated test database with seeded buckets.
type TestDB struct {
	Storage service.Storage
	Buckets map[string]*model.Bucket
	t       *testing.T
}

// SetupTestDB creates a new in-memory SQLite database, runs migrations,
// and seeds the named buckets for the given owner. Cleanup is automatic.
func SetupTestDB(t *testing.T, ownerID string, bucketNames ...string) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	buckets := make(map[string]*model.Bucket, len(bucketNames))
	for _, name := range bucketNames {
		bucket := &model.Bucket{OwnerID: ownerID, Name: name}
		id, err := store.CreateBucket(ctx, bucket)
		if err != nil {
			t.Fatalf("failed to seed bucket %q: %v", name, err)
		}
		bucket.ID = id
		buckets[name] = bucket
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return &TestDB{
		Storage: store,
		Buckets: buckets,
		t:       t,
	}
}

// MustBucket returns the seeded bucket with the given name or fails the test.
func (db *TestDB) MustBucket(name string) *model.Bucket {
	db.t.Helper()
	bucket, ok := db.Buckets[name]
	if !ok {
		db.t.Fatalf("bucket %q was not seeded", name)
	}
	return bucket
}

// WithTransaction executes fn inside a transaction that is always rolled back.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	ctx := context.Background()
	tx, err := db.Storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}
