package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/model"
)

// CreateBucket inserts a new bucket and returns its id.
func (s *SQLiteStorage) CreateBucket(ctx context.Context, bucket *model.Bucket) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateBucket(bucket); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO buckets (owner_id, name, parent_id)
		VALUES (?, ?, ?)`,
		bucket.OwnerID, bucket.Name, bucket.ParentID)
	if err != nil {
		return 0, fmt.Errorf("failed to create bucket: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get bucket id: %w", err)
	}
	bucket.ID = id
	return id, nil
}

// GetBucket fetches a bucket by id.
func (s *SQLiteStorage) GetBucket(ctx context.Context, id int64) (*model.Bucket, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getBucketTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getBucketTx(ctx context.Context, q querier, id int64) (*model.Bucket, error) {
	var bucket model.Bucket
	err := q.QueryRowContext(ctx, `
		SELECT id, owner_id, name, parent_id, created_at
		FROM buckets WHERE id = ?`, id).
		Scan(&bucket.ID, &bucket.OwnerID, &bucket.Name, &bucket.ParentID, &bucket.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("bucket %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}
	return &bucket, nil
}

// GetBucketsByOwner returns all of the owner's buckets, alphabetical.
func (s *SQLiteStorage) GetBucketsByOwner(ctx context.Context, ownerID string) ([]model.Bucket, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, parent_id, created_at
		FROM buckets
		WHERE owner_id = ?
		ORDER BY name COLLATE NOCASE ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var buckets []model.Bucket
	for rows.Next() {
		var bucket model.Bucket
		if err := rows.Scan(&bucket.ID, &bucket.OwnerID, &bucket.Name,
			&bucket.ParentID, &bucket.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buckets: %w", err)
	}
	return buckets, nil
}
