// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/finch-money/finch/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Ledger operations
	InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) (int64, error)
	UpdateLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error
	GetLedgerEntry(ctx context.Context, ownerID string, id int64) (*model.LedgerEntry, error)
	GetLedgerWindow(ctx context.Context, ownerID string, since time.Time) ([]model.LedgerEntry, error)
	GetLedgerEntries(ctx context.Context, ownerID string) ([]model.LedgerEntry, error)
	GetUnverifiedEntries(ctx context.Context, ownerID string) ([]model.LedgerEntry, error)

	// Bucket operations
	CreateBucket(ctx context.Context, bucket *model.Bucket) (int64, error)
	GetBucket(ctx context.Context, id int64) (*model.Bucket, error)
	GetBucketsByOwner(ctx context.Context, ownerID string) ([]model.Bucket, error)

	// Rule operations
	CreateRule(ctx context.Context, rule *model.Rule) (int64, error)
	UpdateRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, ownerID string, id int64) error
	GetRule(ctx context.Context, ownerID string, id int64) (*model.Rule, error)
	GetRulesByOwner(ctx context.Context, ownerID string) ([]model.Rule, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction. It exposes the ledger and
// bucket operations needed by the confirmation stage; all writes inside it
// commit or roll back atomically.
type Transaction interface {
	InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) (int64, error)
	UpdateLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error
	GetLedgerEntry(ctx context.Context, ownerID string, id int64) (*model.LedgerEntry, error)
	GetBucket(ctx context.Context, id int64) (*model.Bucket, error)
	Commit() error
	Rollback() error
}

// CandidateSource produces candidate transactions from an external statement
// or feed. OFX files and Plaid feeds both satisfy this.
type CandidateSource interface {
	Candidates(ctx context.Context) ([]model.CandidateTransaction, error)
}

// RetryOptions configures retry behavior.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
