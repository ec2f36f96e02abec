// Package storage provides the data persistence layer for the finch application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/finch-money/finch/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidLedgerRow  = errors.New("invalid ledger entry")
	ErrInvalidBucket     = errors.New("invalid bucket")
	ErrInvalidRule       = errors.New("invalid rule")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateLedgerEntry validates a single ledger entry.
func validateLedgerEntry(entry *model.LedgerEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if entry.OwnerID == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidLedgerRow)
	}
	if entry.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidLedgerRow)
	}
	if entry.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidLedgerRow)
	}
	if entry.Fingerprint == "" {
		return fmt.Errorf("%w: missing fingerprint", ErrInvalidLedgerRow)
	}
	if entry.Confidence < 0 || entry.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidLedgerRow)
	}
	return nil
}

// validateBucket validates a bucket.
func validateBucket(bucket *model.Bucket) error {
	if bucket == nil {
		return fmt.Errorf("%w: bucket", ErrNilParameter)
	}
	if strings.TrimSpace(bucket.OwnerID) == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidBucket)
	}
	if strings.TrimSpace(bucket.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidBucket)
	}
	return nil
}

// validateRule validates a rule.
func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.OwnerID) == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidRule)
	}
	if len(rule.Keywords) == 0 {
		return fmt.Errorf("%w: empty keyword set", ErrInvalidRule)
	}
	if rule.BucketID == 0 {
		return fmt.Errorf("%w: missing target bucket", ErrInvalidRule)
	}
	return nil
}
