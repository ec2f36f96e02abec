package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same scan logic
// serves direct calls and transactional ones.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const ledgerColumns = `id, owner_id, date, description, amount, external_id,
	fingerprint, bucket_id, tags, assigned_to, confidence, verified, created_at`

// InsertLedgerEntry inserts a new ledger entry and returns its id.
func (s *SQLiteStorage) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateLedgerEntry(entry); err != nil {
		return 0, err
	}
	return s.insertLedgerEntryTx(ctx, s.db, entry)
}

func (s *SQLiteStorage) insertLedgerEntryTx(ctx context.Context, q querier, entry *model.LedgerEntry) (int64, error) {
	tags, err := encodeStrings(entry.Tags)
	if err != nil {
		return 0, err
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO ledger_entries
			(owner_id, date, description, amount, external_id, fingerprint,
			 bucket_id, tags, assigned_to, confidence, verified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.OwnerID, entry.Date, entry.Description, entry.Amount,
		entry.ExternalID, entry.Fingerprint, entry.BucketID, tags,
		entry.AssignedTo, entry.Confidence, entry.Verified)
	if err != nil {
		return 0, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get ledger entry id: %w", err)
	}
	entry.ID = id
	return id, nil
}

// UpdateLedgerEntry updates an existing ledger entry owned by the same user.
func (s *SQLiteStorage) UpdateLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateLedgerEntry(entry); err != nil {
		return err
	}
	return s.updateLedgerEntryTx(ctx, s.db, entry)
}

func (s *SQLiteStorage) updateLedgerEntryTx(ctx context.Context, q querier, entry *model.LedgerEntry) error {
	tags, err := encodeStrings(entry.Tags)
	if err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, `
		UPDATE ledger_entries
		SET date = ?, description = ?, amount = ?, external_id = ?,
			fingerprint = ?, bucket_id = ?, tags = ?, assigned_to = ?,
			confidence = ?, verified = ?
		WHERE id = ? AND owner_id = ?`,
		entry.Date, entry.Description, entry.Amount, entry.ExternalID,
		entry.Fingerprint, entry.BucketID, tags, entry.AssignedTo,
		entry.Confidence, entry.Verified, entry.ID, entry.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("ledger entry %d: %w", entry.ID, common.ErrNotFound)
	}
	return nil
}

// GetLedgerEntry fetches a single entry by id for the given owner.
func (s *SQLiteStorage) GetLedgerEntry(ctx context.Context, ownerID string, id int64) (*model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	return s.getLedgerEntryTx(ctx, s.db, ownerID, id)
}

func (s *SQLiteStorage) getLedgerEntryTx(ctx context.Context, q querier, ownerID string, id int64) (*model.LedgerEntry, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE id = ? AND owner_id = ?`, id, ownerID)

	entry, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ledger entry %d: %w", id, common.ErrNotFound)
		}
		return nil, err
	}
	return entry, nil
}

// GetLedgerWindow returns the owner's ledger entries dated on or after
// since, newest first. This is the deduplication lookback window.
func (s *SQLiteStorage) GetLedgerWindow(ctx context.Context, ownerID string, since time.Time) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE owner_id = ? AND date >= ?
		ORDER BY date DESC, id DESC`, ownerID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger window: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanLedgerEntries(rows)
}

// GetLedgerEntries returns all of the owner's ledger entries, newest first.
func (s *SQLiteStorage) GetLedgerEntries(ctx context.Context, ownerID string) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE owner_id = ?
		ORDER BY date DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanLedgerEntries(rows)
}

// GetUnverifiedEntries returns the owner's unverified entries in insertion
// order. Rule apply walks these.
func (s *SQLiteStorage) GetUnverifiedEntries(ctx context.Context, ownerID string) ([]model.LedgerEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ledgerColumns+`
		FROM ledger_entries
		WHERE owner_id = ? AND verified = 0
		ORDER BY id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unverified entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanLedgerEntries(rows)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedgerEntry(row rowScanner) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	var externalID, tags, assignedTo sql.NullString

	if err := row.Scan(&entry.ID, &entry.OwnerID, &entry.Date, &entry.Description,
		&entry.Amount, &externalID, &entry.Fingerprint, &entry.BucketID,
		&tags, &assignedTo, &entry.Confidence, &entry.Verified, &entry.CreatedAt); err != nil {
		return nil, err
	}

	entry.ExternalID = externalID.String
	entry.AssignedTo = assignedTo.String

	decoded, err := decodeStrings(tags.String)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tags for entry %d: %w", entry.ID, err)
	}
	entry.Tags = decoded

	return &entry, nil
}

func scanLedgerEntries(rows *sql.Rows) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}

// encodeStrings serializes a string slice to JSON for storage.
func encodeStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode string list: %w", err)
	}
	return string(data), nil
}

// decodeStrings deserializes a JSON string list; empty input yields nil.
func decodeStrings(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}
