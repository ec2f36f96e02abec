package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/model"
)

const ruleColumns = `id, owner_id, keywords, bucket_id, priority, min_amount,
	max_amount, tags, mark_for_review, assign_to, created_at, updated_at`

// CreateRule inserts a new rule and returns its id. Keyword-set uniqueness
// is enforced one level up, in the rules service.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateRule(rule); err != nil {
		return 0, err
	}

	keywords, err := encodeStrings(rule.Keywords)
	if err != nil {
		return 0, err
	}
	tags, err := encodeStrings(rule.Tags)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO rules
			(owner_id, keywords, bucket_id, priority, min_amount, max_amount,
			 tags, mark_for_review, assign_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.OwnerID, keywords, rule.BucketID, rule.Priority,
		rule.MinAmount, rule.MaxAmount, tags, rule.MarkForReview, rule.AssignTo)
	if err != nil {
		return 0, fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get rule id: %w", err)
	}
	rule.ID = id
	return id, nil
}

// UpdateRule updates an existing rule owned by the same user.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	keywords, err := encodeStrings(rule.Keywords)
	if err != nil {
		return err
	}
	tags, err := encodeStrings(rule.Tags)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE rules
		SET keywords = ?, bucket_id = ?, priority = ?, min_amount = ?,
			max_amount = ?, tags = ?, mark_for_review = ?, assign_to = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner_id = ?`,
		keywords, rule.BucketID, rule.Priority, rule.MinAmount,
		rule.MaxAmount, tags, rule.MarkForReview, rule.AssignTo,
		rule.ID, rule.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d: %w", rule.ID, common.ErrNotFound)
	}
	return nil
}

// DeleteRule removes a rule owned by the given user.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, ownerID string, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rules WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetRule fetches a single rule by id for the given owner.
func (s *SQLiteStorage) GetRule(ctx context.Context, ownerID string, id int64) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM rules WHERE id = ? AND owner_id = ?`, id, ownerID)

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
		}
		return nil, err
	}
	return rule, nil
}

// GetRulesByOwner returns the owner's rules in evaluation order: priority
// descending, then creation order ascending.
func (s *SQLiteStorage) GetRulesByOwner(ctx context.Context, ownerID string) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE owner_id = ?
		ORDER BY priority DESC, id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

func scanRule(row rowScanner) (*model.Rule, error) {
	var rule model.Rule
	var keywords, tags, assignTo sql.NullString
	var minAmount, maxAmount sql.NullFloat64

	if err := row.Scan(&rule.ID, &rule.OwnerID, &keywords, &rule.BucketID,
		&rule.Priority, &minAmount, &maxAmount, &tags, &rule.MarkForReview,
		&assignTo, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return nil, err
	}

	decoded, err := decodeStrings(keywords.String)
	if err != nil {
		return nil, fmt.Errorf("failed to decode keywords for rule %d: %w", rule.ID, err)
	}
	rule.Keywords = decoded

	decodedTags, err := decodeStrings(tags.String)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tags for rule %d: %w", rule.ID, err)
	}
	rule.Tags = decodedTags

	rule.AssignTo = assignTo.String
	if minAmount.Valid {
		v := minAmount.Float64
		rule.MinAmount = &v
	}
	if maxAmount.Valid {
		v := maxAmount.Float64
		rule.MaxAmount = &v
	}

	return &rule, nil
}
