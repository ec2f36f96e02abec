package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/model"
	"github.com/finch-money/finch/internal/service"
)

// PreviewSampleSize caps how many matching entries a preview returns.
const PreviewSampleSize = 10

// Service provides rule CRUD with validation, plus dry-run preview and
// bulk apply against the existing ledger.
type Service struct {
	storage service.Storage
	logger  *slog.Logger
}

// NewService creates a rule service backed by the given storage.
func NewService(storage service.Storage) *Service {
	return &Service{
		storage: storage,
		logger:  slog.Default().With("component", "rules"),
	}
}

// Create normalizes the rule's keyword set and persists it. A rule whose
// normalized keyword set exactly matches another rule of the same owner is
// rejected, never silently merged.
func (s *Service) Create(ctx context.Context, rule *model.Rule) (int64, error) {
	if err := s.prepare(ctx, rule, 0); err != nil {
		return 0, err
	}

	id, err := s.storage.CreateRule(ctx, rule)
	if err != nil {
		return 0, fmt.Errorf("failed to create rule: %w", err)
	}

	s.logger.Info("Created rule",
		"rule_id", id,
		"owner", rule.OwnerID,
		"keywords", rule.Keywords,
		"priority", rule.Priority)
	return id, nil
}

// Update re-normalizes and persists an existing rule, applying the same
// duplicate keyword-set check against every other rule of the owner.
func (s *Service) Update(ctx context.Context, rule *model.Rule) error {
	if err := s.prepare(ctx, rule, rule.ID); err != nil {
		return err
	}

	if err := s.storage.UpdateRule(ctx, rule); err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	s.logger.Info("Updated rule", "rule_id", rule.ID, "owner", rule.OwnerID)
	return nil
}

// Delete removes a rule.
func (s *Service) Delete(ctx context.Context, ownerID string, id int64) error {
	if err := s.storage.DeleteRule(ctx, ownerID, id); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	s.logger.Info("Deleted rule", "rule_id", id, "owner", ownerID)
	return nil
}

// Get fetches a single rule.
func (s *Service) Get(ctx context.Context, ownerID string, id int64) (*model.Rule, error) {
	return s.storage.GetRule(ctx, ownerID, id)
}

// List returns the owner's rules in evaluation order.
func (s *Service) List(ctx context.Context, ownerID string) ([]model.Rule, error) {
	return s.storage.GetRulesByOwner(ctx, ownerID)
}

// prepare normalizes a rule in place and validates it for create or update.
// excludeID skips the rule itself during the duplicate check on updates.
func (s *Service) prepare(ctx context.Context, rule *model.Rule, excludeID int64) error {
	if rule == nil {
		return fmt.Errorf("%w: rule is nil", common.ErrInvalidRule)
	}

	rule.Keywords = NormalizeKeywords(rule.Keywords)
	if len(rule.Keywords) == 0 {
		return fmt.Errorf("%w: keyword set is empty after normalization", common.ErrInvalidRule)
	}
	if rule.MinAmount != nil && rule.MaxAmount != nil && *rule.MinAmount > *rule.MaxAmount {
		return fmt.Errorf("%w: min amount exceeds max amount", common.ErrInvalidRule)
	}

	existing, err := s.storage.GetRulesByOwner(ctx, rule.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load existing rules: %w", err)
	}

	key := rule.KeywordKey()
	for i := range existing {
		if existing[i].ID == excludeID {
			continue
		}
		if existing[i].KeywordKey() == key {
			return fmt.Errorf("%w: matches rule %d", common.ErrDuplicateRule, existing[i].ID)
		}
	}
	return nil
}

// PreviewResult summarizes a dry run of a candidate rule against the ledger.
type PreviewResult struct {
	Sample     []model.LedgerEntry
	MatchCount int
}

// Preview dry-runs a candidate rule (keywords plus optional amount bounds)
// against the owner's existing ledger. Nothing is mutated; the result
// carries the match count and a small sample.
func (s *Service) Preview(ctx context.Context, ownerID string, keywords []string, minAmount, maxAmount *float64) (*PreviewResult, error) {
	normalized := NormalizeKeywords(keywords)
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: keyword set is empty after normalization", common.ErrInvalidRule)
	}

	entries, err := s.storage.GetLedgerEntries(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	result := &PreviewResult{}
	for _, entry := range entries {
		cleaned := Clean(entry.Description)
		if !matchesKeywords(cleaned, normalized) {
			continue
		}
		if !matchesAmount(entry.Amount, minAmount, maxAmount) {
			continue
		}
		result.MatchCount++
		if len(result.Sample) < PreviewSampleSize {
			result.Sample = append(result.Sample, entry)
		}
	}
	return result, nil
}

// ApplyResult summarizes a bulk rule application run.
type ApplyResult struct {
	Scanned int
	Updated int
}

// Apply re-runs the full Tier-1 matcher across the owner's unverified
// ledger entries, updating bucket, tags, assignment and verification state
// for matches only. Rules with MarkForReview leave the entry unverified.
// This is the same algorithm ingestion uses for Tier 1.
func (s *Service) Apply(ctx context.Context, ownerID string) (*ApplyResult, error) {
	ruleSet, err := s.storage.GetRulesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	if len(ruleSet) == 0 {
		return &ApplyResult{}, nil
	}

	entries, err := s.storage.GetUnverifiedEntries(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unverified entries: %w", err)
	}

	matcher := NewMatcher(ruleSet)
	result := &ApplyResult{Scanned: len(entries)}

	for i := range entries {
		entry := &entries[i]
		rule := matcher.Match(Clean(entry.Description), entry.Amount)
		if rule == nil {
			continue
		}

		entry.BucketID = rule.BucketID
		entry.Confidence = MatchConfidence
		entry.Verified = !rule.MarkForReview
		if len(rule.Tags) > 0 {
			entry.Tags = appendMissing(entry.Tags, rule.Tags)
		}
		if rule.AssignTo != "" {
			entry.AssignedTo = rule.AssignTo
		}

		if err := s.storage.UpdateLedgerEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to update entry %d: %w", entry.ID, err)
		}
		result.Updated++
	}

	s.logger.Info("Applied rules to ledger",
		"owner", ownerID,
		"scanned", result.Scanned,
		"updated", result.Updated)
	return result, nil
}

// appendMissing merges add into tags, preserving order and skipping
// duplicates.
func appendMissing(tags, add []string) []string {
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		seen[t] = struct{}{}
	}
	for _, t := range add {
		if _, ok := seen[t]; !ok {
			tags = append(tags, t)
			seen[t] = struct{}{}
		}
	}
	return tags
}
