package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/dedup"
	"github.com/finch-money/finch/internal/jobs"
	"github.com/finch-money/finch/internal/llm"
	"github.com/finch-money/finch/internal/model"
	"github.com/finch-money/finch/internal/service"
)

// Config holds pipeline configuration.
type Config struct {
	Workers        int
	LookbackMonths int
	// ConfidenceCeiling caps the confidence of accepted AI suggestions so
	// the fallback tier can never outrank a rule or heuristic match.
	ConfidenceCeiling float64
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Workers:           4,
		LookbackMonths:    6,
		ConfidenceCeiling: llm.DefaultConfidenceCeiling,
	}
}

// Pipeline turns a batch of candidate transactions into deduplicated,
// categorized results, tracked as an asynchronous job.
type Pipeline struct {
	storage service.Storage
	jobs    *jobs.Store
	client  llm.Client
	logger  *slog.Logger
	cfg     Config
}

// New creates a pipeline with default configuration.
func New(storage service.Storage, jobStore *jobs.Store, client llm.Client) *Pipeline {
	return NewWithConfig(storage, jobStore, client, DefaultConfig())
}

// NewWithConfig creates a pipeline with custom configuration.
func NewWithConfig(storage service.Storage, jobStore *jobs.Store, client llm.Client, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.LookbackMonths <= 0 {
		cfg.LookbackMonths = DefaultConfig().LookbackMonths
	}
	if cfg.ConfidenceCeiling <= 0 {
		cfg.ConfidenceCeiling = DefaultConfig().ConfidenceCeiling
	}
	return &Pipeline{
		storage: storage,
		jobs:    jobStore,
		client:  client,
		logger:  slog.Default().With("component", "engine"),
		cfg:     cfg,
	}
}

// Ingest starts an ingestion batch for the owner and returns the job id
// immediately. The categorization work runs in the background, decoupled
// from the caller; observe progress by polling the job store.
func (p *Pipeline) Ingest(ctx context.Context, ownerID string, candidates []model.CandidateTransaction) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("%w: owner id", common.ErrMissingConfig)
	}
	if len(candidates) == 0 {
		return "", common.ErrNoCandidates
	}

	// Malformed candidates are skipped up front, not fatal.
	valid := make([]model.CandidateTransaction, 0, len(candidates))
	skipped := 0
	for _, c := range candidates {
		if !c.Valid() {
			skipped++
			continue
		}
		valid = append(valid, c)
	}

	jobID := p.jobs.Create(ownerID, len(valid))

	p.logger.Info("Starting ingestion batch",
		"job_id", jobID,
		"owner", ownerID,
		"candidates", len(valid),
		"skipped", skipped)

	// The job outlives the triggering request.
	go p.run(context.WithoutCancel(ctx), jobID, ownerID, valid, skipped)

	return jobID, nil
}

// run executes one ingestion batch to completion.
func (p *Pipeline) run(ctx context.Context, jobID, ownerID string, candidates []model.CandidateTransaction, skipped int) {
	buckets, ruleSet, index, err := p.loadSnapshots(ctx, ownerID)
	if err != nil {
		// Losing the owner's rules/buckets mid-job is the one
		// unrecoverable batch-level failure.
		p.logger.Error("Ingestion batch failed", "job_id", jobID, "error", err)
		if failErr := p.jobs.Fail(jobID, err); failErr != nil {
			p.logger.Error("Failed to mark job failed", "job_id", jobID, "error", failErr)
		}
		return
	}

	categorizer := NewCategorizer(ruleSet, buckets)

	results := make([]*model.CategorizationResult, len(candidates))
	duplicates := make([]bool, len(candidates))

	// Per-candidate work is stateless given the snapshots, so it fans out
	// across a bounded worker pool. Only the progress counter and the
	// shared slices need coordination.
	var processed atomic.Int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	work := make(chan int)
	for w := 0; w < p.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				candidate := candidates[i]
				if index.Classify(candidate) == dedup.Duplicate {
					mu.Lock()
					duplicates[i] = true
					mu.Unlock()
				} else {
					result := categorizer.Categorize(candidate)
					mu.Lock()
					results[i] = &result
					mu.Unlock()
				}

				done := int(processed.Add(1))
				if err := p.jobs.Advance(jobID, done, ""); err != nil {
					p.logger.Warn("Failed to advance job", "job_id", jobID, "error", err)
				}
			}
		}()
	}

	for i := range candidates {
		work <- i
	}
	close(work)
	wg.Wait()

	p.resolveWithFallback(ctx, jobID, buckets, results)

	// Compact in input order, dropping duplicate slots.
	final := make([]model.CategorizationResult, 0, len(candidates))
	duplicateCount := 0
	for i := range candidates {
		if duplicates[i] {
			duplicateCount++
			continue
		}
		final = append(final, *results[i])
	}

	message := fmt.Sprintf("categorized %d transactions (%d duplicates skipped)", len(final), duplicateCount)
	if skipped > 0 {
		message += fmt.Sprintf(", %d malformed candidates ignored", skipped)
	}
	if err := p.jobs.Advance(jobID, len(candidates), message); err != nil {
		p.logger.Warn("Failed to set job message", "job_id", jobID, "error", err)
	}

	if err := p.jobs.Complete(jobID, final, duplicateCount, skipped); err != nil {
		p.logger.Error("Failed to complete job", "job_id", jobID, "error", err)
		return
	}

	p.logger.Info("Ingestion batch complete",
		"job_id", jobID,
		"results", len(final),
		"duplicates", duplicateCount,
		"skipped", skipped)
}

// loadSnapshots takes the point-in-time views a batch works from: the
// owner's buckets, rules, and recent ledger window.
func (p *Pipeline) loadSnapshots(ctx context.Context, ownerID string) ([]model.Bucket, []model.Rule, *dedup.Index, error) {
	buckets, err := p.storage.GetBucketsByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load buckets: %w", err)
	}

	ruleSet, err := p.storage.GetRulesByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load rules: %w", err)
	}

	since := dedup.WindowStart(time.Now(), p.cfg.LookbackMonths)
	window, err := p.storage.GetLedgerWindow(ctx, ownerID, since)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load ledger window: %w", err)
	}

	return buckets, ruleSet, dedup.NewIndex(window), nil
}

// resolveWithFallback sends still-unresolved candidates to the AI adapter
// and applies any accepted suggestions. Adapter errors degrade the
// affected candidates to TierNone; they never fail the batch.
func (p *Pipeline) resolveWithFallback(ctx context.Context, jobID string, buckets []model.Bucket, results []*model.CategorizationResult) {
	var requests []llm.BatchRequest
	requested := make(map[int]struct{})
	for i, result := range results {
		if result == nil || result.Tier != model.TierNone {
			continue
		}
		requested[i] = struct{}{}
		requests = append(requests, llm.BatchRequest{
			Index:       i,
			Description: result.Candidate.Description,
			Amount:      result.Candidate.Amount,
		})
	}
	if len(requests) == 0 {
		return
	}

	if err := p.jobs.Advance(jobID, 0, fmt.Sprintf("resolving %d transactions with AI fallback", len(requests))); err != nil {
		p.logger.Warn("Failed to set job message", "job_id", jobID, "error", err)
	}

	bucketNames := make([]string, len(buckets))
	bucketsByName := make(map[string]model.Bucket, len(buckets))
	for i, b := range buckets {
		bucketNames[i] = b.Name
		bucketsByName[strings.ToLower(b.Name)] = b
	}

	suggestions, err := p.client.CategorizeBatch(ctx, requests, bucketNames)
	if err != nil {
		p.logger.Warn("AI fallback unavailable, candidates remain unresolved",
			"job_id", jobID,
			"unresolved", len(requests),
			"error", err)
		return
	}

	accepted := 0
	for idx, suggestion := range suggestions {
		// A suggestion may only land on a candidate that was actually
		// sent and is still unresolved; anything else the adapter
		// reports is discarded so rule and heuristic matches are never
		// downgraded.
		if _, ok := requested[idx]; !ok {
			continue
		}
		if results[idx].Tier != model.TierNone {
			continue
		}
		// Only exact (case-insensitive) matches against real user buckets
		// are accepted; invented categories are discarded.
		bucket, ok := bucketsByName[strings.ToLower(suggestion.Bucket)]
		if !ok {
			continue
		}

		confidence := suggestion.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > p.cfg.ConfidenceCeiling {
			confidence = p.cfg.ConfidenceCeiling
		}

		results[idx].BucketID = bucket.ID
		results[idx].BucketName = bucket.Name
		results[idx].Confidence = confidence
		results[idx].Tier = model.TierAIFallback
		accepted++
	}

	p.logger.Info("AI fallback resolved candidates",
		"job_id", jobID,
		"requested", len(requests),
		"accepted", accepted)
}
