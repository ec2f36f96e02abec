package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/service"
)

// completeFunc sends one prompt to a provider and returns the raw text.
type completeFunc func(ctx context.Context, prompt string) (string, error)

// categorizeBatches chunks requests to the configured batch size and runs
// one external call per chunk, each under its own timeout. A failed chunk
// is logged and skipped: its candidates stay unresolved, partial results
// from other chunks are still returned, and no error escapes to the
// caller's job.
func categorizeBatches(ctx context.Context, cfg Config, complete completeFunc, requests []BatchRequest, bucketNames []string) (map[int]BatchSuggestion, error) {
	suggestions := make(map[int]BatchSuggestion, len(requests))

	for start := 0; start < len(requests); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(requests) {
			end = len(requests)
		}
		chunk := requests[start:end]

		chunkResult, err := categorizeChunk(ctx, cfg, complete, chunk, bucketNames)
		if err != nil {
			slog.Warn("AI fallback chunk failed, leaving candidates unresolved",
				"chunk_size", len(chunk),
				"error", err)
			continue
		}
		for idx, s := range chunkResult {
			suggestions[idx] = s
		}
	}

	return suggestions, nil
}

func categorizeChunk(ctx context.Context, cfg Config, complete completeFunc, chunk []BatchRequest, bucketNames []string) (map[int]BatchSuggestion, error) {
	prompt := buildBatchPrompt(chunk, bucketNames)

	// Indices in the response are the caller's original indices. The
	// parser only honors indices from this chunk, so a response cannot
	// answer for a candidate that belongs to a different chunk.
	requested := make(map[int]struct{}, len(chunk))
	for _, req := range chunk {
		requested[req.Index] = struct{}{}
	}

	var content string
	err := common.WithRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		var callErr error
		content, callErr = complete(callCtx, prompt)
		if callErr != nil {
			return &common.RetryableError{Err: callErr, Retryable: true}
		}
		return nil
	}, service.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	})
	if err != nil {
		return nil, err
	}

	return parseBatchResponse(content, requested, cfg.ConfidenceCeiling)
}
