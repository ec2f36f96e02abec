// Package plaid fetches bank-feed transactions from the Plaid API and
// presents them as candidates for the ingestion pipeline.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/model"
	"github.com/finch-money/finch/internal/service"
	"github.com/plaid/plaid-go/v20/plaid"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("plaid client ID is required")
	}
	if c.Secret == "" {
		return fmt.Errorf("plaid secret is required")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("plaid access token is required")
	}
	switch c.Environment {
	case "sandbox", "production":
		return nil
	default:
		return fmt.Errorf("invalid Plaid environment: must be sandbox or production")
	}
}

// Source fetches candidates from a Plaid item over a date range.
type Source struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	accessToken string
	startDate   time.Time
	endDate     time.Time
	retryOpts   service.RetryOptions
}

// NewSource creates a Plaid-backed candidate source.
func NewSource(cfg Config, startDate, endDate time.Time) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if startDate.After(endDate) {
		return nil, fmt.Errorf("start date must be before end date")
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Source{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		startDate:   startDate,
		endDate:     endDate,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// Candidates fetches all transactions in the configured range, paging
// through the API. Each candidate carries Plaid's transaction id as its
// external id, so the deduplicator's authoritative id path applies to
// feed imports.
func (s *Source) Candidates(ctx context.Context) ([]model.CandidateTransaction, error) {
	const pageSize = int32(500) // Plaid's max page size

	s.logger.Info("Fetching transactions from Plaid",
		"start_date", s.startDate.Format("2006-01-02"),
		"end_date", s.endDate.Format("2006-01-02"))

	var all []plaid.Transaction
	offset := int32(0)

	for {
		var page []plaid.Transaction

		retryErr := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(
				s.accessToken,
				s.startDate.Format("2006-01-02"),
				s.endDate.Format("2006-01-02"),
			)
			options := plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			}
			request.SetOptions(options)

			resp, _, err := s.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				if plaidError := extractPlaidError(err); plaidError != nil {
					if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
						s.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
						return &common.RetryableError{Err: err, Retryable: true}
					}
					return fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage)
				}
				return fmt.Errorf("failed to fetch transactions: %w", err)
			}

			page = resp.GetTransactions()
			return nil
		}, s.retryOpts)
		if retryErr != nil {
			return nil, retryErr
		}

		all = append(all, page...)
		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	s.logger.Info("Fetched all transactions", "count", len(all))

	candidates := make([]model.CandidateTransaction, 0, len(all))
	for _, pt := range all {
		candidates = append(candidates, convert(pt))
	}
	return candidates, nil
}

// convert maps a Plaid transaction to a candidate. Plaid reports outflows
// as positive amounts; the ledger uses negative for expenses, so the sign
// flips.
func convert(pt plaid.Transaction) model.CandidateTransaction {
	date, _ := time.Parse("2006-01-02", pt.GetDate())

	description := pt.GetName()
	if merchant := pt.GetMerchantName(); merchant != "" {
		description = merchant
	}

	return model.CandidateTransaction{
		Date:        date,
		Description: description,
		Amount:      -pt.GetAmount(),
		ExternalID:  pt.GetTransactionId(),
	}
}

var _ service.CandidateSource = (*Source)(nil)

// extractPlaidError pulls the structured Plaid error out of an API error,
// if present.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}
