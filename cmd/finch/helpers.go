package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/finch-money/finch/internal/config"
	"github.com/finch-money/finch/internal/engine"
	"github.com/finch-money/finch/internal/llm"
	"github.com/finch-money/finch/internal/service"
	"github.com/finch-money/finch/internal/storage"
)

// initStorage opens the configured database and runs migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/finch/finch.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func ownerID() string {
	owner := viper.GetString("owner")
	if owner == "" {
		owner = "local"
	}
	return owner
}

func llmConfigFromViper() llm.Config {
	return llm.Config{
		Provider:          viper.GetString("llm.provider"),
		APIKey:            viper.GetString("llm.api_key"),
		Model:             viper.GetString("llm.model"),
		Timeout:           viper.GetDuration("llm.timeout"),
		BatchSize:         viper.GetInt("llm.batch_size"),
		ConfidenceCeiling: viper.GetFloat64("llm.confidence_ceiling"),
	}
}

func pipelineConfigFromViper() engine.Config {
	cfg := engine.DefaultConfig()
	if workers := viper.GetInt("ingest.workers"); workers > 0 {
		cfg.Workers = workers
	}
	if months := viper.GetInt("ingest.lookback_months"); months > 0 {
		cfg.LookbackMonths = months
	}
	if ceiling := viper.GetFloat64("llm.confidence_ceiling"); ceiling > 0 {
		cfg.ConfidenceCeiling = ceiling
	}
	return cfg
}

// parseID parses a positional numeric id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
