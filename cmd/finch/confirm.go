package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finch-money/finch/internal/confirm"
)

func confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm [results.json]",
		Short: "Commit reviewed categorization results to the ledger",
		Long: `Commit a reviewed batch of categorization results to the ledger.

The input file is the JSON written by 'finch ingest --out', optionally
edited to adjust buckets, add tags, or split transactions. The whole batch
commits in a single transaction; any invalid item rejects the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: runConfirm,
	}
}

func runConfirm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	var items []confirm.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}
	if len(items) == 0 {
		fmt.Println("Nothing to commit.")
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	ids, err := confirm.NewCommitter(store).Commit(ctx, ownerID(), items)
	if err != nil {
		return err
	}

	fmt.Printf("Committed %d ledger entries\n", len(ids))
	return nil
}
