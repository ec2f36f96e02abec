package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finch-money/finch/internal/confirm"
	"github.com/finch-money/finch/internal/engine"
	"github.com/finch-money/finch/internal/jobs"
	"github.com/finch-money/finch/internal/llm"
	"github.com/finch-money/finch/internal/model"
	"github.com/finch-money/finch/internal/ofx"
	"github.com/finch-money/finch/internal/plaid"
	"github.com/finch-money/finch/internal/service"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest and categorize transactions",
		Long: `Ingest candidate transactions from a statement source, deduplicate them
against the ledger, and categorize them through rules, heuristics, and the
optional AI fallback.`,
	}

	cmd.AddCommand(ingestOFXCmd())
	cmd.AddCommand(ingestPlaidCmd())

	return cmd
}

func ingestOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ofx [files...]",
		Short: "Ingest transactions from OFX/QFX files",
		Long: `Ingest transactions from OFX or QFX files exported from your bank.

Examples:
  # Single file
  finch ingest ofx ~/Downloads/statement.qfx

  # All QFX files in a directory
  finch ingest ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngestOFX,
	}

	cmd.Flags().Bool("commit", false, "commit categorized results that do not need review")
	cmd.Flags().StringP("out", "o", "", "write results to a JSON file for later confirmation")

	return cmd
}

func runIngestOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}
	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to ingest")
	}

	var candidates []model.CandidateTransaction
	for _, path := range allFiles {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		parsed, err := ofx.NewSource(f).Candidates(ctx)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		candidates = append(candidates, parsed...)
	}

	return runIngest(cmd, candidates)
}

func ingestPlaidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plaid",
		Short: "Ingest transactions from a Plaid connection",
		RunE:  runIngestPlaid,
	}

	cmd.Flags().String("start", "", "start date (YYYY-MM-DD, default: lookback window)")
	cmd.Flags().String("end", "", "end date (YYYY-MM-DD, default: today)")
	cmd.Flags().Bool("commit", false, "commit categorized results that do not need review")
	cmd.Flags().StringP("out", "o", "", "write results to a JSON file for later confirmation")

	return cmd
}

func runIngestPlaid(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	endDate := time.Now()
	if raw, _ := cmd.Flags().GetString("end"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid end date %q: %w", raw, err)
		}
		endDate = parsed
	}

	startDate := endDate.AddDate(0, -pipelineConfigFromViper().LookbackMonths, 0)
	if raw, _ := cmd.Flags().GetString("start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid start date %q: %w", raw, err)
		}
		startDate = parsed
	}

	source, err := plaid.NewSource(plaid.Config{
		ClientID:    viper.GetString("plaid.client_id"),
		Secret:      viper.GetString("plaid.secret"),
		Environment: viper.GetString("plaid.environment"),
		AccessToken: viper.GetString("plaid.access_token"),
	}, startDate, endDate)
	if err != nil {
		return err
	}

	candidates, err := source.Candidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch Plaid transactions: %w", err)
	}

	return runIngest(cmd, candidates)
}

// runIngest drives one ingestion batch end to end: start the pipeline job,
// poll it to completion with a progress bar, then report or commit results.
func runIngest(cmd *cobra.Command, candidates []model.CandidateTransaction) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := llm.NewClient(llmConfigFromViper())
	if err != nil {
		return fmt.Errorf("failed to configure AI fallback: %w", err)
	}

	jobStore := jobs.NewStore()
	jobStore.StartJanitor(ctx, time.Minute, viper.GetDuration("jobs.retention"))
	pipeline := engine.NewWithConfig(store, jobStore, client, pipelineConfigFromViper())

	jobID, err := pipeline.Ingest(ctx, ownerID(), candidates)
	if err != nil {
		return err
	}

	job, err := pollJob(ctx, jobStore, jobID)
	if err != nil {
		return err
	}
	if job.Status == model.JobFailed {
		return fmt.Errorf("ingestion failed: %s", job.Error)
	}

	printResults(job)

	if outPath, _ := cmd.Flags().GetString("out"); outPath != "" {
		if err := writeResults(outPath, job.Result); err != nil {
			return err
		}
		fmt.Printf("Results written to %s\n", outPath)
	}

	if doCommit, _ := cmd.Flags().GetBool("commit"); doCommit {
		return commitResults(ctx, store, job.Result)
	}
	return nil
}

// pollJob waits for the job to reach a terminal state, rendering progress.
func pollJob(ctx context.Context, jobStore *jobs.Store, jobID string) (*model.Job, error) {
	job, err := jobStore.Query(jobID)
	if err != nil {
		return nil, err
	}

	bar := progressbar.NewOptions(job.Total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Categorizing transactions..."),
	)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		job, err = jobStore.Query(jobID)
		if err != nil {
			return nil, err
		}
		_ = bar.Set(job.Progress)
		if job.Status.Terminal() {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
			return job, nil
		}
	}
}

func printResults(job *model.Job) {
	fmt.Printf("Processed %d transactions (%d duplicates, %d skipped)\n\n",
		len(job.Result), job.DuplicateCount, job.SkippedCount)

	if len(job.Result) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "DATE\tDESCRIPTION\tAMOUNT\tBUCKET\tTIER\tCONFIDENCE\tREVIEW")
	for _, r := range job.Result {
		bucket := r.BucketName
		if bucket == "" {
			bucket = "(uncategorized)"
		}
		review := ""
		if r.ForceReview {
			review = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			r.Candidate.Date.Format("2006-01-02"),
			r.Candidate.Description,
			formatAmount(r.Candidate.Amount),
			bucket, r.Tier, r.Confidence, review)
	}
}

func writeResults(path string, results []model.CategorizationResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// commitResults persists every categorized result that landed in a bucket
// and does not need review. Everything else stays out of the ledger until
// confirmed explicitly.
func commitResults(ctx context.Context, store service.Storage, results []model.CategorizationResult) error {
	var items []confirm.Item
	skipped := 0
	for _, r := range results {
		if r.BucketID == 0 || r.ForceReview {
			skipped++
			continue
		}
		items = append(items, confirm.Item{
			Candidate:  r.Candidate,
			Tags:       r.Tags,
			AssignTo:   r.AssignTo,
			BucketID:   r.BucketID,
			Confidence: r.Confidence,
			Tier:       r.Tier,
		})
	}

	ids, err := confirm.NewCommitter(store).Commit(ctx, ownerID(), items)
	if err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}

	fmt.Printf("Committed %d entries (%d left for review)\n", len(ids), skipped)
	return nil
}
