package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/finch-money/finch/internal/common"
	"github.com/finch-money/finch/internal/model"
	"github.com/finch-money/finch/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
		Long:  `List, add, delete, preview, and apply keyword categorization rules.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(updateRuleCmd())
	cmd.AddCommand(deleteRuleCmd())
	cmd.AddCommand(previewRuleCmd())
	cmd.AddCommand(applyRulesCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			ruleSet, err := rules.NewService(store).List(ctx, ownerID())
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}
			if len(ruleSet) == 0 {
				fmt.Println("No rules found. Use 'finch rules add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintln(w, "ID\tPRIORITY\tKEYWORDS\tBUCKET\tAMOUNT\tREVIEW")
			for _, r := range ruleSet {
				review := ""
				if r.MarkForReview {
					review = "yes"
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\t%s\n",
					r.ID, r.Priority, strings.Join(r.Keywords, ", "),
					r.BucketID, formatAmountBounds(r.MinAmount, r.MaxAmount), review)
			}
			return nil
		},
	}
}

func addRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a rule",
		Long: `Add a keyword rule. A transaction matches when its cleaned description
contains any keyword and its absolute amount falls inside the optional bounds.

Example:
  finch rules add --keywords woolworths,coles --bucket 3 --priority 10`,
		RunE: runAddRule,
	}

	cmd.Flags().StringSlice("keywords", nil, "keywords to match (required)")
	cmd.Flags().Int64("bucket", 0, "bucket id to assign (required)")
	cmd.Flags().Int("priority", 0, "rule priority, higher wins")
	cmd.Flags().Float64("min-amount", 0, "minimum absolute amount")
	cmd.Flags().Float64("max-amount", 0, "maximum absolute amount")
	cmd.Flags().StringSlice("tags", nil, "tags to merge into matches")
	cmd.Flags().String("assign-to", "", "person to assign matches to")
	cmd.Flags().Bool("review", false, "leave matches unverified for review")
	_ = cmd.MarkFlagRequired("keywords")
	_ = cmd.MarkFlagRequired("bucket")

	return cmd
}

func runAddRule(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	keywords, _ := cmd.Flags().GetStringSlice("keywords")
	bucketID, _ := cmd.Flags().GetInt64("bucket")
	priority, _ := cmd.Flags().GetInt("priority")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	assignTo, _ := cmd.Flags().GetString("assign-to")
	review, _ := cmd.Flags().GetBool("review")

	rule := &model.Rule{
		OwnerID:       ownerID(),
		BucketID:      bucketID,
		Keywords:      keywords,
		Priority:      priority,
		Tags:          tags,
		AssignTo:      assignTo,
		MarkForReview: review,
	}
	if cmd.Flags().Changed("min-amount") {
		v, _ := cmd.Flags().GetFloat64("min-amount")
		rule.MinAmount = &v
	}
	if cmd.Flags().Changed("max-amount") {
		v, _ := cmd.Flags().GetFloat64("max-amount")
		rule.MaxAmount = &v
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := rules.NewService(store).Create(ctx, rule)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateRule) || errors.Is(err, common.ErrInvalidRule) {
			return common.NewUserError("rule not created", err)
		}
		return fmt.Errorf("failed to create rule: %w", err)
	}

	fmt.Printf("Created rule %d\n", id)
	return nil
}

func updateRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update a rule",
		Long: `Update an existing rule. Only the flags you pass change; everything else
keeps its stored value. The updated keyword set must still be unique among
your rules.

Example:
  finch rules update 3 --keywords woolworths,coles,aldi --priority 20`,
		Args: cobra.ExactArgs(1),
		RunE: runUpdateRule,
	}

	cmd.Flags().StringSlice("keywords", nil, "keywords to match")
	cmd.Flags().Int64("bucket", 0, "bucket id to assign")
	cmd.Flags().Int("priority", 0, "rule priority, higher wins")
	cmd.Flags().Float64("min-amount", 0, "minimum absolute amount")
	cmd.Flags().Float64("max-amount", 0, "maximum absolute amount")
	cmd.Flags().StringSlice("tags", nil, "tags to merge into matches")
	cmd.Flags().String("assign-to", "", "person to assign matches to")
	cmd.Flags().Bool("review", false, "leave matches unverified for review")

	return cmd
}

func runUpdateRule(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := rules.NewService(store)
	rule, err := svc.Get(ctx, ownerID(), id)
	if err != nil {
		return fmt.Errorf("failed to load rule %d: %w", id, err)
	}

	if cmd.Flags().Changed("keywords") {
		rule.Keywords, _ = cmd.Flags().GetStringSlice("keywords")
	}
	if cmd.Flags().Changed("bucket") {
		rule.BucketID, _ = cmd.Flags().GetInt64("bucket")
	}
	if cmd.Flags().Changed("priority") {
		rule.Priority, _ = cmd.Flags().GetInt("priority")
	}
	if cmd.Flags().Changed("tags") {
		rule.Tags, _ = cmd.Flags().GetStringSlice("tags")
	}
	if cmd.Flags().Changed("assign-to") {
		rule.AssignTo, _ = cmd.Flags().GetString("assign-to")
	}
	if cmd.Flags().Changed("review") {
		rule.MarkForReview, _ = cmd.Flags().GetBool("review")
	}
	if cmd.Flags().Changed("min-amount") {
		v, _ := cmd.Flags().GetFloat64("min-amount")
		rule.MinAmount = &v
	}
	if cmd.Flags().Changed("max-amount") {
		v, _ := cmd.Flags().GetFloat64("max-amount")
		rule.MaxAmount = &v
	}

	if err := svc.Update(ctx, rule); err != nil {
		if errors.Is(err, common.ErrDuplicateRule) || errors.Is(err, common.ErrInvalidRule) {
			return common.NewUserError("rule not updated", err)
		}
		return fmt.Errorf("failed to update rule: %w", err)
	}

	fmt.Printf("Updated rule %d\n", id)
	return nil
}

func deleteRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := rules.NewService(store).Delete(ctx, ownerID(), id); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}

			fmt.Printf("Deleted rule %d\n", id)
			return nil
		},
	}
}

func previewRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview what a candidate rule would match",
		Long: `Dry-run a candidate rule against the existing ledger without changing
anything. Reports the match count and a sample of matching entries.`,
		RunE: runPreviewRule,
	}

	cmd.Flags().StringSlice("keywords", nil, "keywords to match (required)")
	cmd.Flags().Float64("min-amount", 0, "minimum absolute amount")
	cmd.Flags().Float64("max-amount", 0, "maximum absolute amount")
	_ = cmd.MarkFlagRequired("keywords")

	return cmd
}

func runPreviewRule(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	keywords, _ := cmd.Flags().GetStringSlice("keywords")
	var minAmount, maxAmount *float64
	if cmd.Flags().Changed("min-amount") {
		v, _ := cmd.Flags().GetFloat64("min-amount")
		minAmount = &v
	}
	if cmd.Flags().Changed("max-amount") {
		v, _ := cmd.Flags().GetFloat64("max-amount")
		maxAmount = &v
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := rules.NewService(store).Preview(ctx, ownerID(), keywords, minAmount, maxAmount)
	if err != nil {
		return fmt.Errorf("failed to preview rule: %w", err)
	}

	fmt.Printf("Would match %d ledger entries\n", result.MatchCount)
	if len(result.Sample) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "DATE\tDESCRIPTION\tAMOUNT")
	for _, entry := range result.Sample {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			entry.Date.Format("2006-01-02"), entry.Description, formatAmount(entry.Amount))
	}
	return nil
}

func applyRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Re-run all rules across unverified ledger entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := rules.NewService(store).Apply(ctx, ownerID())
			if err != nil {
				return fmt.Errorf("failed to apply rules: %w", err)
			}

			fmt.Printf("Scanned %d unverified entries, updated %d\n", result.Scanned, result.Updated)
			return nil
		},
	}
}

func formatAmountBounds(minAmount, maxAmount *float64) string {
	switch {
	case minAmount != nil && maxAmount != nil:
		return fmt.Sprintf("%.2f-%.2f", *minAmount, *maxAmount)
	case minAmount != nil:
		return fmt.Sprintf(">=%.2f", *minAmount)
	case maxAmount != nil:
		return fmt.Sprintf("<=%.2f", *maxAmount)
	default:
		return "any"
	}
}
