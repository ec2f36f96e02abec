package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/finch-money/finch/internal/model"
)

func bucketsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buckets",
		Short: "Manage categorization buckets",
	}

	cmd.AddCommand(listBucketsCmd())
	cmd.AddCommand(addBucketCmd())

	return cmd
}

func listBucketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all buckets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			buckets, err := store.GetBucketsByOwner(ctx, ownerID())
			if err != nil {
				return fmt.Errorf("failed to list buckets: %w", err)
			}
			if len(buckets) == 0 {
				fmt.Println("No buckets found. Use 'finch buckets add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintln(w, "ID\tNAME")
			for _, b := range buckets {
				fmt.Fprintf(w, "%d\t%s\n", b.ID, b.Name)
			}
			return nil
		},
	}
}

func addBucketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [name]",
		Short: "Add a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := store.CreateBucket(ctx, &model.Bucket{
				OwnerID: ownerID(),
				Name:    args[0],
			})
			if err != nil {
				return fmt.Errorf("failed to create bucket: %w", err)
			}

			fmt.Printf("Created bucket %d (%s)\n", id, args[0])
			return nil
		},
	}
}
