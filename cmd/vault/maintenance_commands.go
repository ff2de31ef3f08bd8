package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vaultgallery/internal/scoring"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge categories whose names normalize to the same key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withVault(cmd, func(c context.Context, v *vault) error {
				report, err := v.resolver.MergeDuplicates(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				if !report.Changed() {
					fmt.Fprintln(out, "No duplicate categories found")
					return nil
				}
				fmt.Fprintf(out, "Merged %d group(s): removed %d category(ies), moved %d media item(s), rekeyed %d\n",
					report.Groups, report.Removed, report.Reassigned, report.Rekeyed)
				return nil
			})
		},
	}
}

func newBackfillCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Rate every image that has no rating yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withVault(cmd, func(c context.Context, v *vault) error {
				report, err := v.ratings.Backfill(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d image(s): rated %d, skipped %d\n",
					report.Scanned, report.Rated, report.Skipped)
				return nil
			})
		},
	}
}

func newScoresCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Category card scores",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Fetch popularity totals and rewrite category scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withVault(cmd, func(c context.Context, v *vault) error {
				if !v.cfg.Scoring.Enabled {
					return errors.New("scoring is disabled; set scoring.enabled and scoring.endpoint in the config")
				}
				refresher := scoring.NewRefresher(v.store, scoring.NewHTTPSource(v.cfg, v.logger), v.logger)
				report, err := refresher.Refresh(c)
				if ctx.jsonOutput() {
					if encErr := writeJSON(cmd, report); encErr != nil {
						return encErr
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scored %d of %d categories (%d without results)\n",
					report.Scored, report.Categories, report.Missing)
				return err
			})
		},
	})
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete media from the vault",
	}

	var count int
	randomCmd := &cobra.Command{
		Use:   "random <name>",
		Short: "Delete randomly chosen media from a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withVault(cmd, func(c context.Context, v *vault) error {
				category, err := v.resolver.Require(c, joinArgs(args))
				if err != nil {
					return err
				}
				deleted, err := v.curation.DeleteRandom(c, category, count)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"category": category.DisplayName, "deleted": deleted})
				}
				if deleted == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No media found to delete for %s\n", category.DisplayName)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d media item(s) from %s\n", deleted, category.DisplayName)
				return nil
			})
		},
	}
	randomCmd.Flags().IntVarP(&count, "count", "n", 1, "Number of media items to delete")

	var confirm bool
	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Delete every media item, keeping categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errors.New("this deletes ALL media; rerun with --confirm")
			}
			return ctx.withVault(cmd, func(c context.Context, v *vault) error {
				deleted, err := v.curation.WipeAll(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]int{"deleted": deleted})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d media item(s); categories preserved\n", deleted)
				return nil
			})
		},
	}
	allCmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm deleting every media item")

	cmd.AddCommand(randomCmd, allCmd)
	return cmd
}
