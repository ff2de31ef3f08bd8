package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vaultgallery/internal/scoring"
)

type categoryRow struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Total       int    `json:"total"`
	Images      int    `json:"images"`
	Videos      int    `json:"videos"`
	Power       int    `json:"power"`
	Stars       int    `json:"stars"`
}

func newCategoriesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "models"},
		Short:   "Manage categories",
	}
	cmd.AddCommand(newCategoriesListCommand(ctx))
	cmd.AddCommand(newCategoriesAddCommand(ctx))
	cmd.AddCommand(newCategoriesDeleteCommand(ctx))
	return cmd
}

func newCategoriesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with media counts and card scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withVault(cmd, func(c context.Context, v *vault) error {
				summaries, err := v.engine.Insights(c)
				if err != nil {
					return err
				}
				rows := make([]categoryRow, 0, len(summaries))
				for _, s := range summaries {
					card := scoring.CardFor(&s.Category)
					rows = append(rows, categoryRow{
						ID:          s.ID,
						DisplayName: s.DisplayName,
						Total:       s.Total,
						Images:      s.Images,
						Videos:      s.Videos,
						Power:       card.Power,
						Stars:       card.Stars,
					})
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, rows)
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No categories found")
					return nil
				}
				table := make([][]string, 0, len(rows))
				for _, r := range rows {
					table = append(table, []string{
						strconv.FormatInt(r.ID, 10),
						r.DisplayName,
						strconv.Itoa(r.Total),
						strconv.Itoa(r.Images),
						strconv.Itoa(r.Videos),
						strconv.Itoa(r.Power),
						strconv.Itoa(r.Stars),
					})
				}
				printTable(cmd,
					[]string{"ID", "Name", "Media", "Images", "Videos", "Power", "Stars"},
					table,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
				)
				return nil
			})
		},
	}
}

func newCategoriesAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withVault(cmd, func(c context.Context, v *vault) error {
				category, err := v.resolver.Create(c, joinArgs(args))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, category)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created category %s (id %d)\n", category.DisplayName, category.ID)
				return nil
			})
		},
	}
}

func newCategoriesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a category and all of its media",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withVault(cmd, func(c context.Context, v *vault) error {
				category, err := v.resolver.Require(c, joinArgs(args))
				if err != nil {
					return err
				}
				removed, err := v.curation.DeleteCategory(c, category.ID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"category": category.DisplayName, "deleted": removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s and %d media item(s)\n", category.DisplayName, removed)
				return nil
			})
		},
	}
}
