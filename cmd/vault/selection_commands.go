package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/chatops"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [name]",
		Short: "Show vault or category statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withVault(cmd, func(c context.Context, v *vault) error {
				category, err := v.resolver.ResolveOptional(c, joinArgs(args))
				if err != nil {
					return err
				}
				stats, err := v.engine.Stats(c, category)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				fmt.Fprintln(cmd.OutOrStdout(), chatops.FormatStats(category, stats))
				return nil
			})
		},
	}
}

func newLatestCommand(ctx *commandContext) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "latest [name]",
		Short: "List the most recent uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withVault(cmd, func(c context.Context, v *vault) error {
				category, err := v.resolver.ResolveOptional(c, joinArgs(args))
				if err != nil {
					return err
				}
				result, err := v.engine.Latest(c, category, count)
				if err != nil {
					return err
				}
				if result.Clamped {
					fmt.Fprintf(cmd.ErrOrStderr(), "Max count is %d\n", v.engine.MaxLatest())
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				if len(result.Assets) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No media found")
					return nil
				}
				printAssets(cmd, result.Assets)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of uploads to list")
	return cmd
}

func newRandomCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "random [name]",
		Short: "Pick a random asset, preferring ones served least recently",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withVault(cmd, func(c context.Context, v *vault) error {
				category, err := v.resolver.ResolveOptional(c, joinArgs(args))
				if err != nil {
					return err
				}
				asset, err := v.engine.Random(c, category)
				if err != nil {
					return err
				}
				if output != "" {
					if err := copyAsset(c, v, asset, output); err != nil {
						return err
					}
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, asset)
				}
				printAssets(cmd, []*catalog.Asset{asset})
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Copy the picked media to this path")
	return cmd
}

func copyAsset(ctx context.Context, v *vault, asset *catalog.Asset, target string) error {
	reader, err := v.media.Open(ctx, asset.StorageLocator)
	if err != nil {
		return err
	}
	defer reader.Close()

	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return fmt.Errorf("copy media: %w", err)
	}
	return file.Close()
}

func printAssets(cmd *cobra.Command, assets []*catalog.Asset) {
	rows := make([][]string, 0, len(assets))
	for _, a := range assets {
		rating := "-"
		if a.Rating != nil {
			rating = strconv.Itoa(*a.Rating)
		}
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			string(a.MediaType),
			rating,
			a.CreatedAt.Local().Format(time.DateTime),
			a.StorageLocator,
		})
	}
	printTable(cmd,
		[]string{"ID", "Type", "Rating", "Uploaded", "Locator"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
	)
}
