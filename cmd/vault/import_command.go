package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vaultgallery/internal/fetch"
	"vaultgallery/internal/ingest"
	"vaultgallery/internal/mediastore"
	"vaultgallery/internal/notifications"
	"vaultgallery/internal/vaulterr"
)

type importReport struct {
	Category  string   `json:"category"`
	Saved     int      `json:"saved"`
	Duplicate int      `json:"duplicate"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var categoryName string
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import a media file or directory into a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(categoryName) == "" {
				return errors.New("--category is required")
			}
			files, err := collectMediaFiles(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no media files found under %s", args[0])
			}
			return ctx.withVault(cmd, func(c context.Context, v *vault) error {
				report, err := importFiles(c, v, categoryName, files)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported into %s: %d saved, %d duplicate, %d failed\n",
					report.Category, report.Saved, report.Duplicate, report.Failed)
				for _, line := range report.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", line)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&categoryName, "category", "", "Category to file the media under")
	return cmd
}

// importFiles submits each file through an ingest coordinator as an
// ungrouped, captioned upload.
func importFiles(ctx context.Context, v *vault, categoryName string, files []string) (importReport, error) {
	// The operator is trusted; the chat allow-list does not apply here.
	local := *v.cfg
	local.Access.AuthorizedUsers = nil

	coordinator := ingest.NewCoordinator(&local, ingest.Dependencies{
		Resolver: v.resolver,
		Store:    v.store,
		Fetcher:  fetch.New(&local, fetch.WithLocalFiles()),
		Media:    v.media,
		Ratings:  v.ratings,
		Notifier: notifications.NewService(nil),
	}, v.logger)
	defer func() {
		_ = coordinator.Drain(context.WithoutCancel(ctx))
		v.ratings.Wait()
	}()

	caption := "/upload " + strings.TrimSpace(categoryName)
	report := importReport{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result, err := coordinator.Submit(ctx, ingest.Submission{
			Reference: path,
			Caption:   caption,
			FileName:  filepath.Base(path),
		})
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", filepath.Base(path), vaulterr.UserMessage(err)))
			continue
		}
		if result.Category != nil {
			report.Category = result.Category.DisplayName
		}
		switch result.Status {
		case ingest.StatusSaved:
			report.Saved++
		case ingest.StatusDuplicate:
			report.Duplicate++
		}
	}
	if report.Category == "" {
		report.Category = strings.TrimSpace(categoryName)
	}
	return report, nil
}

// collectMediaFiles returns path itself when it is a file, or every image and
// video below it when it is a directory. Hidden entries are skipped.
func collectMediaFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		contentType := mediastore.ContentType(path)
		if strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return files, nil
}
