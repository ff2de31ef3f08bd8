package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vaultgallery/internal/daemon"
	"vaultgallery/internal/preflight"
)

const statusTimeout = 5 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon's status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.API.Bind
			}
			status, err := fetchStatus(cmd.Context(), addr, cfg.API.Token)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd, addr, status)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Daemon API address (defaults to api.bind)")
	return cmd
}

func fetchStatus(ctx context.Context, addr, token string) (daemon.Status, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	var status daemon.Status
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/api/status", nil)
	if err != nil {
		return status, fmt.Errorf("build status request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return status, fmt.Errorf("connect to daemon: nothing is listening on %s; start it with `vaultd`", addr)
		}
		return status, fmt.Errorf("connect to daemon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("daemon status: unexpected response %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}

func renderStatus(cmd *cobra.Command, addr string, status daemon.Status) {
	out := cmd.OutOrStdout()
	started := "-"
	if status.StartedAt != nil {
		started = status.StartedAt.Local().Format(time.DateTime)
	}
	printTable(cmd, []string{"Field", "Value"}, [][]string{
		{"Address", addr},
		{"Running", yesNo(status.Running)},
		{"Started", started},
		{"Storage", status.StorageBackend},
		{"Database", status.DatabasePath},
		{"Pending groups", strconv.Itoa(status.PendingGroups)},
		{"Categories", strconv.Itoa(status.Stats.Categories)},
		{"Media", strconv.Itoa(status.Stats.Total)},
		{"Rated images", strconv.Itoa(status.Stats.RatedImages)},
	}, nil)

	if len(status.Checks) == 0 {
		return
	}
	fmt.Fprintln(out)
	rows := make([][]string, 0, len(status.Checks))
	for _, check := range status.Checks {
		rows = append(rows, []string{check.Name, checkState(check), check.Detail})
	}
	printTable(cmd, []string{"Check", "State", "Detail"}, rows, nil)
}

func checkState(r preflight.Result) string {
	switch {
	case r.Passed:
		return "ok"
	case r.Required:
		return "FAILED"
	default:
		return "warn"
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
