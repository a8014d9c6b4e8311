package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"hikari/internal/config"
	"hikari/internal/daemon"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and delivery status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := fetchDaemonStatus(cmd.Context(), ctx.configValue())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			kind := statusOK
			detail := fmt.Sprintf("pid %d, up %s", status.PID, formatUptime(status.UptimeSeconds))
			if !status.Running {
				kind = statusError
				detail = "not running"
			}
			fmt.Fprintln(stdout, renderStatusLine("Daemon", kind, detail, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Session DB", statusInfo, status.SessionDBPath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Deliveries", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := [][]string{
				{"Active runs", strconv.FormatInt(status.Scheduler.ActiveRuns, 10)},
				{"Active batches", strconv.FormatInt(status.Scheduler.ActiveBatches, 10)},
				{"Delivered", strconv.FormatInt(status.Scheduler.Delivered, 10)},
				{"Link fallbacks", strconv.FormatInt(status.Scheduler.LinkFallbacks, 10)},
				{"Failed", strconv.FormatInt(status.Scheduler.Failed, 10)},
			}
			table := renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(stdout, table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit status as JSON")
	return cmd
}

func fetchDaemonStatus(ctx context.Context, cfg *config.Config) (daemon.Status, error) {
	var status daemon.Status

	url := "http://" + cfg.Telegram.WebhookBind + "/api/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return status, fmt.Errorf("build status request: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return status, fmt.Errorf("daemon unreachable at %s (start it with hikarid): %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("daemon status request returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("decode daemon status: %w", err)
	}
	return status, nil
}

func formatUptime(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}
