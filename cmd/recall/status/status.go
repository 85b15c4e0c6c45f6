// Package statuscmder provides the status command for displaying index
// statistics from a running recall server.
package statuscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/pkg/cliui"
	"github.com/recallhq/recall/pkg/config"
	"github.com/recallhq/recall/pkg/corpus"
)

const statusLongDesc string = `Show index statistics from a running recall server.

Displays the number of indexed pages and passages, the embedding dimensions,
and when the index was last updated.

Examples:
  recall status
  recall status --target http://localhost:8123`

const statusShortDesc string = "Show index statistics"

func NewStatusCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("target") {
				target = cfg.Client.Target
			}
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return runStatus(target)
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&target, "target", defaults.Client.Target, "Recall server URL")

	return cmd
}

func runStatus(target string) error {
	stats, err := fetchStats(target)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s  %s\n", cliui.KeyStyle.Render("Server:      "), cliui.ValueStyle.Render(target))
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Pages:       "), cliui.ValueStyle.Render(strconv.Itoa(stats.TotalPages)))
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Passages:    "), cliui.ValueStyle.Render(strconv.Itoa(stats.TotalChunks)))
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Dimensions:  "), cliui.ValueStyle.Render(strconv.Itoa(stats.Dimensions)))

	if stats.LastUpdated.IsZero() {
		fmt.Printf("  %s  %s\n\n", cliui.KeyStyle.Render("Last updated:"), cliui.DimStyle.Render("never"))
	} else {
		fmt.Printf("  %s  %s\n\n", cliui.KeyStyle.Render("Last updated:"), cliui.ValueStyle.Render(stats.LastUpdated.Local().Format("2006-01-02 15:04:05")))
	}

	return nil
}

func fetchStats(target string) (*corpus.Stats, error) {
	url := strings.TrimSuffix(target, "/") + "/stats"
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating stats request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to recall server at %s: %w", target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats request failed (HTTP %d): %s", resp.StatusCode, string(raw))
	}

	var stats corpus.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse stats response: %w", err)
	}

	return &stats, nil
}
