// Package searchcmder provides the search command for querying a running
// recall server from the terminal.
package searchcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recallhq/recall/api"
	"github.com/recallhq/recall/pkg/cliui"
	"github.com/recallhq/recall/pkg/config"
	"github.com/recallhq/recall/pkg/logger"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	urlStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	matchedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type searchCommander struct {
	query string
	topK  int
	quiet bool

	target string

	debug  bool
	logger *zap.Logger
}

const searchLongDesc string = `Search your indexed browsing history via a running recall server.

Returns the most relevant passages for the query, each pointing back at the
page it came from. The matched words are highlighted inside each passage.

Use --quiet to output only page URLs, one per line. This is useful for
piping into other commands.

Example:
  recall search "that article about sourdough starters"
  recall search "rust borrow checker" --top 10
  recall search "kubernetes dns debugging" --quiet`

const searchShortDesc string = "Search your browsing history"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
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
				cmder.target = cfg.Client.Target
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 0, "Number of results to return (default: server setting)")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only page URLs, one per line (for piping)")
	cmd.Flags().StringVar(&cmder.target, "target", defaults.Client.Target, "Recall server URL")

	return cmd
}

func (c *searchCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	resp, err := SearchAPI(c.target, c.query, c.topK)
	if err != nil {
		return err
	}

	var results []api.SearchResult
	if resp.SearchResults != nil {
		results = resp.SearchResults.Results
	}

	if len(results) == 0 {
		if !c.quiet {
			fmt.Println("No results found.")
		}
		return nil
	}

	if c.quiet {
		seen := make(map[string]bool)
		for _, result := range results {
			if !seen[result.URL] {
				seen[result.URL] = true
				fmt.Println(result.URL)
			}
		}
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		urlStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	for i, result := range results {
		printHit(i+1, result)
	}

	if resp.Answer != "" {
		rendered, err := cliui.RenderMarkdown(resp.Answer)
		if err != nil {
			rendered = resp.Answer
		}
		fmt.Printf("%s\n%s\n", headerStyle.Render("Answer:"), rendered)
	}

	return nil
}

func printHit(rank int, result api.SearchResult) {
	title := result.Title
	if title == "" {
		title = "(untitled)"
	}

	fmt.Printf("  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		titleStyle.Render(title),
	)
	fmt.Printf("      %s\n", urlStyle.Render(result.URL))

	fmt.Printf("      %s\n\n", renderPreview(result))
}

// renderPreview shows the passage with the matched span emphasized, clipped
// to a window around the match.
func renderPreview(result api.SearchResult) string {
	text := result.Content
	start, end := result.HighlightStart, result.HighlightEnd
	if start < 0 || end > len(text) || start >= end {
		start, end = api.NoHighlight, api.NoHighlight
	}

	if start == api.NoHighlight {
		preview := strings.ReplaceAll(text, "\n", " ")
		if len(preview) > 200 {
			preview = preview[:197] + "..."
		}
		return previewStyle.Render(preview) + " " + dimStyle.Render("(no highlight)")
	}

	const margin = 60
	from := start - margin
	if from < 0 {
		from = 0
	}
	to := end + margin
	if to > len(text) {
		to = len(text)
	}

	flatten := func(s string) string { return strings.ReplaceAll(s, "\n", " ") }
	var b strings.Builder
	if from > 0 {
		b.WriteString(dimStyle.Render("..."))
	}
	b.WriteString(previewStyle.Render(flatten(text[from:start])))
	b.WriteString(matchedStyle.Render(flatten(text[start:end])))
	b.WriteString(previewStyle.Render(flatten(text[end:to])))
	if to < len(text) {
		b.WriteString(dimStyle.Render("..."))
	}
	return b.String()
}

// SearchAPI posts a search query to a running recall server and returns the
// parsed response.
func SearchAPI(target, queryText string, topK int) (*api.SearchResponse, error) {
	body, err := json.Marshal(api.ProcessRequest{Query: queryText, Limit: topK})
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	url := strings.TrimSuffix(target, "/") + "/process"
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(raw))
	}

	var out api.SearchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("search failed: %s", out.Error)
	}

	return &out, nil
}
