package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/corpus"
)

var (
	statsToolName    = "get_stats"
	statsDescription = "Report how many pages and passages are indexed, the embedding dimensions, and when the index was last updated."
)

// StatsInput represents the (empty) input of the get_stats tool.
type StatsInput struct{}

// handleStats reports corpus statistics.
func (s *Server) handleStats(ctx context.Context, req *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, corpus.Stats, error) {
	stats, err := s.config.Corpus.Stats(ctx)
	if err != nil {
		s.config.Logger.Error("MCP stats failed", zap.Error(err))
		return toolError(fmt.Sprintf("Failed to load stats: %v", err)), corpus.Stats{}, nil
	}

	jsonBytes, err := json.Marshal(stats)
	if err != nil {
		s.config.Logger.Error("failed to marshal stats output", zap.Error(err))
		return toolError(fmt.Sprintf("Failed to serialize stats: %v", err)), corpus.Stats{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, stats, nil
}
