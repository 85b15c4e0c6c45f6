package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/recallhq/recall/api"
)

var (
	searchToolName    = "search_pages"
	searchDescription = "Search previously visited web pages by meaning. Returns the most relevant passages with their source page and the exact highlight offsets within each passage."
)

// SearchInput represents the input arguments for the search_pages tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the natural-language query to search visited pages for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of passages to return (default: server setting)"`
}

// SearchOutput represents the output of the search_pages tool.
type SearchOutput struct {
	Query   string             `json:"query"`
	Results []api.SearchResult `json:"results"`
	Count   int                `json:"count"`
	Answer  string             `json:"answer,omitempty"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP search request",
		zap.String("query", input.Query),
		zap.Int("topK", input.TopK),
	)

	resp, err := s.config.Corpus.Search(ctx, input.Query, input.TopK)
	if err != nil {
		logger.Error("MCP search failed", zap.Error(err))
		return toolError(fmt.Sprintf("Search failed: %v", err)), SearchOutput{}, nil
	}

	results := make([]api.SearchResult, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, api.ToSearchResult(hit))
	}

	output := SearchOutput{
		Query:   input.Query,
		Results: results,
		Count:   len(results),
		Answer:  resp.Answer,
	}

	// Tools returning structured content also return the serialized JSON in
	// a TextContent block for clients that only read text.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", zap.Error(err))
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

// toolError wraps a message in an error-flagged tool result. Tool failures
// are reported in-band rather than as protocol errors.
func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
