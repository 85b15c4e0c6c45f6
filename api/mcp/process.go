package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/ingest"
)

var (
	processToolName    = "process_webpage"
	processDescription = "Index a web page's text so it becomes searchable. Re-sending unchanged content is a cheap no-op; private pages are acknowledged but never indexed."
)

// ProcessInput represents the input arguments for the process_webpage tool.
type ProcessInput struct {
	URL     string `json:"url" jsonschema:"the page URL"`
	Title   string `json:"title,omitempty" jsonschema:"the page title"`
	Content string `json:"content" jsonschema:"the page's extracted plain text"`
}

// ProcessOutput represents the output of the process_webpage tool.
type ProcessOutput struct {
	Result     string `json:"result"`
	DocumentID string `json:"document_id,omitempty"`
	Chunks     int    `json:"chunks,omitempty"`
}

// handleProcess indexes one page.
func (s *Server) handleProcess(ctx context.Context, req *mcp.CallToolRequest, input ProcessInput) (*mcp.CallToolResult, ProcessOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP process request", zap.String("url", input.URL))

	result, err := s.config.Corpus.Ingest(ctx, ingest.Page{
		URL:     input.URL,
		Title:   input.Title,
		Content: input.Content,
	})
	if err != nil {
		logger.Error("MCP ingest failed", zap.String("url", input.URL), zap.Error(err))
		return toolError(fmt.Sprintf("Failed to index page: %v", err)), ProcessOutput{}, nil
	}

	output := ProcessOutput{
		Result:     string(result.Status),
		DocumentID: result.DocumentID,
		Chunks:     result.Chunks,
	}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal process output", zap.Error(err))
		return toolError(fmt.Sprintf("Failed to serialize result: %v", err)), ProcessOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
