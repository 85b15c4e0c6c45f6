package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/embeddings"
	"github.com/recallhq/recall/pkg/ingest"
	"github.com/recallhq/recall/pkg/query"
	"github.com/recallhq/recall/pkg/utils"
)

// NoHighlight is the sentinel offset meaning no highlight is available.
// Consumers must treat it as "show the page unhighlighted".
const NoHighlight = -1

// ProcessRequest is the tagged union body of POST /process. A request with a
// url is an ingestion, a request with a query is a search.
type ProcessRequest struct {
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`

	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// IngestResponse is the body returned for an ingestion request.
type IngestResponse struct {
	Status     string `json:"status"`
	Result     string `json:"result,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	Chunks     int    `json:"chunks,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SearchResponse is the body returned for a search request.
type SearchResponse struct {
	Success       bool           `json:"success"`
	Answer        string         `json:"answer,omitempty"`
	SearchResults *SearchResults `json:"search_results,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// SearchResults wraps the ordered result list.
type SearchResults struct {
	Results []SearchResult `json:"results"`
}

// SearchResult is one retrieved passage. HighlightStart and HighlightEnd are
// offsets into Content, or NoHighlight when no span could be reconciled.
type SearchResult struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Content        string  `json:"content"`
	Score          float32 `json:"score"`
	HighlightStart int     `json:"highlight_start"`
	HighlightEnd   int     `json:"highlight_end"`
}

// handleRoot identifies the service.
func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"name":    "recall",
		"version": utils.Version,
	})
}

// handleConnect is the extension's handshake check.
func (s *Server) handleConnect(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "connected",
		"version": utils.Version,
	})
}

// handleProcess dispatches on the request shape: ingestion when a url is
// present, search when a query is present, 400 otherwise.
func (s *Server) handleProcess(c *fiber.Ctx) error {
	var req ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(IngestResponse{Status: "error", Error: "invalid JSON body"})
	}

	switch {
	case req.URL != "":
		return s.handleIngest(c, req)
	case req.Query != "":
		return s.handleSearch(c, req)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(IngestResponse{Status: "error", Error: "request must contain a url or a query"})
	}
}

func (s *Server) handleIngest(c *fiber.Ctx, req ProcessRequest) error {
	result, err := s.corpus.Ingest(c.Context(), ingest.Page{
		URL:     req.URL,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrInvalidContent):
			return c.Status(fiber.StatusBadRequest).JSON(IngestResponse{Status: "error", Error: "page content is empty"})
		case errors.Is(err, embeddings.ErrProviderUnavailable):
			return c.Status(fiber.StatusBadGateway).JSON(IngestResponse{Status: "error", Error: "embedding provider unavailable"})
		default:
			s.logger.Error("ingest failed", zap.String("url", req.URL), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(IngestResponse{Status: "error", Error: "internal error"})
		}
	}

	return c.JSON(IngestResponse{
		Status:     "success",
		Result:     string(result.Status),
		DocumentID: result.DocumentID,
		Chunks:     result.Chunks,
	})
}

func (s *Server) handleSearch(c *fiber.Ctx, req ProcessRequest) error {
	if req.Limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(SearchResponse{Success: false, Error: "limit must be non-negative"})
	}

	resp, err := s.corpus.Search(c.Context(), req.Query, req.Limit)
	if err != nil {
		if errors.Is(err, embeddings.ErrProviderUnavailable) {
			return c.Status(fiber.StatusBadGateway).JSON(SearchResponse{Success: false, Error: "embedding provider unavailable"})
		}
		s.logger.Error("search failed", zap.String("query", utils.Truncate(req.Query, 80)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(SearchResponse{Success: false, Error: "internal error"})
	}

	results := make([]SearchResult, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, ToSearchResult(hit))
	}

	return c.JSON(SearchResponse{
		Success:       true,
		Answer:        resp.Answer,
		SearchResults: &SearchResults{Results: results},
	})
}

// ToSearchResult converts a hit's document-relative highlight span into
// offsets over the passage text, with the NoHighlight sentinel when the span
// is absent or falls outside the passage. The MCP tools reuse it so both
// surfaces speak the same result shape.
func ToSearchResult(hit query.Hit) SearchResult {
	result := SearchResult{
		Title:          hit.Title,
		URL:            hit.URL,
		Content:        hit.Text,
		Score:          hit.Score,
		HighlightStart: NoHighlight,
		HighlightEnd:   NoHighlight,
	}

	if hit.Highlight == nil {
		return result
	}
	start := hit.Highlight.Start - hit.Start
	end := hit.Highlight.End - hit.Start
	if start < 0 || end > len(hit.Text) || start >= end {
		return result
	}

	result.HighlightStart = start
	result.HighlightEnd = end
	return result
}

// handleStats reports corpus size and freshness.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.corpus.Stats(c.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(IngestResponse{Status: "error", Error: "internal error"})
	}
	return c.JSON(stats)
}
