package api

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/corpus"
)

// Server is the HTTP API server the extension connects to.
type Server struct {
	config Config
	corpus *corpus.Service
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server over the given corpus service.
func NewServer(config Config, svc *corpus.Service, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		corpus: svc,
		logger: logger,
		app:    app,
	}

	app.Get("/", s.handleRoot)
	app.Get("/connect", s.handleConnect)
	app.Post("/process", s.handleProcess)
	app.Get("/stats", s.handleStats)

	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP))
	}

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
