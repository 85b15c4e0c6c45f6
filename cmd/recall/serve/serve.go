// Package servecmder provides the serve command that runs the recall HTTP
// API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/recallhq/recall/api"
	"github.com/recallhq/recall/api/mcp"
	"github.com/recallhq/recall/pkg/config"
	"github.com/recallhq/recall/pkg/corpus"
	"github.com/recallhq/recall/pkg/dotdir"
	"github.com/recallhq/recall/pkg/embeddings"
	embeddingutils "github.com/recallhq/recall/pkg/embeddings/utils"
	"github.com/recallhq/recall/pkg/ingest"
	"github.com/recallhq/recall/pkg/llm"
	llmutils "github.com/recallhq/recall/pkg/llm/utils"
	"github.com/recallhq/recall/pkg/logger"
	"github.com/recallhq/recall/pkg/private"
	"github.com/recallhq/recall/pkg/query"
	"github.com/recallhq/recall/pkg/store"
	storesqlite "github.com/recallhq/recall/pkg/store/sqlite"
	"github.com/recallhq/recall/pkg/vector"
	vecmemory "github.com/recallhq/recall/pkg/vector/inmemory"
	"github.com/recallhq/recall/pkg/vector/sqlitevec"
)

// serveFlags is the flag registry for the serve command.
var serveFlags = config.FlagSet{
	config.FlagListen: {
		Name: "listen", Shorthand: "l",
		ViperKey:    "server.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagSQLite: {
		Name: "sqlite", Shorthand: "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to the document SQLite database (default: <.recall>/recall.db)",
	},
	config.FlagVectorProv: {
		Name:        "vector-provider",
		ViperKey:    "vector.provider",
		Description: "Vector index provider (sqlite, memory)",
	},
	config.FlagVectorTgt: {
		Name:        "vector-target",
		ViperKey:    "vector.target",
		Description: "Path to the vector SQLite database (default: <.recall>/vectors.db)",
	},
	config.FlagEmbeddingProv: {
		Name:        "embedding-provider",
		ViperKey:    "embedding.provider",
		Description: "Embedding provider (ollama, openai)",
	},
	config.FlagEmbeddingTgt: {
		Name:        "embedding-target",
		ViperKey:    "embedding.target",
		Description: "Embedding provider base URL",
	},
	config.FlagEmbeddingModel: {
		Name:        "embedding-model",
		ViperKey:    "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagEmbeddingDims: {
		Name:        "embedding-dimensions",
		ViperKey:    "embedding.dimensions",
		Description: "Embedding vector dimensions",
	},
	config.FlagLLMProv: {
		Name:        "llm-provider",
		ViperKey:    "llm.provider",
		Description: "Answer synthesis provider (ollama, openai, none)",
	},
	config.FlagLLMTgt: {
		Name:        "llm-target",
		ViperKey:    "llm.target",
		Description: "Answer synthesis provider base URL",
	},
	config.FlagLLMModel: {
		Name:        "llm-model",
		ViperKey:    "llm.model",
		Description: "Answer synthesis model name",
	},
}

var boundFlags = []string{
	config.FlagListen,
	config.FlagSQLite,
	config.FlagVectorProv,
	config.FlagVectorTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMProv,
	config.FlagLLMTgt,
	config.FlagLLMModel,
}

type ServeCommander struct {
	listen         string
	sqlitePath     string
	vectorProvider string
	vectorTarget   string
	embedProvider  string
	embedTarget    string
	embedModel     string
	embedDims      uint
	llmProvider    string
	llmTarget      string
	llmModel       string

	debug     bool
	configDir string
	viper     *viper.Viper
	logger    *zap.Logger
}

const serveLongDesc string = `Run the recall HTTP API server.

The server accepts page captures and search queries from the browser
extension on /process, exposes a handshake on /connect, and reports index
statistics on /stats.

Configuration precedence: flags > RECALL_* environment variables >
config.toml in the .recall/ directory > built-in defaults.`

const serveShortDesc string = "Run the recall API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, serveFlags, boundFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.fromViper()
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &cmder.embedProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &cmder.embedDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMProv, &cmder.llmProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMTgt, &cmder.llmTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMModel, &cmder.llmModel)

	return cmd
}

// fromViper resolves the final setting values through the viper precedence
// chain (flag > env > config file > default).
func (c *ServeCommander) fromViper() {
	v := c.viper

	c.listen = v.GetString("server.listen")
	c.sqlitePath = v.GetString("storage.sqlite_path")
	c.vectorProvider = v.GetString("vector.provider")
	c.vectorTarget = v.GetString("vector.target")
	c.embedProvider = v.GetString("embedding.provider")
	c.embedTarget = v.GetString("embedding.target")
	c.embedModel = v.GetString("embedding.model")
	c.embedDims = v.GetUint("embedding.dimensions")
	c.llmProvider = v.GetString("llm.provider")
	c.llmTarget = v.GetString("llm.target")
	c.llmModel = v.GetString("llm.model")
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if err := c.resolvePaths(); err != nil {
		return err
	}

	// Document store
	st, err := storesqlite.NewStore(c.sqlitePath, c.logger)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}

	// Vector index
	idx, err := c.newVectorIndex()
	if err != nil {
		st.Close()
		return err
	}

	// Embedding provider, wrapped with retry on transient failures
	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.embedProvider,
		TargetURL:    c.embedTarget,
		Model:        c.embedModel,
		APIKey:       os.Getenv("RECALL_EMBEDDING_API_KEY"),
	})
	if err != nil {
		idx.Close()
		st.Close()
		return fmt.Errorf("creating embedder: %w", err)
	}
	retrying := embeddings.WithRetry(embedder)
	defer embedder.Close()

	// Optional answer synthesis
	synth, err := llmutils.NewSynthesizer(&llmutils.NewSynthesizerOpts{
		ProviderType: c.llmProvider,
		TargetURL:    c.llmTarget,
		Model:        c.llmModel,
		APIKey:       os.Getenv("RECALL_LLM_API_KEY"),
	})
	if err != nil {
		idx.Close()
		st.Close()
		return fmt.Errorf("creating synthesizer: %w", err)
	}
	if synth != nil {
		defer synth.Close()
	}

	svc := c.newCorpus(st, idx, retrying, synth)
	defer svc.Close()

	if err := svc.Reconcile(context.Background()); err != nil {
		return fmt.Errorf("reconciling index with store: %w", err)
	}

	mcpServer, err := mcp.NewServer(mcp.Config{Corpus: svc, Logger: c.logger})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server := api.NewServer(api.Config{
		ListenAddr: c.listen,
		MCP:        mcpServer.Handler(),
	}, svc, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

// resolvePaths fills in database locations relative to the .recall/ directory
// when they were not configured explicitly.
func (c *ServeCommander) resolvePaths() error {
	if c.sqlitePath != "" && (c.vectorTarget != "" || c.vectorProvider == "memory") {
		return nil
	}

	target, err := dotdir.NewManager().Target(c.configDir)
	if err != nil {
		return fmt.Errorf("resolving .recall directory: %w", err)
	}

	if c.sqlitePath == "" {
		c.sqlitePath = filepath.Join(target, config.DefaultSQLiteFile)
	}
	if c.vectorTarget == "" {
		c.vectorTarget = filepath.Join(target, config.DefaultVectorFile)
	}
	return nil
}

func (c *ServeCommander) newVectorIndex() (vector.Index, error) {
	switch c.vectorProvider {
	case "memory":
		return vecmemory.NewIndex(int(c.embedDims), c.logger), nil
	case "sqlite", "":
		idx, err := sqlitevec.NewIndex(sqlitevec.Config{
			DBPath:     c.vectorTarget,
			Dimensions: c.embedDims,
		}, c.logger)
		if err != nil {
			return nil, fmt.Errorf("creating vector index: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported vector provider: %s", c.vectorProvider)
	}
}

func (c *ServeCommander) newCorpus(st store.Store, idx vector.Index, embedder embeddings.Embedder, synth llm.Synthesizer) *corpus.Service {
	v := c.viper

	pipeline := ingest.NewPipeline(st, idx, embedder, c.logger,
		ingest.WithChunkWords(v.GetInt("chunk.words")),
	)

	engineOpts := []query.Option{
		query.WithLimit(v.GetInt("search.limit")),
		query.WithRecency(
			v.GetFloat64("search.recency_weight"),
			time.Duration(v.GetInt("search.recency_half_life_hours"))*time.Hour,
		),
	}
	if synth != nil {
		engineOpts = append(engineOpts, query.WithSynthesizer(synth))
	}
	engine := query.NewEngine(st, idx, embedder, c.logger, engineOpts...)

	filter := private.NewFilter(v.GetStringSlice("privacy.extra_domains")...)

	return corpus.NewService(st, idx, pipeline, engine, filter, int(c.embedDims), c.logger)
}
