package config

import "time"

const (
	defaultServerListen = ":8123"
	defaultClientTarget = "http://localhost:8123"

	// DefaultSQLiteFile and DefaultVectorFile are the database file names
	// used inside the .recall/ directory when no explicit path is set.
	DefaultSQLiteFile = "recall.db"
	DefaultVectorFile = "vectors.db"

	defaultVectorProvider = "sqlite"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultLLMProvider = "none"

	defaultSearchLimit      = 10
	defaultRecencyWeight    = 0.1
	defaultRecencyHalfLifeH = 7 * 24

	defaultChunkWords = 300
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. Storage paths stay
// empty here; the serve command resolves them relative to the .recall/ dir.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultServerListen,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
		Vector: VectorConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
		},
		Search: SearchConfig{
			Limit:            defaultSearchLimit,
			RecencyWeight:    defaultRecencyWeight,
			RecencyHalfLifeH: defaultRecencyHalfLifeH,
		},
		Chunk: ChunkConfig{
			Words: defaultChunkWords,
		},
	}
}

// RecencyHalfLife converts the configured half-life to a duration.
func (c *Config) RecencyHalfLife() time.Duration {
	return time.Duration(c.Search.RecencyHalfLifeH) * time.Hour
}
