package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Index     IndexConfig     `yaml:"index"`
	Embedder  ProviderConfig  `yaml:"embedder"`
	LLM       ProviderConfig  `yaml:"llm"`
	Sessions  SessionsConfig  `yaml:"sessions"`
}

type ServerConfig struct {
	Port           string `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

type IngestConfig struct {
	PDFBackend       string `yaml:"pdf_backend"` // ledongthuc or unipdf
	UnidocLicenseKey string `yaml:"unidoc_license_key"`
}

// ChunkingConfig controls how extracted text is split before embedding.
// Sizes are in characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type RetrievalConfig struct {
	TopK                int `yaml:"top_k"`
	EmbedConcurrency    int `yaml:"embed_concurrency"`
	MaxConcurrentBuilds int `yaml:"max_concurrent_builds"`
}

type IndexConfig struct {
	Backend   string `yaml:"backend"` // memory or chroma
	ChromaURL string `yaml:"chroma_url"`
}

// ProviderConfig selects a model backend for embedding or generation.
type ProviderConfig struct {
	Provider string `yaml:"provider"` // gemini, ollama or openai
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
}

// SessionsConfig bounds the session registry. Zero values mean unbounded.
type SessionsConfig struct {
	MaxSessions int           `yaml:"max_sessions"`
	TTL         time.Duration `yaml:"ttl"`
}

const (
	defaultPort           = "8000"
	defaultMaxUploadBytes = 32 << 20
	defaultChunkSize      = 1000
	defaultChunkOverlap   = 200
	defaultTopK           = 4
	defaultOllamaURL      = "http://localhost:11434"
	defaultChromaURL      = "http://localhost:8001"
)

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyDefaults(cfg)
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Ingest.PDFBackend == "" {
		cfg.Ingest.PDFBackend = "ledongthuc"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = defaultChunkSize
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = defaultTopK
	}
	if cfg.Retrieval.EmbedConcurrency == 0 {
		cfg.Retrieval.EmbedConcurrency = 4
	}
	if cfg.Retrieval.MaxConcurrentBuilds == 0 {
		cfg.Retrieval.MaxConcurrentBuilds = 8
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "memory"
	}
	if cfg.Index.Backend == "chroma" && cfg.Index.ChromaURL == "" {
		cfg.Index.ChromaURL = defaultChromaURL
	}

	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = "ollama"
	}
	if cfg.Embedder.Model == "" {
		switch cfg.Embedder.Provider {
		case "gemini":
			cfg.Embedder.Model = "text-embedding-004"
		case "openai":
			cfg.Embedder.Model = "text-embedding-3-small"
		default:
			cfg.Embedder.Model = "nomic-embed-text:v1.5"
		}
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.Model = "gpt-4o-mini"
		case "ollama":
			cfg.LLM.Model = "llama3.2"
		default:
			cfg.LLM.Model = "gemini-2.5-flash"
		}
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Server.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("UNIDOC_LICENSE_KEY"); v != "" {
		cfg.Ingest.UnidocLicenseKey = v
	}
	if v := os.Getenv("CHROMA_URL"); v != "" {
		cfg.Index.ChromaURL = v
	}
	for _, p := range []*ProviderConfig{&cfg.Embedder, &cfg.LLM} {
		if p.APIKey != "" {
			continue
		}
		switch p.Provider {
		case "gemini":
			p.APIKey = os.Getenv("GEMINI_API_KEY")
		case "openai":
			p.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	for _, p := range []*ProviderConfig{&cfg.Embedder, &cfg.LLM} {
		if p.Provider == "ollama" && p.BaseURL == "" {
			p.BaseURL = os.Getenv("OLLAMA_URL")
			if p.BaseURL == "" {
				p.BaseURL = defaultOllamaURL
			}
		}
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 || c.Chunking.ChunkOverlap <= 0 {
		return fmt.Errorf("chunking: chunk_size and chunk_overlap must be positive")
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval: top_k must be positive")
	}
	if c.Retrieval.EmbedConcurrency <= 0 || c.Retrieval.MaxConcurrentBuilds <= 0 {
		return fmt.Errorf("retrieval: concurrency limits must be positive")
	}
	if c.Sessions.MaxSessions < 0 || c.Sessions.TTL < 0 {
		return fmt.Errorf("sessions: max_sessions and ttl must not be negative")
	}
	switch c.Ingest.PDFBackend {
	case "ledongthuc", "unipdf":
	default:
		return fmt.Errorf("ingest: unknown pdf_backend %q", c.Ingest.PDFBackend)
	}
	switch c.Index.Backend {
	case "memory", "chroma":
	default:
		return fmt.Errorf("index: unknown backend %q", c.Index.Backend)
	}
	for name, p := range map[string]ProviderConfig{"embedder": c.Embedder, "llm": c.LLM} {
		switch p.Provider {
		case "gemini", "ollama", "openai":
		default:
			return fmt.Errorf("%s: unknown provider %q", name, p.Provider)
		}
	}
	return nil
}
