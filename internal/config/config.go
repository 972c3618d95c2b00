package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dochelper/ragcore/internal/domain"
)

// Config holds the ragcore API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Memory    MemoryConfig    `yaml:"memory"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig holds the optional Redis/Valkey connection. Driver "none"
// disables the store; the embedding cache is skipped and conversation memory
// must use the process driver.
type StoreConfig struct {
	Driver           string   `yaml:"driver"` // none, redis (default: none)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // openai, ollama (default: openai)
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	Cache               bool   `yaml:"cache"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// ChatConfig holds the chat completion provider settings.
type ChatConfig struct {
	Provider          string   `yaml:"provider"` // openai, ollama (default: openai)
	APIKey            string   `yaml:"api_key"`
	BaseURL           string   `yaml:"base_url"`
	Model             string   `yaml:"model"`
	Temperature       *float32 `yaml:"temperature"`
	SystemInstruction string   `yaml:"system_instruction"`
	MetadataKeys      []string `yaml:"metadata_keys"`
}

// IngestConfig holds chunking and document intake settings.
type IngestConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	WatchDir     string `yaml:"watch_dir"` // empty disables the file watcher
}

// RetrievalConfig holds similarity search settings.
type RetrievalConfig struct {
	TopK     int      `yaml:"top_k"`
	MinScore *float64 `yaml:"min_score"`
}

// MemoryConfig holds conversation memory settings.
type MemoryConfig struct {
	Driver           string `yaml:"driver"` // process, redis (default: process)
	WindowSize       int    `yaml:"window_size"`
	MaxConversations int    `yaml:"max_conversations"` // process driver only, 0 = unbounded
	TTLSec           int    `yaml:"ttl_sec"`           // redis driver only, 0 = no expiry
}

// DefaultSystemInstruction is used when chat.system_instruction is empty.
const DefaultSystemInstruction = "You are a helpful documentation assistant. " +
	"Answer the following question based on the provided context. " +
	"If you don't have enough information, say so clearly."

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Completion calls are slow; leave generous room before cutting the response off.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "none"
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Chat.Provider == "" {
		c.Chat.Provider = "openai"
	}
	if c.Chat.Temperature == nil {
		t := float32(domain.DefaultTemperature)
		c.Chat.Temperature = &t
	}
	if c.Chat.SystemInstruction == "" {
		c.Chat.SystemInstruction = DefaultSystemInstruction
	}
	if len(c.Chat.MetadataKeys) == 0 {
		c.Chat.MetadataKeys = []string{"fileName", "index"}
	}
	if c.Ingest.ChunkSize <= 0 {
		c.Ingest.ChunkSize = 500
	}
	if c.Ingest.ChunkOverlap <= 0 {
		c.Ingest.ChunkOverlap = 50
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = domain.DefaultTopK
	}
	if c.Retrieval.MinScore == nil {
		s := domain.DefaultMinScore
		c.Retrieval.MinScore = &s
	}
	if c.Memory.Driver == "" {
		c.Memory.Driver = "process"
	}
	if c.Memory.WindowSize <= 0 {
		c.Memory.WindowSize = domain.DefaultWindowSize
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case "none":
	case "redis":
		if len(c.Store.Addrs) == 0 {
			return fmt.Errorf("store.addrs is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver must be \"none\" or \"redis\", got %q", c.Store.Driver)
	}
	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"ollama\", got %q", c.Embedding.Provider)
	}
	switch c.Chat.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("chat.provider must be \"openai\" or \"ollama\", got %q", c.Chat.Provider)
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap %d must be smaller than ingest.chunk_size %d",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if s := *c.Retrieval.MinScore; s < 0 || s > 1 {
		return fmt.Errorf("retrieval.min_score must be within [0, 1], got %v", s)
	}
	switch c.Memory.Driver {
	case "process":
	case "redis":
		if c.Store.Driver == "none" {
			return fmt.Errorf("memory.driver \"redis\" requires store.driver \"redis\"")
		}
	default:
		return fmt.Errorf("memory.driver must be \"process\" or \"redis\", got %q", c.Memory.Driver)
	}
	if c.Embedding.Cache && c.Store.Driver == "none" {
		return fmt.Errorf("embedding.cache requires store.driver \"redis\"")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
