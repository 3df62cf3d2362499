/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete stockchat configuration
type Config struct {
	// Database connection configuration
	Database DatabaseConfig `yaml:"database"`

	// LLM configuration (query and answer generation)
	LLM LLMConfig `yaml:"llm"`

	// Embedding configuration (example selection)
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Pipeline tuning
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Optional YAML file with few-shot examples overriding the built-in set
	CorpusFile string `yaml:"corpus_file"`
}

// DatabaseConfig holds inventory database connection settings
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`   // "mysql", "postgres", or "sqlite" (default: mysql)
	Host     string `yaml:"host"`     // Database host (default: localhost)
	Port     int    `yaml:"port"`     // Database port (default: 3306 for mysql, 5432 for postgres)
	Database string `yaml:"database"` // Database name, or file path for sqlite
	User     string `yaml:"user"`     // Database user (required for mysql/postgres)
	Password string `yaml:"password"` // Database password (optional, env var or interactive prompt if not set)

	// SampleRows is the number of sample rows included per table in the
	// schema summary shown to the model (default: 3)
	SampleRows int `yaml:"sample_rows"`
}

// LLMConfig holds completion model settings
type LLMConfig struct {
	Provider         string  `yaml:"provider"`            // "gemini" or "ollama"
	Model            string  `yaml:"model"`               // Provider-specific model name
	GeminiAPIKey     string  `yaml:"gemini_api_key"`      // API key for Gemini (direct - discouraged, use api_key_file or env var)
	GeminiAPIKeyFile string  `yaml:"gemini_api_key_file"` // Path to file containing Gemini API key
	OllamaURL        string  `yaml:"ollama_url"`          // URL for Ollama service (default: http://localhost:11434)
	Temperature      float64 `yaml:"temperature"`         // Sampling temperature (default: 0.1)
	MaxTokens        int     `yaml:"max_tokens"`          // Maximum tokens per completion (default: 1024)
}

// EmbeddingConfig holds embedding provider settings
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`            // "openai", "ollama", or "voyage"
	Model            string `yaml:"model"`               // Provider-specific model name
	OpenAIAPIKey     string `yaml:"openai_api_key"`      // API key for OpenAI (direct - discouraged, use api_key_file or env var)
	OpenAIAPIKeyFile string `yaml:"openai_api_key_file"` // Path to file containing OpenAI API key
	VoyageAPIKey     string `yaml:"voyage_api_key"`      // API key for Voyage AI
	VoyageAPIKeyFile string `yaml:"voyage_api_key_file"` // Path to file containing Voyage API key
	OllamaURL        string `yaml:"ollama_url"`          // URL for Ollama service (default: http://localhost:11434)
}

// PipelineConfig holds pipeline tuning parameters
type PipelineConfig struct {
	ExampleCount int    `yaml:"example_count"` // Few-shot examples retrieved per question (default: 2)
	ResultLimit  int    `yaml:"result_limit"`  // Row-limit hint passed to the model (default: 5)
	CallTimeout  string `yaml:"call_timeout"`  // Timeout for LLM and embedding calls (default: 30s)
	QueryTimeout string `yaml:"query_timeout"` // Timeout for SQL execution (default: 15s)
}

// CLIFlags represents command line flag values and whether they were
// explicitly set
type CLIFlags struct {
	ConfigFile    string
	ConfigFileSet bool

	DBDriver    string
	DBDriverSet bool
	DBHost      string
	DBHostSet   bool
	DBPort      int
	DBPortSet   bool
	DBName      string
	DBNameSet   bool
	DBUser      string
	DBUserSet   bool

	LLMProvider    string
	LLMProviderSet bool
	LLMModel       string
	LLMModelSet    bool

	EmbeddingProvider    string
	EmbeddingProviderSet bool
	EmbeddingModel       string
	EmbeddingModelSet    bool

	ExampleCount    int
	ExampleCountSet bool

	CorpusFile    string
	CorpusFileSet bool
}

// Load loads configuration with priority:
// 1. Command line flags (highest)
// 2. Environment variables
// 3. Configuration file
// 4. Hard-coded defaults (lowest)
func Load(configPath string, cliFlags CLIFlags) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		fileCfg, err := loadConfigFile(configPath)
		if err != nil {
			// Error out only when the file was explicitly requested;
			// a missing default config file is fine
			if cliFlags.ConfigFileSet {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		} else {
			mergeConfig(cfg, fileCfg)
		}
	}

	applyEnvironmentVariables(cfg)
	applyCLIFlags(cfg, cliFlags)
	resolveAPIKeys(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns configuration with hard-coded defaults
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:     "mysql",
			Host:       "localhost",
			Port:       0, // Resolved per driver in BuildDSN
			Database:   "inventory",
			User:       "",
			Password:   "",
			SampleRows: 3,
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-1.5-flash",
			OllamaURL:   "http://localhost:11434",
			Temperature: 0.1,
			MaxTokens:   1024,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			OllamaURL: "http://localhost:11434",
		},
		Pipeline: PipelineConfig{
			ExampleCount: 2,
			ResultLimit:  5,
			CallTimeout:  "30s",
			QueryTimeout: "15s",
		},
	}
}

// loadConfigFile loads configuration from a YAML file
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}

// mergeConfig merges source config into dest, only overriding non-zero values
func mergeConfig(dest, src *Config) {
	if src.Database.Driver != "" {
		dest.Database.Driver = src.Database.Driver
	}
	if src.Database.Host != "" {
		dest.Database.Host = src.Database.Host
	}
	if src.Database.Port > 0 {
		dest.Database.Port = src.Database.Port
	}
	if src.Database.Database != "" {
		dest.Database.Database = src.Database.Database
	}
	if src.Database.User != "" {
		dest.Database.User = src.Database.User
	}
	if src.Database.Password != "" {
		dest.Database.Password = src.Database.Password
	}
	if src.Database.SampleRows > 0 {
		dest.Database.SampleRows = src.Database.SampleRows
	}

	if src.LLM.Provider != "" {
		dest.LLM.Provider = src.LLM.Provider
	}
	if src.LLM.Model != "" {
		dest.LLM.Model = src.LLM.Model
	}
	if src.LLM.GeminiAPIKey != "" {
		dest.LLM.GeminiAPIKey = src.LLM.GeminiAPIKey
	}
	if src.LLM.GeminiAPIKeyFile != "" {
		dest.LLM.GeminiAPIKeyFile = src.LLM.GeminiAPIKeyFile
	}
	if src.LLM.OllamaURL != "" {
		dest.LLM.OllamaURL = src.LLM.OllamaURL
	}
	if src.LLM.Temperature > 0 {
		dest.LLM.Temperature = src.LLM.Temperature
	}
	if src.LLM.MaxTokens > 0 {
		dest.LLM.MaxTokens = src.LLM.MaxTokens
	}

	if src.Embedding.Provider != "" {
		dest.Embedding.Provider = src.Embedding.Provider
	}
	if src.Embedding.Model != "" {
		dest.Embedding.Model = src.Embedding.Model
	}
	if src.Embedding.OpenAIAPIKey != "" {
		dest.Embedding.OpenAIAPIKey = src.Embedding.OpenAIAPIKey
	}
	if src.Embedding.OpenAIAPIKeyFile != "" {
		dest.Embedding.OpenAIAPIKeyFile = src.Embedding.OpenAIAPIKeyFile
	}
	if src.Embedding.VoyageAPIKey != "" {
		dest.Embedding.VoyageAPIKey = src.Embedding.VoyageAPIKey
	}
	if src.Embedding.VoyageAPIKeyFile != "" {
		dest.Embedding.VoyageAPIKeyFile = src.Embedding.VoyageAPIKeyFile
	}
	if src.Embedding.OllamaURL != "" {
		dest.Embedding.OllamaURL = src.Embedding.OllamaURL
	}

	if src.Pipeline.ExampleCount > 0 {
		dest.Pipeline.ExampleCount = src.Pipeline.ExampleCount
	}
	if src.Pipeline.ResultLimit > 0 {
		dest.Pipeline.ResultLimit = src.Pipeline.ResultLimit
	}
	if src.Pipeline.CallTimeout != "" {
		dest.Pipeline.CallTimeout = src.Pipeline.CallTimeout
	}
	if src.Pipeline.QueryTimeout != "" {
		dest.Pipeline.QueryTimeout = src.Pipeline.QueryTimeout
	}

	if src.CorpusFile != "" {
		dest.CorpusFile = src.CorpusFile
	}
}

func setStringFromEnv(dest *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dest = val
	}
}

func setIntFromEnv(dest *int, key string) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dest = i
		}
	}
}

func setFloatFromEnv(dest *float64, key string) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dest = f
		}
	}
}

// applyEnvironmentVariables overrides config with environment variables if
// they exist
func applyEnvironmentVariables(cfg *Config) {
	setStringFromEnv(&cfg.Database.Driver, "STOCKCHAT_DB_DRIVER")
	setStringFromEnv(&cfg.Database.Host, "STOCKCHAT_DB_HOST")
	setIntFromEnv(&cfg.Database.Port, "STOCKCHAT_DB_PORT")
	setStringFromEnv(&cfg.Database.Database, "STOCKCHAT_DB_NAME")
	setStringFromEnv(&cfg.Database.User, "STOCKCHAT_DB_USER")
	setStringFromEnv(&cfg.Database.Password, "STOCKCHAT_DB_PASSWORD")

	setStringFromEnv(&cfg.LLM.Provider, "STOCKCHAT_LLM_PROVIDER")
	setStringFromEnv(&cfg.LLM.Model, "STOCKCHAT_LLM_MODEL")
	setStringFromEnv(&cfg.LLM.GeminiAPIKey, "GOOGLE_API_KEY")
	setStringFromEnv(&cfg.LLM.OllamaURL, "STOCKCHAT_OLLAMA_URL")
	setFloatFromEnv(&cfg.LLM.Temperature, "STOCKCHAT_LLM_TEMPERATURE")

	setStringFromEnv(&cfg.Embedding.Provider, "STOCKCHAT_EMBEDDING_PROVIDER")
	setStringFromEnv(&cfg.Embedding.Model, "STOCKCHAT_EMBEDDING_MODEL")
	setStringFromEnv(&cfg.Embedding.OpenAIAPIKey, "OPENAI_API_KEY")
	setStringFromEnv(&cfg.Embedding.VoyageAPIKey, "VOYAGE_API_KEY")
	setStringFromEnv(&cfg.Embedding.OllamaURL, "STOCKCHAT_EMBEDDING_OLLAMA_URL")

	setIntFromEnv(&cfg.Pipeline.ExampleCount, "STOCKCHAT_EXAMPLE_COUNT")
	setIntFromEnv(&cfg.Pipeline.ResultLimit, "STOCKCHAT_RESULT_LIMIT")
	setStringFromEnv(&cfg.CorpusFile, "STOCKCHAT_CORPUS_FILE")
}

// applyCLIFlags overrides config with explicitly set command line flags
func applyCLIFlags(cfg *Config, flags CLIFlags) {
	if flags.DBDriverSet {
		cfg.Database.Driver = flags.DBDriver
	}
	if flags.DBHostSet {
		cfg.Database.Host = flags.DBHost
	}
	if flags.DBPortSet {
		cfg.Database.Port = flags.DBPort
	}
	if flags.DBNameSet {
		cfg.Database.Database = flags.DBName
	}
	if flags.DBUserSet {
		cfg.Database.User = flags.DBUser
	}
	if flags.LLMProviderSet {
		cfg.LLM.Provider = flags.LLMProvider
	}
	if flags.LLMModelSet {
		cfg.LLM.Model = flags.LLMModel
	}
	if flags.EmbeddingProviderSet {
		cfg.Embedding.Provider = flags.EmbeddingProvider
	}
	if flags.EmbeddingModelSet {
		cfg.Embedding.Model = flags.EmbeddingModel
	}
	if flags.ExampleCountSet {
		cfg.Pipeline.ExampleCount = flags.ExampleCount
	}
	if flags.CorpusFileSet {
		cfg.CorpusFile = flags.CorpusFile
	}
}

// resolveAPIKeys fills in API keys from key files where a direct key is
// absent. File read failures are ignored here; the affected provider will
// fail with a clear error at construction time.
func resolveAPIKeys(cfg *Config) {
	if cfg.LLM.GeminiAPIKey == "" && cfg.LLM.GeminiAPIKeyFile != "" {
		if key, err := readAPIKeyFromFile(cfg.LLM.GeminiAPIKeyFile); err == nil && key != "" {
			cfg.LLM.GeminiAPIKey = key
		}
	}
	if cfg.Embedding.OpenAIAPIKey == "" && cfg.Embedding.OpenAIAPIKeyFile != "" {
		if key, err := readAPIKeyFromFile(cfg.Embedding.OpenAIAPIKeyFile); err == nil && key != "" {
			cfg.Embedding.OpenAIAPIKey = key
		}
	}
	if cfg.Embedding.VoyageAPIKey == "" && cfg.Embedding.VoyageAPIKeyFile != "" {
		if key, err := readAPIKeyFromFile(cfg.Embedding.VoyageAPIKeyFile); err == nil && key != "" {
			cfg.Embedding.VoyageAPIKey = key
		}
	}
}

// readAPIKeyFromFile reads an API key from a file, trimming whitespace
func readAPIKeyFromFile(filePath string) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("cannot access key file: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return "", fmt.Errorf("key file %s must not be readable by group or others (run: chmod 600 %s)", filePath, filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("cannot read key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// validateConfig checks the final merged configuration
func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres, sqlite)", cfg.Database.Driver)
	}

	if cfg.Database.Driver != "sqlite" && cfg.Database.User == "" {
		return fmt.Errorf("database user is required for driver %s", cfg.Database.Driver)
	}
	if cfg.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	switch cfg.LLM.Provider {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("unsupported LLM provider: %s (supported: gemini, ollama)", cfg.LLM.Provider)
	}

	switch cfg.Embedding.Provider {
	case "openai", "ollama", "voyage":
	default:
		return fmt.Errorf("unsupported embedding provider: %s (supported: openai, ollama, voyage)", cfg.Embedding.Provider)
	}

	if cfg.Pipeline.ExampleCount < 1 {
		return fmt.Errorf("example_count must be at least 1, got %d", cfg.Pipeline.ExampleCount)
	}
	if cfg.Pipeline.ResultLimit < 1 {
		return fmt.Errorf("result_limit must be at least 1, got %d", cfg.Pipeline.ResultLimit)
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be between 0 and 2, got %g", cfg.LLM.Temperature)
	}

	if _, err := cfg.Pipeline.CallTimeoutDuration(); err != nil {
		return fmt.Errorf("invalid call_timeout: %w", err)
	}
	if _, err := cfg.Pipeline.QueryTimeoutDuration(); err != nil {
		return fmt.Errorf("invalid query_timeout: %w", err)
	}

	return nil
}

// CallTimeoutDuration parses the configured LLM/embedding call timeout
func (p *PipelineConfig) CallTimeoutDuration() (time.Duration, error) {
	if p.CallTimeout == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(p.CallTimeout)
}

// QueryTimeoutDuration parses the configured SQL execution timeout
func (p *PipelineConfig) QueryTimeoutDuration() (time.Duration, error) {
	if p.QueryTimeout == "" {
		return 15 * time.Second, nil
	}
	return time.ParseDuration(p.QueryTimeout)
}

// BuildDSN builds the driver-specific data source name
func (d *DatabaseConfig) BuildDSN() string {
	switch d.Driver {
	case "postgres":
		port := d.Port
		if port == 0 {
			port = 5432
		}
		u := url.URL{
			Scheme: "postgres",
			Host:   fmt.Sprintf("%s:%d", d.Host, port),
			Path:   "/" + d.Database,
		}
		if d.User != "" {
			if d.Password != "" {
				u.User = url.UserPassword(d.User, d.Password)
			} else {
				u.User = url.User(d.User)
			}
		}
		return u.String()
	case "sqlite":
		return d.Database
	default: // mysql
		port := d.Port
		if port == 0 {
			port = 3306
		}
		cred := d.User
		if d.Password != "" {
			cred += ":" + d.Password
		}
		return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", cred, d.Host, port, d.Database)
	}
}
