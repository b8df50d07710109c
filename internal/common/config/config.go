// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig              `mapstructure:"app"`
	Server    ServerConfig           `mapstructure:"server"`
	Database  DatabaseConfig         `mapstructure:"database"`
	Weaviate  WeaviateConfig         `mapstructure:"weaviate"`
	LLM       LLMConfig              `mapstructure:"llm"`
	WebSearch WebSearchConfig        `mapstructure:"web_search"`
	Retrieval RetrievalConfig        `mapstructure:"retrieval"`
	Pipeline  PipelineConfig         `mapstructure:"pipeline"`
	Stages    map[string]StageConfig `mapstructure:"stages"`
	Session   SessionConfig          `mapstructure:"session"`
	Audit     AuditConfig            `mapstructure:"audit"`
	Tracing   TracingConfig          `mapstructure:"tracing"`
	Logging   LoggingConfig          `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// GetAddresses returns Addresses, falling back to URL.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WeaviateConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// --- Collaborator Configuration ---

// LLMConfig selects and configures the inference backend.
type LLMConfig struct {
	Backend    string `mapstructure:"backend"` // watsonx | openai | gemini
	BaseURL    string `mapstructure:"base_url"`
	IAMURL     string `mapstructure:"iam_url"`
	APIKey     string `mapstructure:"api_key"`
	ProjectID  string `mapstructure:"project_id"`
	ModelID    string `mapstructure:"model_id"`
	APIVersion string `mapstructure:"api_version"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`

	OpenAI struct {
		APIKey  string `mapstructure:"api_key"`
		Model   string `mapstructure:"model"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"openai"`

	Gemini struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"gemini"`
}

type WebSearchConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	Country           string  `mapstructure:"country"`
	NumResults        int     `mapstructure:"num_results"`
	Timeout           int     `mapstructure:"timeout"` // milliseconds
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type RetrievalConfig struct {
	Backend        string `mapstructure:"backend"` // elasticsearch | weaviate | none
	ClimateIndex   string `mapstructure:"climate_index"`
	BusinessIndex  string `mapstructure:"business_index"`
	WeaviateSearch string `mapstructure:"weaviate_search"` // bm25 | near_text
}

// PipelineConfig holds the orchestration knobs.
type PipelineConfig struct {
	DefaultLocation  string              `mapstructure:"default_location"`
	ClarifyThreshold float64             `mapstructure:"clarify_threshold"`
	HistoryWindow    int                 `mapstructure:"history_window"` // exchanges; negative = unbounded
	LocationStrategy string              `mapstructure:"location_strategy"`
	ResponseFormat   string              `mapstructure:"response_format"` // plain | tagged
	FanoutWorkers    int                 `mapstructure:"fanout_workers"`
	CallTimeout      int                 `mapstructure:"call_timeout"` // milliseconds
	SearchCategories map[string][]string `mapstructure:"search_categories"`
}

// StageConfig holds the generation settings applicable to every stage.
type StageConfig struct {
	MaxTokens      int      `mapstructure:"max_tokens"`
	Temperature    float64  `mapstructure:"temperature"`
	DecodingMethod string   `mapstructure:"decoding_method"`
	StopSequences  []string `mapstructure:"stop_sequences"`
}

type SessionConfig struct {
	Store string `mapstructure:"store"` // memory | redis
	TTL   int    `mapstructure:"ttl"`   // milliseconds
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
