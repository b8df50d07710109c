// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Stage names used as keys of Config.Stages.
const (
	StageClassifyIntent   = "classify-intent"
	StageResolveLocation  = "resolve-location"
	StageClimateAnalysis  = "climate-analysis"
	StageBusinessRisk     = "business-risk"
	StageSynthesizeReport = "synthesize-report"
)

// defaultStages holds the per-stage generation budgets.
var defaultStages = map[string]StageConfig{
	StageClassifyIntent:   {MaxTokens: 10, Temperature: 0, DecodingMethod: "greedy", StopSequences: []string{"\n"}},
	StageResolveLocation:  {MaxTokens: 20, Temperature: 0, DecodingMethod: "greedy", StopSequences: []string{"\n"}},
	StageClimateAnalysis:  {MaxTokens: 2000, Temperature: 0.8, DecodingMethod: "greedy", StopSequences: []string{"\n\n\n"}},
	StageBusinessRisk:     {MaxTokens: 2500, Temperature: 0.8, DecodingMethod: "greedy", StopSequences: []string{"\n\n\n"}},
	StageSynthesizeReport: {MaxTokens: 1800, Temperature: 0.75, DecodingMethod: "greedy", StopSequences: []string{"\n\n\n"}},
}

// Load reads configs/config.yaml, the APP_ENVIRONMENT overlay and the
// process environment.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // overlay is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills credentials from the variable names the
// original deployment used.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.LLM.BaseURL, "WATSONX_URL")
	setIfEmpty(&cfg.LLM.APIKey, "WATSONX_AI_API")
	setIfEmpty(&cfg.LLM.ProjectID, "PROJECT_ID")
	setIfEmpty(&cfg.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.LLM.Gemini.APIKey, "GEMINI_API_KEY")

	setIfEmpty(&cfg.WebSearch.APIKey, "SERPER_API_KEY")

	setIfEmpty(&cfg.Retrieval.ClimateIndex, "CLIMATE_INDEX")
	setIfEmpty(&cfg.Retrieval.BusinessIndex, "BUSINESS_INDEX")

	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
}

func setIfEmpty(field *string, envKey string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "climate-risk-advisor"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 180000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	// LLM defaults
	if cfg.LLM.Backend == "" {
		cfg.LLM.Backend = "watsonx"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://us-south.ml.cloud.ibm.com"
	}
	if cfg.LLM.IAMURL == "" {
		cfg.LLM.IAMURL = "https://iam.cloud.ibm.com/identity/token"
	}
	if cfg.LLM.ModelID == "" {
		cfg.LLM.ModelID = "meta-llama/llama-3-3-70b-instruct"
	}
	if cfg.LLM.APIVersion == "" {
		cfg.LLM.APIVersion = "2023-05-29"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60000
	}
	if cfg.LLM.OpenAI.Model == "" {
		cfg.LLM.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.LLM.Gemini.Model == "" {
		cfg.LLM.Gemini.Model = "gemini-2.5-flash"
	}

	// Web search defaults
	if cfg.WebSearch.BaseURL == "" {
		cfg.WebSearch.BaseURL = "https://google.serper.dev/search"
	}
	if cfg.WebSearch.Country == "" {
		cfg.WebSearch.Country = "us"
	}
	if cfg.WebSearch.NumResults == 0 {
		cfg.WebSearch.NumResults = 8
	}
	if cfg.WebSearch.Timeout == 0 {
		cfg.WebSearch.Timeout = 10000
	}
	if cfg.WebSearch.RequestsPerSecond == 0 {
		cfg.WebSearch.RequestsPerSecond = 5
	}

	// Retrieval defaults
	if cfg.Retrieval.Backend == "" {
		switch {
		case len(cfg.Database.Elasticsearch.GetAddresses()) > 0:
			cfg.Retrieval.Backend = "elasticsearch"
		case cfg.Weaviate.URL != "":
			cfg.Retrieval.Backend = "weaviate"
		default:
			cfg.Retrieval.Backend = "none"
		}
	}
	if cfg.Retrieval.ClimateIndex == "" {
		cfg.Retrieval.ClimateIndex = "climate-documents"
	}
	if cfg.Retrieval.BusinessIndex == "" {
		cfg.Retrieval.BusinessIndex = "business-risk-documents"
	}
	if cfg.Retrieval.WeaviateSearch == "" {
		cfg.Retrieval.WeaviateSearch = "bm25"
	}

	// Pipeline defaults
	if cfg.Pipeline.DefaultLocation == "" {
		cfg.Pipeline.DefaultLocation = "Global"
	}
	if cfg.Pipeline.ClarifyThreshold == 0 {
		cfg.Pipeline.ClarifyThreshold = 0.5
	}
	if cfg.Pipeline.HistoryWindow == 0 {
		cfg.Pipeline.HistoryWindow = 12
	}
	if cfg.Pipeline.LocationStrategy == "" {
		cfg.Pipeline.LocationStrategy = "hybrid"
	}
	if cfg.Pipeline.ResponseFormat == "" {
		cfg.Pipeline.ResponseFormat = "plain"
	}
	if cfg.Pipeline.FanoutWorkers == 0 {
		cfg.Pipeline.FanoutWorkers = 4
	}
	if cfg.Pipeline.CallTimeout == 0 {
		cfg.Pipeline.CallTimeout = 10000
	}
	if cfg.Pipeline.SearchCategories == nil {
		cfg.Pipeline.SearchCategories = map[string][]string{
			"climate":  {"weather", "risks", "news", "projections"},
			"business": {},
		}
	}

	// Stage defaults, filled field by field so a partial override keeps
	// the remaining budget values.
	if cfg.Stages == nil {
		cfg.Stages = make(map[string]StageConfig)
	}
	for name, def := range defaultStages {
		stage := cfg.Stages[name]
		if stage.MaxTokens == 0 {
			stage.MaxTokens = def.MaxTokens
		}
		if stage.Temperature == 0 {
			stage.Temperature = def.Temperature
		}
		if stage.DecodingMethod == "" {
			stage.DecodingMethod = def.DecodingMethod
		}
		if len(stage.StopSequences) == 0 {
			stage.StopSequences = def.StopSequences
		}
		cfg.Stages[name] = stage
	}

	if cfg.Session.Store == "" {
		cfg.Session.Store = "memory"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * 60 * 60 * 1000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.LLM.Backend {
	case "watsonx", "openai", "gemini":
	default:
		return fmt.Errorf("llm.backend %q is not supported", cfg.LLM.Backend)
	}

	switch cfg.Retrieval.Backend {
	case "elasticsearch":
		if len(cfg.Database.Elasticsearch.GetAddresses()) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses or url is required")
		}
	case "weaviate":
		if cfg.Weaviate.URL == "" {
			return fmt.Errorf("weaviate.url is required")
		}
	case "none":
	default:
		return fmt.Errorf("retrieval.backend %q is not supported", cfg.Retrieval.Backend)
	}

	switch cfg.Pipeline.ResponseFormat {
	case "plain", "tagged":
	default:
		return fmt.Errorf("pipeline.response_format %q is not supported", cfg.Pipeline.ResponseFormat)
	}

	switch cfg.Pipeline.LocationStrategy {
	case "pattern", "llm", "hybrid":
	default:
		return fmt.Errorf("pipeline.location_strategy %q is not supported", cfg.Pipeline.LocationStrategy)
	}

	if cfg.Pipeline.ClarifyThreshold < 0 || cfg.Pipeline.ClarifyThreshold > 1 {
		return fmt.Errorf("pipeline.clarify_threshold must be within [0,1]")
	}

	switch cfg.Session.Store {
	case "memory":
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required")
		}
	default:
		return fmt.Errorf("session.store %q is not supported", cfg.Session.Store)
	}

	if cfg.Audit.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.JaegerEndpoint == "" {
		return fmt.Errorf("tracing.jaeger_endpoint is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetStageConfig retrieves stage-specific generation settings with
// fallback to the built-in budget.
func GetStageConfig(cfg *Config, stageName string) StageConfig {
	if stage, exists := cfg.Stages[stageName]; exists {
		return stage
	}
	return defaultStages[stageName]
}
