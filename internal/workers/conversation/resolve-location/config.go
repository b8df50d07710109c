// internal/workers/conversation/resolve-location/config.go
package resolvelocation

import (
	"time"

	"climate-risk-advisor/internal/models"
)

// Strategies for location extraction.
const (
	StrategyPattern = "pattern"
	StrategyLLM     = "llm"
	StrategyHybrid  = "hybrid"
)

type Config struct {
	Strategy         string
	Patterns         []Pattern
	ClarifyThreshold float64
	DefaultLocation  string

	MaxTokens      int
	Temperature    float64
	DecodingMethod string
	StopSequences  []string
	Timeout        time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Strategy:         StrategyHybrid,
		Patterns:         DefaultPatterns(),
		ClarifyThreshold: 0.5,
		DefaultLocation:  models.SentinelLocation,
		MaxTokens:        20,
		Temperature:      0,
		DecodingMethod:   "greedy",
		StopSequences:    []string{"\n"},
		Timeout:          15 * time.Second,
	}
}
