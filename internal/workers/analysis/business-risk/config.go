// internal/workers/analysis/business-risk/config.go
package businessrisk

import "time"

type Config struct {
	MaxTokens      int
	Temperature    float64
	DecodingMethod string
	StopSequences  []string
	Timeout        time.Duration
	Fallback       string
}

func LoadConfig() *Config {
	return &Config{
		MaxTokens:      2500,
		Temperature:    0.8,
		DecodingMethod: "greedy",
		StopSequences:  []string{"\n\n\n"},
		Timeout:        120 * time.Second,
	}
}
