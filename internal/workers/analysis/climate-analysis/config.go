// internal/workers/analysis/climate-analysis/config.go
package climateanalysis

import "time"

type Config struct {
	MaxTokens      int
	Temperature    float64
	DecodingMethod string
	StopSequences  []string
	Timeout        time.Duration
	// Fallback is returned in place of a failed generation.
	Fallback string
}

func LoadConfig() *Config {
	return &Config{
		MaxTokens:      2000,
		Temperature:    0.8,
		DecodingMethod: "greedy",
		StopSequences:  []string{"\n\n\n"},
		Timeout:        120 * time.Second,
	}
}
