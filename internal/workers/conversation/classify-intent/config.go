// internal/workers/conversation/classify-intent/config.go
package classifyintent

import "time"

type Config struct {
	MaxTokens      int
	Temperature    float64
	DecodingMethod string
	StopSequences  []string
	Timeout        time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxTokens:      10,
		Temperature:    0,
		DecodingMethod: "greedy",
		StopSequences:  []string{"\n"},
		Timeout:        15 * time.Second,
	}
}
