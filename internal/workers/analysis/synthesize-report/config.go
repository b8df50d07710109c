// internal/workers/analysis/synthesize-report/config.go
package synthesizereport

import "time"

// Output formats.
const (
	FormatPlain  = "plain"
	FormatTagged = "tagged"
)

type Config struct {
	MaxTokens      int
	Temperature    float64
	DecodingMethod string
	StopSequences  []string
	Timeout        time.Duration
	Format         string

	FallbackPlain  string
	FallbackTagged string
}

func LoadConfig() *Config {
	return &Config{
		MaxTokens:      1800,
		Temperature:    0.75,
		DecodingMethod: "greedy",
		StopSequences:  []string{"\n\n\n"},
		Timeout:        120 * time.Second,
		Format:         FormatPlain,
	}
}
