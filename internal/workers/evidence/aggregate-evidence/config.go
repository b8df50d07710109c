// internal/workers/evidence/aggregate-evidence/config.go
package aggregateevidence

import (
	"time"

	"climate-risk-advisor/internal/models"
)

const (
	minWorkers = 1
	maxWorkers = 8
)

type Config struct {
	DocsPerQuery int
	MaxDocuments int
	MaxOrganic   int
	MaxNews      int
	Workers      int
	CallTimeout  time.Duration

	// TruncateAt is the per-topic document content limit in characters.
	TruncateAt       map[models.Topic]int
	SearchCategories map[models.Topic][]models.SearchCategory
}

func LoadConfig() *Config {
	return &Config{
		DocsPerQuery: 2,
		MaxDocuments: 8,
		MaxOrganic:   5,
		MaxNews:      3,
		Workers:      4,
		CallTimeout:  10 * time.Second,
		TruncateAt: map[models.Topic]int{
			models.TopicClimate:  500,
			models.TopicBusiness: 600,
		},
		SearchCategories: map[models.Topic][]models.SearchCategory{
			models.TopicClimate: {
				models.CategoryWeather,
				models.CategoryRisks,
				models.CategoryNews,
				models.CategoryProjections,
			},
			models.TopicBusiness: {},
		},
	}
}

// workers clamps the configured pool size.
func (c *Config) workers() int {
	switch {
	case c.Workers < minWorkers:
		return minWorkers
	case c.Workers > maxWorkers:
		return maxWorkers
	default:
		return c.Workers
	}
}
