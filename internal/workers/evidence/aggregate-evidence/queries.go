// internal/workers/evidence/aggregate-evidence/queries.go
package aggregateevidence

import (
	"fmt"

	"climate-risk-advisor/internal/models"
)

var queryTemplates = map[models.Topic][]string{
	models.TopicClimate: {
		"climate change impacts %s temperature precipitation extreme weather",
		"sea level rise flooding %s coastal risks",
		"drought water scarcity %s agriculture",
		"extreme heat heatwave %s infrastructure",
	},
	models.TopicBusiness: {
		"supply chain risk climate business continuity %s",
		"operational resilience climate adaptation %s",
		"financial impact climate change business %s",
		"risk management climate hazards enterprise %s",
	},
}

// QueriesFor returns the retrieval queries for a topic, in order.
func QueriesFor(topic models.Topic, location string) []string {
	templates := queryTemplates[topic]
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = fmt.Sprintf(t, location)
	}
	return out
}
