// internal/workers/evidence/aggregate-evidence/models.go
package aggregateevidence

import "climate-risk-advisor/internal/models"

type Input struct {
	Topic    models.Topic `json:"topic"`
	Location string       `json:"location"`
}

type Output struct {
	Bundle models.EvidenceBundle `json:"bundle"`
}
