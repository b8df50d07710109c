// internal/workers/analysis/climate-analysis/models.go
package climateanalysis

import "climate-risk-advisor/internal/models"

type Input struct {
	Question string                `json:"question"`
	Location string                `json:"location"`
	Evidence models.EvidenceBundle `json:"evidence"`
	History  string                `json:"history,omitempty"`
}

type Output struct {
	Analysis models.AnalysisResult `json:"analysis"`
}
