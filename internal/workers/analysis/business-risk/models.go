// internal/workers/analysis/business-risk/models.go
package businessrisk

import "climate-risk-advisor/internal/models"

type Input struct {
	Question        string                `json:"question"`
	Location        string                `json:"location"`
	ClimateAnalysis string                `json:"climateAnalysis"`
	Evidence        models.EvidenceBundle `json:"evidence"`
}

type Output struct {
	Analysis models.AnalysisResult `json:"analysis"`
}
