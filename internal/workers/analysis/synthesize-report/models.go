// internal/workers/analysis/synthesize-report/models.go
package synthesizereport

type Input struct {
	Question         string `json:"question"`
	Location         string `json:"location"`
	ClimateAnalysis  string `json:"climateAnalysis"`
	BusinessAnalysis string `json:"businessAnalysis"`
}

type Output struct {
	Report   string `json:"report"`
	Format   string `json:"format"`
	Degraded bool   `json:"degraded,omitempty"`
}
