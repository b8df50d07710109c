// internal/workers/conversation/classify-intent/models.go
package classifyintent

import "climate-risk-advisor/internal/models"

type Input struct {
	Text string `json:"text"`
}

type Output struct {
	Intent models.Intent `json:"intent"`
	Raw    string        `json:"raw,omitempty"`
	// Degraded is set when the model call failed and Intent defaulted to QUERY.
	Degraded bool `json:"degraded,omitempty"`
}
