// internal/models/analysis.go
package models

// AnalysisResult is the output of an analysis agent.
type AnalysisResult struct {
	AnalysisText      string `json:"analysisText"`
	Location          string `json:"location"`
	EvidenceItemCount int    `json:"evidenceItemCount"`
	Degraded          bool   `json:"degraded"`
}

// OutcomeKind is the terminal state a turn ended in.
type OutcomeKind string

const (
	OutcomeGreeting OutcomeKind = "greeting"
	OutcomeFarewell OutcomeKind = "farewell"
	OutcomeClarify  OutcomeKind = "clarify"
	OutcomeComplete OutcomeKind = "complete"
)

// PipelineState is a node of the per-turn state machine.
type PipelineState string

const (
	StateStart             PipelineState = "Start"
	StateClassified        PipelineState = "Classified"
	StateGreeting          PipelineState = "Greeting"
	StateFarewell          PipelineState = "Farewell"
	StateLocationResolving PipelineState = "LocationResolving"
	StateClarify           PipelineState = "Clarify"
	StateClimateAnalyzed   PipelineState = "ClimateAnalyzed"
	StateRiskAnalyzed      PipelineState = "RiskAnalyzed"
	StateSynthesized       PipelineState = "Synthesized"
	StateComplete          PipelineState = "Complete"
)

// PipelineOutcome is what one turn hands back to the caller.
type PipelineOutcome struct {
	Kind     OutcomeKind     `json:"kind"`
	Response string          `json:"response"`
	Location *LocationResult `json:"location,omitempty"`
	Intent   Intent          `json:"intent"`
	Stages   []PipelineState `json:"stages"`
	// Degraded lists the stages that substituted a fallback.
	Degraded []string `json:"degraded,omitempty"`
}
