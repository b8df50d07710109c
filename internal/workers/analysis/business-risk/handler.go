// internal/workers/analysis/business-risk/handler.go
package businessrisk

import (
	"context"
	"fmt"
	"strings"

	"climate-risk-advisor/internal/common/llm"
	"climate-risk-advisor/internal/common/metrics"
	"climate-risk-advisor/internal/models"
)

const (
	StageName = "business-risk"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config    *Config
	generator llm.Generator
	logger    Logger
}

func NewHandler(config *Config, generator llm.Generator, log Logger) *Handler {
	return &Handler{
		config:    config,
		generator: generator,
		logger: log.With(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	res := llm.Call(ctx, h.generator, h.buildPrompt(input), h.options())
	if !res.IsOk() {
		metrics.GenerationFallbacks.WithLabelValues(StageName).Inc()
		h.logger.Warn("business analysis failed, using fallback", map[string]interface{}{
			"location": input.Location,
			"reason":   res.Reason(),
		})
	}

	return &Output{
		Analysis: models.AnalysisResult{
			AnalysisText:      res.TextOr(h.config.Fallback),
			Location:          input.Location,
			EvidenceItemCount: input.Evidence.ItemCount,
			Degraded:          !res.IsOk(),
		},
	}, nil
}

func (h *Handler) buildPrompt(input *Input) string {
	var parts []string

	parts = append(parts, "You are a Senior Business Continuity Consultant.")
	parts = append(parts, fmt.Sprintf("\nLOCATION: %s", input.Location))
	parts = append(parts, fmt.Sprintf("USER QUESTION: %s", input.Question))

	parts = append(parts, "\nCLIMATE ANALYSIS:")
	parts = append(parts, input.ClimateAnalysis)

	parts = append(parts, "\nBUSINESS CONTEXT:")
	parts = append(parts, input.Evidence.Text)

	parts = append(parts, "\nProvide a detailed operational impact analysis, financial impact assessment, supply chain vulnerability review, strategic mitigation framework, implementation roadmap, strategic recommendations, and plan evaluation.")
	parts = append(parts, "Structure mitigation in three tiers: immediate (0-6 months), medium-term (6-24 months) and long-term (2+ years), with the expected return of each tier.")
	parts = append(parts, "Include specific examples, timelines, and financial estimates.")

	parts = append(parts, "\nBUSINESS IMPACT ANALYSIS:")

	return strings.Join(parts, "\n")
}

func (h *Handler) options() llm.Options {
	return llm.Options{
		DecodingMethod: h.config.DecodingMethod,
		MaxNewTokens:   h.config.MaxTokens,
		Temperature:    h.config.Temperature,
		StopSequences:  h.config.StopSequences,
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
