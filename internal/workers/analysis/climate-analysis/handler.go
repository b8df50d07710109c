// internal/workers/analysis/climate-analysis/handler.go
package climateanalysis

import (
	"context"
	"fmt"
	"strings"

	"climate-risk-advisor/internal/common/llm"
	"climate-risk-advisor/internal/common/metrics"
	"climate-risk-advisor/internal/models"
)

const (
	StageName = "climate-analysis"
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

	analysis := models.AnalysisResult{
		AnalysisText:      res.TextOr(h.config.Fallback),
		Location:          input.Location,
		EvidenceItemCount: input.Evidence.ItemCount,
		Degraded:          !res.IsOk(),
	}

	if analysis.Degraded {
		metrics.GenerationFallbacks.WithLabelValues(StageName).Inc()
		h.logger.Warn("climate analysis failed, using fallback", map[string]interface{}{
			"location": input.Location,
			"reason":   res.Reason(),
		})
	} else {
		h.logger.Info("climate analysis completed", map[string]interface{}{
			"location":      input.Location,
			"evidenceItems": input.Evidence.ItemCount,
			"chars":         len(analysis.AnalysisText),
		})
	}

	return &Output{Analysis: analysis}, nil
}

func (h *Handler) buildPrompt(input *Input) string {
	var parts []string

	parts = append(parts, "You are a Senior Climate Risk Analyst with 15+ years of experience.")
	parts = append(parts, fmt.Sprintf("\nLOCATION: %s", input.Location))
	parts = append(parts, fmt.Sprintf("USER QUESTION: %s", input.Question))

	if history := strings.TrimSpace(input.History); history != "" {
		parts = append(parts, "\nCONVERSATION SO FAR:")
		parts = append(parts, history)
	}

	parts = append(parts, "\nDATA SOURCES:")
	parts = append(parts, input.Evidence.Text)

	parts = append(parts, "\nProvide a detailed analysis covering current conditions, historical trends, future projections, risk assessment, economic impacts, data confidence, and limitations.")
	parts = append(parts, "Rank the key hazards for this location from most to least severe.")
	parts = append(parts, "Finish with an overall confidence rating (High, Medium or Low) for the analysis.")
	parts = append(parts, "Use at least 4-5 points in each section and include specific examples and numbers.")

	parts = append(parts, "\nCLIMATE ANALYSIS:")

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
