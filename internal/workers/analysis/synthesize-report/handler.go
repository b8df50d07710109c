// internal/workers/analysis/synthesize-report/handler.go
package synthesizereport

import (
	"context"
	"fmt"
	"strings"

	"climate-risk-advisor/internal/common/llm"
	"climate-risk-advisor/internal/common/metrics"
)

const (
	StageName = "synthesize-report"
)

const summaryClose = "</summary>"

// Sections of the executive report, in order.
var Sections = []string{
	"Current Conditions",
	"Historic Trends",
	"Future Predictions",
	"Risk Assessment",
	"Economic Impact",
	"Summary & Recommendations",
}

var sectionTags = []string{"current", "history", "future", "risk", "economy", "summary"}

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
			"stage":  StageName,
			"format": config.Format,
		}),
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	tagged := h.config.Format == FormatTagged

	res := llm.Call(ctx, h.generator, h.buildPrompt(input, tagged), h.options(tagged))
	if !res.IsOk() {
		metrics.GenerationFallbacks.WithLabelValues(StageName).Inc()
		h.logger.Warn("synthesis failed, using fallback", map[string]interface{}{
			"location": input.Location,
			"reason":   res.Reason(),
		})
		return &Output{Report: h.fallback(tagged), Format: h.format(tagged), Degraded: true}, nil
	}

	report := res.Text()
	if tagged && !strings.HasSuffix(report, summaryClose) {
		// The stop sequence is not part of the completion.
		report += summaryClose
	}

	h.logger.Info("report synthesized", map[string]interface{}{
		"location": input.Location,
		"chars":    len(report),
	})

	return &Output{Report: report, Format: h.format(tagged)}, nil
}

func (h *Handler) buildPrompt(input *Input, tagged bool) string {
	var parts []string

	parts = append(parts, "You are a Climate Risk Advisor.")
	parts = append(parts, fmt.Sprintf("\nLOCATION: %s", input.Location))
	if input.Question != "" {
		parts = append(parts, fmt.Sprintf("USER QUESTION: %s", input.Question))
	}

	parts = append(parts, "\nCLIMATE ANALYSIS:")
	parts = append(parts, input.ClimateAnalysis)

	parts = append(parts, "\nBUSINESS ANALYSIS:")
	parts = append(parts, input.BusinessAnalysis)

	parts = append(parts, "\nProduce a response with these sections:")
	for i, s := range Sections {
		if tagged {
			parts = append(parts, fmt.Sprintf("%d. %s, wrapped in <%s></%s>", i+1, s, sectionTags[i], sectionTags[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, s))
		}
	}

	parts = append(parts, "\nFor each section, provide concise but informative paragraphs.")
	parts = append(parts, "In the Summary & Recommendations section, include actionable steps and strategic advice tailored to the user's needs.")
	if tagged {
		parts = append(parts, "Output only the six tagged sections, in order, with no text outside the tags.")
	}

	return strings.Join(parts, "\n")
}

func (h *Handler) options(tagged bool) llm.Options {
	stop := h.config.StopSequences
	if tagged {
		stop = []string{summaryClose}
	}
	return llm.Options{
		DecodingMethod: h.config.DecodingMethod,
		MaxNewTokens:   h.config.MaxTokens,
		Temperature:    h.config.Temperature,
		StopSequences:  stop,
	}
}

func (h *Handler) fallback(tagged bool) string {
	if tagged && h.config.FallbackTagged != "" {
		return h.config.FallbackTagged
	}
	return h.config.FallbackPlain
}

func (h *Handler) format(tagged bool) string {
	if tagged {
		return FormatTagged
	}
	return FormatPlain
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
