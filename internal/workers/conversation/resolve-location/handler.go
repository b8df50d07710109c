// internal/workers/conversation/resolve-location/handler.go
package resolvelocation

import (
	"context"
	"fmt"
	"strings"

	"climate-risk-advisor/internal/common/llm"
	"climate-risk-advisor/internal/models"
)

const (
	StageName = "resolve-location"
)

const (
	llmCleanConfidence = 0.7
	llmNoisyConfidence = 0.3
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
			"stage":    StageName,
			"strategy": config.Strategy,
		}),
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	candidate, confidence, source := h.extract(ctx, input.Text)

	var loc models.LocationResult
	if models.IsSentinelLocation(candidate) {
		loc = h.substitute(input)
	} else {
		loc = models.LocationResult{Text: candidate, Confidence: confidence, Source: source}
	}

	out := &Output{
		Location:           loc,
		NeedsClarification: loc.Confidence < h.config.ClarifyThreshold,
	}

	h.logger.Info("location resolved", map[string]interface{}{
		"location":           loc.Text,
		"confidence":         loc.Confidence,
		"source":             loc.Source,
		"sentinel":           loc.Sentinel,
		"needsClarification": out.NeedsClarification,
	})

	return out, nil
}

// extract runs the configured strategy. An empty candidate means no
// location was found.
func (h *Handler) extract(ctx context.Context, text string) (string, float64, models.LocationSource) {
	switch h.config.Strategy {
	case StrategyPattern:
		c, conf, _ := matchPatterns(h.config.Patterns, text)
		return c, conf, models.LocationSourcePattern
	case StrategyLLM:
		c, conf := h.extractWithLLM(ctx, text)
		return c, conf, models.LocationSourceLLM
	default:
		if c, conf, ok := matchPatterns(h.config.Patterns, text); ok {
			return c, conf, models.LocationSourcePattern
		}
		c, conf := h.extractWithLLM(ctx, text)
		return c, conf, models.LocationSourceLLM
	}
}

func (h *Handler) extractWithLLM(ctx context.Context, text string) (string, float64) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	res := llm.Call(ctx, h.generator, h.buildPrompt(text), h.options())
	if !res.IsOk() {
		h.logger.Warn("location extraction failed", map[string]interface{}{
			"reason": res.Reason(),
		})
		return models.SentinelLocation, 0
	}

	answer := strings.Trim(strings.TrimSpace(res.Text()), `"'`)
	if models.IsSentinelLocation(answer) {
		return models.SentinelLocation, 0
	}
	if isClean(answer) {
		return strings.TrimRight(answer, ",."), llmCleanConfidence
	}
	return truncateTokens(answer, 3), llmNoisyConfidence
}

// substitute replaces a sentinel with the session's last location or the
// configured default.
func (h *Handler) substitute(input *Input) models.LocationResult {
	if input.HasLastLocation && !models.IsSentinelLocation(input.LastLocation) {
		return models.LocationResult{
			Text:       input.LastLocation,
			Confidence: 1.0,
			Source:     models.LocationSourceHistory,
			Sentinel:   true,
		}
	}
	return models.LocationResult{
		Text:       h.config.DefaultLocation,
		Confidence: 1.0,
		Source:     models.LocationSourceDefault,
		Sentinel:   true,
	}
}

func (h *Handler) buildPrompt(text string) string {
	var parts []string

	parts = append(parts, "Extract the location from this query. If no specific location is mentioned, respond with 'Global'.")
	parts = append(parts, fmt.Sprintf("\nQuery: %s", text))
	parts = append(parts, "\nLocation:")

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
