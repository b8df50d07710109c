// internal/workers/conversation/classify-intent/handler.go
package classifyintent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"climate-risk-advisor/internal/common/llm"
	"climate-risk-advisor/internal/models"
)

const (
	StageName = "classify-intent"
)

var (
	ErrEmptyInput = errors.New("EMPTY_INPUT")
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
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	res := llm.Call(ctx, h.generator, h.buildPrompt(text), h.options())
	if !res.IsOk() {
		h.logger.Warn("classification failed, treating turn as query", map[string]interface{}{
			"reason": res.Reason(),
		})
		return &Output{Intent: models.IntentQuery, Degraded: true}, nil
	}

	intent := ParseIntent(res.Text())
	h.logger.Info("turn classified", map[string]interface{}{
		"intent": intent,
		"raw":    res.Text(),
	})

	return &Output{Intent: intent, Raw: res.Text()}, nil
}

// ParseIntent normalises a raw model label. Anything other than an exact
// GREETING or FAREWELL is a query.
func ParseIntent(raw string) models.Intent {
	switch models.Intent(strings.ToUpper(strings.TrimSpace(raw))) {
	case models.IntentGreeting:
		return models.IntentGreeting
	case models.IntentFarewell:
		return models.IntentFarewell
	default:
		return models.IntentQuery
	}
}

func (h *Handler) buildPrompt(text string) string {
	var parts []string

	parts = append(parts, "Classify the user message into exactly one of these labels:")
	parts = append(parts, "GREETING - the user says hello or starts the conversation without a question")
	parts = append(parts, "FAREWELL - the user says goodbye or ends the conversation")
	parts = append(parts, "QUERY - anything else, including any question about climate, weather, risk or business")
	parts = append(parts, fmt.Sprintf("\nMessage: %s", text))
	parts = append(parts, "\nRespond with the label only.")
	parts = append(parts, "Label:")

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
