// internal/workers/analysis/climate-analysis/handler_test.go
package climateanalysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"climate-risk-advisor/internal/common/llm"
	"climate-risk-advisor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, fields: merged}
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.Fallback = "CURRENT CONDITIONS:\n - unavailable"
	return cfg
}

func createTestInput() *Input {
	return &Input{
		Question: "What are the flood risks for our Chicago warehouse?",
		Location: "Chicago",
		Evidence: models.EvidenceBundle{
			Topic:     models.TopicClimate,
			Location:  "Chicago",
			Text:      "\n--- WEATHER ---\n• Heavy rain\n  Summary: flooding on Lower Wacker\n  Source: https://a\n",
			ItemCount: 3,
		},
		History: "User: hello\nBot: Hi!",
	}
}

type captureGenerator struct {
	reply  string
	err    error
	prompt string
	opts   llm.Options
}

func (g *captureGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	g.prompt, g.opts = prompt, opts
	return g.reply, g.err
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	gen := &captureGenerator{reply: "  Chicago faces rising flood risk.  "}
	h := NewHandler(createTestConfig(), gen, NewTestLogger(t))

	out, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.Equal(t, models.AnalysisResult{
		AnalysisText:      "Chicago faces rising flood risk.",
		Location:          "Chicago",
		EvidenceItemCount: 3,
	}, out.Analysis)

	assert.Equal(t, llm.Options{
		DecodingMethod: "greedy",
		MaxNewTokens:   2000,
		Temperature:    0.8,
		StopSequences:  []string{"\n\n\n"},
	}, gen.opts)
}

func TestHandler_BuildPrompt(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, NewTestLogger(t))
	prompt := h.buildPrompt(createTestInput())

	expectedParts := []string{
		"You are a Senior Climate Risk Analyst with 15+ years of experience.",
		"LOCATION: Chicago",
		"USER QUESTION: What are the flood risks for our Chicago warehouse?",
		"CONVERSATION SO FAR:\nUser: hello\nBot: Hi!",
		"DATA SOURCES:",
		"flooding on Lower Wacker",
		"Rank the key hazards",
		"confidence rating",
	}
	for _, part := range expectedParts {
		assert.Contains(t, prompt, part)
	}
	assert.True(t, strings.HasSuffix(prompt, "CLIMATE ANALYSIS:"))

	t.Run("no history section without history", func(t *testing.T) {
		in := createTestInput()
		in.History = "  "
		assert.NotContains(t, h.buildPrompt(in), "CONVERSATION SO FAR")
	})
}

func TestHandler_Execute_Fallback(t *testing.T) {
	tests := []struct {
		name string
		gen  llm.Generator
	}{
		{"unauthorized", &captureGenerator{err: llm.ErrUnauthorized}},
		{"transport error", &captureGenerator{err: errors.New("connection reset")}},
		{"empty completion", &captureGenerator{reply: "\n\n"}},
		{"no generator", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			h := NewHandler(cfg, tt.gen, NewTestLogger(t))

			out, err := h.Execute(context.Background(), createTestInput())
			require.NoError(t, err)
			assert.Equal(t, cfg.Fallback, out.Analysis.AnalysisText)
			assert.True(t, out.Analysis.Degraded)
			assert.Equal(t, "Chicago", out.Analysis.Location)
		})
	}
}
