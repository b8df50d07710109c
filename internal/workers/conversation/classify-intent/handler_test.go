// internal/workers/conversation/classify-intent/handler_test.go
package classifyintent

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
	return LoadConfig()
}

type recordingGenerator struct {
	reply   string
	err     error
	prompts []string
	opts    []llm.Options
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	g.prompts = append(g.prompts, prompt)
	g.opts = append(g.opts, opts)
	return g.reply, g.err
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected models.Intent
	}{
		{"greeting", "GREETING", models.IntentGreeting},
		{"farewell", "FAREWELL", models.IntentFarewell},
		{"query", "QUERY", models.IntentQuery},
		{"lower case with whitespace", "  greeting \n", models.IntentGreeting},
		{"mixed case", "Farewell", models.IntentFarewell},
		{"trailing punctuation is not a label", "GREETING.", models.IntentQuery},
		{"sentence", "The user is greeting you", models.IntentQuery},
		{"unknown label", "SMALLTALK", models.IntentQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &recordingGenerator{reply: tt.reply}
			h := NewHandler(createTestConfig(), gen, NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{Text: "hello there"})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out.Intent)
			assert.False(t, out.Degraded)
			assert.Len(t, gen.prompts, 1)
		})
	}
}

func TestHandler_Execute_GenerationSettings(t *testing.T) {
	gen := &recordingGenerator{reply: "QUERY"}
	h := NewHandler(createTestConfig(), gen, NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{Text: "flood risk for Miami"})
	require.NoError(t, err)

	require.Len(t, gen.opts, 1)
	assert.Equal(t, llm.Options{
		DecodingMethod: "greedy",
		MaxNewTokens:   10,
		Temperature:    0,
		StopSequences:  []string{"\n"},
	}, gen.opts[0])
	assert.True(t, strings.Contains(gen.prompts[0], "Message: flood risk for Miami"))
}

func TestHandler_Execute_FailsOpen(t *testing.T) {
	tests := []struct {
		name string
		gen  llm.Generator
	}{
		{"unauthorized", &recordingGenerator{err: llm.ErrUnauthorized}},
		{"quota", &recordingGenerator{err: llm.ErrQuotaExceeded}},
		{"timeout", &recordingGenerator{err: context.DeadlineExceeded}},
		{"empty completion", &recordingGenerator{reply: "   "}},
		{"no generator", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), tt.gen, NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{Text: "hi"})
			require.NoError(t, err)
			assert.Equal(t, models.IntentQuery, out.Intent)
			assert.True(t, out.Degraded)
		})
	}
}

func TestHandler_Execute_EmptyInput(t *testing.T) {
	gen := &recordingGenerator{reply: "GREETING"}
	h := NewHandler(createTestConfig(), gen, NewTestLogger(t))

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := h.Execute(context.Background(), &Input{Text: text})
		assert.True(t, errors.Is(err, ErrEmptyInput))
	}
	assert.Empty(t, gen.prompts)
}
