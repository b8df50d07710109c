// cmd/tools/worker-generator/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"
)

// StageData holds data for templates
type StageData struct {
	Name        string
	PackageName string
	Description string
	Category    string
	MaxTokens   int
	Suffix      string
}

var stageNamePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

var categories = map[string]bool{
	"conversation": true,
	"evidence":     true,
	"analysis":     true,
}

func newStageData(name, category, description string, maxTokens int) (StageData, error) {
	if !stageNamePattern.MatchString(name) {
		return StageData{}, fmt.Errorf("stage name %q must be lower-case kebab case", name)
	}
	if !categories[category] {
		return StageData{}, fmt.Errorf("unknown category %q", category)
	}
	if maxTokens <= 0 {
		return StageData{}, fmt.Errorf("max tokens must be positive")
	}
	if description == "" {
		description = strings.ReplaceAll(name, "-", " ")
	}
	return StageData{
		Name:        name,
		PackageName: strings.ReplaceAll(name, "-", ""),
		Description: description,
		Category:    category,
		MaxTokens:   maxTokens,
		Suffix:      strings.ToUpper(strings.ReplaceAll(name, "-", " ")) + ":",
	}, nil
}

const configTemplate = `// internal/workers/{{ .Category }}/{{ .Name }}/config.go
package {{ .PackageName }}

import "time"

type Config struct {
	MaxTokens      int
	Temperature    float64
	DecodingMethod string
	StopSequences  []string
	Timeout        time.Duration
	Fallback       string
}

func LoadConfig() *Config {
	return &Config{
		MaxTokens:      {{ .MaxTokens }},
		Temperature:    0.3,
		DecodingMethod: "greedy",
		Timeout:        30 * time.Second,
		Fallback:       "No {{ .Description }} is available right now.",
	}
}
`

const modelsTemplate = `// internal/workers/{{ .Category }}/{{ .Name }}/models.go
package {{ .PackageName }}

type Input struct {
	Question string ` + "`json:\"question\"`" + `
	Location string ` + "`json:\"location\"`" + `
}

type Output struct {
	Text     string ` + "`json:\"text\"`" + `
	Degraded bool   ` + "`json:\"degraded,omitempty\"`" + `
}
`

const handlerTemplate = `// internal/workers/{{ .Category }}/{{ .Name }}/handler.go
package {{ .PackageName }}

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"climate-risk-advisor/internal/common/llm"
)

const (
	StageName = "{{ .Name }}"
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

// Handler produces {{ .Description }}.
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, ErrEmptyInput
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	res := llm.Call(ctx, h.generator, h.buildPrompt(input), llm.Options{
		DecodingMethod: h.config.DecodingMethod,
		MaxNewTokens:   h.config.MaxTokens,
		Temperature:    h.config.Temperature,
		StopSequences:  h.config.StopSequences,
	})
	if !res.IsOk() {
		h.logger.Warn("generation failed, using fallback", map[string]interface{}{
			"reason": res.Reason(),
		})
		return &Output{Text: h.config.Fallback, Degraded: true}, nil
	}

	return &Output{Text: strings.TrimSpace(res.Text())}, nil
}

func (h *Handler) buildPrompt(input *Input) string {
	var parts []string

	parts = append(parts, "You are an expert producing {{ .Description }} for a business.")
	parts = append(parts, fmt.Sprintf("\nLOCATION: %s", input.Location))
	parts = append(parts, fmt.Sprintf("USER QUESTION: %s", input.Question))
	parts = append(parts, "\n{{ .Suffix }}")

	return strings.Join(parts, "\n")
}
`

const testTemplate = `// internal/workers/{{ .Category }}/{{ .Name }}/handler_test.go
package {{ .PackageName }}

import (
	"context"
	"errors"
	"testing"

	"climate-risk-advisor/internal/common/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestLogger struct{ t *testing.T }

func (l *TestLogger) Info(msg string, fields map[string]interface{})  { l.t.Logf("INFO: %s %v", msg, fields) }
func (l *TestLogger) Warn(msg string, fields map[string]interface{})  { l.t.Logf("WARN: %s %v", msg, fields) }
func (l *TestLogger) Error(msg string, fields map[string]interface{}) { l.t.Logf("ERROR: %s %v", msg, fields) }
func (l *TestLogger) With(fields map[string]interface{}) Logger       { return l }

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name         string
		generator    llm.GeneratorFunc
		wantText     string
		wantDegraded bool
	}{
		{
			name: "success",
			generator: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
				return "  result  ", nil
			},
			wantText: "result",
		},
		{
			name: "generation failure falls back",
			generator: func(ctx context.Context, prompt string, opts llm.Options) (string, error) {
				return "", errors.New("boom")
			},
			wantText:     LoadConfig().Fallback,
			wantDegraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(LoadConfig(), tt.generator, &TestLogger{t: t})
			out, err := h.Execute(context.Background(), &Input{Question: "q", Location: "Chicago"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, out.Text)
			assert.Equal(t, tt.wantDegraded, out.Degraded)
		})
	}
}

func TestHandler_EmptyInput(t *testing.T) {
	h := NewHandler(LoadConfig(), nil, &TestLogger{t: t})
	_, err := h.Execute(context.Background(), &Input{Question: "  "})
	assert.ErrorIs(t, err, ErrEmptyInput)
}
`

var templates = map[string]string{
	"config.go":       configTemplate,
	"models.go":       modelsTemplate,
	"handler.go":      handlerTemplate,
	"handler_test.go": testTemplate,
}

// generate renders the scaffold into dir and returns the written paths.
// Existing files are never overwritten.
func generate(dir string, data StageData) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, filename := range names {
		tmpl, err := template.New(filename).Parse(templates[filename])
		if err != nil {
			return written, fmt.Errorf("parse template %s: %w", filename, err)
		}

		path := filepath.Join(dir, filename)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return written, fmt.Errorf("create %s: %w", path, err)
		}
		err = tmpl.Execute(file, data)
		file.Close()
		if err != nil {
			return written, fmt.Errorf("render %s: %w", filename, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func main() {
	name := flag.String("name", "", "Stage name (e.g., water-stress)")
	category := flag.String("category", "analysis", "Stage category: conversation, evidence or analysis")
	description := flag.String("description", "", "Short description of what the stage produces")
	maxTokens := flag.Int("max-tokens", 400, "Default generation budget")
	outputDir := flag.String("output", "./internal/workers/", "Root directory for stage packages")
	flag.Parse()

	if *name == "" {
		fmt.Println("Usage: worker-generator --name <stage> [--category <category>] [--output <dir>]")
		fmt.Println("\nExample:")
		fmt.Println("  go run cmd/tools/worker-generator/main.go --name water-stress --description \"water stress analysis\"")
		os.Exit(1)
	}

	data, err := newStageData(*name, *category, *description, *maxTokens)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	dir := filepath.Join(*outputDir, data.Category, data.Name)
	written, err := generate(dir, data)
	for _, path := range written {
		fmt.Printf("Generated %s\n", path)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nStage scaffold generated at: %s\n", dir)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Write the prompt in handler.go\n")
	fmt.Printf("  2. Add an interface for the stage in internal/pipeline/stages.go\n")
	fmt.Printf("  3. Wire it in internal/pipeline/build.go\n")
	fmt.Printf("  4. Add its stage overrides to configs/config.yaml\n")
}
