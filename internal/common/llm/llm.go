// Package llm wraps the text generation backends behind one blocking
// Generate call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthorized  = errors.New("LLM_UNAUTHORIZED")
	ErrQuotaExceeded = errors.New("LLM_QUOTA_EXCEEDED")
	ErrEmptyResponse = errors.New("LLM_EMPTY_RESPONSE")
)

// Options is the fixed configuration surface of a generation call.
type Options struct {
	DecodingMethod string
	MaxNewTokens   int
	Temperature    float64
	StopSequences  []string
}

// Generator produces text for a prompt. Implementations must return an
// error wrapping ErrUnauthorized or ErrQuotaExceeded for credential and
// rate-limit rejections.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, opts Options) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// Result is the outcome of one generation: either Ok text or a Failed
// reason. Stages branch on it instead of on errors.
type Result struct {
	text   string
	reason string
	err    error
}

// Ok builds a successful result.
func Ok(text string) Result {
	return Result{text: text}
}

// Failed builds a failed result from err.
func Failed(err error) Result {
	if err == nil {
		err = ErrEmptyResponse
	}
	return Result{reason: err.Error(), err: err}
}

func (r Result) IsOk() bool     { return r.err == nil }
func (r Result) Text() string   { return r.text }
func (r Result) Reason() string { return r.reason }
func (r Result) Err() error     { return r.err }

// TextOr returns the generated text, or fallback when the call failed.
func (r Result) TextOr(fallback string) string {
	if r.IsOk() {
		return r.text
	}
	return fallback
}

// Call runs one generation and folds the outcome into a Result. Output is
// trimmed; an empty completion counts as a failure.
func Call(ctx context.Context, g Generator, prompt string, opts Options) Result {
	if g == nil {
		return Failed(fmt.Errorf("%w: no generator configured", ErrEmptyResponse))
	}
	text, err := g.Generate(ctx, prompt, opts)
	if err != nil {
		return Failed(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Failed(ErrEmptyResponse)
	}
	return Ok(text)
}

// classifyStatus maps an HTTP status returned by a backend onto the
// package sentinels.
func classifyStatus(code int, err error) error {
	switch {
	case code == 401 || code == 403:
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case code == 429:
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	default:
		return err
	}
}
