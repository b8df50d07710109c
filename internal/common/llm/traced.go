package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracedGenerator opens a span around every Generate call.
type TracedGenerator struct {
	next    Generator
	tracer  trace.Tracer
	backend string
}

func NewTracedGenerator(next Generator, tracer trace.Tracer, backend string) *TracedGenerator {
	return &TracedGenerator{next: next, tracer: tracer, backend: backend}
}

func (t *TracedGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	ctx, span := t.tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.backend", t.backend),
		attribute.Int("llm.max_new_tokens", opts.MaxNewTokens),
		attribute.Float64("llm.temperature", opts.Temperature),
		attribute.Int("llm.prompt_chars", len(prompt)),
	))
	defer span.End()

	start := time.Now()
	text, err := t.next.Generate(ctx, prompt, opts)
	span.SetAttributes(attribute.Int64("llm.duration_ms", time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.completion_chars", len(text)))
	return text, nil
}
