// Package pipeline runs one conversational turn through the advisor's
// state machine: classify, resolve the location, gather evidence, run
// the analysis agents and synthesise the answer.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "climate-risk-advisor/internal/common/errors"
	"climate-risk-advisor/internal/common/logger"
	"climate-risk-advisor/internal/common/metrics"
	"climate-risk-advisor/internal/common/observability"
	"climate-risk-advisor/internal/common/replies"
	"climate-risk-advisor/internal/common/session"
	"climate-risk-advisor/internal/models"
	businessrisk "climate-risk-advisor/internal/workers/analysis/business-risk"
	climateanalysis "climate-risk-advisor/internal/workers/analysis/climate-analysis"
	synthesizereport "climate-risk-advisor/internal/workers/analysis/synthesize-report"
	classifyintent "climate-risk-advisor/internal/workers/conversation/classify-intent"
	resolvelocation "climate-risk-advisor/internal/workers/conversation/resolve-location"
	aggregateevidence "climate-risk-advisor/internal/workers/evidence/aggregate-evidence"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Deps are the collaborators of a Pipeline. Audit and Observability may
// be nil.
type Deps struct {
	Classifier IntentClassifier
	Resolver   LocationResolver
	Aggregator EvidenceAggregator
	Climate    ClimateAgent
	Business   BusinessAgent
	Synthesis  Synthesizer

	Sessions      *session.Manager
	Replies       *replies.Catalog
	Audit         models.TurnRepository
	Observability *observability.Observability
	Logger        logger.Logger
}

type Pipeline struct {
	Deps
	format string
	logger logger.Logger
}

// New builds a pipeline answering in format (plain or tagged).
func New(deps Deps, format string) *Pipeline {
	if format != replies.FormatTagged {
		format = replies.FormatPlain
	}
	return &Pipeline{
		Deps:   deps,
		format: format,
		logger: deps.Logger.With(map[string]interface{}{"component": "pipeline"}),
	}
}

// turn carries the per-turn bookkeeping.
type turn struct {
	sessionID string
	text      string
	history   string
	outcome   *models.PipelineOutcome
}

func (t *turn) enter(s models.PipelineState) {
	t.outcome.Stages = append(t.outcome.Stages, s)
}

// Run processes one user turn for a session. Turns of the same session
// are serialised; the returned outcome is never nil when err is nil.
func (p *Pipeline) Run(ctx context.Context, sessionID, text string) (*models.PipelineOutcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewInvalidRequestError("query must be a non-empty string")
	}

	metrics.TurnsActive.Inc()
	defer metrics.TurnsActive.Dec()

	start := time.Now()
	ctx, span := p.Observability.StartSpan(ctx, "pipeline.turn", attribute.String("session.id", sessionID))
	defer span.End()

	t := &turn{
		sessionID: sessionID,
		text:      text,
		outcome:   &models.PipelineOutcome{Stages: []models.PipelineState{models.StateStart}},
	}

	err := p.Sessions.WithSession(ctx, sessionID, func(st *session.State) error {
		return p.runTurn(ctx, st, t)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.TurnsTotal.WithLabelValues("error").Inc()
		p.logger.Error("turn failed", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
		return nil, err
	}

	kind := string(t.outcome.Kind)
	span.SetAttributes(attribute.String("turn.outcome", kind))
	metrics.TurnsTotal.WithLabelValues(kind).Inc()
	p.Observability.RecordTurn(ctx, kind, time.Since(start))

	p.audit(ctx, t)

	p.logger.Info("turn completed", map[string]interface{}{
		"sessionId": sessionID,
		"outcome":   kind,
		"stages":    len(t.outcome.Stages),
		"degraded":  t.outcome.Degraded,
		"duration":  time.Since(start).String(),
	})

	return t.outcome, nil
}

func (p *Pipeline) runTurn(ctx context.Context, st *session.State, t *turn) error {
	t.history = st.HistoryAsPromptContext()
	st.AppendUserTurn(t.text)

	var cls *classifyintent.Output
	err := p.stage(ctx, classifyintent.StageName, func(ctx context.Context) (err error) {
		cls, err = p.Classifier.Execute(ctx, &classifyintent.Input{Text: t.text})
		return err
	})
	if err != nil {
		return err
	}
	t.outcome.Intent = cls.Intent
	t.enter(models.StateClassified)
	if cls.Degraded {
		t.outcome.Degraded = append(t.outcome.Degraded, classifyintent.StageName)
	}

	switch cls.Intent {
	case models.IntentGreeting:
		p.finishCanned(st, t, models.OutcomeGreeting, models.StateGreeting, p.Replies.Greeting.For(p.format))
		return nil
	case models.IntentFarewell:
		p.finishCanned(st, t, models.OutcomeFarewell, models.StateFarewell, p.Replies.Farewell.For(p.format))
		return nil
	}

	t.enter(models.StateLocationResolving)
	last, hasLast := st.LastLocation()

	var loc *resolvelocation.Output
	err = p.stage(ctx, resolvelocation.StageName, func(ctx context.Context) (err error) {
		loc, err = p.Resolver.Execute(ctx, &resolvelocation.Input{
			Text:            t.text,
			LastLocation:    last,
			HasLastLocation: hasLast,
		})
		return err
	})
	if err != nil {
		return err
	}
	location := loc.Location
	t.outcome.Location = &location

	if loc.NeedsClarification {
		p.finishCanned(st, t, models.OutcomeClarify, models.StateClarify, p.Replies.Clarify.For(p.format))
		return nil
	}
	if !location.Sentinel {
		st.SetLastLocation(location.Text)
	}

	return p.analyse(ctx, st, t, location.Text)
}

// analyse runs the evidence and agent chain for a resolved location.
func (p *Pipeline) analyse(ctx context.Context, st *session.State, t *turn, location string) error {
	climateEvidence, err := p.gather(ctx, models.TopicClimate, location)
	if err != nil {
		return err
	}

	var climate *climateanalysis.Output
	err = p.stage(ctx, climateanalysis.StageName, func(ctx context.Context) (err error) {
		climate, err = p.Climate.Execute(ctx, &climateanalysis.Input{
			Question: t.text,
			Location: location,
			Evidence: climateEvidence,
			History:  t.history,
		})
		return err
	})
	if err != nil {
		return err
	}
	st.AppendAssistantTurn(climate.Analysis.AnalysisText, models.AgentTagClimate)
	t.enter(models.StateClimateAnalyzed)
	if climate.Analysis.Degraded {
		t.outcome.Degraded = append(t.outcome.Degraded, climateanalysis.StageName)
	}

	businessEvidence, err := p.gather(ctx, models.TopicBusiness, location)
	if err != nil {
		return err
	}

	var business *businessrisk.Output
	err = p.stage(ctx, businessrisk.StageName, func(ctx context.Context) (err error) {
		business, err = p.Business.Execute(ctx, &businessrisk.Input{
			Question:        t.text,
			Location:        location,
			ClimateAnalysis: climate.Analysis.AnalysisText,
			Evidence:        businessEvidence,
		})
		return err
	})
	if err != nil {
		return err
	}
	st.AppendAssistantTurn(business.Analysis.AnalysisText, models.AgentTagRisk)
	t.enter(models.StateRiskAnalyzed)
	if business.Analysis.Degraded {
		t.outcome.Degraded = append(t.outcome.Degraded, businessrisk.StageName)
	}

	var report *synthesizereport.Output
	err = p.stage(ctx, synthesizereport.StageName, func(ctx context.Context) (err error) {
		report, err = p.Synthesis.Execute(ctx, &synthesizereport.Input{
			Question:         t.text,
			Location:         location,
			ClimateAnalysis:  climate.Analysis.AnalysisText,
			BusinessAnalysis: business.Analysis.AnalysisText,
		})
		return err
	})
	if err != nil {
		return err
	}
	t.enter(models.StateSynthesized)
	if report.Degraded {
		t.outcome.Degraded = append(t.outcome.Degraded, synthesizereport.StageName)
	}

	st.AppendAssistantTurn(report.Report, models.AgentTagSynthesis)
	t.outcome.Kind = models.OutcomeComplete
	t.outcome.Response = report.Report
	t.enter(models.StateComplete)
	return nil
}

func (p *Pipeline) gather(ctx context.Context, topic models.Topic, location string) (models.EvidenceBundle, error) {
	var out *aggregateevidence.Output
	err := p.stage(ctx, aggregateevidence.StageName+"."+string(topic), func(ctx context.Context) (err error) {
		out, err = p.Aggregator.Execute(ctx, &aggregateevidence.Input{Topic: topic, Location: location})
		return err
	})
	if err != nil {
		return models.EvidenceBundle{}, fmt.Errorf("gather %s evidence: %w", topic, err)
	}
	return out.Bundle, nil
}

func (p *Pipeline) finishCanned(st *session.State, t *turn, kind models.OutcomeKind, state models.PipelineState, reply string) {
	st.AppendAssistantTurn(reply, models.AgentTagCanned)
	t.outcome.Kind = kind
	t.outcome.Response = reply
	t.enter(state)
}

// stage wraps one step in a span and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := p.Observability.StartSpan(ctx, "stage."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// audit writes the user turn and the reply. Failures only log.
func (p *Pipeline) audit(ctx context.Context, t *turn) {
	if p.Audit == nil {
		return
	}

	user := models.TurnRecord{SessionID: t.sessionID, Role: models.RoleUser, Content: t.text}
	reply := models.TurnRecord{
		SessionID: t.sessionID,
		Role:      models.RoleAssistant,
		Content:   t.outcome.Response,
		AgentTag:  replyTag(t.outcome.Kind),
		Outcome:   string(t.outcome.Kind),
	}
	if loc := t.outcome.Location; loc != nil {
		reply.Location = loc.Text
		reply.Confidence = loc.Confidence
	}

	for _, rec := range []models.TurnRecord{user, reply} {
		if err := p.Audit.Record(ctx, rec); err != nil {
			p.logger.Warn("audit write failed", map[string]interface{}{
				"sessionId": t.sessionID,
				"error":     err.Error(),
			})
			return
		}
	}
}

func replyTag(kind models.OutcomeKind) string {
	if kind == models.OutcomeComplete {
		return models.AgentTagSynthesis
	}
	return models.AgentTagCanned
}
