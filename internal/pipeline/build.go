package pipeline

import (
	"climate-risk-advisor/internal/common/config"
	"climate-risk-advisor/internal/common/llm"
	"climate-risk-advisor/internal/common/logger"
	"climate-risk-advisor/internal/common/observability"
	"climate-risk-advisor/internal/common/replies"
	"climate-risk-advisor/internal/common/retrieval"
	"climate-risk-advisor/internal/common/session"
	"climate-risk-advisor/internal/common/websearch"
	"climate-risk-advisor/internal/models"
	businessrisk "climate-risk-advisor/internal/workers/analysis/business-risk"
	climateanalysis "climate-risk-advisor/internal/workers/analysis/climate-analysis"
	synthesizereport "climate-risk-advisor/internal/workers/analysis/synthesize-report"
	classifyintent "climate-risk-advisor/internal/workers/conversation/classify-intent"
	resolvelocation "climate-risk-advisor/internal/workers/conversation/resolve-location"
	aggregateevidence "climate-risk-advisor/internal/workers/evidence/aggregate-evidence"
)

// Components are the already-connected collaborators Build wires into
// the stage handlers.
type Components struct {
	Generator     llm.Generator
	Retrievers    map[models.Topic]retrieval.Optional
	Searcher      websearch.Searcher
	Sessions      *session.Manager
	Replies       *replies.Catalog
	Audit         models.TurnRepository
	Observability *observability.Observability
	Logger        logger.Logger
}

// Build creates every stage handler from cfg and returns the pipeline
// driving them.
func Build(cfg *config.Config, c Components) *Pipeline {
	log := c.Logger
	pc := cfg.Pipeline

	classifyCfg := classifyintent.LoadConfig()
	applyStage(config.GetStageConfig(cfg, config.StageClassifyIntent),
		&classifyCfg.MaxTokens, &classifyCfg.Temperature, &classifyCfg.DecodingMethod, &classifyCfg.StopSequences)

	resolveCfg := resolvelocation.LoadConfig()
	applyStage(config.GetStageConfig(cfg, config.StageResolveLocation),
		&resolveCfg.MaxTokens, &resolveCfg.Temperature, &resolveCfg.DecodingMethod, &resolveCfg.StopSequences)
	if pc.LocationStrategy != "" {
		resolveCfg.Strategy = pc.LocationStrategy
	}
	if pc.DefaultLocation != "" {
		resolveCfg.DefaultLocation = pc.DefaultLocation
	}
	resolveCfg.ClarifyThreshold = pc.ClarifyThreshold

	evidenceCfg := aggregateevidence.LoadConfig()
	if pc.FanoutWorkers > 0 {
		evidenceCfg.Workers = pc.FanoutWorkers
	}
	if pc.CallTimeout > 0 {
		evidenceCfg.CallTimeout = config.GetDuration(pc.CallTimeout)
	}
	for topic, names := range pc.SearchCategories {
		cats := make([]models.SearchCategory, 0, len(names))
		for _, n := range names {
			if models.ValidSearchCategory(n) {
				cats = append(cats, models.SearchCategory(n))
			}
		}
		evidenceCfg.SearchCategories[models.Topic(topic)] = cats
	}

	climateCfg := climateanalysis.LoadConfig()
	applyStage(config.GetStageConfig(cfg, config.StageClimateAnalysis),
		&climateCfg.MaxTokens, &climateCfg.Temperature, &climateCfg.DecodingMethod, &climateCfg.StopSequences)
	climateCfg.Fallback = c.Replies.Fallbacks.Climate

	businessCfg := businessrisk.LoadConfig()
	applyStage(config.GetStageConfig(cfg, config.StageBusinessRisk),
		&businessCfg.MaxTokens, &businessCfg.Temperature, &businessCfg.DecodingMethod, &businessCfg.StopSequences)
	businessCfg.Fallback = c.Replies.Fallbacks.Business

	synthCfg := synthesizereport.LoadConfig()
	applyStage(config.GetStageConfig(cfg, config.StageSynthesizeReport),
		&synthCfg.MaxTokens, &synthCfg.Temperature, &synthCfg.DecodingMethod, &synthCfg.StopSequences)
	if pc.ResponseFormat == replies.FormatTagged {
		synthCfg.Format = synthesizereport.FormatTagged
	}
	synthCfg.FallbackPlain = c.Replies.Fallbacks.Synthesis.Plain
	synthCfg.FallbackTagged = c.Replies.Fallbacks.Synthesis.Tagged

	return New(Deps{
		Classifier:    classifyintent.NewHandler(classifyCfg, c.Generator, &classifyLogger{log}),
		Resolver:      resolvelocation.NewHandler(resolveCfg, c.Generator, &resolveLogger{log}),
		Aggregator:    aggregateevidence.NewHandler(evidenceCfg, c.Retrievers, c.Searcher, &evidenceLogger{log}),
		Climate:       climateanalysis.NewHandler(climateCfg, c.Generator, &climateLogger{log}),
		Business:      businessrisk.NewHandler(businessCfg, c.Generator, &businessLogger{log}),
		Synthesis:     synthesizereport.NewHandler(synthCfg, c.Generator, &synthesisLogger{log}),
		Sessions:      c.Sessions,
		Replies:       c.Replies,
		Audit:         c.Audit,
		Observability: c.Observability,
		Logger:        log,
	}, pc.ResponseFormat)
}

// applyStage overlays configured generation settings. Zero values keep
// the stage's own default.
func applyStage(sc config.StageConfig, maxTokens *int, temperature *float64, decoding *string, stop *[]string) {
	if sc.MaxTokens > 0 {
		*maxTokens = sc.MaxTokens
	}
	if sc.Temperature > 0 {
		*temperature = sc.Temperature
	}
	if sc.DecodingMethod != "" {
		*decoding = sc.DecodingMethod
	}
	if len(sc.StopSequences) > 0 {
		*stop = sc.StopSequences
	}
}

// ==========================
// Logger adapters
// ==========================

type classifyLogger struct{ logger.Logger }

func (a *classifyLogger) With(fields map[string]interface{}) classifyintent.Logger {
	return &classifyLogger{a.Logger.With(fields)}
}

type resolveLogger struct{ logger.Logger }

func (a *resolveLogger) With(fields map[string]interface{}) resolvelocation.Logger {
	return &resolveLogger{a.Logger.With(fields)}
}

type evidenceLogger struct{ logger.Logger }

func (a *evidenceLogger) With(fields map[string]interface{}) aggregateevidence.Logger {
	return &evidenceLogger{a.Logger.With(fields)}
}

type climateLogger struct{ logger.Logger }

func (a *climateLogger) With(fields map[string]interface{}) climateanalysis.Logger {
	return &climateLogger{a.Logger.With(fields)}
}

type businessLogger struct{ logger.Logger }

func (a *businessLogger) With(fields map[string]interface{}) businessrisk.Logger {
	return &businessLogger{a.Logger.With(fields)}
}

type synthesisLogger struct{ logger.Logger }

func (a *synthesisLogger) With(fields map[string]interface{}) synthesizereport.Logger {
	return &synthesisLogger{a.Logger.With(fields)}
}
