package pipeline

import (
	"context"

	businessrisk "climate-risk-advisor/internal/workers/analysis/business-risk"
	climateanalysis "climate-risk-advisor/internal/workers/analysis/climate-analysis"
	synthesizereport "climate-risk-advisor/internal/workers/analysis/synthesize-report"
	classifyintent "climate-risk-advisor/internal/workers/conversation/classify-intent"
	resolvelocation "climate-risk-advisor/internal/workers/conversation/resolve-location"
	aggregateevidence "climate-risk-advisor/internal/workers/evidence/aggregate-evidence"
)

// The stage contracts the pipeline drives. Each is satisfied by the
// Handler of the matching worker package.

type IntentClassifier interface {
	Execute(ctx context.Context, input *classifyintent.Input) (*classifyintent.Output, error)
}

type LocationResolver interface {
	Execute(ctx context.Context, input *resolvelocation.Input) (*resolvelocation.Output, error)
}

type EvidenceAggregator interface {
	Execute(ctx context.Context, input *aggregateevidence.Input) (*aggregateevidence.Output, error)
}

type ClimateAgent interface {
	Execute(ctx context.Context, input *climateanalysis.Input) (*climateanalysis.Output, error)
}

type BusinessAgent interface {
	Execute(ctx context.Context, input *businessrisk.Input) (*businessrisk.Output, error)
}

type Synthesizer interface {
	Execute(ctx context.Context, input *synthesizereport.Input) (*synthesizereport.Output, error)
}
