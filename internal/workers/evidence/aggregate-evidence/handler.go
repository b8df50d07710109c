// internal/workers/evidence/aggregate-evidence/handler.go
package aggregateevidence

import (
	"context"
	"errors"
	"fmt"

	apperrors "climate-risk-advisor/internal/common/errors"
	"climate-risk-advisor/internal/common/metrics"
	"climate-risk-advisor/internal/common/retrieval"
	"climate-risk-advisor/internal/common/websearch"
	"climate-risk-advisor/internal/models"

	"golang.org/x/sync/errgroup"
)

const (
	StageName = "aggregate-evidence"
)

var (
	ErrUnknownTopic = errors.New("UNKNOWN_TOPIC")
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Handler struct {
	config     *Config
	retrievers map[models.Topic]retrieval.Optional
	searcher   websearch.Searcher
	logger     Logger
}

// NewHandler wires the aggregator. Missing topics in retrievers are
// treated as not configured; a nil searcher reports every category as
// unavailable.
func NewHandler(config *Config, retrievers map[models.Topic]retrieval.Optional, searcher websearch.Searcher, log Logger) *Handler {
	return &Handler{
		config:     config,
		retrievers: retrievers,
		searcher:   searcher,
		logger: log.With(map[string]interface{}{
			"stage": StageName,
		}),
	}
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if _, ok := queryTemplates[input.Topic]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, input.Topic)
	}

	queries := QueriesFor(input.Topic, input.Location)
	categories := h.config.SearchCategories[input.Topic]
	retriever, hasRetriever := h.retrievers[input.Topic].Get()

	perQuery := make([][]models.RetrievedDocument, len(queries))
	search := make([]models.SearchCategoryResult, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.workers())

	if hasRetriever {
		for i, q := range queries {
			g.Go(func() error {
				perQuery[i] = h.retrieve(gctx, retriever, q)
				return nil
			})
		}
	}

	for i, cat := range categories {
		g.Go(func() error {
			search[i] = h.search(gctx, input.Location, cat)
			return nil
		})
	}

	// Tasks never return an error; Wait only joins them.
	_ = g.Wait()

	bundle := models.EvidenceBundle{
		Topic:    input.Topic,
		Location: input.Location,
		Search:   search,
	}

	switch {
	case !hasRetriever:
		bundle.LocalStatus = models.LocalEvidenceNotConfigured
	default:
		bundle.Documents = h.mergeDocuments(perQuery, h.config.TruncateAt[input.Topic])
		bundle.LocalStatus = models.LocalEvidenceFound
		if len(bundle.Documents) == 0 {
			bundle.LocalStatus = models.LocalEvidenceEmpty
		}
	}

	bundle.Text = render(bundle)
	bundle.ItemCount = countItems(bundle)

	h.observe(bundle)

	h.logger.Info("evidence aggregated", map[string]interface{}{
		"topic":       input.Topic,
		"location":    input.Location,
		"documents":   len(bundle.Documents),
		"categories":  len(search),
		"localStatus": bundle.LocalStatus,
		"itemCount":   bundle.ItemCount,
	})

	return &Output{Bundle: bundle}, nil
}

// retrieve runs one query under its own timeout. Failures yield no
// documents.
func (h *Handler) retrieve(ctx context.Context, r retrieval.Retriever, query string) []models.RetrievedDocument {
	ctx, cancel := context.WithTimeout(ctx, h.config.CallTimeout)
	defer cancel()

	docs, err := r.Retrieve(ctx, query, h.config.DocsPerQuery)
	if err != nil {
		h.logger.Warn("retrieval failed", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return nil
	}
	if len(docs) > h.config.DocsPerQuery {
		docs = docs[:h.config.DocsPerQuery]
	}
	return docs
}

// search runs one category under its own timeout and caps the items.
func (h *Handler) search(ctx context.Context, location string, cat models.SearchCategory) models.SearchCategoryResult {
	if h.searcher == nil {
		return models.SearchCategoryResult{
			Category: string(cat),
			Error:    apperrors.NewSearchNotConfiguredError().Message,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.CallTimeout)
	defer cancel()

	res := h.searcher.Search(ctx, location, cat)
	if res.Category == "" {
		res.Category = string(cat)
	}
	if !res.Success {
		h.logger.Warn("search failed", map[string]interface{}{
			"category": cat,
			"error":    res.Error,
		})
		return res
	}

	res.Organic = capOrganic(res.Organic, h.config.MaxOrganic)
	res.News = capNews(res.News, h.config.MaxNews)
	return res
}

// mergeDocuments concatenates per-query hits in query order, drops
// duplicate (source, content) pairs, caps the total and truncates.
func (h *Handler) mergeDocuments(perQuery [][]models.RetrievedDocument, truncateAt int) []models.RetrievedDocument {
	seen := make(map[[2]string]struct{})
	var out []models.RetrievedDocument

	for _, docs := range perQuery {
		for _, d := range docs {
			key := [2]string{d.Source, d.Content}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, d.Truncated(truncateAt))
			if len(out) == h.config.MaxDocuments {
				return out
			}
		}
	}
	return out
}

func capOrganic(items []models.SearchItem, limit int) []models.SearchItem {
	seen := make(map[string]struct{})
	out := make([]models.SearchItem, 0, limit)
	for _, it := range items {
		if it.Title == "" || it.Snippet == "" {
			continue
		}
		if it.Link != "" {
			if _, dup := seen[it.Link]; dup {
				continue
			}
			seen[it.Link] = struct{}{}
		}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}

func capNews(items []models.NewsItem, limit int) []models.NewsItem {
	out := make([]models.NewsItem, 0, limit)
	for _, it := range items {
		if it.Title == "" || it.Snippet == "" {
			continue
		}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}

func countItems(b models.EvidenceBundle) int {
	n := len(b.Documents)
	for _, s := range b.Search {
		n += len(s.Organic) + len(s.News)
	}
	return n
}

func (h *Handler) observe(b models.EvidenceBundle) {
	web := 0
	for _, s := range b.Search {
		web += len(s.Organic) + len(s.News)
		if !s.Success {
			metrics.SearchFailures.WithLabelValues(s.Category).Inc()
		}
	}
	metrics.EvidenceItems.WithLabelValues(string(b.Topic), "local").Observe(float64(len(b.Documents)))
	metrics.EvidenceItems.WithLabelValues(string(b.Topic), "web").Observe(float64(web))
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
