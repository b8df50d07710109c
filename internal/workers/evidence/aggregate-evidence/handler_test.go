// internal/workers/evidence/aggregate-evidence/handler_test.go
package aggregateevidence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"climate-risk-advisor/internal/common/retrieval"
	"climate-risk-advisor/internal/common/websearch"
	"climate-risk-advisor/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t      *testing.T
	mu     *sync.Mutex
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, mu: &sync.Mutex{}, fields: make(map[string]interface{})}
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.t.Logf("%s: %s %v %v", level, msg, l.fields, fields)
}

func (l *TestLogger) Info(msg string, fields map[string]interface{})  { l.log("INFO", msg, fields) }
func (l *TestLogger) Warn(msg string, fields map[string]interface{})  { l.log("WARN", msg, fields) }
func (l *TestLogger) Error(msg string, fields map[string]interface{}) { l.log("ERROR", msg, fields) }

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, mu: l.mu, fields: merged}
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.CallTimeout = time.Second
	return cfg
}

// docRetriever returns three documents per query, the first of which
// is shared by every query.
func docRetriever(calls *int32) retrieval.Retriever {
	return retrieval.RetrieverFunc(func(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		return []models.RetrievedDocument{
			{Source: "ipcc.pdf", Content: "shared chunk"},
			{Source: "q.pdf", Content: "about " + query},
			{Source: "extra.pdf", Content: "third hit " + query},
		}, nil
	})
}

func okSearcher() websearch.Searcher {
	return websearch.SearcherFunc(func(ctx context.Context, location string, cat models.SearchCategory) models.SearchCategoryResult {
		return models.SearchCategoryResult{
			Category: string(cat),
			Success:  true,
			Organic:  []models.SearchItem{{Title: string(cat) + " title", Snippet: "snippet for " + location, Link: "https://example.com/" + string(cat)}},
			News:     []models.NewsItem{{Title: "headline", Snippet: "news for " + location}},
		}
	})
}

func timeoutSearcher() websearch.Searcher {
	return websearch.SearcherFunc(func(ctx context.Context, location string, cat models.SearchCategory) models.SearchCategoryResult {
		return models.SearchCategoryResult{Category: string(cat), Error: "Search failed: timeout"}
	})
}

func retrievers(climate, business retrieval.Optional) map[models.Topic]retrieval.Optional {
	return map[models.Topic]retrieval.Optional{
		models.TopicClimate:  climate,
		models.TopicBusiness: business,
	}
}

// ==========================
// Query Tests
// ==========================

func TestQueriesFor(t *testing.T) {
	assert.Equal(t, []string{
		"climate change impacts Chicago temperature precipitation extreme weather",
		"sea level rise flooding Chicago coastal risks",
		"drought water scarcity Chicago agriculture",
		"extreme heat heatwave Chicago infrastructure",
	}, QueriesFor(models.TopicClimate, "Chicago"))

	assert.Equal(t, []string{
		"supply chain risk climate business continuity Miami",
		"operational resilience climate adaptation Miami",
		"financial impact climate change business Miami",
		"risk management climate hazards enterprise Miami",
	}, QueriesFor(models.TopicBusiness, "Miami"))

	assert.Empty(t, QueriesFor("sports", "Miami"))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Climate(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls int32
	h := NewHandler(createTestConfig(),
		retrievers(retrieval.Some(docRetriever(&calls)), retrieval.None()),
		okSearcher(), NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Topic: models.TopicClimate, Location: "Chicago"})
	require.NoError(t, err)
	b := out.Bundle

	assert.Equal(t, int32(4), calls)
	assert.Equal(t, models.LocalEvidenceFound, b.LocalStatus)

	// Two hits per query, the shared chunk only once.
	require.Len(t, b.Documents, 5)
	assert.Equal(t, "shared chunk", b.Documents[0].Content)
	assert.Equal(t, "about "+QueriesFor(models.TopicClimate, "Chicago")[0], b.Documents[1].Content)
	assert.Equal(t, "about "+QueriesFor(models.TopicClimate, "Chicago")[3], b.Documents[4].Content)

	require.Len(t, b.Search, 4)
	for i, cat := range []string{"weather", "risks", "news", "projections"} {
		assert.Equal(t, cat, b.Search[i].Category)
	}

	assert.Contains(t, b.Text, "\n--- WEATHER ---")
	assert.Contains(t, b.Text, "--- PROJECTIONS NEWS ---")
	assert.Contains(t, b.Text, "--- LOCAL CLIMATE DATABASE ---")
	assert.Less(t, strings.Index(b.Text, "--- WEATHER ---"), strings.Index(b.Text, "--- LOCAL CLIMATE DATABASE ---"))
	assert.Equal(t, 5+4*2, b.ItemCount)
}

func TestHandler_Execute_SearchTimeoutEverywhere(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := NewHandler(createTestConfig(),
		retrievers(retrieval.Some(docRetriever(nil)), retrieval.None()),
		timeoutSearcher(), NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Topic: models.TopicClimate, Location: "Chicago"})
	require.NoError(t, err)

	for _, cat := range []string{"WEATHER", "RISKS", "NEWS", "PROJECTIONS"} {
		assert.Contains(t, out.Bundle.Text, fmt.Sprintf("--- %s ---\nNo data available (Search failed: timeout)", cat))
	}
	assert.NotEmpty(t, out.Bundle.Documents)
	assert.Contains(t, out.Bundle.Text, "Document: ipcc.pdf")
}

func TestHandler_Execute_NoRetriever(t *testing.T) {
	tests := []struct {
		name  string
		topic models.Topic
		opt   retrieval.Optional
		want  string
	}{
		{"climate not configured", models.TopicClimate, retrieval.None(), notConfiguredText},
		{"business not configured", models.TopicBusiness, retrieval.None(), notConfiguredText},
		{
			"business empty",
			models.TopicBusiness,
			retrieval.Some(retrieval.RetrieverFunc(func(ctx context.Context, q string, k int) ([]models.RetrievedDocument, error) {
				return nil, nil
			})),
			noBusinessDocs,
		},
		{
			"climate empty",
			models.TopicClimate,
			retrieval.Some(retrieval.RetrieverFunc(func(ctx context.Context, q string, k int) ([]models.RetrievedDocument, error) {
				return nil, nil
			})),
			"--- LOCAL CLIMATE DATABASE ---\n" + noClimateDocs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), retrievers(tt.opt, tt.opt), nil, NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{Topic: tt.topic, Location: "Boston"})
			require.NoError(t, err)
			assert.Contains(t, out.Bundle.Text, tt.want)
			assert.Empty(t, out.Bundle.Documents)
		})
	}
}

func TestHandler_Execute_NilSearcher(t *testing.T) {
	h := NewHandler(createTestConfig(), retrievers(retrieval.None(), retrieval.None()), nil, NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Topic: models.TopicClimate, Location: "Boston"})
	require.NoError(t, err)
	assert.Contains(t, out.Bundle.Text, "--- WEATHER ---\nNo data available (Serper API key not configured)")
	assert.Equal(t, 0, out.Bundle.ItemCount)
}

func TestHandler_Execute_RetrievalFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	var n int32
	flaky := retrieval.RetrieverFunc(func(ctx context.Context, q string, k int) ([]models.RetrievedDocument, error) {
		switch atomic.AddInt32(&n, 1) % 2 {
		case 0:
			return nil, errors.New("index unavailable")
		default:
			<-ctx.Done()
			return nil, ctx.Err()
		}
	})

	cfg := createTestConfig()
	cfg.CallTimeout = 20 * time.Millisecond
	h := NewHandler(cfg, retrievers(retrieval.None(), retrieval.Some(flaky)), nil, NewTestLogger(t))

	start := time.Now()
	out, err := h.Execute(context.Background(), &Input{Topic: models.TopicBusiness, Location: "Austin"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, models.LocalEvidenceEmpty, out.Bundle.LocalStatus)
	assert.Contains(t, out.Bundle.Text, noBusinessDocs)
}

func TestHandler_Execute_Caps(t *testing.T) {
	many := retrieval.RetrieverFunc(func(ctx context.Context, q string, k int) ([]models.RetrievedDocument, error) {
		return []models.RetrievedDocument{
			{Source: "a", Content: "1 " + q + strings.Repeat("x", 700)},
			{Source: "b", Content: "2 " + q},
		}, nil
	})
	noisy := websearch.SearcherFunc(func(ctx context.Context, location string, cat models.SearchCategory) models.SearchCategoryResult {
		res := models.SearchCategoryResult{Category: string(cat), Success: true}
		for i := 0; i < 8; i++ {
			res.Organic = append(res.Organic, models.SearchItem{Title: "t", Snippet: "s", Link: fmt.Sprintf("https://x/%d", i%6)})
			res.News = append(res.News, models.NewsItem{Title: "n", Snippet: "s"})
		}
		return res
	})

	cfg := createTestConfig()
	cfg.SearchCategories[models.TopicBusiness] = []models.SearchCategory{models.CategoryGeneral}
	h := NewHandler(cfg, retrievers(retrieval.Some(many), retrieval.Some(many)), noisy, NewTestLogger(t))

	t.Run("climate", func(t *testing.T) {
		out, err := h.Execute(context.Background(), &Input{Topic: models.TopicClimate, Location: "Denver"})
		require.NoError(t, err)

		require.Len(t, out.Bundle.Documents, 8)
		for _, s := range out.Bundle.Search {
			assert.Len(t, s.Organic, 5)
			assert.Len(t, s.News, 3)
		}
		long := out.Bundle.Documents[0].Content
		assert.Equal(t, 503, len([]rune(long)))
		assert.True(t, strings.HasSuffix(long, "..."))
		assert.False(t, strings.HasSuffix(out.Bundle.Documents[1].Content, "..."))
	})

	t.Run("business", func(t *testing.T) {
		out, err := h.Execute(context.Background(), &Input{Topic: models.TopicBusiness, Location: "Denver"})
		require.NoError(t, err)

		assert.Equal(t, 603, len([]rune(out.Bundle.Documents[0].Content)))
		assert.Contains(t, out.Bundle.Text, "--- GENERAL ---")
		assert.Contains(t, out.Bundle.Text, "--- BUSINESS RISK DOCUMENTS ---")
		assert.Contains(t, out.Bundle.Text, "\nDocument 8: b\nContent: 2 ")
	})
}

func TestHandler_Execute_BoundedConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	var inFlight, peak int32
	track := func() func() {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return func() { atomic.AddInt32(&inFlight, -1) }
	}

	slowDocs := retrieval.RetrieverFunc(func(ctx context.Context, q string, k int) ([]models.RetrievedDocument, error) {
		defer track()()
		return nil, nil
	})
	slowSearch := websearch.SearcherFunc(func(ctx context.Context, location string, cat models.SearchCategory) models.SearchCategoryResult {
		defer track()()
		return models.SearchCategoryResult{Category: string(cat), Success: true}
	})

	cfg := createTestConfig()
	cfg.Workers = 2
	h := NewHandler(cfg, retrievers(retrieval.Some(slowDocs), retrieval.None()), slowSearch, NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{Topic: models.TopicClimate, Location: "Reno"})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestHandler_Execute_UnknownTopic(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, nil, NewTestLogger(t))
	_, err := h.Execute(context.Background(), &Input{Topic: "sports", Location: "Reno"})
	assert.True(t, errors.Is(err, ErrUnknownTopic))
}

func TestConfig_Workers(t *testing.T) {
	tests := []struct{ in, want int }{{0, 1}, {-3, 1}, {4, 4}, {8, 8}, {32, 8}}
	for _, tt := range tests {
		cfg := &Config{Workers: tt.in}
		assert.Equal(t, tt.want, cfg.workers(), "workers=%d", tt.in)
	}
}

// ==========================
// Rendering Tests
// ==========================

func TestRender(t *testing.T) {
	b := models.EvidenceBundle{
		Topic: models.TopicClimate,
		Search: []models.SearchCategoryResult{
			{
				Category: "weather",
				Success:  true,
				Organic:  []models.SearchItem{{Title: "T", Snippet: "S", Link: "L"}},
				News:     []models.NewsItem{{Title: "N", Snippet: "NS"}},
			},
			{Category: "risks", Error: "Search failed: timeout"},
		},
		LocalStatus: models.LocalEvidenceFound,
		Documents:   []models.RetrievedDocument{{Source: "a.pdf", Content: "c"}, {Content: "d"}},
	}

	want := "\n--- WEATHER ---\n" +
		"• T\n  Summary: S\n  Source: L\n\n" +
		"--- WEATHER NEWS ---\n" +
		"• N: NS\n" +
		"\n--- RISKS ---\nNo data available (Search failed: timeout)\n" +
		"\n--- LOCAL CLIMATE DATABASE ---\n" +
		"\nDocument: a.pdf\nContent: c\n" +
		"\nDocument: Unknown Source\nContent: d"

	if diff := cmp.Diff(want, render(b)); diff != "" {
		t.Errorf("render mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_EmptyLocalEvidence(t *testing.T) {
	tests := []struct {
		topic models.Topic
		want  string
	}{
		{models.TopicClimate, "\n--- LOCAL CLIMATE DATABASE ---\n" + noClimateDocs},
		{models.TopicBusiness, noBusinessDocs},
	}

	for _, tt := range tests {
		t.Run(string(tt.topic), func(t *testing.T) {
			got := render(models.EvidenceBundle{Topic: tt.topic, LocalStatus: models.LocalEvidenceEmpty})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_BusinessSources(t *testing.T) {
	b := models.EvidenceBundle{
		Topic:       models.TopicBusiness,
		LocalStatus: models.LocalEvidenceFound,
		Documents:   []models.RetrievedDocument{{Content: "x"}, {Source: "bcp.pdf", Content: "y"}},
	}

	want := "--- BUSINESS RISK DOCUMENTS ---\n" +
		"\nDocument 1: Source 1\nContent: x\n" +
		"\nDocument 2: bcp.pdf\nContent: y"
	assert.Equal(t, want, render(b))
}
