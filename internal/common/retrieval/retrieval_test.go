package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"climate-risk-advisor/internal/common/config"
	"climate-risk-advisor/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

// ==========================
// Optional
// ==========================

func TestOptional(t *testing.T) {
	_, ok := None().Get()
	assert.False(t, ok)

	_, ok = Some(nil).Get()
	assert.False(t, ok, "Some(nil) must behave as None")

	typedNil := []Retriever{
		(*ElasticsearchRetriever)(nil),
		(*WeaviateRetriever)(nil),
		RetrieverFunc(nil),
	}
	for _, r := range typedNil {
		_, ok = Some(r).Get()
		assert.False(t, ok, "typed nil %T must behave as None", r)
	}

	stub := RetrieverFunc(func(context.Context, string, int) ([]models.RetrievedDocument, error) { return nil, nil })
	r, ok := Some(stub).Get()
	assert.True(t, ok)
	assert.NotNil(t, r)
}

func TestSanitize(t *testing.T) {
	docs := []models.RetrievedDocument{
		{Content: "", Source: "empty.pdf"},
		{Content: "a", Source: "a.pdf"},
		{Content: "b", Source: "b.pdf"},
		{Content: "c", Source: "c.pdf"},
	}
	got := sanitize(docs, 2)
	assert.Equal(t, []models.RetrievedDocument{{Content: "a", Source: "a.pdf"}, {Content: "b", Source: "b.pdf"}}, got)
}

// ==========================
// Elasticsearch
// ==========================

func newFakeElasticsearch(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticsearchRetriever_Retrieve(t *testing.T) {
	client := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/climate-docs/_search", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("size"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		match := body["query"].(map[string]interface{})["match"].(map[string]interface{})
		assert.Equal(t, "drought Chicago", match["content"].(map[string]interface{})["query"])

		w.Write([]byte(`{"hits":{"hits":[
			{"_source":{"content":"Great Lakes flooding","source":"noaa.pdf"}},
			{"_source":{"content":"Heat islands","metadata":{"source":"epa.pdf"}}},
			{"_source":{"source":"no-content.pdf"}}
		]}}`))
	})

	r := NewElasticsearchRetriever(client, "climate-docs")
	docs, err := r.Retrieve(context.Background(), "drought Chicago", 2)
	require.NoError(t, err)
	assert.Equal(t, []models.RetrievedDocument{
		{Content: "Great Lakes flooding", Source: "noaa.pdf"},
		{Content: "Heat islands", Source: "epa.pdf"},
	}, docs)
}

func TestElasticsearchRetriever_IndexMissing(t *testing.T) {
	client := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"index_not_found_exception"},"status":404}`))
	})

	r := NewElasticsearchRetriever(client, "missing")
	_, err := r.Retrieve(context.Background(), "q", 2)
	assert.True(t, errors.Is(err, ErrRetrievalFailed))
}

// ==========================
// Weaviate
// ==========================

func newFakeWeaviate(t *testing.T, handler http.HandlerFunc) *weaviate.Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	client, err := weaviate.NewClient(weaviate.Config{Host: u.Host, Scheme: u.Scheme})
	require.NoError(t, err)
	return client
}

func TestWeaviateRetriever_BM25(t *testing.T) {
	client := newFakeWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/graphql", r.URL.Path)
		var body struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body.Query, "BusinessDoc")
		assert.Contains(t, body.Query, "bm25")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"Get":{"BusinessDoc":[
			{"content":"Dual sourcing reduces disruption","source":"wef.pdf"},
			{"content":"","source":"blank.pdf"}
		]}}}`))
	})

	r := NewWeaviateRetriever(client, "BusinessDoc", false)
	docs, err := r.Retrieve(context.Background(), "supply chain risk", 2)
	require.NoError(t, err)
	assert.Equal(t, []models.RetrievedDocument{{Content: "Dual sourcing reduces disruption", Source: "wef.pdf"}}, docs)
}

func TestWeaviateRetriever_GraphQLError(t *testing.T) {
	client := newFakeWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors":[{"message":"Cannot query field \"content\""}]}`))
	})

	r := NewWeaviateRetriever(client, "BusinessDoc", true)
	_, err := r.Retrieve(context.Background(), "q", 2)
	assert.ErrorIs(t, err, ErrRetrievalFailed)
}

// ==========================
// Factory
// ==========================

func TestForTopics(t *testing.T) {
	opts, err := ForTopics(config.RetrievalConfig{Backend: "none", ClimateIndex: "c", BusinessIndex: "b"}, Backends{})
	require.NoError(t, err)
	_, ok := opts[models.TopicClimate].Get()
	assert.False(t, ok)

	// A configured backend that failed to connect degrades to None.
	opts, err = ForTopics(config.RetrievalConfig{Backend: "elasticsearch", ClimateIndex: "c"}, Backends{})
	require.NoError(t, err)
	_, ok = opts[models.TopicClimate].Get()
	assert.False(t, ok)

	_, err = ForTopics(config.RetrievalConfig{Backend: "chroma", ClimateIndex: "c"}, Backends{})
	assert.Error(t, err)
}
