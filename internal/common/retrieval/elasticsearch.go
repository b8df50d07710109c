package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"climate-risk-advisor/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchRetriever runs a full-text match against one index.
type ElasticsearchRetriever struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchRetriever(client *elasticsearch.Client, index string) *ElasticsearchRetriever {
	return &ElasticsearchRetriever{client: client, index: index}
}

type esHit struct {
	Source struct {
		Content  string `json:"content"`
		Source   string `json:"source"`
		Metadata struct {
			Source string `json:"source"`
		} `json:"metadata"`
	} `json:"_source"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []esHit `json:"hits"`
	} `json:"hits"`
}

func (r *ElasticsearchRetriever) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"content": map[string]interface{}{
					"query": query,
				},
			},
		},
		"_source": []string{"content", "source", "metadata.source"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrRetrievalFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{r.index},
		Body:  bytes.NewReader(payload),
		Size:  &k,
	}
	res, err := req.Do(ctx, r.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: index %s: %s", ErrRetrievalFailed, r.index, res.Status())
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRetrievalFailed, err)
	}

	docs := make([]models.RetrievedDocument, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		src := h.Source.Source
		if src == "" {
			src = h.Source.Metadata.Source
		}
		docs = append(docs, models.RetrievedDocument{Content: h.Source.Content, Source: src})
	}
	return sanitize(docs, k), nil
}
