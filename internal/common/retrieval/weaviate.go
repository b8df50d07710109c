package retrieval

import (
	"context"
	"fmt"

	"climate-risk-advisor/internal/models"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wmodels "github.com/weaviate/weaviate/entities/models"
)

// WeaviateRetriever queries one Weaviate class, with either BM25 or
// nearText (the latter needs a vectorizer module on the class).
type WeaviateRetriever struct {
	client    *weaviate.Client
	className string
	nearText  bool
}

func NewWeaviateRetriever(client *weaviate.Client, className string, nearText bool) *WeaviateRetriever {
	return &WeaviateRetriever{client: client, className: className, nearText: nearText}
}

func (r *WeaviateRetriever) Retrieve(ctx context.Context, query string, k int) ([]models.RetrievedDocument, error) {
	get := r.client.GraphQL().Get().
		WithClassName(r.className).
		WithFields(graphql.Field{Name: "content"}, graphql.Field{Name: "source"}).
		WithLimit(k)

	if r.nearText {
		get = get.WithNearText(r.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{query}))
	} else {
		get = get.WithBM25(r.client.GraphQL().Bm25ArgBuilder().WithQuery(query))
	}

	result, err := get.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrRetrievalFailed, result.Errors[0].Message)
	}

	return sanitize(parseWeaviateObjects(result, r.className), k), nil
}

func parseWeaviateObjects(result *wmodels.GraphQLResponse, className string) []models.RetrievedDocument {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	objects, ok := data[className].([]interface{})
	if !ok {
		return nil
	}

	docs := make([]models.RetrievedDocument, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		content, _ := m["content"].(string)
		source, _ := m["source"].(string)
		docs = append(docs, models.RetrievedDocument{Content: content, Source: source})
	}
	return docs
}
