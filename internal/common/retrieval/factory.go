package retrieval

import (
	"fmt"

	"climate-risk-advisor/internal/common/config"
	"climate-risk-advisor/internal/common/database"
	"climate-risk-advisor/internal/models"
)

// Backends holds the already-connected clients a retriever can use.
// Either may be nil.
type Backends struct {
	Elasticsearch *database.ElasticsearchClient
	Weaviate      *database.WeaviateClient
}

// ForTopics returns one Optional per topic. A topic without an index
// name, or a backend that is not connected, yields None.
func ForTopics(cfg config.RetrievalConfig, b Backends) (map[models.Topic]Optional, error) {
	indexes := map[models.Topic]string{
		models.TopicClimate:  cfg.ClimateIndex,
		models.TopicBusiness: cfg.BusinessIndex,
	}

	out := make(map[models.Topic]Optional, len(indexes))
	for topic, index := range indexes {
		if index == "" {
			out[topic] = None()
			continue
		}
		switch cfg.Backend {
		case "elasticsearch":
			if b.Elasticsearch == nil {
				out[topic] = None()
				continue
			}
			out[topic] = Some(NewElasticsearchRetriever(b.Elasticsearch.Client, index))
		case "weaviate":
			if b.Weaviate == nil {
				out[topic] = None()
				continue
			}
			out[topic] = Some(NewWeaviateRetriever(b.Weaviate.Client, index, cfg.WeaviateSearch == "near_text"))
		case "none", "":
			out[topic] = None()
		default:
			return nil, fmt.Errorf("unknown retrieval backend %q", cfg.Backend)
		}
	}
	return out, nil
}
