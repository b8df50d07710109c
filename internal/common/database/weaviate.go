package database

import (
	"context"
	"fmt"
	"net/url"

	"climate-risk-advisor/internal/common/config"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
)

// WeaviateClient wraps the vector store client.
type WeaviateClient struct {
	Client *weaviate.Client
}

// NewWeaviate builds a client from a URL such as http://localhost:8080.
func NewWeaviate(cfg config.WeaviateConfig) (*WeaviateClient, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid weaviate url %q", cfg.URL)
	}

	wcfg := weaviate.Config{
		Host:   u.Host,
		Scheme: u.Scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return &WeaviateClient{Client: client}, nil
}

// Ping checks that the instance is ready.
func (c *WeaviateClient) Ping(ctx context.Context) error {
	ready, err := c.Client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate ready check failed: %w", err)
	}
	if !ready {
		return fmt.Errorf("weaviate not ready")
	}
	return nil
}
