package llm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"climate-risk-advisor/internal/common/config"
	httpclient "climate-risk-advisor/internal/common/http"
)

// WatsonxClient calls the watsonx.ai text generation endpoint, exchanging
// the API key for an IAM bearer token as needed.
type WatsonxClient struct {
	http       *httpclient.Client
	baseURL    string
	iamURL     string
	apiKey     string
	projectID  string
	modelID    string
	apiVersion string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

type watsonxParameters struct {
	DecodingMethod string   `json:"decoding_method"`
	MaxNewTokens   int      `json:"max_new_tokens"`
	Temperature    float64  `json:"temperature"`
	StopSequences  []string `json:"stop_sequences,omitempty"`
}

type watsonxRequest struct {
	ModelID    string            `json:"model_id"`
	Input      string            `json:"input"`
	ProjectID  string            `json:"project_id"`
	Parameters watsonxParameters `json:"parameters"`
}

type watsonxResponse struct {
	Results []struct {
		GeneratedText string `json:"generated_text"`
		StopReason    string `json:"stop_reason"`
	} `json:"results"`
}

type iamTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Expiration  int64  `json:"expiration"`
}

func NewWatsonxClient(cfg config.LLMConfig) (*WatsonxClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: watsonx api key not configured", ErrUnauthorized)
	}
	return &WatsonxClient{
		http:       httpclient.NewClient(config.GetDuration(cfg.Timeout), cfg.MaxRetries),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		iamURL:     cfg.IAMURL,
		apiKey:     cfg.APIKey,
		projectID:  cfg.ProjectID,
		modelID:    cfg.ModelID,
		apiVersion: cfg.APIVersion,
		now:        time.Now,
	}, nil
}

func (c *WatsonxClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return "", err
	}

	decoding := opts.DecodingMethod
	if decoding == "" {
		decoding = "greedy"
	}
	req := watsonxRequest{
		ModelID:   c.modelID,
		Input:     prompt,
		ProjectID: c.projectID,
		Parameters: watsonxParameters{
			DecodingMethod: decoding,
			MaxNewTokens:   opts.MaxNewTokens,
			Temperature:    opts.Temperature,
			StopSequences:  opts.StopSequences,
		},
	}

	endpoint := fmt.Sprintf("%s/ml/v1/text/generation?version=%s", c.baseURL, url.QueryEscape(c.apiVersion))
	var resp watsonxResponse
	err = c.http.DoJSON(ctx, "POST", endpoint, map[string]string{"Authorization": "Bearer " + token}, req, &resp)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			if statusErr.StatusCode == 401 {
				c.invalidateToken()
			}
			return "", classifyStatus(statusErr.StatusCode, err)
		}
		return "", fmt.Errorf("watsonx generation: %w", err)
	}

	if len(resp.Results) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Results[0].GeneratedText, nil
}

// bearerToken returns a cached IAM token, refreshing it a minute before
// it expires.
func (c *WatsonxClient) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type": {"urn:ibm:params:oauth:grant-type:apikey"},
		"apikey":     {c.apiKey},
	}
	var tok iamTokenResponse
	if err := c.http.PostForm(ctx, c.iamURL, form, &tok); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return "", classifyStatus(statusErr.StatusCode, err)
		}
		return "", fmt.Errorf("iam token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: iam returned no access token", ErrUnauthorized)
	}

	c.token = tok.AccessToken
	switch {
	case tok.Expiration > 0:
		c.tokenExpiry = time.Unix(tok.Expiration, 0)
	case tok.ExpiresIn > 0:
		c.tokenExpiry = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	default:
		c.tokenExpiry = c.now().Add(20 * time.Minute)
	}
	return c.token, nil
}

func (c *WatsonxClient) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
