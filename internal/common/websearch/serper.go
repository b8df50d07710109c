// Package websearch queries the Serper web search API for climate data.
// Failures are reported inside the result, never as a Go error.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"climate-risk-advisor/internal/common/config"
	apperrors "climate-risk-advisor/internal/common/errors"
	httpclient "climate-risk-advisor/internal/common/http"
	"climate-risk-advisor/internal/models"

	"golang.org/x/time/rate"
)

// Searcher runs one category search for a location.
type Searcher interface {
	Search(ctx context.Context, location string, category models.SearchCategory) models.SearchCategoryResult
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, location string, category models.SearchCategory) models.SearchCategoryResult

func (f SearcherFunc) Search(ctx context.Context, location string, category models.SearchCategory) models.SearchCategoryResult {
	return f(ctx, location, category)
}

var locationTemplates = map[models.SearchCategory]string{
	models.CategoryWeather:     "current weather %s extreme weather alerts",
	models.CategoryRisks:       "climate risks %s flooding hurricane drought wildfire",
	models.CategoryNews:        "climate change impact %s business operations 2024 2025",
	models.CategoryProjections: "climate projections %s sea level rise temperature",
	models.CategoryGeneral:     "climate risks business impact %s",
}

var globalQueries = map[models.SearchCategory]string{
	models.CategoryWeather:     "current global weather extreme weather alerts",
	models.CategoryRisks:       "global climate risks flooding hurricane drought wildfire",
	models.CategoryNews:        "global climate change impact business operations 2024 2025",
	models.CategoryProjections: "global climate projections sea level rise temperature",
	models.CategoryGeneral:     "global climate risks business impact",
}

// BuildQuery returns the search string for a location and category.
// Unknown categories use the general template; a global location drops
// the location token.
func BuildQuery(location string, category models.SearchCategory) string {
	if _, ok := locationTemplates[category]; !ok {
		category = models.CategoryGeneral
	}
	if strings.EqualFold(strings.TrimSpace(location), models.SentinelLocation) {
		return globalQueries[category]
	}
	return fmt.Sprintf(locationTemplates[category], location)
}

// SerperClient calls google.serper.dev.
type SerperClient struct {
	http       *httpclient.Client
	baseURL    string
	apiKey     string
	country    string
	numResults int
	limiter    *rate.Limiter
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	GL  string `json:"gl"`
}

type serperItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

type serperResponse struct {
	Organic []serperItem `json:"organic"`
	News    []serperItem `json:"news"`
}

func NewSerperClient(cfg config.WebSearchConfig) *SerperClient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &SerperClient{
		http:       httpclient.NewClient(config.GetDuration(cfg.Timeout), 0),
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		country:    cfg.Country,
		numResults: cfg.NumResults,
		limiter:    rate.NewLimiter(limit, 4),
	}
}

func (c *SerperClient) Search(ctx context.Context, location string, category models.SearchCategory) models.SearchCategoryResult {
	result := models.SearchCategoryResult{Category: string(category)}

	if c.apiKey == "" {
		result.Error = apperrors.NewSearchNotConfiguredError().Message
		return result
	}

	q := BuildQuery(location, category)
	result.Query = q

	if err := c.limiter.Wait(ctx); err != nil {
		result.Error = fmt.Sprintf("Search failed: %v", err)
		return result
	}

	var resp serperResponse
	err := c.http.DoJSON(ctx, "POST", c.baseURL, map[string]string{"X-API-KEY": c.apiKey},
		serperRequest{Q: q, Num: c.numResults, GL: c.country}, &resp)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result.Error = "Search failed: timeout"
		} else {
			result.Error = fmt.Sprintf("Search failed: %v", err)
		}
		return result
	}

	result.Success = true
	for _, it := range resp.Organic {
		if it.Title == "" || it.Snippet == "" {
			continue
		}
		result.Organic = append(result.Organic, models.SearchItem{Title: it.Title, Snippet: it.Snippet, Link: it.Link})
	}
	for _, it := range resp.News {
		if it.Title == "" || it.Snippet == "" {
			continue
		}
		result.News = append(result.News, models.NewsItem{Title: it.Title, Snippet: it.Snippet})
	}
	return result
}
