// Package websearch queries live web-search providers for supplementary evidence.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/mxrag/internal/config"
	"github.com/hyperjump/mxrag/internal/models"
	"github.com/hyperjump/mxrag/pkg/utils"
)

// Providers.
const (
	ProviderDuckDuckGo = "duckduckgo"
	ProviderSerpAPI    = "serpapi"
)

const (
	defaultDuckDuckGoEndpoint = "https://api.duckduckgo.com/"
	defaultSerpAPIEndpoint    = "https://serpapi.com/search.json"
	userAgent                 = "mxrag/1.0 (+https://github.com/hyperjump/mxrag)"
	maxTitleLen               = 100
)

// Searcher returns up to n results for keywords.
type Searcher interface {
	Search(ctx context.Context, keywords string, n int) ([]models.WebResult, error)
}

// Client is a rate-limited web-search client for one provider.
type Client struct {
	provider   string
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = utils.OrNop(l)
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for cfg.Provider. Requests are limited to cfg.RequestsPerSecond;
// a non-positive rate disables limiting.
func New(cfg config.WebSearchConfig, opts ...Option) (*Client, error) {
	c := &Client{
		provider:   cfg.Provider,
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     zap.NewNop(),
	}
	switch cfg.Provider {
	case ProviderDuckDuckGo:
		if c.endpoint == "" {
			c.endpoint = defaultDuckDuckGoEndpoint
		}
	case ProviderSerpAPI:
		if c.endpoint == "" {
			c.endpoint = defaultSerpAPIEndpoint
		}
		if c.apiKey == "" {
			return nil, fmt.Errorf("serpapi provider requires an api key (set web_search.api_key or %s)", config.EnvSerpAPIKey)
		}
	default:
		return nil, fmt.Errorf("unknown web search provider: %s (supported: duckduckgo, serpapi)", cfg.Provider)
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search waits for the rate limiter and queries the provider.
func (c *Client) Search(ctx context.Context, keywords string, n int) ([]models.WebResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("web search rate limit: %w", err)
	}
	var (
		results []models.WebResult
		err     error
	)
	switch c.provider {
	case ProviderSerpAPI:
		results, err = c.searchSerpAPI(ctx, keywords, n)
	default:
		results, err = c.searchDuckDuckGo(ctx, keywords, n)
	}
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", c.provider, err)
	}
	c.logger.Debug("web search completed",
		zap.String("provider", c.provider),
		zap.String("query", keywords),
		zap.Int("results", len(results)))
	return results, nil
}

func (c *Client) get(ctx context.Context, u string, out func(*http.Response) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("api returned status %d", resp.StatusCode)
	}
	return out(resp)
}
