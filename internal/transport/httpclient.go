package transport

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/omnisearch/omnisearch/internal/search"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// UserAgent for upstream API requests.
	UserAgent = "omnisearch/1.0"

	// DefaultRateLimit is the default maximum requests per second across all
	// direct-api providers sharing a client.
	DefaultRateLimit = 10

	// RateLimitEnvVar configures the request rate limit.
	RateLimitEnvVar = "SEARCH_RATE_LIMIT"
)

// HTTPClient is an interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RateLimitedHTTPClient implements HTTPClient with rate limiting.
type RateLimitedHTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
	mu      sync.Mutex
}

func configuredRateLimit() float64 {
	if envValue := os.Getenv(RateLimitEnvVar); envValue != "" {
		if value, err := strconv.ParseFloat(envValue, 64); err == nil && value > 0 {
			return value
		}
	}
	return DefaultRateLimit
}

// NewRateLimitedHTTPClient creates a new rate-limited HTTP client.
func NewRateLimitedHTTPClient(timeout time.Duration) *RateLimitedHTTPClient {
	return &RateLimitedHTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(configuredRateLimit()), 1),
	}
}

// Do implements the HTTPClient interface with rate limiting.
func (c *RateLimitedHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// HTTPHandle is a prepared client for one direct-api provider. Handles are
// cached by the connection manager and shared by concurrent requests.
type HTTPHandle struct {
	providerID string
	baseURL    string
	authHeader string
	authValue  string
	client     HTTPClient
	logger     *logrus.Logger
}

// NewHTTPHandle prepares a direct-api handle. When the provider names an auth
// environment variable that is unset, construction fails so the cascade can
// fall back to another provider.
func NewHTTPHandle(provider search.Provider, logger *logrus.Logger) (*HTTPHandle, error) {
	authValue := ""
	if provider.Transport.AuthEnv != "" {
		authValue = os.Getenv(provider.Transport.AuthEnv)
		if authValue == "" {
			return nil, fmt.Errorf("%w: %s requires %s to be set", search.ErrProviderUnavailable, provider.ID, provider.Transport.AuthEnv)
		}
	}

	authHeader := provider.Transport.AuthHeader
	if authHeader == "" {
		authHeader = "Authorization"
	}

	return &HTTPHandle{
		providerID: provider.ID,
		baseURL:    provider.Transport.BaseURL,
		authHeader: authHeader,
		authValue:  authValue,
		client:     NewRateLimitedHTTPClient(provider.Timeout),
		logger:     logger,
	}, nil
}

// ProviderID returns the owning provider's id.
func (h *HTTPHandle) ProviderID() string {
	return h.providerID
}

// BaseURL returns the provider's base URL.
func (h *HTTPHandle) BaseURL() string {
	return h.baseURL
}

// Get performs a GET against the provider with the given path and query
// parameters and returns the raw response body.
func (h *HTTPHandle) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL, err := url.Parse(h.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if params != nil {
		reqURL.RawQuery = params.Encode()
	}
	return h.GetURL(ctx, reqURL.String())
}

// GetURL performs a GET against an absolute URL. Used by adapters whose
// request target is the query itself rather than a provider endpoint.
func (h *HTTPHandle) GetURL(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", UserAgent)
	if h.authValue != "" {
		req.Header.Set(h.authHeader, h.authValue)
	}

	h.logger.WithFields(logrus.Fields{
		"provider": h.providerID,
		"url":      rawURL,
	}).Debug("Making provider API request")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			h.logger.WithError(closeErr).Warn("Failed to close response body")
		}
	}()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer func() {
			if closeErr := gzipReader.Close(); closeErr != nil {
				h.logger.WithError(closeErr).Warn("Failed to close gzip reader")
			}
		}()
		reader = gzipReader
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("authentication failed for provider %s: invalid credential", h.providerID)
		case http.StatusTooManyRequests:
			return nil, fmt.Errorf("rate limit exceeded for provider %s", h.providerID)
		default:
			return nil, fmt.Errorf("provider %s request failed with status %d: %s", h.providerID, resp.StatusCode, truncate(string(body), 200))
		}
	}

	return body, nil
}

// Close releases the handle. HTTP handles hold no resources beyond pooled
// connections, which the runtime reclaims.
func (h *HTTPHandle) Close() error {
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
