package search

import (
	"time"
)

// ProviderKind describes how a provider is reached.
type ProviderKind string

const (
	// KindSubprocessTool is a long-lived out-of-process tool spoken to over a
	// request/response protocol on stdin/stdout.
	KindSubprocessTool ProviderKind = "subprocess-tool"

	// KindDirectAPI is a stateless network call to a search API.
	KindDirectAPI ProviderKind = "direct-api"
)

// Transport describes how to start or reach a provider's backend.
type Transport struct {
	// Subprocess-tool fields
	Command string            `json:"command,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	// Direct-api fields
	BaseURL string `json:"base_url,omitempty"`
	// AuthEnv names an environment variable holding the credential for this
	// provider. The credential itself never appears in configuration.
	AuthEnv string `json:"auth_env,omitempty"`
	// AuthHeader is the header the credential is sent in (default: Authorization).
	AuthHeader string `json:"auth_header,omitempty"`
}

// Provider is a named search backend loaded from configuration. Providers are
// immutable for the process lifetime.
type Provider struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Kind         ProviderKind  `json:"kind"`
	Enabled      bool          `json:"enabled"`
	Priority     int           `json:"priority"`
	CostScore    float64       `json:"cost_score"`
	QualityScore float64       `json:"quality_score"`
	Adapter      string        `json:"adapter"`
	Timeout      time.Duration `json:"timeout,omitempty"`
	Transport    Transport     `json:"transport"`
}

// Result is a single normalized search result.
type Result struct {
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Content   string    `json:"content"`
	Provider  string    `json:"provider"`
	Relevance float64   `json:"relevance"`
	Timestamp time.Time `json:"timestamp"`
}

// Response is the normalized answer to one hybrid search request.
type Response struct {
	RequestID     string            `json:"request_id"`
	Query         string            `json:"query"`
	Strategy      string            `json:"strategy"`
	ProvidersUsed []string          `json:"providers_used"`
	Results       []Result          `json:"results"`
	TotalResults  int               `json:"total_results"`
	Errors        []InvocationError `json:"errors,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// Classification is the derived, per-request view of a query. It is created
// fresh for every request and discarded after routing.
type Classification struct {
	Type       string   `json:"type"`
	Matched    []string `json:"matched_categories"`
	Confidence float64  `json:"confidence"`
	Suggested  []string `json:"suggested_providers,omitempty"`
}

// InvocationRecord captures one provider attempt. Records are never mutated
// after creation.
type InvocationRecord struct {
	Provider string        `json:"provider"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

// ProviderStats is the aggregate view over one provider's invocation records.
type ProviderStats struct {
	Invocations int           `json:"invocations"`
	Failures    int           `json:"failures"`
	AvgLatency  time.Duration `json:"avg_latency"`
}

// Stats is the aggregate view over every invocation since process start.
type Stats struct {
	TotalQueries int                      `json:"total_queries"`
	Successes    int                      `json:"successes"`
	Failures     int                      `json:"failures"`
	SuccessRate  float64                  `json:"success_rate"`
	PerProvider  map[string]ProviderStats `json:"per_provider"`
	RecentErrors []string                 `json:"recent_errors,omitempty"`
}
