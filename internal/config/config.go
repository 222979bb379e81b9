// Package config loads and validates the omnisearch configuration document.
// Configuration is read once at startup; a malformed document prevents the
// process from starting.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/google/shlex"
	"github.com/omnisearch/omnisearch/internal/adapters"
	"github.com/omnisearch/omnisearch/internal/search"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigPathEnvVar overrides the configuration file location.
	ConfigPathEnvVar = "OMNISEARCH_CONFIG"

	// DefaultConfigPath is used when no path is supplied.
	DefaultConfigPath = "omnisearch.yaml"

	// DefaultStrategyName is the strategy used when a request names none.
	DefaultStrategyName = "smart_cascade"

	// DefaultMaxResults caps a response when the caller does not ask for a
	// specific count.
	DefaultMaxResults = 10

	// DefaultInvocationTimeout applies to providers without their own timeout.
	DefaultInvocationTimeout = 30 * time.Second

	// DefaultSimilarityThreshold is the title-overlap ratio above which two
	// results are considered duplicates.
	DefaultSimilarityThreshold = 0.8
)

// StrategyKind names a routing strategy family.
type StrategyKind string

const (
	StrategyCascade       StrategyKind = "cascade"
	StrategyParallelBest  StrategyKind = "parallel-best"
	StrategyCostOptimized StrategyKind = "cost-optimized"
)

// ProviderConfig is the YAML shape of one provider entry.
type ProviderConfig struct {
	Name         string          `yaml:"name"`
	Kind         string          `yaml:"kind"`
	Enabled      *bool           `yaml:"enabled"`
	Priority     int             `yaml:"priority"`
	CostScore    float64         `yaml:"cost_score"`
	QualityScore float64         `yaml:"quality_score"`
	Adapter      string          `yaml:"adapter"`
	Timeout      string          `yaml:"timeout"`
	Transport    TransportConfig `yaml:"transport"`
}

// TransportConfig is the YAML shape of a provider transport descriptor.
type TransportConfig struct {
	Command    string            `yaml:"command"`
	Env        map[string]string `yaml:"env"`
	BaseURL    string            `yaml:"base_url"`
	AuthEnv    string            `yaml:"auth_env"`
	AuthHeader string            `yaml:"auth_header"`
}

// StrategyStep is one (condition, providers) step of a cascade strategy.
type StrategyStep struct {
	Condition string   `yaml:"condition"`
	Providers []string `yaml:"providers"`
}

// StrategyConfig is the YAML shape of one routing strategy.
type StrategyConfig struct {
	Kind        StrategyKind   `yaml:"kind"`
	Steps       []StrategyStep `yaml:"steps"`
	Providers   []string       `yaml:"providers"`
	MaxParallel int            `yaml:"max_parallel"`
}

// ResultProcessingConfig tunes the result processor.
type ResultProcessingConfig struct {
	MinContentLength    int      `yaml:"min_content_length"`
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
}

// DefaultsConfig holds request-level defaults.
type DefaultsConfig struct {
	Strategy   string `yaml:"strategy"`
	MaxResults int    `yaml:"max_results"`
	Timeout    string `yaml:"timeout"`
}

// Config is the full configuration document.
type Config struct {
	Providers        map[string]ProviderConfig `yaml:"providers"`
	Strategies       map[string]StrategyConfig `yaml:"strategies"`
	QueryAnalysis    map[string][]string       `yaml:"query_analysis"`
	ResultProcessing ResultProcessingConfig    `yaml:"result_processing"`
	Defaults         DefaultsConfig            `yaml:"defaults"`

	// Derived fields, populated during validation.
	InvocationTimeout time.Duration `yaml:"-"`
}

// Path resolves the configuration file location from the environment or the
// supplied override.
func Path(override string) string {
	if override != "" {
		return override
	}
	if env := os.Getenv(ConfigPathEnvVar); env != "" {
		return env
	}
	return DefaultConfigPath
}

// Load reads, parses, and validates the configuration document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("config: at least one provider must be defined")
	}

	for id, p := range c.Providers {
		if err := validateProvider(id, p); err != nil {
			return err
		}
	}

	if c.Strategies == nil {
		c.Strategies = map[string]StrategyConfig{}
	}
	if _, ok := c.Strategies[DefaultStrategyName]; !ok {
		c.Strategies[DefaultStrategyName] = defaultCascade(c)
	}
	for name, s := range c.Strategies {
		if err := c.validateStrategy(name, s); err != nil {
			return err
		}
	}

	for category, patterns := range c.QueryAnalysis {
		for _, pattern := range patterns {
			if _, err := regexp.Compile("(?i)" + pattern); err != nil {
				return fmt.Errorf("config: query_analysis category %q has invalid pattern %q: %w", category, pattern, err)
			}
		}
	}

	if c.ResultProcessing.MinContentLength < 0 {
		return fmt.Errorf("config: result_processing.min_content_length must be >= 0")
	}
	if t := c.ResultProcessing.SimilarityThreshold; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("config: result_processing.similarity_threshold must be within [0,1], got %v", *t)
	}

	if c.Defaults.Strategy == "" {
		c.Defaults.Strategy = DefaultStrategyName
	}
	if _, ok := c.Strategies[c.Defaults.Strategy]; !ok {
		return fmt.Errorf("config: defaults.strategy %q is not a defined strategy", c.Defaults.Strategy)
	}
	if c.Defaults.MaxResults < 0 {
		return fmt.Errorf("config: defaults.max_results must be >= 0")
	}
	if c.Defaults.MaxResults == 0 {
		c.Defaults.MaxResults = DefaultMaxResults
	}

	c.InvocationTimeout = DefaultInvocationTimeout
	if c.Defaults.Timeout != "" {
		d, err := time.ParseDuration(c.Defaults.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("config: defaults.timeout %q is not a valid duration", c.Defaults.Timeout)
		}
		c.InvocationTimeout = d
	}

	return nil
}

func validateProvider(id string, p ProviderConfig) error {
	if id == "" {
		return fmt.Errorf("config: provider with empty id")
	}
	switch search.ProviderKind(p.Kind) {
	case search.KindSubprocessTool:
		if p.Transport.Command == "" {
			return fmt.Errorf("config: provider %q is a subprocess-tool but has no transport.command", id)
		}
		argv, err := shlex.Split(p.Transport.Command)
		if err != nil || len(argv) == 0 {
			return fmt.Errorf("config: provider %q has unparseable transport.command %q", id, p.Transport.Command)
		}
	case search.KindDirectAPI:
		if p.Transport.BaseURL == "" {
			return fmt.Errorf("config: provider %q is a direct-api provider but has no transport.base_url", id)
		}
		parsed, err := url.Parse(p.Transport.BaseURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("config: provider %q has invalid transport.base_url %q", id, p.Transport.BaseURL)
		}
	default:
		return fmt.Errorf("config: provider %q has unknown kind %q (expected %s or %s)",
			id, p.Kind, search.KindSubprocessTool, search.KindDirectAPI)
	}

	requiredKind, ok := adapters.RequiredKind(p.Adapter)
	if !ok {
		return fmt.Errorf("config: provider %q names unknown adapter %q", id, p.Adapter)
	}
	if requiredKind != search.ProviderKind(p.Kind) {
		return fmt.Errorf("config: provider %q adapter %q requires kind %s, provider is %s", id, p.Adapter, requiredKind, p.Kind)
	}
	if p.Timeout != "" {
		d, err := time.ParseDuration(p.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("config: provider %q has invalid timeout %q", id, p.Timeout)
		}
	}
	return nil
}

func (c *Config) validateStrategy(name string, s StrategyConfig) error {
	checkProviders := func(ids []string, where string) error {
		for _, id := range ids {
			if _, ok := c.Providers[id]; !ok {
				return fmt.Errorf("config: strategy %q %s references unknown provider %q", name, where, id)
			}
		}
		return nil
	}

	switch s.Kind {
	case StrategyCascade:
		if len(s.Steps) == 0 {
			return fmt.Errorf("config: cascade strategy %q has no steps", name)
		}
		for i, step := range s.Steps {
			if step.Condition == "" {
				return fmt.Errorf("config: cascade strategy %q step %d has no condition", name, i)
			}
			if len(step.Providers) == 0 {
				return fmt.Errorf("config: cascade strategy %q step %d (%s) has no providers", name, i, step.Condition)
			}
			if err := checkProviders(step.Providers, fmt.Sprintf("step %d", i)); err != nil {
				return err
			}
		}
	case StrategyParallelBest:
		if len(s.Providers) == 0 {
			return fmt.Errorf("config: parallel-best strategy %q has no providers", name)
		}
		if s.MaxParallel < 1 {
			return fmt.Errorf("config: parallel-best strategy %q must set max_parallel >= 1", name)
		}
		if err := checkProviders(s.Providers, "provider list"); err != nil {
			return err
		}
	case StrategyCostOptimized:
		// Operates over all enabled providers; nothing to reference.
	default:
		return fmt.Errorf("config: strategy %q has unknown kind %q", name, s.Kind)
	}
	return nil
}

// defaultCascade builds the built-in smart_cascade strategy: every provider in
// priority order behind a single catch-all step.
func defaultCascade(c *Config) StrategyConfig {
	ids := make([]string, 0, len(c.Providers))
	for id := range c.Providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := c.Providers[ids[i]], c.Providers[ids[j]]
		if pi.Priority != pj.Priority {
			return pi.Priority < pj.Priority
		}
		return ids[i] < ids[j]
	})
	return StrategyConfig{
		Kind:  StrategyCascade,
		Steps: []StrategyStep{{Condition: "default", Providers: ids}},
	}
}

// BuildProviders converts the provider section into the immutable runtime
// model consumed by the registry.
func (c *Config) BuildProviders() []search.Provider {
	providers := make([]search.Provider, 0, len(c.Providers))
	for id, pc := range c.Providers {
		enabled := true
		if pc.Enabled != nil {
			enabled = *pc.Enabled
		}
		timeout := c.InvocationTimeout
		if pc.Timeout != "" {
			// Validated above, cannot fail here.
			timeout, _ = time.ParseDuration(pc.Timeout)
		}
		providers = append(providers, search.Provider{
			ID:           id,
			Name:         pc.Name,
			Kind:         search.ProviderKind(pc.Kind),
			Enabled:      enabled,
			Priority:     pc.Priority,
			CostScore:    pc.CostScore,
			QualityScore: pc.QualityScore,
			Adapter:      pc.Adapter,
			Timeout:      timeout,
			Transport: search.Transport{
				Command:    pc.Transport.Command,
				Env:        pc.Transport.Env,
				BaseURL:    pc.Transport.BaseURL,
				AuthEnv:    pc.Transport.AuthEnv,
				AuthHeader: pc.Transport.AuthHeader,
			},
		})
	}
	sort.Slice(providers, func(i, j int) bool {
		if providers[i].Priority != providers[j].Priority {
			return providers[i].Priority < providers[j].Priority
		}
		return providers[i].ID < providers[j].ID
	})
	return providers
}

// SimilarityThreshold returns the configured dedup threshold or the default.
func (c *Config) SimilarityThreshold() float64 {
	if c.ResultProcessing.SimilarityThreshold != nil {
		return *c.ResultProcessing.SimilarityThreshold
	}
	return DefaultSimilarityThreshold
}
