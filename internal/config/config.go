package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"atsforge/internal/scorer"
)

// Config holds all application configuration
// API Key Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (ATSFORGE_AI_APIKEY, etc.)
// 4. Default values - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Scoring       ScoringConfig       `mapstructure:"scoring"`
	Selection     SelectionConfig     `mapstructure:"selection"`
	Gate          GateConfig          `mapstructure:"gate"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds AI service configuration
type AIConfig struct {
	// Global/fallback configuration
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	APIKey      string        `mapstructure:"apiKey"`
	MaxRetries  int           `mapstructure:"maxRetries"`
	Temperature float32       `mapstructure:"temperature"`

	// Operation-specific configurations
	Embed   OperationAIConfig `mapstructure:"embed"`
	Rewrite OperationAIConfig `mapstructure:"rewrite"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// OperationAIConfig holds AI configuration for specific operations
type OperationAIConfig struct {
	Provider       string               `mapstructure:"provider"`
	Model          string               `mapstructure:"model"`
	Timeout        *time.Duration       `mapstructure:"timeout"`
	APIKey         string               `mapstructure:"apiKey"`
	MaxRetries     *int                 `mapstructure:"maxRetries"`
	Temperature    *float32             `mapstructure:"temperature"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// ScoringConfig holds relevance scoring configuration
type ScoringConfig struct {
	// Weights maps sub-score names to their share of the overall score.
	// Keys must be exactly the five known sub-scores and sum to 1.0.
	Weights     map[string]float64 `mapstructure:"weights"`
	MaxKeywords int                `mapstructure:"maxKeywords"` // target keywords extracted per description

	FuzzyThreshold int            `mapstructure:"fuzzyThreshold"` // similarity ratio floor for the fuzzy tier (0-100)
	Semantic       SemanticConfig `mapstructure:"semantic"`
}

// SemanticConfig holds embedding-based matching configuration
type SemanticConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Threshold float64       `mapstructure:"threshold"` // cosine similarity floor (0.0-1.0)
	Timeout   time.Duration `mapstructure:"timeout"`   // budget for the batched embedding call
}

// SelectionConfig holds content selection caps
type SelectionConfig struct {
	MaxSkills            int     `mapstructure:"maxSkills"`
	MaxBulletsRecentRole int     `mapstructure:"maxBulletsRecentRole"`
	MaxBulletsOlderRole  int     `mapstructure:"maxBulletsOlderRole"`
	MaxProjects          int     `mapstructure:"maxProjects"`
	ProjectFloor         int     `mapstructure:"projectFloor"`
	DiversityFraction    float64 `mapstructure:"diversityFraction"`
}

// GateConfig holds quality-gate loop configuration
type GateConfig struct {
	PassThreshold int                 `mapstructure:"passThreshold"` // minimum overall score to pass (1-100)
	MaxRetries    int                 `mapstructure:"maxRetries"`    // retries after the initial attempt
	BatchWorkers  int                 `mapstructure:"batchWorkers"`  // bounded pool size for batch runs
	Cache         DocumentCacheConfig `mapstructure:"cache"`
	SummaryCache  SummaryCacheConfig  `mapstructure:"summaryCache"`
}

// DocumentCacheConfig holds the near-duplicate document cache configuration
type DocumentCacheConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	MinSimilarity float64 `mapstructure:"minSimilarity"` // token-set similarity floor for a cache hit
}

// SummaryCacheConfig holds the summary rewrite cache configuration
type SummaryCacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// TLS Configuration
	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"`     // TLS mode: "disabled", "server", "mutual"
	CertFile string `mapstructure:"certFile"` // Server certificate file (PEM)
	KeyFile  string `mapstructure:"keyFile"`  // Server private key file (PEM)
	CAFile   string `mapstructure:"caFile"`   // CA certificate file for client cert verification (PEM, required for mutual mode)

	// Certificate content (used when loaded from Vault instead of files)
	CertContent string `mapstructure:"certContent"` // Server certificate content (PEM)
	KeyContent  string `mapstructure:"keyContent"`  // Server private key content (PEM)
	CAContent   string `mapstructure:"caContent"`   // CA certificate content (PEM)

	// Advanced TLS options
	MinVersion       string   `mapstructure:"minVersion"`       // Minimum TLS version: "1.2", "1.3"
	CipherSuites     []string `mapstructure:"cipherSuites"`     // Allowed cipher suites (optional)
	ClientAuthPolicy string   `mapstructure:"clientAuthPolicy"` // Client auth policy for mutual mode: "require", "request", "verify"

	// Certificate validation options
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"` // Skip certificate verification (dev only)
	ServerName         string `mapstructure:"serverName"`         // Expected server name for client connections

	// Auto-reload configuration
	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig holds configuration for automatic certificate reloading
type AutoReloadConfig struct {
	Enabled       bool              `mapstructure:"enabled"`       // Enable auto-reload functionality
	CheckInterval time.Duration     `mapstructure:"checkInterval"` // Interval for checking certificate expiry
	MaxRetries    int               `mapstructure:"maxRetries"`    // Maximum retry attempts for failed reloads
	RetryDelay    time.Duration     `mapstructure:"retryDelay"`    // Delay between retry attempts
	FileWatcher   FileWatcherConfig `mapstructure:"fileWatcher"`   // File-based watching configuration
}

// FileWatcherConfig holds configuration for file-based certificate watching
type FileWatcherConfig struct {
	Enabled       bool          `mapstructure:"enabled"`       // Enable file watching
	DebounceDelay time.Duration `mapstructure:"debounceDelay"` // Debounce delay for file change events
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	AIOperations    AIOperationsMetricsConfig `mapstructure:"aiOperations"`
	BusinessMetrics BusinessMetricsConfig     `mapstructure:"businessMetrics"`
}

// AIOperationsMetricsConfig holds AI operation metrics configuration
type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
}

// BusinessMetricsConfig holds business metrics configuration
type BusinessMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackScores     bool `mapstructure:"trackScores"`     // score distribution per gate run
	TrackCacheHits  bool `mapstructure:"trackCacheHits"`  // document and summary cache hit counters
	TrackGateStates bool `mapstructure:"trackGateStates"` // terminal state counters (passed/escalated)
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ATSFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/atsforge/")
	v.AddConfigPath("$HOME/.atsforge")
	v.AddConfigPath(".")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.3)

	// AI Configuration - Embed operation defaults
	v.SetDefault("ai.embed.provider", "gemini")
	v.SetDefault("ai.embed.model", "gemini-embedding-001")
	v.SetDefault("ai.embed.timeout", 30*time.Second) // one batched call per scoring run
	v.SetDefault("ai.embed.apiKey", "")
	v.SetDefault("ai.embed.maxRetries", 3)
	v.SetDefault("ai.embed.temperature", 0.0)

	// AI Configuration - Rewrite operation defaults
	v.SetDefault("ai.rewrite.provider", "gemini")
	v.SetDefault("ai.rewrite.model", "")
	v.SetDefault("ai.rewrite.timeout", 60*time.Second)
	v.SetDefault("ai.rewrite.apiKey", "")
	v.SetDefault("ai.rewrite.maxRetries", 2)
	v.SetDefault("ai.rewrite.temperature", 0.3) // low temperature keeps rewrites close to the facts

	// Circuit Breaker Configuration defaults for all operations
	v.SetDefault("ai.embed.circuitBreaker.enabled", true)
	v.SetDefault("ai.embed.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.embed.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.embed.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.embed.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.embed.circuitBreaker.failureThreshold", 0.6)

	v.SetDefault("ai.rewrite.circuitBreaker.enabled", true)
	v.SetDefault("ai.rewrite.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.rewrite.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.rewrite.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.rewrite.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.rewrite.circuitBreaker.failureThreshold", 0.6)

	// Scoring Configuration
	v.SetDefault("scoring.weights", map[string]float64{
		scorer.WeightKeywordMatch:        0.40,
		scorer.WeightSectionCompleteness: 0.15,
		scorer.WeightKeywordDensity:      0.15,
		scorer.WeightExperienceRelevance: 0.15,
		scorer.WeightFormatting:          0.15,
	})
	v.SetDefault("scoring.maxKeywords", 25)
	v.SetDefault("scoring.fuzzyThreshold", 85)
	v.SetDefault("scoring.semantic.enabled", true)
	v.SetDefault("scoring.semantic.threshold", 0.85)
	v.SetDefault("scoring.semantic.timeout", 10*time.Second)

	// Selection Configuration
	v.SetDefault("selection.maxSkills", 15)
	v.SetDefault("selection.maxBulletsRecentRole", 5)
	v.SetDefault("selection.maxBulletsOlderRole", 3)
	v.SetDefault("selection.maxProjects", 2)
	v.SetDefault("selection.projectFloor", 1)
	v.SetDefault("selection.diversityFraction", 0.5)

	// Gate Configuration
	v.SetDefault("gate.passThreshold", 70)
	v.SetDefault("gate.maxRetries", 2)
	v.SetDefault("gate.batchWorkers", 4)
	v.SetDefault("gate.cache.enabled", true)
	v.SetDefault("gate.cache.minSimilarity", 0.90)
	v.SetDefault("gate.summaryCache.enabled", true)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	// TLS Configuration defaults
	v.SetDefault("server.tls.mode", "disabled") // disabled, server, mutual
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")           // TLS 1.2 minimum
	v.SetDefault("server.tls.cipherSuites", []string{})    // Use Go defaults
	v.SetDefault("server.tls.clientAuthPolicy", "require") // require, request, verify
	v.SetDefault("server.tls.insecureSkipVerify", false)
	v.SetDefault("server.tls.serverName", "")

	// Auto-reload configuration defaults
	v.SetDefault("server.tls.autoReload.enabled", true)
	v.SetDefault("server.tls.autoReload.checkInterval", 30*time.Second)
	v.SetDefault("server.tls.autoReload.maxRetries", 3)
	v.SetDefault("server.tls.autoReload.retryDelay", 10*time.Second)
	v.SetDefault("server.tls.autoReload.fileWatcher.enabled", true)
	v.SetDefault("server.tls.autoReload.fileWatcher.debounceDelay", time.Second)

	// API Authentication defaults
	v.SetDefault("server.apiKeys", []string{})
	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 1024*1024) // 1MB

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.tlsCerts", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "atsforge")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	// Tracing Configuration
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	// Metrics Configuration
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	// Custom Metrics Configuration
	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackScores", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackCacheHits", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackGateStates", true)

	// Prometheus Configuration
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	// OTLP Configuration
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}

// Validate checks if the configuration is valid. Scoring and gate settings are
// validated here so a misconfigured deployment fails at startup, not on the
// first scoring call. The AI API key is deliberately not required: scoring
// degrades to exact+fuzzy matching and selection falls back to profile
// summaries when no provider is configured.
func (c *Config) Validate() error {
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if err := scorer.ValidateWeights(c.Scoring.Weights); err != nil {
		return fmt.Errorf("scoring weights: %w", err)
	}
	if c.Scoring.MaxKeywords <= 0 {
		return fmt.Errorf("scoring maxKeywords must be positive")
	}
	if c.Scoring.FuzzyThreshold < 1 || c.Scoring.FuzzyThreshold > 100 {
		return fmt.Errorf("scoring fuzzyThreshold must be in [1,100], got %d", c.Scoring.FuzzyThreshold)
	}
	if c.Scoring.Semantic.Threshold <= 0 || c.Scoring.Semantic.Threshold > 1 {
		return fmt.Errorf("scoring semantic threshold must be in (0,1], got %g", c.Scoring.Semantic.Threshold)
	}

	if err := c.validateSelection(); err != nil {
		return err
	}
	if err := c.validateGate(); err != nil {
		return err
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

func (c *Config) validateSelection() error {
	s := c.Selection
	if s.MaxSkills <= 0 || s.MaxBulletsRecentRole <= 0 || s.MaxBulletsOlderRole <= 0 || s.MaxProjects <= 0 {
		return fmt.Errorf("selection caps must all be positive")
	}
	if s.DiversityFraction <= 0 || s.DiversityFraction > 1 {
		return fmt.Errorf("selection diversityFraction must be in (0,1], got %g", s.DiversityFraction)
	}
	return nil
}

func (c *Config) validateGate() error {
	g := c.Gate
	if g.PassThreshold < 1 || g.PassThreshold > 100 {
		return fmt.Errorf("gate passThreshold must be in [1,100], got %d", g.PassThreshold)
	}
	if g.MaxRetries < 0 || g.MaxRetries > 10 {
		return fmt.Errorf("gate maxRetries must be in [0,10], got %d", g.MaxRetries)
	}
	if g.BatchWorkers <= 0 {
		return fmt.Errorf("gate batchWorkers must be positive")
	}
	if g.Cache.MinSimilarity < 0 || g.Cache.MinSimilarity > 1 {
		return fmt.Errorf("gate cache minSimilarity must be in [0,1], got %g", g.Cache.MinSimilarity)
	}
	return nil
}
