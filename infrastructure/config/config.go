package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"kbweb/infrastructure/scnet"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"serverAddress" validate:"required"`
	Environment   string `yaml:"environment" validate:"oneof=development staging production test"`
	ServiceName   string `yaml:"serviceName" validate:"required"`

	// Graph Service connection
	GraphService GraphServiceConfig `yaml:"graphService"`

	// Identifier of the KB user whose templates the editor lists
	KBUserIdentifier string `yaml:"kbUserIdentifier" validate:"required"`

	// Agents
	EnableAgents bool `yaml:"enableAgents"`

	// AWS configuration
	AWSRegion    string `yaml:"awsRegion"`
	EventBusName string `yaml:"eventBusName"`

	// Lambda configuration
	IsLambda bool `yaml:"isLambda"`

	// Logging
	LogLevel string `yaml:"logLevel" validate:"oneof=debug info warn error"`

	// Authentication
	JWTSecret         string        `yaml:"jwtSecret"`
	JWTIssuer         string        `yaml:"jwtIssuer"`
	RequestsPerMinute int           `yaml:"requestsPerMinute" validate:"gte=0"`
	TokenTTL          time.Duration `yaml:"tokenTTL" validate:"gt=0"`

	// Origins allowed for CORS and viewer sockets; empty allows any
	AllowedOrigins []string `yaml:"allowedOrigins"`

	// Tracing
	OTLPEndpoint string `yaml:"otlpEndpoint"`

	// Feature flags
	EnableMetrics     bool `yaml:"enableMetrics"`
	EnableTracing     bool `yaml:"enableTracing"`
	EnableCORS        bool `yaml:"enableCORS"`
	EnableEventBridge bool `yaml:"enableEventBridge"`
}

// GraphServiceConfig holds the Graph Service endpoint and its circuit breaker
type GraphServiceConfig struct {
	URL              string        `yaml:"url" validate:"required,url"`
	DialTimeout      time.Duration `yaml:"dialTimeout" validate:"gt=0"`
	RequestTimeout   time.Duration `yaml:"requestTimeout" validate:"gt=0"`
	LabelConcurrency int           `yaml:"labelConcurrency" validate:"gte=1,lte=64"`

	BreakerMaxRequests      uint32        `yaml:"breakerMaxRequests" validate:"gte=1"`
	BreakerInterval         time.Duration `yaml:"breakerInterval"`
	BreakerTimeout          time.Duration `yaml:"breakerTimeout" validate:"gt=0"`
	BreakerFailureThreshold float64       `yaml:"breakerFailureThreshold" validate:"gt=0,lte=1"`
	BreakerMinRequests      uint32        `yaml:"breakerMinRequests" validate:"gte=1"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	graph := scnet.DefaultConfig()
	return &Config{
		ServerAddress:    ":8080",
		Environment:      "development",
		ServiceName:      "kbweb",
		KBUserIdentifier: "test_user",
		EnableAgents:     true,
		AWSRegion:        "us-west-2",
		EventBusName:     "kbweb-events",
		JWTIssuer:        "kbweb",
		TokenTTL:         24 * time.Hour,
		LogLevel:         "info",
		OTLPEndpoint:     "localhost:4317",
		EnableCORS:       true,
		GraphService: GraphServiceConfig{
			URL:                     graph.URL,
			DialTimeout:             graph.DialTimeout,
			RequestTimeout:          graph.RequestTimeout,
			LabelConcurrency:        8,
			BreakerMaxRequests:      graph.Breaker.MaxRequests,
			BreakerInterval:         graph.Breaker.Interval,
			BreakerTimeout:          graph.Breaker.Timeout,
			BreakerFailureThreshold: graph.Breaker.FailureThreshold,
			BreakerMinRequests:      graph.Breaker.MinRequests,
		},
	}
}

// LoadConfig loads configuration from defaults, the optional YAML file named
// by CONFIG_FILE and environment variables, in increasing precedence.
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ServiceName = getEnv("SERVICE_NAME", c.ServiceName)
	c.KBUserIdentifier = getEnv("KB_USER_IDTF", c.KBUserIdentifier)
	c.EnableAgents = getEnvBool("ENABLE_AGENTS", c.EnableAgents)

	g := &c.GraphService
	g.URL = getEnv("GRAPH_SERVICE_URL", g.URL)
	g.DialTimeout = getEnvDuration("GRAPH_SERVICE_DIAL_TIMEOUT", g.DialTimeout)
	g.RequestTimeout = getEnvDuration("GRAPH_SERVICE_TIMEOUT", g.RequestTimeout)
	g.LabelConcurrency = getEnvInt("LABEL_CONCURRENCY", g.LabelConcurrency)
	g.BreakerMaxRequests = uint32(getEnvInt("BREAKER_MAX_REQUESTS", int(g.BreakerMaxRequests)))
	g.BreakerInterval = getEnvDuration("BREAKER_INTERVAL", g.BreakerInterval)
	g.BreakerTimeout = getEnvDuration("BREAKER_TIMEOUT", g.BreakerTimeout)
	g.BreakerFailureThreshold = getEnvFloat("BREAKER_FAILURE_THRESHOLD", g.BreakerFailureThreshold)
	g.BreakerMinRequests = uint32(getEnvInt("BREAKER_MIN_REQUESTS", int(g.BreakerMinRequests)))

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.RequestsPerMinute = getEnvInt("REQUESTS_PER_MINUTE", c.RequestsPerMinute)
	c.TokenTTL = getEnvDuration("TOKEN_TTL", c.TokenTTL)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.EnableEventBridge = getEnvBool("ENABLE_EVENTBRIDGE", c.EnableEventBridge)
}

// Validate checks struct rules and the production requirements
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.EnableEventBridge && c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}

	return nil
}

// ScnetConfig maps the Graph Service settings onto the client configuration
func (c *Config) ScnetConfig() scnet.Config {
	g := c.GraphService
	return scnet.Config{
		URL:            g.URL,
		DialTimeout:    g.DialTimeout,
		RequestTimeout: g.RequestTimeout,
		Breaker: scnet.BreakerConfig{
			MaxRequests:      g.BreakerMaxRequests,
			Interval:         g.BreakerInterval,
			Timeout:          g.BreakerTimeout,
			FailureThreshold: g.BreakerFailureThreshold,
			MinRequests:      g.BreakerMinRequests,
		},
	}
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// splitList splits a comma separated value, dropping empty items
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvDuration accepts Go durations ("30s") or plain milliseconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
