package config

import (
	"context"
	"time"

	"github.com/compozy/sqlagent/pkg/config/definition"
)

// Config represents the complete configuration for the service.
type Config struct {
	Server     ServerConfig     `koanf:"server"     validate:"required"`
	Database   DatabaseConfig   `koanf:"database"   validate:"required"`
	LLM        LLMConfig        `koanf:"llm"        validate:"required"`
	Chat       ChatConfig       `koanf:"chat"`
	Redis      RedisConfig      `koanf:"redis"`
	RateLimit  RateLimitConfig  `koanf:"ratelimit"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	Runtime    RuntimeConfig    `koanf:"runtime"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host        string         `koanf:"host"          validate:"required"        env:"SERVER_HOST"`
	Port        int            `koanf:"port"          validate:"min=1,max=65535" env:"SERVER_PORT"`
	CORSEnabled bool           `koanf:"cors_enabled"                             env:"SERVER_CORS_ENABLED"`
	CORS        CORSConfig     `koanf:"cors"`
	MaxBodySize int64          `koanf:"max_body_size" validate:"min=0"           env:"SERVER_MAX_BODY_SIZE"`
	Timeouts    ServerTimeouts `koanf:"timeouts"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"   env:"SERVER_CORS_ALLOWED_ORIGINS"`
	AllowCredentials bool     `koanf:"allow_credentials" env:"SERVER_CORS_ALLOW_CREDENTIALS"`
	MaxAge           int      `koanf:"max_age"           env:"SERVER_CORS_MAX_AGE"`
}

type ServerTimeouts struct {
	HTTPRead       time.Duration `koanf:"http_read"       env:"SERVER_TIMEOUTS_HTTP_READ"`
	HTTPWrite      time.Duration `koanf:"http_write"      env:"SERVER_TIMEOUTS_HTTP_WRITE"`
	HTTPIdle       time.Duration `koanf:"http_idle"       env:"SERVER_TIMEOUTS_HTTP_IDLE"`
	ServerShutdown time.Duration `koanf:"server_shutdown" env:"SERVER_TIMEOUTS_SERVER_SHUTDOWN"`
}

// DatabaseConfig contains SQLite configuration.
type DatabaseConfig struct {
	Path            string        `koanf:"path"               validate:"required" env:"DB_PATH"`
	MaxOpenConns    int           `koanf:"max_open_conns"     validate:"min=0"    env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `koanf:"max_idle_conns"     validate:"min=0"    env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"                      env:"DB_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"                     env:"DB_CONN_MAX_IDLE_TIME"`
	BusyTimeout     time.Duration `koanf:"busy_timeout"                           env:"DB_BUSY_TIMEOUT"`
	ReadOnlyQueries bool          `koanf:"read_only_queries"                      env:"DB_READ_ONLY_QUERIES"`
	SampleRows      int           `koanf:"sample_rows"        validate:"min=0"    env:"DB_SAMPLE_ROWS"`
}

// LLMConfig contains the model and agent loop configuration.
type LLMConfig struct {
	Provider           string          `koanf:"provider"             validate:"oneof=groq openai anthropic ollama google mock" env:"LLM_PROVIDER"`
	Model              string          `koanf:"model"                validate:"required"                                       env:"LLM_MODEL"`
	APIKey             SensitiveString `koanf:"api_key"                                                                        env:"LLM_API_KEY"              sensitive:"true"`
	BaseURL            string          `koanf:"base_url"                                                                       env:"LLM_BASE_URL"`
	Organization       string          `koanf:"organization"                                                                   env:"LLM_ORGANIZATION"`
	Temperature        float64         `koanf:"temperature"          validate:"min=0,max=2"                                    env:"LLM_TEMPERATURE"`
	MaxTokens          int             `koanf:"max_tokens"           validate:"min=0"                                          env:"LLM_MAX_TOKENS"`
	MaxIterations      int             `koanf:"max_iterations"       validate:"min=1"                                          env:"LLM_MAX_ITERATIONS"`
	MaxToolConcurrency int             `koanf:"max_tool_concurrency" validate:"min=1"                                          env:"LLM_MAX_TOOL_CONCURRENCY"`
	Timeout            time.Duration   `koanf:"timeout"                                                                        env:"LLM_TIMEOUT"`
	RetryAttempts      int             `koanf:"retry_attempts"       validate:"min=0"                                          env:"LLM_RETRY_ATTEMPTS"`
	RetryBackoffBase   time.Duration   `koanf:"retry_backoff_base"                                                             env:"LLM_RETRY_BACKOFF_BASE"`
	RetryBackoffMax    time.Duration   `koanf:"retry_backoff_max"                                                              env:"LLM_RETRY_BACKOFF_MAX"`
	SchemaCacheTTL     time.Duration   `koanf:"schema_cache_ttl"                                                               env:"LLM_SCHEMA_CACHE_TTL"`
	SystemPrompt       string          `koanf:"system_prompt"                                                                  env:"LLM_SYSTEM_PROMPT"`
	MaxConcurrent      int             `koanf:"max_concurrent"       validate:"min=0"                                          env:"LLM_MAX_CONCURRENT"`
	RequestsPerMinute  float64         `koanf:"requests_per_minute"  validate:"min=0"                                          env:"LLM_REQUESTS_PER_MINUTE"`
}

// ChatConfig controls where the conversation history lives.
type ChatConfig struct {
	Store      string `koanf:"store"       validate:"oneof=memory sqlite redis" env:"CHAT_STORE"`
	MaxEntries int    `koanf:"max_entries" validate:"min=1"                     env:"CHAT_MAX_ENTRIES"`
	RedisKey   string `koanf:"redis_key"                                        env:"CHAT_REDIS_KEY"`
}

type RedisConfig struct {
	Addr     string          `koanf:"addr"     env:"REDIS_ADDR"     validate:"hostport"`
	Password SensitiveString `koanf:"password" env:"REDIS_PASSWORD" sensitive:"true"`
	DB       int             `koanf:"db"       env:"REDIS_DB"       validate:"min=0"`
}

// RateLimitConfig contains per client rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool          `koanf:"enabled" env:"RATELIMIT_ENABLED"`
	Limit   int64         `koanf:"limit"   env:"RATELIMIT_LIMIT"   validate:"min=1"`
	Period  time.Duration `koanf:"period"  env:"RATELIMIT_PERIOD"`
	Store   string        `koanf:"store"   env:"RATELIMIT_STORE"   validate:"oneof=memory redis"`
	Prefix  string        `koanf:"prefix"  env:"RATELIMIT_PREFIX"`
}

type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"MONITORING_PATH"    validate:"startswith=/"`
}

// RuntimeConfig contains runtime behavior configuration.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production" env:"RUNTIME_ENVIRONMENT"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error"          env:"RUNTIME_LOG_LEVEL"`
}

// Service defines the configuration management service interface.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a specific key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	Load() (map[string]any, error)
	Watch(ctx context.Context, callback func()) error
	Type() SourceType
	Close() error
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Default returns a Config populated from the field registry.
func Default() *Config {
	registry := definition.CreateRegistry()
	return &Config{
		Server:     buildServerConfig(registry),
		Database:   buildDatabaseConfig(registry),
		LLM:        buildLLMConfig(registry),
		Chat:       buildChatConfig(registry),
		Redis:      buildRedisConfig(registry),
		RateLimit:  buildRateLimitConfig(registry),
		Monitoring: buildMonitoringConfig(registry),
		Runtime:    buildRuntimeConfig(registry),
	}
}

func getString(registry *definition.Registry, path string) string {
	if s, ok := registry.GetDefault(path).(string); ok {
		return s
	}
	return ""
}

func getInt(registry *definition.Registry, path string) int {
	if i, ok := registry.GetDefault(path).(int); ok {
		return i
	}
	return 0
}

func getInt64(registry *definition.Registry, path string) int64 {
	if i, ok := registry.GetDefault(path).(int64); ok {
		return i
	}
	return 0
}

func getFloat64(registry *definition.Registry, path string) float64 {
	if f, ok := registry.GetDefault(path).(float64); ok {
		return f
	}
	return 0
}

func getBool(registry *definition.Registry, path string) bool {
	if b, ok := registry.GetDefault(path).(bool); ok {
		return b
	}
	return false
}

func getDuration(registry *definition.Registry, path string) time.Duration {
	if d, ok := registry.GetDefault(path).(time.Duration); ok {
		return d
	}
	return 0
}

func getStringSlice(registry *definition.Registry, path string) []string {
	if slice, ok := registry.GetDefault(path).([]string); ok {
		return append([]string(nil), slice...)
	}
	return []string{}
}

func buildServerConfig(registry *definition.Registry) ServerConfig {
	return ServerConfig{
		Host:        getString(registry, "server.host"),
		Port:        getInt(registry, "server.port"),
		CORSEnabled: getBool(registry, "server.cors_enabled"),
		CORS: CORSConfig{
			AllowedOrigins:   getStringSlice(registry, "server.cors.allowed_origins"),
			AllowCredentials: getBool(registry, "server.cors.allow_credentials"),
			MaxAge:           getInt(registry, "server.cors.max_age"),
		},
		MaxBodySize: getInt64(registry, "server.max_body_size"),
		Timeouts: ServerTimeouts{
			HTTPRead:       getDuration(registry, "server.timeouts.http_read"),
			HTTPWrite:      getDuration(registry, "server.timeouts.http_write"),
			HTTPIdle:       getDuration(registry, "server.timeouts.http_idle"),
			ServerShutdown: getDuration(registry, "server.timeouts.server_shutdown"),
		},
	}
}

func buildDatabaseConfig(registry *definition.Registry) DatabaseConfig {
	return DatabaseConfig{
		Path:            getString(registry, "database.path"),
		MaxOpenConns:    getInt(registry, "database.max_open_conns"),
		MaxIdleConns:    getInt(registry, "database.max_idle_conns"),
		ConnMaxLifetime: getDuration(registry, "database.conn_max_lifetime"),
		ConnMaxIdleTime: getDuration(registry, "database.conn_max_idle_time"),
		BusyTimeout:     getDuration(registry, "database.busy_timeout"),
		ReadOnlyQueries: getBool(registry, "database.read_only_queries"),
		SampleRows:      getInt(registry, "database.sample_rows"),
	}
}

func buildLLMConfig(registry *definition.Registry) LLMConfig {
	return LLMConfig{
		Provider:           getString(registry, "llm.provider"),
		Model:              getString(registry, "llm.model"),
		APIKey:             SensitiveString(getString(registry, "llm.api_key")),
		BaseURL:            getString(registry, "llm.base_url"),
		Organization:       getString(registry, "llm.organization"),
		Temperature:        getFloat64(registry, "llm.temperature"),
		MaxTokens:          getInt(registry, "llm.max_tokens"),
		MaxIterations:      getInt(registry, "llm.max_iterations"),
		MaxToolConcurrency: getInt(registry, "llm.max_tool_concurrency"),
		Timeout:            getDuration(registry, "llm.timeout"),
		RetryAttempts:      getInt(registry, "llm.retry_attempts"),
		RetryBackoffBase:   getDuration(registry, "llm.retry_backoff_base"),
		RetryBackoffMax:    getDuration(registry, "llm.retry_backoff_max"),
		SchemaCacheTTL:     getDuration(registry, "llm.schema_cache_ttl"),
		SystemPrompt:       getString(registry, "llm.system_prompt"),
		MaxConcurrent:      getInt(registry, "llm.max_concurrent"),
		RequestsPerMinute:  getFloat64(registry, "llm.requests_per_minute"),
	}
}

func buildChatConfig(registry *definition.Registry) ChatConfig {
	return ChatConfig{
		Store:      getString(registry, "chat.store"),
		MaxEntries: getInt(registry, "chat.max_entries"),
		RedisKey:   getString(registry, "chat.redis_key"),
	}
}

func buildRedisConfig(registry *definition.Registry) RedisConfig {
	return RedisConfig{
		Addr:     getString(registry, "redis.addr"),
		Password: SensitiveString(getString(registry, "redis.password")),
		DB:       getInt(registry, "redis.db"),
	}
}

func buildRateLimitConfig(registry *definition.Registry) RateLimitConfig {
	return RateLimitConfig{
		Enabled: getBool(registry, "ratelimit.enabled"),
		Limit:   getInt64(registry, "ratelimit.limit"),
		Period:  getDuration(registry, "ratelimit.period"),
		Store:   getString(registry, "ratelimit.store"),
		Prefix:  getString(registry, "ratelimit.prefix"),
	}
}

func buildMonitoringConfig(registry *definition.Registry) MonitoringConfig {
	return MonitoringConfig{
		Enabled: getBool(registry, "monitoring.enabled"),
		Path:    getString(registry, "monitoring.path"),
	}
}

func buildRuntimeConfig(registry *definition.Registry) RuntimeConfig {
	return RuntimeConfig{
		Environment: getString(registry, "runtime.environment"),
		LogLevel:    getString(registry, "runtime.log_level"),
	}
}
