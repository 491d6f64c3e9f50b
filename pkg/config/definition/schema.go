package definition

import (
	"reflect"
	"time"
)

var (
	stringType   = reflect.TypeOf("")
	intType      = reflect.TypeOf(0)
	int64Type    = reflect.TypeOf(int64(0))
	boolType     = reflect.TypeOf(false)
	float64Type  = reflect.TypeOf(float64(0))
	durationType = reflect.TypeOf(time.Duration(0))
	sliceType    = reflect.TypeOf([]string{})
)

// DefaultSystemPrompt instructs the assistant to answer from the database only.
const DefaultSystemPrompt = "You are a helpful SQL assistant. Use the available tools to inspect " +
	"the database: list the tables, look at the schema of the relevant tables, then run a " +
	"syntactically correct SQLite query. Only use the columns you saw in the schema and answer " +
	"the question with the results you obtained. If a query fails, read the error and try again."

// CreateRegistry creates and populates the configuration registry.
// This is the single source of truth for configuration defaults.
func CreateRegistry() *Registry {
	registry := NewRegistry()
	registerServerFields(registry)
	registerDatabaseFields(registry)
	registerLLMFields(registry)
	registerChatFields(registry)
	registerRedisFields(registry)
	registerRateLimitFields(registry)
	registerMonitoringFields(registry)
	registerRuntimeFields(registry)
	return registry
}

func registerServerFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "server.host",
		Default: "0.0.0.0",
		CLIFlag: "host",
		EnvVar:  "SERVER_HOST",
		Type:    stringType,
		Help:    "Host interface for the HTTP server",
	})
	registry.Register(&FieldDef{
		Path:      "server.port",
		Default:   8000,
		CLIFlag:   "port",
		Shorthand: "p",
		EnvVar:    "SERVER_PORT",
		Type:      intType,
		Help:      "Port for the HTTP server",
	})
	registry.Register(&FieldDef{
		Path:    "server.cors_enabled",
		Default: true,
		CLIFlag: "cors",
		EnvVar:  "SERVER_CORS_ENABLED",
		Type:    boolType,
		Help:    "Enable CORS handling",
	})
	registry.Register(&FieldDef{
		Path: "server.cors.allowed_origins",
		Default: []string{
			"*",
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:8000",
			"http://127.0.0.1:8000",
			"http://localhost:5173",
		},
		EnvVar: "SERVER_CORS_ALLOWED_ORIGINS",
		Type:   sliceType,
		Help:   "Origins allowed to call the API",
	})
	registry.Register(&FieldDef{
		Path:    "server.cors.allow_credentials",
		Default: true,
		EnvVar:  "SERVER_CORS_ALLOW_CREDENTIALS",
		Type:    boolType,
		Help:    "Allow credentials on cross origin requests",
	})
	registry.Register(&FieldDef{
		Path:    "server.cors.max_age",
		Default: 86400,
		EnvVar:  "SERVER_CORS_MAX_AGE",
		Type:    intType,
		Help:    "Preflight cache duration in seconds",
	})
	registry.Register(&FieldDef{
		Path:    "server.max_body_size",
		Default: int64(1 << 20),
		EnvVar:  "SERVER_MAX_BODY_SIZE",
		Type:    int64Type,
		Help:    "Maximum accepted request body size in bytes",
	})
	registry.Register(&FieldDef{
		Path:    "server.timeouts.http_read",
		Default: 15 * time.Second,
		EnvVar:  "SERVER_TIMEOUTS_HTTP_READ",
		Type:    durationType,
		Help:    "HTTP server read timeout",
	})
	registry.Register(&FieldDef{
		Path:    "server.timeouts.http_write",
		Default: 120 * time.Second,
		EnvVar:  "SERVER_TIMEOUTS_HTTP_WRITE",
		Type:    durationType,
		Help:    "HTTP server write timeout; covers LLM round trips",
	})
	registry.Register(&FieldDef{
		Path:    "server.timeouts.http_idle",
		Default: 60 * time.Second,
		EnvVar:  "SERVER_TIMEOUTS_HTTP_IDLE",
		Type:    durationType,
		Help:    "HTTP server idle timeout",
	})
	registry.Register(&FieldDef{
		Path:    "server.timeouts.server_shutdown",
		Default: 5 * time.Second,
		EnvVar:  "SERVER_TIMEOUTS_SERVER_SHUTDOWN",
		Type:    durationType,
		Help:    "Grace period for in-flight requests on shutdown",
	})
}

func registerDatabaseFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "database.path",
		Default: "ProductsSuppliers.db",
		CLIFlag: "db-path",
		EnvVar:  "DB_PATH",
		Type:    stringType,
		Help:    "SQLite database file (use :memory: for an in-memory database)",
	})
	registry.Register(&FieldDef{
		Path:    "database.max_open_conns",
		Default: 10,
		EnvVar:  "DB_MAX_OPEN_CONNS",
		Type:    intType,
		Help:    "Maximum open connections",
	})
	registry.Register(&FieldDef{
		Path:    "database.max_idle_conns",
		Default: 2,
		EnvVar:  "DB_MAX_IDLE_CONNS",
		Type:    intType,
		Help:    "Maximum idle connections",
	})
	registry.Register(&FieldDef{
		Path:    "database.conn_max_lifetime",
		Default: 30 * time.Minute,
		EnvVar:  "DB_CONN_MAX_LIFETIME",
		Type:    durationType,
		Help:    "Maximum lifetime of a connection",
	})
	registry.Register(&FieldDef{
		Path:    "database.conn_max_idle_time",
		Default: 5 * time.Minute,
		EnvVar:  "DB_CONN_MAX_IDLE_TIME",
		Type:    durationType,
		Help:    "Maximum idle time of a connection",
	})
	registry.Register(&FieldDef{
		Path:    "database.busy_timeout",
		Default: 5 * time.Second,
		EnvVar:  "DB_BUSY_TIMEOUT",
		Type:    durationType,
		Help:    "SQLite busy timeout",
	})
	registry.Register(&FieldDef{
		Path:    "database.read_only_queries",
		Default: false,
		CLIFlag: "read-only-queries",
		EnvVar:  "DB_READ_ONLY_QUERIES",
		Type:    boolType,
		Help:    "Reject statements other than SELECT in the query tool",
	})
	registry.Register(&FieldDef{
		Path:    "database.sample_rows",
		Default: 3,
		EnvVar:  "DB_SAMPLE_ROWS",
		Type:    intType,
		Help:    "Sample rows included with table schemas",
	})
}

func registerLLMFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "llm.provider",
		Default: "groq",
		CLIFlag: "llm-provider",
		EnvVar:  "LLM_PROVIDER",
		Type:    stringType,
		Help:    "LLM provider (groq, openai, anthropic, ollama, google, mock)",
	})
	registry.Register(&FieldDef{
		Path:    "llm.model",
		Default: "gemma2-9b-it",
		CLIFlag: "llm-model",
		EnvVar:  "LLM_MODEL",
		Type:    stringType,
		Help:    "Model name",
	})
	registry.Register(&FieldDef{
		Path:      "llm.api_key",
		Default:   "",
		EnvVar:    "LLM_API_KEY",
		Type:      stringType,
		Help:      "Provider API key (falls back to the provider's own variable such as GROQ_API_KEY)",
		Sensitive: true,
	})
	registry.Register(&FieldDef{
		Path:    "llm.base_url",
		Default: "",
		EnvVar:  "LLM_BASE_URL",
		Type:    stringType,
		Help:    "Override the provider endpoint",
	})
	registry.Register(&FieldDef{
		Path:    "llm.organization",
		Default: "",
		EnvVar:  "LLM_ORGANIZATION",
		Type:    stringType,
		Help:    "Provider organization",
	})
	registry.Register(&FieldDef{
		Path:    "llm.temperature",
		Default: 0.0,
		EnvVar:  "LLM_TEMPERATURE",
		Type:    float64Type,
		Help:    "Sampling temperature",
	})
	registry.Register(&FieldDef{
		Path:    "llm.max_tokens",
		Default: 0,
		EnvVar:  "LLM_MAX_TOKENS",
		Type:    intType,
		Help:    "Maximum tokens per completion (0 uses the provider default)",
	})
	registry.Register(&FieldDef{
		Path:    "llm.max_iterations",
		Default: 10,
		CLIFlag: "max-iterations",
		EnvVar:  "LLM_MAX_ITERATIONS",
		Type:    intType,
		Help:    "Maximum assistant turns per question",
	})
	registry.Register(&FieldDef{
		Path:    "llm.max_tool_concurrency",
		Default: 4,
		EnvVar:  "LLM_MAX_TOOL_CONCURRENCY",
		Type:    intType,
		Help:    "Tool calls executed in parallel within one turn",
	})
	registry.Register(&FieldDef{
		Path:    "llm.timeout",
		Default: 90 * time.Second,
		EnvVar:  "LLM_TIMEOUT",
		Type:    durationType,
		Help:    "Deadline for answering a single question",
	})
	registry.Register(&FieldDef{
		Path:    "llm.retry_attempts",
		Default: 3,
		EnvVar:  "LLM_RETRY_ATTEMPTS",
		Type:    intType,
		Help:    "Retries for transient LLM failures",
	})
	registry.Register(&FieldDef{
		Path:    "llm.retry_backoff_base",
		Default: 200 * time.Millisecond,
		EnvVar:  "LLM_RETRY_BACKOFF_BASE",
		Type:    durationType,
		Help:    "Initial retry backoff",
	})
	registry.Register(&FieldDef{
		Path:    "llm.retry_backoff_max",
		Default: 5 * time.Second,
		EnvVar:  "LLM_RETRY_BACKOFF_MAX",
		Type:    durationType,
		Help:    "Maximum retry backoff",
	})
	registry.Register(&FieldDef{
		Path:    "llm.schema_cache_ttl",
		Default: 5 * time.Minute,
		EnvVar:  "LLM_SCHEMA_CACHE_TTL",
		Type:    durationType,
		Help:    "How long table schemas are cached for the schema tool",
	})
	registry.Register(&FieldDef{
		Path:    "llm.system_prompt",
		Default: DefaultSystemPrompt,
		EnvVar:  "LLM_SYSTEM_PROMPT",
		Type:    stringType,
		Help:    "System prompt for the SQL assistant",
	})
	registry.Register(&FieldDef{
		Path:    "llm.max_concurrent",
		Default: 0,
		EnvVar:  "LLM_MAX_CONCURRENT",
		Type:    intType,
		Help:    "In-flight provider requests allowed at once (0 disables the limit)",
	})
	registry.Register(&FieldDef{
		Path:    "llm.requests_per_minute",
		Default: float64(0),
		EnvVar:  "LLM_REQUESTS_PER_MINUTE",
		Type:    float64Type,
		Help:    "Provider requests allowed per minute (0 disables the limit)",
	})
}

func registerChatFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "chat.store",
		Default: "memory",
		CLIFlag: "chat-store",
		EnvVar:  "CHAT_STORE",
		Type:    stringType,
		Help:    "Chat history backend (memory, sqlite, redis)",
	})
	registry.Register(&FieldDef{
		Path:    "chat.max_entries",
		Default: 200,
		EnvVar:  "CHAT_MAX_ENTRIES",
		Type:    intType,
		Help:    "Maximum chat history entries retained",
	})
	registry.Register(&FieldDef{
		Path:    "chat.redis_key",
		Default: "sqlagent:chat_history",
		EnvVar:  "CHAT_REDIS_KEY",
		Type:    stringType,
		Help:    "Redis list key for the chat history",
	})
}

func registerRedisFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "redis.addr",
		Default: "localhost:6379",
		EnvVar:  "REDIS_ADDR",
		Type:    stringType,
		Help:    "Redis address",
	})
	registry.Register(&FieldDef{
		Path:      "redis.password",
		Default:   "",
		EnvVar:    "REDIS_PASSWORD",
		Type:      stringType,
		Help:      "Redis password",
		Sensitive: true,
	})
	registry.Register(&FieldDef{
		Path:    "redis.db",
		Default: 0,
		EnvVar:  "REDIS_DB",
		Type:    intType,
		Help:    "Redis database index",
	})
}

func registerRateLimitFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "ratelimit.enabled",
		Default: false,
		CLIFlag: "rate-limit",
		EnvVar:  "RATELIMIT_ENABLED",
		Type:    boolType,
		Help:    "Enable per client rate limiting",
	})
	registry.Register(&FieldDef{
		Path:    "ratelimit.limit",
		Default: int64(60),
		EnvVar:  "RATELIMIT_LIMIT",
		Type:    int64Type,
		Help:    "Requests allowed per period",
	})
	registry.Register(&FieldDef{
		Path:    "ratelimit.period",
		Default: time.Minute,
		EnvVar:  "RATELIMIT_PERIOD",
		Type:    durationType,
		Help:    "Rate limit window",
	})
	registry.Register(&FieldDef{
		Path:    "ratelimit.store",
		Default: "memory",
		EnvVar:  "RATELIMIT_STORE",
		Type:    stringType,
		Help:    "Rate limit counter store (memory, redis)",
	})
	registry.Register(&FieldDef{
		Path:    "ratelimit.prefix",
		Default: "sqlagent:ratelimit",
		EnvVar:  "RATELIMIT_PREFIX",
		Type:    stringType,
		Help:    "Key prefix for rate limit counters",
	})
}

func registerMonitoringFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "monitoring.enabled",
		Default: true,
		CLIFlag: "monitoring",
		EnvVar:  "MONITORING_ENABLED",
		Type:    boolType,
		Help:    "Expose Prometheus metrics",
	})
	registry.Register(&FieldDef{
		Path:    "monitoring.path",
		Default: "/metrics",
		EnvVar:  "MONITORING_PATH",
		Type:    stringType,
		Help:    "Metrics endpoint path",
	})
}

func registerRuntimeFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "runtime.environment",
		Default: "development",
		EnvVar:  "RUNTIME_ENVIRONMENT",
		Type:    stringType,
		Help:    "Deployment environment (development, staging, production)",
	})
	registry.Register(&FieldDef{
		Path:    "runtime.log_level",
		Default: "info",
		EnvVar:  "RUNTIME_LOG_LEVEL",
		Type:    stringType,
		Help:    "Log level (debug, info, warn, error)",
	})
}
