package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. It is read once in main and
// passed by value; nothing mutates it afterwards.
type Config struct {
	Addr     string
	LogLevel string

	// TenantHeader is the fixed request header carrying the tenant id.
	TenantHeader string

	// AdminBypassEnabled allows header-less access for flagged global admins
	// on admin routes. The flag alone is not trusted: callers must also
	// present a service token matching ServiceTokenHash.
	AdminBypassEnabled bool
	// ServiceTokenHash is the bcrypt hash of the service-to-service token
	// required by the admin bypass.
	ServiceTokenHash string

	Server   ServerConfig
	JWT      JWTConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// ServerConfig holds the HTTP server timeouts.
type ServerConfig struct {
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// JWTConfig covers validation of access tokens minted by the external
// identity provider.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// PostgresConfig holds the record/tenant store connection settings.
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds cache connection settings. An empty URL disables the
// cache layer entirely.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the audit pipeline settings. Empty brokers disable the
// Kafka sink; audit events then go to the in-process store.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("GESTORA_ADDR", ":8080"),
		LogLevel:           envOr("GESTORA_LOG_LEVEL", "info"),
		TenantHeader:       envOr("GESTORA_TENANT_HEADER", "X-Tenant-ID"),
		AdminBypassEnabled: os.Getenv("GESTORA_ADMIN_BYPASS") == "true",
		ServiceTokenHash:   os.Getenv("GESTORA_SERVICE_TOKEN_HASH"),
		Server: ServerConfig{
			ReadHeaderTimeout: envDuration("GESTORA_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       envDuration("GESTORA_HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      envDuration("GESTORA_HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       envDuration("GESTORA_HTTP_IDLE_TIMEOUT", 2*time.Minute),
		},
		JWT: JWTConfig{
			SigningKey: envOr("GESTORA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     envOr("GESTORA_JWT_ISSUER", "gestora-idp"),
			Audience:   envOr("GESTORA_JWT_AUDIENCE", "gestora-api"),
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("GESTORA_POSTGRES_URL"),
			MaxOpenConns: envInt("GESTORA_POSTGRES_MAX_OPEN", 20),
			MaxIdleConns: envInt("GESTORA_POSTGRES_MAX_IDLE", 5),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("GESTORA_REDIS_URL"),
			PoolSize:     envInt("GESTORA_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("GESTORA_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("GESTORA_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("GESTORA_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("GESTORA_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("GESTORA_KAFKA_BROKERS")),
			Topic:   envOr("GESTORA_KAFKA_AUDIT_TOPIC", "gestora.audit"),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
