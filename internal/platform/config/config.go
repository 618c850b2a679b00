package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration. FromEnv keeps main lean.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// AllowTerminalUpdates relaxes the default policy that rejects admin field
	// updates on APPROVED/REJECTED validation requests.
	AllowTerminalUpdates bool

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// PostgresConfig holds the persistent store settings. An empty URL selects the
// in-memory stores.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds the profile cache settings. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ProfileTTL   time.Duration
}

// KafkaConfig holds audit event publishing settings. Empty brokers disable the
// Kafka sink; audit events still land in the audit store.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("CAT_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("CAT_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}
	issuer := os.Getenv("CAT_JWT_ISSUER")
	if issuer == "" {
		issuer = "cat-service"
	}
	audience := os.Getenv("CAT_JWT_AUDIENCE")
	if audience == "" {
		audience = "cat-api"
	}

	kafkaTopic := os.Getenv("CAT_KAFKA_AUDIT_TOPIC")
	if kafkaTopic == "" {
		kafkaTopic = "cat.audit.events"
	}

	return Server{
		Addr:                 addr,
		JWTSigningKey:        jwtSigningKey,
		JWTIssuer:            issuer,
		JWTAudience:          audience,
		AllowTerminalUpdates: os.Getenv("CAT_ALLOW_TERMINAL_UPDATES") == "true",
		Postgres: PostgresConfig{
			URL:             os.Getenv("CAT_POSTGRES_URL"),
			MaxOpenConns:    envInt("CAT_POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("CAT_POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("CAT_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CAT_REDIS_URL"),
			PoolSize:     envInt("CAT_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CAT_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("CAT_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CAT_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CAT_REDIS_WRITE_TIMEOUT", 3*time.Second),
			ProfileTTL:   envDuration("CAT_REDIS_PROFILE_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: envList("CAT_KAFKA_BROKERS"),
			Topic:   kafkaTopic,
		},
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
