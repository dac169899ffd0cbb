package config

import (
	"os"
	"strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	// AuthoritySubject is the single actor permitted to perform
	// administrative mutations. Empty means admin routes reject everything.
	AuthoritySubject string

	// PostgresDSN enables the Postgres-backed registry and audit stores
	// when set; the in-memory stores are used otherwise.
	PostgresDSN string

	// RedisURL enables the Redis-backed daily usage store when set. Pool
	// and timeout tuning ride on the URL itself.
	RedisURL string

	Kafka KafkaConfig
}

// KafkaConfig configures the optional Kafka audit sink and the archiver's
// consumer group.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Group   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("ASSETGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "assetgate.audit"
	}

	group := os.Getenv("KAFKA_CONSUMER_GROUP")
	if group == "" {
		group = "assetgate-audit-archiver"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, broker := range strings.Split(raw, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				brokers = append(brokers, broker)
			}
		}
	}

	return Server{
		Addr:             addr,
		JWTSigningKey:    jwtSigningKey,
		AuthoritySubject: os.Getenv("AUTHORITY_SUBJECT"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		RedisURL:         os.Getenv("REDIS_URL"),
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
			Group:   group,
		},
	}
}
