package configs

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	DBPath string

	NatsURL string

	RedisAddr string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string

	JWTSecret     string
	EnableLogging bool
}

func LoadConfig() *Config {
	return &Config{
		HTTPAddr:     getEnv("PREPCHAT_HTTP_ADDR", ":8080"),
		ReadTimeout:  getEnvDuration("PREPCHAT_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvDuration("PREPCHAT_WRITE_TIMEOUT", 15*time.Second),

		DBPath: getEnv("PREPCHAT_DB_PATH", "prepchat.db"),

		NatsURL: getEnv("PREPCHAT_NATS_URL", "nats://localhost:4222"),

		RedisAddr: getEnv("PREPCHAT_REDIS_ADDR", "localhost:6379"),

		MinioEndpoint:  getEnv("PREPCHAT_MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("PREPCHAT_MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("PREPCHAT_MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:    getEnvBool("PREPCHAT_MINIO_USE_SSL", false),
		MinioBucket:    getEnv("PREPCHAT_MINIO_BUCKET", "chat-attachments"),

		JWTSecret:     getEnv("PREPCHAT_JWT_SECRET", ""),
		EnableLogging: getEnvBool("PREPCHAT_ENABLE_LOGGING", true),
	}
}

// Validate rejects configurations that must never reach serving. An unset
// JWT secret would make every token signed with "" verify.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("PREPCHAT_JWT_SECRET must be set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
