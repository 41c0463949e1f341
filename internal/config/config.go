package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	MockMode bool
}

type AuthConfig struct {
	// SigningSecret signs RouteLynk access tokens.
	SigningSecret string
	// TokenTTL is the access-token lifetime.
	TokenTTL time.Duration
	// IdPSecret verifies identity-provider assertions presented at login.
	IdPSecret string
	// IdPIssuer is the expected `iss` claim of those assertions.
	IdPIssuer string
}

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Kafka       KafkaConfig
	Auth        AuthConfig

	RedisAddr     string
	RedisPassword string

	StripeCurrency string
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("PORT", "5000"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "3306"),
			Username:     getEnv("DB_USER", "routelynk"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "routelynk"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Kafka: KafkaConfig{
			Brokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID:  getEnv("KAFKA_GROUP_ID", "routelynk"),
			MockMode: getEnvAsBool("KAFKA_MOCK", true),
		},
		Auth: AuthConfig{
			SigningSecret: getEnv("ACCESS_TOKEN_SECRET", ""),
			TokenTTL:      getEnvAsDuration("ACCESS_TOKEN_TTL", "1h"),
			IdPSecret:     getEnv("IDP_SHARED_SECRET", ""),
			IdPIssuer:     getEnv("IDP_ISSUER", "routelynk-idp"),
		},
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		StripeCurrency: getEnv("STRIPE_CURRENCY", "usd"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key, defaultValue string) time.Duration {
	if duration, err := time.ParseDuration(getEnv(key, defaultValue)); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
