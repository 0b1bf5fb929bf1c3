package config

import (
	"fmt"
	"time"

	"telecare-backend/pkg/env"
)

// Config holds all configuration for the call service. It is resolved once
// at process start and treated as immutable afterwards; components receive
// the sections they need at construction time.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	RTC      RTCConfig
	Auth     AuthConfig
	Push     PushConfig
	Sweeper  SweeperConfig
	Log      LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        int
	Environment string // development, staging, production
	ServiceName string
}

// DatabaseConfig holds CockroachDB configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

// RTCConfig holds credentials for the external media service.
// AppSecret signs room tokens and must never be logged.
type RTCConfig struct {
	AccessKey   string
	AppSecret   string
	TokenExpiry time.Duration
}

// AuthConfig holds API identity-token configuration
type AuthConfig struct {
	JWTSecret string
}

// PushConfig holds push notification configuration
type PushConfig struct {
	Provider        string // fcm, apns, mock
	FCMProjectID    string
	CredentialsPath string
}

// SweeperConfig holds lifecycle sweeper tuning
type SweeperConfig struct {
	Interval          time.Duration
	RingingTimeout    time.Duration
	TerminalRetention time.Duration
	TerminalBatchSize int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Load loads configuration from environment variables (with Docker-secret
// file support for sensitive values)
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        env.GetInt("PORT", 8084),
			Environment: env.GetString("ENV", "development"),
			ServiceName: env.GetString("SERVICE_NAME", "call-service"),
		},
		Database: DatabaseConfig{
			Host:     env.GetString("DB_HOST", "localhost"),
			Port:     env.GetInt("DB_PORT", 26257),
			User:     env.GetString("DB_USER", "root"),
			Password: env.GetStringFromFile("DB_PASSWORD", ""),
			Database: env.GetString("DB_NAME", "telecare"),
			SSLMode:  env.GetString("DB_SSL_MODE", "disable"),
			MaxConns: env.GetInt("DB_MAX_CONNS", 25),
			MinConns: env.GetInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     env.GetString("REDIS_HOST", "localhost"),
			Port:     env.GetInt("REDIS_PORT", 6379),
			Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
			PoolSize: env.GetInt("REDIS_POOL_SIZE", 10),
			Timeout:  env.GetDuration("REDIS_TIMEOUT", 5*time.Second),
		},
		RTC: RTCConfig{
			AccessKey:   env.GetStringFromFile("RTC_ACCESS_KEY", ""),
			AppSecret:   env.GetStringFromFile("RTC_APP_SECRET", ""),
			TokenExpiry: env.GetDuration("RTC_TOKEN_EXPIRY", 24*time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: env.GetStringFromFile("JWT_SECRET", ""),
		},
		Push: PushConfig{
			Provider:        env.GetString("PUSH_PROVIDER", "mock"),
			FCMProjectID:    env.GetStringFromFile("FCM_PROJECT_ID", ""),
			CredentialsPath: env.GetString("FCM_CREDENTIALS_PATH", ""),
		},
		Sweeper: SweeperConfig{
			Interval:          env.GetDuration("SWEEP_INTERVAL", 5*time.Minute),
			RingingTimeout:    env.GetDuration("SWEEP_RINGING_TIMEOUT", 60*time.Second),
			TerminalRetention: env.GetDuration("SWEEP_TERMINAL_RETENTION", time.Hour),
			TerminalBatchSize: env.GetInt("SWEEP_TERMINAL_BATCH", 50),
		},
		Log: LogConfig{
			Level:  env.GetString("LOG_LEVEL", "info"),
			Format: env.GetString("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	if c.Server.Environment == "production" {
		if c.RTC.AccessKey == "" || c.RTC.AppSecret == "" {
			return fmt.Errorf("RTC_ACCESS_KEY and RTC_APP_SECRET must be set in production")
		}
		if c.Push.Provider == "mock" {
			return fmt.Errorf("PUSH_PROVIDER=mock is not allowed in production")
		}
	}

	return nil
}
