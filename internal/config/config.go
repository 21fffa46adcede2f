// Package config loads the API configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the API.
type Config struct {
	APIPort       string        `mapstructure:"API_PORT"`
	Env           string        `mapstructure:"APP_ENV"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	MongoURI      string        `mapstructure:"MONGO_URI"`
	MongoDatabase string        `mapstructure:"MONGO_DATABASE"`
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTTTL        time.Duration `mapstructure:"JWT_TTL"`

	AllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	SessionCacheTTL time.Duration `mapstructure:"SESSION_CACHE_TTL"`

	LoginMaxAttempts int           `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	LoginWindow      time.Duration `mapstructure:"LOGIN_WINDOW"`

	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	PayTechAPIKey     string `mapstructure:"PAYTECH_API_KEY"`
	PayTechAPISecret  string `mapstructure:"PAYTECH_API_SECRET"`
	PayDunyaMasterKey string `mapstructure:"PAYDUNYA_MASTER_KEY"`

	TextbeltAPIKey string `mapstructure:"TEXTBELT_API_KEY"`

	DemoAccountsEnabled bool   `mapstructure:"DEMO_ACCOUNTS_ENABLED"`
	DemoAccountPassword string `mapstructure:"DEMO_ACCOUNT_PASSWORD"`
}

var boundKeys = []string{
	"API_PORT", "APP_ENV", "LOG_LEVEL",
	"MONGO_URI", "MONGO_DATABASE",
	"JWT_SECRET", "JWT_TTL",
	"CORS_ALLOWED_ORIGINS",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "SESSION_CACHE_TTL",
	"LOGIN_MAX_ATTEMPTS", "LOGIN_WINDOW",
	"RABBITMQ_URL", "EVENTS_EXCHANGE",
	"PAYTECH_API_KEY", "PAYTECH_API_SECRET", "PAYDUNYA_MASTER_KEY",
	"TEXTBELT_API_KEY",
	"DEMO_ACCOUNTS_ENABLED", "DEMO_ACCOUNT_PASSWORD",
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (config Config, err error) {
	_ = godotenv.Load()

	viper.SetDefault("API_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MONGO_DATABASE", "healthe")
	viper.SetDefault("JWT_TTL", "24h")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "https://health-e.netlify.app")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SESSION_CACHE_TTL", "24h")
	viper.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	viper.SetDefault("LOGIN_WINDOW", "15m")
	viper.SetDefault("EVENTS_EXCHANGE", "healthe.events")
	viper.SetDefault("DEMO_ACCOUNTS_ENABLED", false)
	viper.AutomaticEnv()

	for _, key := range boundKeys {
		_ = viper.BindEnv(key)
	}
	_ = viper.BindEnv("PORT")

	if err = viper.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("decode config: %w", err)
	}
	if port := os.Getenv("PORT"); port != "" {
		config.APIPort = port
	}

	if strings.TrimSpace(config.MongoURI) == "" {
		return config, fmt.Errorf("MONGO_URI is required")
	}
	if strings.TrimSpace(config.JWTSecret) == "" {
		return config, fmt.Errorf("JWT_SECRET is required")
	}
	if config.DemoAccountsEnabled {
		if config.IsProduction() {
			return config, fmt.Errorf("DEMO_ACCOUNTS_ENABLED is not allowed when APP_ENV=production")
		}
		if strings.TrimSpace(config.DemoAccountPassword) == "" {
			return config, fmt.Errorf("DEMO_ACCOUNT_PASSWORD is required when DEMO_ACCOUNTS_ENABLED is set")
		}
	}
	return config, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// Origins splits the comma separated CORS origin list.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
