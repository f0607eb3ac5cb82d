package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teamhub/teamhub/backend/go-services/pkg/logger"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	OAuth     OAuthConfig
	SMTP      SMTPConfig
	Stripe    StripeConfig
	MinIO     MinIOConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ClientURL    string
	CORSOrigin   string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Production reports whether the server runs with production defaults.
func (s ServerConfig) Production() bool { return s.Environment == "production" }

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret           string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	ResetPasswordTTL time.Duration
	VerifyEmailTTL   time.Duration
}

type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
}

// Enabled reports whether both client credentials are set.
func (p OAuthProviderConfig) Enabled() bool { return p.ClientID != "" && p.ClientSecret != "" }

type OAuthConfig struct {
	CallbackBaseURL string
	GitHub          OAuthProviderConfig
	Google          OAuthProviderConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	CatalogTTL    time.Duration
}

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type RateLimitConfig struct {
	Enabled     bool
	UseRedis    bool
	RPS         float64
	Burst       int
	RedisLimit  int
	RedisWindow time.Duration
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MONGODB_DATABASE", "teamhub")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("JWT_ACCESS_EXPIRATION_MINUTES", 30)
	viper.SetDefault("JWT_REFRESH_EXPIRATION_DAYS", 30)
	viper.SetDefault("JWT_RESET_PASSWORD_EXPIRATION_MINUTES", 10)
	viper.SetDefault("JWT_VERIFY_EMAIL_EXPIRATION_DAYS", 15)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("STRIPE_CATALOG_TTL_MINUTES", 60)
	viper.SetDefault("MINIO_BUCKET", "teamhub")
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_REDIS_LIMIT", 100)
	viper.SetDefault("RATE_LIMIT_REDIS_WINDOW_SECONDS", 60)

	env := viper.GetString("SERVER_ENVIRONMENT")
	clientURL := viper.GetString("CLIENT_URL")
	if clientURL == "" && env != "production" {
		clientURL = "http://localhost:3000"
	}
	corsOrigin := viper.GetString("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = clientURL
		if env != "production" {
			corsOrigin = "*"
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  env,
			ClientURL:    clientURL,
			CORSOrigin:   corsOrigin,
			LogLevel:     viper.GetString("LOG_LEVEL"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      os.Getenv("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:           os.Getenv("JWT_SECRET"),
			AccessTokenTTL:   time.Duration(viper.GetInt("JWT_ACCESS_EXPIRATION_MINUTES")) * time.Minute,
			RefreshTokenTTL:  time.Duration(viper.GetInt("JWT_REFRESH_EXPIRATION_DAYS")) * 24 * time.Hour,
			ResetPasswordTTL: time.Duration(viper.GetInt("JWT_RESET_PASSWORD_EXPIRATION_MINUTES")) * time.Minute,
			VerifyEmailTTL:   time.Duration(viper.GetInt("JWT_VERIFY_EMAIL_EXPIRATION_DAYS")) * 24 * time.Hour,
		},
		OAuth: OAuthConfig{
			CallbackBaseURL: viper.GetString("OAUTH_CALLBACK_BASE_URL"),
			GitHub: OAuthProviderConfig{
				ClientID:     viper.GetString("GITHUB_CLIENT_ID"),
				ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			},
			Google: OAuthProviderConfig{
				ClientID:     viper.GetString("GOOGLE_CLIENT_ID"),
				ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			},
		},
		SMTP: SMTPConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			Username: viper.GetString("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     viper.GetString("EMAIL_FROM"),
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			CatalogTTL:    time.Duration(viper.GetInt("STRIPE_CATALOG_TTL_MINUTES")) * time.Minute,
		},
		MinIO: MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
		},
		RateLimit: RateLimitConfig{
			Enabled:     viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:    viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:         viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:       viper.GetInt("RATE_LIMIT_BURST"),
			RedisLimit:  viper.GetInt("RATE_LIMIT_REDIS_LIMIT"),
			RedisWindow: time.Duration(viper.GetInt("RATE_LIMIT_REDIS_WINDOW_SECONDS")) * time.Second,
		},
	}

	if cfg.MongoDB.URI == "" {
		return nil, fmt.Errorf("environment variable MONGODB_URI is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET is required")
	}
	if cfg.OAuth.CallbackBaseURL == "" {
		cfg.OAuth.CallbackBaseURL = fmt.Sprintf("http://localhost:%s", cfg.Server.Port)
	}
	if cfg.Stripe.SecretKey == "" {
		logger.Warnf("config: STRIPE_SECRET_KEY is not set; billing calls will fail")
	}
	return cfg, nil
}
