package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
}

func TestLoadConfig(t *testing.T) {
	setRequired(t)
	t.Setenv("MONGODB_DATABASE", "teamhub_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Fatalf("unexpected redis addr: %s", cfg.Redis.Addr())
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_ENVIRONMENT", "development")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.JWT.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("access ttl: %v", cfg.JWT.AccessTokenTTL)
	}
	if cfg.JWT.RefreshTokenTTL != 30*24*time.Hour {
		t.Fatalf("refresh ttl: %v", cfg.JWT.RefreshTokenTTL)
	}
	if cfg.JWT.ResetPasswordTTL != 10*time.Minute {
		t.Fatalf("reset ttl: %v", cfg.JWT.ResetPasswordTTL)
	}
	if cfg.JWT.VerifyEmailTTL != 15*24*time.Hour {
		t.Fatalf("verify ttl: %v", cfg.JWT.VerifyEmailTTL)
	}
	if cfg.Server.ClientURL != "http://localhost:3000" {
		t.Fatalf("client url: %s", cfg.Server.ClientURL)
	}
	if cfg.Server.CORSOrigin != "*" {
		t.Fatalf("cors origin: %s", cfg.Server.CORSOrigin)
	}
	if cfg.Stripe.CatalogTTL != time.Hour {
		t.Fatalf("catalog ttl: %v", cfg.Stripe.CatalogTTL)
	}
}

func TestLoadConfig_RequiresSecrets(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("JWT_SECRET", "x")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without MONGODB_URI")
	}

	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}
