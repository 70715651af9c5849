package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://project.supabase.co/")
	t.Setenv("PUBLIC_APP_URL", "https://app.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Identity.URL != "https://project.supabase.co" {
		t.Errorf("Identity.URL = %q, want trailing slash trimmed", cfg.Identity.URL)
	}
	if cfg.Billing.StatusSource != "stripe" {
		t.Errorf("Billing.StatusSource = %q, want stripe", cfg.Billing.StatusSource)
	}
	if cfg.Billing.StatusCacheTTL != time.Minute {
		t.Errorf("Billing.StatusCacheTTL = %v, want 1m", cfg.Billing.StatusCacheTTL)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("Server.AllowedOrigins = %v, want public app url", cfg.Server.AllowedOrigins)
	}
	if cfg.Billing.LegacyCheckEnabled {
		t.Error("legacy check-subscription endpoint should be disabled by default")
	}
}

func TestLoad_PortFallback(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("PORT", "8088")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8088 {
		t.Errorf("Server.Port = %d, want 8088", cfg.Server.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 3000, Environment: "development"},
			Database: DatabaseConfig{Driver: "postgres"},
			Identity: IdentityConfig{Mode: "remote", URL: "https://project.supabase.co"},
			Billing:  BillingConfig{StatusSource: "stripe"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "remote without url", mutate: func(c *Config) { c.Identity.URL = "" }, wantErr: true},
		{name: "jwt without key material", mutate: func(c *Config) { c.Identity.Mode = "jwt" }, wantErr: true},
		{name: "jwt with secret", mutate: func(c *Config) {
			c.Identity.Mode = "jwt"
			c.Identity.JWTSecret = "secret"
		}, wantErr: false},
		{name: "unknown status source", mutate: func(c *Config) { c.Billing.StatusSource = "cache" }, wantErr: true},
		{name: "production without stripe secrets", mutate: func(c *Config) { c.Server.Environment = "production" }, wantErr: true},
		{name: "production with stripe secrets", mutate: func(c *Config) {
			c.Server.Environment = "production"
			c.Billing.SecretKey = "sk_live"
			c.Billing.WebhookSecret = "whsec"
			c.Billing.PriceID = "price_1"
		}, wantErr: false},
		{name: "storage without bucket", mutate: func(c *Config) { c.Storage.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
