package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	if c.AppPort != "8080" {
		t.Errorf("AppPort = %q, want 8080", c.AppPort)
	}
	if c.JWTSecret != DefaultJWTSecret {
		t.Errorf("JWTSecret = %q, want fallback", c.JWTSecret)
	}
	if c.RateLimitPerMinute != 60 {
		t.Errorf("RateLimitPerMinute = %d, want 60", c.RateLimitPerMinute)
	}
	if len(c.AllowedOrigins) != 1 || c.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v", c.AllowedOrigins)
	}
}

func TestEnvOverridesBeatFileAndDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "9999")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	if c.AppPort != "9999" {
		t.Errorf("AppPort = %q, want 9999", c.AppPort)
	}
	if c.JWTSecret != "env-secret" {
		t.Errorf("JWTSecret = %q, want env-secret", c.JWTSecret)
	}
	if len(c.AllowedOrigins) != 2 || c.AllowedOrigins[0] != "https://a.example.com" {
		t.Errorf("AllowedOrigins = %v", c.AllowedOrigins)
	}
}

func TestLoadJSONConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"app": {"Port": "3000", "Env": "production", "JWTSecret": "file-secret"},
		"database": {"DBHost": "db.internal", "DBName": "blogdb"},
		"redis": {"RedisHost": "cache.internal", "RedisPort": 6380}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		t.Fatalf("loadJSONConfig: %v", err)
	}

	if c.AppPort != "3000" {
		t.Errorf("AppPort = %q, want 3000", c.AppPort)
	}
	if c.AppEnv != "production" || !c.IsProduction() {
		t.Errorf("AppEnv = %q, IsProduction = %v", c.AppEnv, c.IsProduction())
	}
	if c.JWTSecret != "file-secret" {
		t.Errorf("JWTSecret = %q", c.JWTSecret)
	}
	if c.DBHost != "db.internal" || c.DBName != "blogdb" {
		t.Errorf("db config = %q/%q", c.DBHost, c.DBName)
	}
	if c.RedisHost != "cache.internal" || c.RedisPort != 6380 {
		t.Errorf("redis config = %q:%d", c.RedisHost, c.RedisPort)
	}
}

func TestIsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"development", false},
		{"", false},
		{"staging", false},
	}
	for _, tt := range tests {
		c := AppConfig{AppEnv: tt.env}
		if got := c.IsProduction(); got != tt.want {
			t.Errorf("IsProduction(%q) = %v, want %v", tt.env, got, tt.want)
		}
	}
}
