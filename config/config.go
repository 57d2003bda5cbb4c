package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultJWTSecret is the insecure built-in fallback signing key. It exists so
// the service boots in development without configuration; main logs a warning
// whenever it is in effect.
const DefaultJWTSecret = "your-secret-key-change-in-production"

// AppConfig holds environment driven configuration values.
type AppConfig struct {
	AppPort   string
	AppEnv    string
	JWTSecret string

	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string

	RateLimitPerMinute int
	AllowedOrigins     []string

	GinMode string

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load reads configuration once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// IsProduction reports whether the service runs with production settings,
// which among other things turns on the Secure cookie attribute.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// loadJSONConfig reads a grouped JSON file into out if present. Returns error
// only for invalid JSON; a missing file is silently ignored.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	if app, ok := raw["app"].(map[string]any); ok {
		setString(app, "Port", &out.AppPort)
		setString(app, "Env", &out.AppEnv)
		setString(app, "JWTSecret", &out.JWTSecret)
		setInt(app, "RateLimitPerMinute", &out.RateLimitPerMinute)
		setStringSlice(app, "AllowedOrigins", &out.AllowedOrigins)
		setString(app, "GinMode", &out.GinMode)
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		setString(dbs, "DatabaseURI", &out.DatabaseURI)
		setString(dbs, "DBHost", &out.DBHost)
		setString(dbs, "DBPort", &out.DBPort)
		setString(dbs, "DBUser", &out.DBUser)
		setString(dbs, "DBPassword", &out.DBPassword)
		setString(dbs, "DBName", &out.DBName)
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		setString(rds, "RedisHost", &out.RedisHost)
		setInt(rds, "RedisPort", &out.RedisPort)
		setInt(rds, "RedisDB", &out.RedisDB)
		setString(rds, "RedisPassword", &out.RedisPassword)
	}

	if oa, ok := raw["oauth"].(map[string]any); ok {
		setString(oa, "GitHubClientID", &out.GitHubClientID)
		setString(oa, "GitHubClientSecret", &out.GitHubClientSecret)
		setString(oa, "GoogleClientID", &out.GoogleClientID)
		setString(oa, "GoogleClientSecret", &out.GoogleClientSecret)
		setString(oa, "RedirectBase", &out.OAuthRedirectBase)
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		setString(lg, "Level", &out.LogLevel)
		setString(lg, "Path", &out.LogPath)
		setInt(lg, "MaxSizeMB", &out.LogMaxSizeMB)
		setInt(lg, "MaxBackups", &out.LogMaxBackups)
		setInt(lg, "MaxAgeDays", &out.LogMaxAgeDays)
		if b, ok := lg["Compress"].(bool); ok {
			out.LogCompress = b
		}
	}

	return nil
}

func setString(m map[string]any, key string, dst *string) {
	if v, ok := m[key].(string); ok && v != "" {
		*dst = v
	}
}

func setInt(m map[string]any, key string, dst *int) {
	switch v := m[key].(type) {
	case float64:
		if v != 0 {
			*dst = int(v)
		}
	case json.Number:
		if i, err := v.Int64(); err == nil && i != 0 {
			*dst = int(i)
		}
	}
}

func setStringSlice(m map[string]any, key string, dst *[]string) {
	arr, ok := m[key].([]any)
	if !ok {
		return
	}
	res := make([]string, 0, len(arr))
	for _, it := range arr {
		if s, ok := it.(string); ok {
			res = append(res, s)
		}
	}
	if len(res) > 0 {
		*dst = res
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.AppEnv == "" {
		c.AppEnv = "development"
	}
	if c.JWTSecret == "" {
		c.JWTSecret = DefaultJWTSecret
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:8080"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "blogpost"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when set.
func applyEnvOverrides(c *AppConfig) {
	overrideString("APP_PORT", &c.AppPort)
	overrideString("APP_ENV", &c.AppEnv)
	overrideString("JWT_SECRET", &c.JWTSecret)
	overrideString("GIN_MODE", &c.GinMode)

	overrideString("DATABASE_URI", &c.DatabaseURI)
	overrideString("DB_HOST", &c.DBHost)
	overrideString("DB_PORT", &c.DBPort)
	overrideString("DB_USER", &c.DBUser)
	overrideString("DB_PASSWORD", &c.DBPassword)
	overrideString("DB_NAME", &c.DBName)

	overrideString("REDIS_HOST", &c.RedisHost)
	overrideInt("REDIS_PORT", &c.RedisPort)
	overrideInt("REDIS_DB", &c.RedisDB)
	overrideString("REDIS_PASSWORD", &c.RedisPassword)

	overrideString("GITHUB_CLIENT_ID", &c.GitHubClientID)
	overrideString("GITHUB_CLIENT_SECRET", &c.GitHubClientSecret)
	overrideString("GOOGLE_CLIENT_ID", &c.GoogleClientID)
	overrideString("GOOGLE_CLIENT_SECRET", &c.GoogleClientSecret)
	overrideString("OAUTH_REDIRECT_BASE_URL", &c.OAuthRedirectBase)

	overrideInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}

	overrideString("LOG_LEVEL", &c.LogLevel)
	overrideString("LOG_PATH", &c.LogPath)
	overrideInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	overrideInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	overrideInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = v == "true"
	}
}

func overrideString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid integer value for %s: %v", key, err)
	}
	*dst = i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
