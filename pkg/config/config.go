package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// API modes select the Remote API Client implementation.
const (
	APIModeRemote = "remote"
	APIModeLocal  = "local"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Restore modes decide what a persisted identity means when a session
// container is first created.
const (
	RestoreModeIdentity = "identity"
	RestoreModeRelogin  = "relogin"
)

type Config struct {
	Env  string
	Port int

	API       APIConfig
	ScriptAPI ScriptAPIConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Dashboard DashboardConfig
	Export    ExportConfig
	CORS      CORSConfig
	Log       LogConfig
}

// APIConfig points the web views at the record backend.
type APIConfig struct {
	Mode    string
	URL     string
	Timeout time.Duration
}

// ScriptAPIConfig controls the self-hosted replacement for the script endpoint.
type ScriptAPIConfig struct {
	Enabled         bool
	DefaultPassword string
	LoginRateLimit  float64
	LoginRateBurst  int
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig tunes the per-browser session containers.
type SessionConfig struct {
	Store         string
	Secret        string
	CookieName    string
	RestoreMode   string
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// DashboardConfig governs caching of the aggregate student dashboard.
type DashboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ExportConfig points the PDF exporter at a TTF font able to draw Hangul.
// Without one, PDF exports fall back to a Latin-only core font.
type ExportConfig struct {
	PDFFont string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.API = APIConfig{
		Mode:    strings.ToLower(v.GetString("API_MODE")),
		URL:     v.GetString("SHEET_API_URL"),
		Timeout: parseDuration(v.GetString("SHEET_API_TIMEOUT"), 0),
	}

	cfg.ScriptAPI = ScriptAPIConfig{
		Enabled:         v.GetBool("ENABLE_SCRIPT_API"),
		DefaultPassword: v.GetString("DEFAULT_PASSWORD"),
		LoginRateLimit:  v.GetFloat64("LOGIN_RATE_LIMIT"),
		LoginRateBurst:  v.GetInt("LOGIN_RATE_BURST"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Store:         strings.ToLower(v.GetString("SESSION_STORE")),
		Secret:        v.GetString("SESSION_SECRET"),
		CookieName:    v.GetString("SESSION_COOKIE_NAME"),
		RestoreMode:   strings.ToLower(v.GetString("SESSION_RESTORE_MODE")),
		IdleTTL:       parseDuration(v.GetString("SESSION_IDLE_TTL"), 12*time.Hour),
		SweepInterval: parseDuration(v.GetString("SESSION_SWEEP_INTERVAL"), 10*time.Minute),
	}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled: v.GetBool("ENABLE_DASHBOARD_CACHE"),
		CacheTTL:     parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Export = ExportConfig{PDFFont: v.GetString("EXPORT_PDF_FONT")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.API.Mode {
	case APIModeRemote:
		if c.API.URL == "" {
			return errors.New("SHEET_API_URL is required when API_MODE=remote")
		}
	case APIModeLocal:
	default:
		return errors.New("API_MODE must be remote or local")
	}
	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return errors.New("SESSION_STORE must be memory or redis")
	}
	switch c.Session.RestoreMode {
	case RestoreModeIdentity, RestoreModeRelogin:
	default:
		return errors.New("SESSION_RESTORE_MODE must be identity or relogin")
	}
	if c.Env == EnvProduction && c.Session.Secret == "dev_session_secret" {
		return errors.New("SESSION_SECRET must be set in production")
	}
	return nil
}

// NeedsDatabase reports whether any component requires Postgres.
func (c *Config) NeedsDatabase() bool {
	return c.API.Mode == APIModeLocal || c.ScriptAPI.Enabled
}

// NeedsRedis reports whether any component requires Redis.
func (c *Config) NeedsRedis() bool {
	return c.Session.Store == SessionStoreRedis || (c.NeedsDatabase() && c.Dashboard.CacheEnabled)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("API_MODE", APIModeRemote)
	v.SetDefault("SHEET_API_URL", "http://localhost:8080/exec")
	v.SetDefault("SHEET_API_TIMEOUT", "")

	v.SetDefault("ENABLE_SCRIPT_API", false)
	v.SetDefault("DEFAULT_PASSWORD", "0000")
	v.SetDefault("LOGIN_RATE_LIMIT", 1)
	v.SetDefault("LOGIN_RATE_BURST", 5)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "reading_log")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_COOKIE_NAME", "reading_log_device")
	v.SetDefault("SESSION_RESTORE_MODE", RestoreModeIdentity)
	v.SetDefault("SESSION_IDLE_TTL", "12h")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "10m")

	v.SetDefault("ENABLE_DASHBOARD_CACHE", false)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("EXPORT_PDF_FONT", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
