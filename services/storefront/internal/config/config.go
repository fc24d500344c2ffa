package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// Preference backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

const (
	defaultCatalogURL     = "https://fakestoreapi.com/products"
	defaultCatalogTimeout = 10 * time.Second
	defaultContactDelay   = 2 * time.Second
	defaultPreferenceFile = "data/preferences.yaml"
	defaultRateLimit      = 30
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port               string   `yaml:"port"`
	LogLevel           string   `yaml:"logLevel"`
	CatalogURL         string   `yaml:"catalogURL"`
	CatalogTimeout     string   `yaml:"catalogTimeout"`
	PreferenceBackend  string   `yaml:"preferenceBackend"`
	PreferenceFile     string   `yaml:"preferenceFile"`
	RedisAddr          string   `yaml:"redisAddr"`
	RedisPassword      string   `yaml:"redisPassword"`
	DatabaseURL        string   `yaml:"databaseURL"`
	VisitorSecret      string   `yaml:"visitorSecret"`
	SecureCookie       bool     `yaml:"secureCookie"`
	ContactDelay       string   `yaml:"contactDelay"`
	// RateLimitPerMinute caps form and API writes per client IP and action.
	// Zero or unset selects the default of 30; limiting cannot be disabled.
	RateLimitPerMinute int      `yaml:"rateLimitPerMinute"`
	TrustedProxyCIDRs  []string `yaml:"trustedProxyCidrs"`
	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`
	WarmCatalog        bool     `yaml:"warmCatalog"`
}

// Load reads config from path (defaults to config.yaml). A .env file in the
// working directory is applied first when present; STOREFRONT_* variables
// override the file.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv("STOREFRONT_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_CATALOG_URL"); v != "" {
		cfg.CatalogURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_CATALOG_TIMEOUT"); v != "" {
		cfg.CatalogTimeout = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_PREFERENCE_BACKEND"); v != "" {
		cfg.PreferenceBackend = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_PREFERENCE_FILE"); v != "" {
		cfg.PreferenceFile = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("STOREFRONT_VISITOR_SECRET"); v != "" {
		cfg.VisitorSecret = v
	}
	if v := os.Getenv("STOREFRONT_SECURE_COOKIE"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.SecureCookie = b
		}
	}
	if v := os.Getenv("STOREFRONT_CONTACT_DELAY"); v != "" {
		cfg.ContactDelay = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("STOREFRONT_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("STOREFRONT_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("STOREFRONT_WARM_CATALOG"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.WarmCatalog = b
		}
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.CatalogURL == "" {
		cfg.CatalogURL = defaultCatalogURL
	}
	if cfg.PreferenceBackend == "" {
		cfg.PreferenceBackend = BackendMemory
	}
	cfg.PreferenceBackend = strings.ToLower(cfg.PreferenceBackend)
	if cfg.PreferenceBackend == BackendFile && cfg.PreferenceFile == "" {
		cfg.PreferenceFile = defaultPreferenceFile
	}
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = defaultRateLimit
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or STOREFRONT_PORT)")
	}
	if len(strings.TrimSpace(cfg.VisitorSecret)) < 16 {
		return errors.New("config: visitorSecret must be at least 16 bytes (set in config.yaml or STOREFRONT_VISITOR_SECRET)")
	}
	switch cfg.PreferenceBackend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for the redis preference backend")
		}
	case BackendPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required for the postgres preference backend")
		}
	default:
		return fmt.Errorf("config: unknown preferenceBackend %q (memory, file, redis or postgres)", cfg.PreferenceBackend)
	}
	if cfg.RateLimitPerMinute < 0 {
		return errors.New("config: rateLimitPerMinute must be >= 0 (0 selects the default)")
	}
	if _, err := ParseCatalogTimeout(cfg.CatalogTimeout); err != nil {
		return err
	}
	if _, err := ParseContactDelay(cfg.ContactDelay); err != nil {
		return err
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseCatalogTimeout parses the optional catalog client timeout (default 10s).
func ParseCatalogTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return defaultCatalogTimeout, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil || dur <= 0 {
		return 0, fmt.Errorf("config: invalid catalogTimeout %q", raw)
	}
	return dur, nil
}

// ParseContactDelay parses the optional contact form delay (default 2s).
// Zero disables the delay.
func ParseContactDelay(raw string) (time.Duration, error) {
	if raw == "" {
		return defaultContactDelay, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil || dur < 0 {
		return 0, fmt.Errorf("config: invalid contactDelay %q", raw)
	}
	return dur, nil
}
