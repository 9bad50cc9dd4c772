package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"statuspage/app/internal/models"
)

// DefaultLogURLTemplate points at per-service report logs; %s is the service key.
const DefaultLogURLTemplate = "https://raw.githubusercontent.com/upptime/upptime/master/logs/%s_report.log"

// Config holds all application configuration
type Config struct {
	// Server
	Port            string
	RateLimitPerMin int

	// Logging
	LogLevel string
	LogDebug bool

	// Services
	ServicesFile string
	Services     []models.Service

	// Log source
	LogSource      string // http, s3 or sqlite
	LogURLTemplate string
	FetchTimeout   time.Duration
	StrictParse    bool
	Concurrency    int

	// Cache
	CacheBackend string // memory or redis
	CacheTTL     time.Duration
	RedisAddr    string

	// S3 / MinIO
	S3 S3Config

	// sqlite sample store and probe
	DBPath       string
	PollInterval time.Duration
	Retention    time.Duration

	// Admin
	AdminUser string
	AdminHash []byte

	// Alerts
	AlertWebhookURL    string
	AlertWebhookSecret string
}

// S3Config describes the bucket holding "<key>_report.log" objects.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// Load reads configuration from environment variables and the services file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getenv("PORT", "4555"),
		RateLimitPerMin: envInt("RATE_LIMIT_PER_MIN", 120),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogDebug:        envBool("LOG_DEBUG", false),
		ServicesFile:    getenv("SERVICES_FILE", "services.yaml"),
		LogSource:       strings.ToLower(getenv("LOG_SOURCE", "http")),
		LogURLTemplate:  getenv("LOG_URL_TEMPLATE", DefaultLogURLTemplate),
		FetchTimeout:    envDurSecs("FETCH_TIMEOUT_SECS", 10),
		StrictParse:     envBool("STRICT_PARSE", false),
		Concurrency:     envInt("FETCH_CONCURRENCY", 8),
		CacheBackend:    strings.ToLower(getenv("CACHE_BACKEND", "memory")),
		CacheTTL:        envDurSecs("CACHE_TTL_SECS", 300),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		S3: S3Config{
			Endpoint:  getenv("S3_ENDPOINT", ""),
			Bucket:    getenv("S3_BUCKET", ""),
			Region:    getenv("S3_REGION", ""),
			AccessKey: getenv("S3_ACCESS_KEY", ""),
			SecretKey: getenv("S3_SECRET_KEY", ""),
			UseSSL:    envBool("S3_USE_SSL", true),
			Prefix:    getenv("S3_PREFIX", "logs/"),
		},
		DBPath:       getenv("DB_PATH", "./uptime.db"),
		PollInterval: envDurSecs("POLL_SECONDS", 60),
		Retention:    time.Duration(envInt("RETENTION_DAYS", 90)) * 24 * time.Hour,
		AdminUser:    getenv("ADMIN_USER", "admin"),

		AlertWebhookURL:    getenv("ALERT_WEBHOOK_URL", ""),
		AlertWebhookSecret: getenv("ALERT_WEBHOOK_SECRET", ""),
	}

	// Admin password hash; the admin API stays disabled without one.
	if hp := getenv("ADMIN_PASSWORD_BCRYPT", ""); hp != "" {
		cfg.AdminHash = []byte(hp)
	} else if pw := getenv("ADMIN_PASSWORD", ""); pw != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		cfg.AdminHash = h
	}

	services, err := loadServices(cfg.ServicesFile, getenv("SERVICES", ""))
	if err != nil {
		return nil, err
	}
	cfg.Services = services

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option combinations that cannot work.
func (c *Config) Validate() error {
	switch c.LogSource {
	case "http":
		if !strings.Contains(c.LogURLTemplate, "%s") {
			return fmt.Errorf("LOG_URL_TEMPLATE must contain %%s")
		}
	case "s3":
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return errors.New("S3_ENDPOINT and S3_BUCKET are required for LOG_SOURCE=s3")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unknown LOG_SOURCE %q", c.LogSource)
	}
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Minute
	}
	return nil
}

type registryFile struct {
	Services []registryEntry `yaml:"services"`
}

type registryEntry struct {
	Key         string `yaml:"key"`
	URL         string `yaml:"url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	OKMin       int    `yaml:"ok_min"`
	OKMax       int    `yaml:"ok_max"`
}

// loadServices reads the registry file, falling back to the inline
// "key=url,key=url" list when the file does not exist.
func loadServices(path, inline string) ([]models.Service, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return ParseServices(data)
	case errors.Is(err, os.ErrNotExist):
		return ParseInlineServices(inline)
	default:
		return nil, fmt.Errorf("read services file: %w", err)
	}
}

// ParseServices decodes a YAML service registry.
func ParseServices(data []byte) ([]models.Service, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse services file: %w", err)
	}
	services := make([]models.Service, 0, len(f.Services))
	for _, e := range f.Services {
		services = append(services, newService(e.Key, e.URL, e.TimeoutSecs, e.OKMin, e.OKMax))
	}
	return services, validateServices(services)
}

// ParseInlineServices decodes "key=url,key=url".
func ParseInlineServices(s string) ([]models.Service, error) {
	var services []models.Service
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, url, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("bad SERVICES entry %q, want key=url", part)
		}
		services = append(services, newService(strings.TrimSpace(key), strings.TrimSpace(url), 0, 0, 0))
	}
	return services, validateServices(services)
}

func newService(key, url string, timeoutSecs, minOK, maxOK int) models.Service {
	if timeoutSecs <= 0 {
		timeoutSecs = 5
	}
	if minOK == 0 {
		minOK = 200
	}
	if maxOK == 0 {
		maxOK = 399
	}
	return models.Service{
		Key:     key,
		URL:     url,
		Timeout: time.Duration(timeoutSecs) * time.Second,
		MinOK:   minOK,
		MaxOK:   maxOK,
	}
}

func validateServices(services []models.Service) error {
	seen := make(map[string]struct{}, len(services))
	for i, s := range services {
		if s.Key == "" {
			return fmt.Errorf("service %d: empty key", i)
		}
		if _, dup := seen[s.Key]; dup {
			return fmt.Errorf("service %q: duplicate key", s.Key)
		}
		seen[s.Key] = struct{}{}
	}
	return nil
}

// Helper functions
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	v := strings.ToLower(getenv(k, ""))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

func envDurSecs(k string, def int) time.Duration {
	return time.Duration(envInt(k, def)) * time.Second
}
