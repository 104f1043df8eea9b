package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	CacheDir           string        `yaml:"cacheDir"`
	CacheTTL           time.Duration `yaml:"cacheTTL"`
	CacheSweepInterval time.Duration `yaml:"cacheSweepInterval"`

	ThrottleMaxRequests   int           `yaml:"throttleMaxRequests"`
	ThrottleWindow        time.Duration `yaml:"throttleWindow"`
	ThrottleSweepInterval time.Duration `yaml:"throttleSweepInterval"`

	QueueMaxConcurrent int           `yaml:"queueMaxConcurrent"`
	QueueMaxSize       int           `yaml:"queueMaxSize"`
	QueueTimeout       time.Duration `yaml:"queueTimeout"`
	QueueRetryAfter    time.Duration `yaml:"queueRetryAfter"`

	StatsURL     string        `yaml:"statsURL"`
	StatsTimeout time.Duration `yaml:"statsTimeout"`

	AdminToken        string `yaml:"adminToken"`
	FirebaseAdmin     bool   `yaml:"firebaseAdmin"`
	// FirebaseProjectID overrides the project taken from application default credentials.
	FirebaseProjectID string `yaml:"firebaseProjectID"`
	DedupeRenders     bool   `yaml:"dedupeRenders"`
	TrustProxy        bool   `yaml:"trustProxy"`
}

func defaults() *Config {
	return &Config{
		Port:                  "8080",
		LogLevel:              "info",
		CacheDir:              "./cache/charts",
		CacheTTL:              7 * 24 * time.Hour,
		CacheSweepInterval:    time.Hour,
		ThrottleMaxRequests:   60,
		ThrottleWindow:        time.Minute,
		ThrottleSweepInterval: 5 * time.Minute,
		QueueMaxConcurrent:    4,
		QueueMaxSize:          50,
		QueueTimeout:          30 * time.Second,
		QueueRetryAfter:       5 * time.Second,
		StatsURL:              "http://localhost:5000",
		StatsTimeout:          20 * time.Second,
	}
}

// New builds the config from defaults, the YAML file named by CONFIG_FILE
// (if any), and then environment variables, in increasing precedence.
func New() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	e := envReader{}
	e.str("PORT", &cfg.Port)
	e.str("LOGLEVEL", &cfg.LogLevel)
	e.str("CACHE_DIR", &cfg.CacheDir)
	e.dur("CACHE_TTL", &cfg.CacheTTL)
	e.dur("CACHE_SWEEP_INTERVAL", &cfg.CacheSweepInterval)
	e.integer("THROTTLE_MAX_REQUESTS", &cfg.ThrottleMaxRequests)
	e.dur("THROTTLE_WINDOW", &cfg.ThrottleWindow)
	e.dur("THROTTLE_SWEEP_INTERVAL", &cfg.ThrottleSweepInterval)
	e.integer("QUEUE_MAX_CONCURRENT", &cfg.QueueMaxConcurrent)
	e.integer("QUEUE_MAX_SIZE", &cfg.QueueMaxSize)
	e.dur("QUEUE_TIMEOUT", &cfg.QueueTimeout)
	e.dur("QUEUE_RETRY_AFTER", &cfg.QueueRetryAfter)
	e.str("STATS_URL", &cfg.StatsURL)
	e.dur("STATS_TIMEOUT", &cfg.StatsTimeout)
	e.str("ADMIN_TOKEN", &cfg.AdminToken)
	e.flag("FIREBASE_ADMIN", &cfg.FirebaseAdmin)
	e.str("FIREBASE_PROJECT_ID", &cfg.FirebaseProjectID)
	e.flag("DEDUPE_RENDERS", &cfg.DedupeRenders)
	e.flag("TRUST_PROXY", &cfg.TrustProxy)
	if e.err != nil {
		return nil, e.err
	}
	return cfg, nil
}

// envReader overwrites fields from set environment variables and keeps the
// first parse error.
type envReader struct {
	err error
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok || e.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = n
}

func (e *envReader) dur(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok || e.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = d
}

func (e *envReader) flag(key string, dst *bool) {
	v, ok := os.LookupEnv(key)
	if !ok || e.err != nil {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = b
}
