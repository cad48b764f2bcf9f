// Package config loads run settings from compiled defaults, an optional
// YAML file and CURATOR_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Browser    BrowserConfig    `yaml:"browser"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Dedupe     DedupeConfig     `yaml:"dedupe"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Taxonomy   TaxonomyConfig   `yaml:"taxonomy"`
	Tree       TreeConfig       `yaml:"tree"`
	Cache      CacheConfig      `yaml:"cache"`
	S3         S3Config         `yaml:"s3"`
	Run        RunConfig        `yaml:"run"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

type BrowserConfig struct {
	Endpoint     string        `yaml:"endpoint"` // host:port, http URL or ws URL
	MaxSessions  int           `yaml:"max_sessions"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

type FetchConfig struct {
	Workers        int           `yaml:"workers"`
	Timeout        time.Duration `yaml:"timeout"`
	Retries        int           `yaml:"retries"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
	Recanonicalize bool          `yaml:"recanonicalize_redirects"`
	LivenessCheck  bool          `yaml:"liveness_check"`
}

type DedupeConfig struct {
	Content   bool    `yaml:"content"`
	Threshold float64 `yaml:"threshold"`
}

type ClassifierConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	Workers       int           `yaml:"workers"`
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
	BackoffBase   time.Duration `yaml:"backoff_base"`
	BackoffMax    time.Duration `yaml:"backoff_max"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	MaxDepth      int           `yaml:"max_depth"`
	PromptsDir    string        `yaml:"prompts_dir"`
	SeedFolders   []string      `yaml:"seed_folders"`
	SeedFromInput bool          `yaml:"seed_from_input"`
}

type TaxonomyConfig struct {
	MaxTopLevel   int `yaml:"max_top_level"`   // 0 disables reduction
	MinFolderSize int `yaml:"min_folder_size"` // 0 disables folding
}

type TreeConfig struct {
	KeepDead bool   `yaml:"keep_dead"`
	Fallback string `yaml:"fallback"`
}

type CacheConfig struct {
	Type     string        `yaml:"type"` // none | file | memory | redis | sqlite
	Dir      string        `yaml:"dir"`
	Path     string        `yaml:"path"`
	TTL      time.Duration `yaml:"ttl"`
	MemoryMB int           `yaml:"memory_mb"`
	Redis    RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

type RunConfig struct {
	Timeout time.Duration `yaml:"timeout"` // 0 means no limit
}

// Default returns the built in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Browser: BrowserConfig{
			Endpoint:     "localhost:9222",
			MaxSessions:  4,
			ProbeTimeout: 10 * time.Second,
		},
		Fetch: FetchConfig{
			Workers:        4,
			Timeout:        15 * time.Second,
			Retries:        2,
			BackoffBase:    time.Second,
			BackoffMax:     10 * time.Second,
			Recanonicalize: true,
		},
		Dedupe: DedupeConfig{Content: true, Threshold: 0.9},
		Classifier: ClassifierConfig{
			BaseURL:       "http://localhost:11434/v1/",
			Model:         "llama3.2",
			Workers:       2,
			Timeout:       60 * time.Second,
			Retries:       3,
			BackoffBase:   2 * time.Second,
			BackoffMax:    30 * time.Second,
			RatePerSecond: 2,
			Burst:         1,
			MaxDepth:      2,
		},
		Taxonomy: TaxonomyConfig{MaxTopLevel: 16},
		Tree:     TreeConfig{Fallback: "Unsorted"},
		Cache: CacheConfig{
			Type:     "file",
			TTL:      30 * 24 * time.Hour,
			MemoryMB: 256,
			Redis:    RedisConfig{Addr: "localhost:6379", Prefix: "bookmark-curator:"},
		},
		S3: S3Config{Region: "us-east-1"},
	}
}

// Load reads path over the defaults (path may be empty) and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Log.Level = getenv("CURATOR_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getenv("CURATOR_LOG_FORMAT", c.Log.Format)

	c.Browser.Endpoint = getenv("CURATOR_BROWSER_ENDPOINT", c.Browser.Endpoint)
	c.Browser.MaxSessions = getenvInt("CURATOR_BROWSER_MAX_SESSIONS", c.Browser.MaxSessions)

	c.Fetch.Workers = getenvInt("CURATOR_FETCH_WORKERS", c.Fetch.Workers)
	c.Fetch.Timeout = getenvDuration("CURATOR_FETCH_TIMEOUT", c.Fetch.Timeout)
	c.Fetch.Retries = getenvInt("CURATOR_FETCH_RETRIES", c.Fetch.Retries)

	c.Classifier.BaseURL = getenv("CURATOR_LLM_BASE_URL", c.Classifier.BaseURL)
	c.Classifier.Model = getenv("CURATOR_LLM_MODEL", c.Classifier.Model)
	c.Classifier.APIKey = getenv("CURATOR_LLM_API_KEY", getenv("OPENAI_API_KEY", c.Classifier.APIKey))
	c.Classifier.Workers = getenvInt("CURATOR_LLM_WORKERS", c.Classifier.Workers)

	c.Cache.Type = getenv("CURATOR_CACHE", c.Cache.Type)
	c.Cache.Redis.Addr = getenv("CURATOR_REDIS_ADDR", c.Cache.Redis.Addr)
	c.Cache.Redis.Password = getenv("CURATOR_REDIS_PASSWORD", c.Cache.Redis.Password)

	c.S3.Region = getenv("CURATOR_S3_REGION", c.S3.Region)
	c.S3.Endpoint = getenv("CURATOR_S3_ENDPOINT", c.S3.Endpoint)
	c.S3.AccessKeyID = getenv("AWS_ACCESS_KEY_ID", c.S3.AccessKeyID)
	c.S3.SecretAccessKey = getenv("AWS_SECRET_ACCESS_KEY", c.S3.SecretAccessKey)
}

// Validate checks bounds the pipeline depends on.
func (c *Config) Validate() error {
	var errs []error

	if c.Browser.Endpoint == "" {
		errs = append(errs, errors.New("browser.endpoint is required"))
	}
	if c.Browser.MaxSessions < 1 {
		errs = append(errs, errors.New("browser.max_sessions must be at least 1"))
	}
	if c.Fetch.Workers < 1 {
		errs = append(errs, errors.New("fetch.workers must be at least 1"))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch.timeout must be positive"))
	}
	if c.Fetch.Retries < 0 || c.Classifier.Retries < 0 {
		errs = append(errs, errors.New("retries cannot be negative"))
	}
	if c.Dedupe.Threshold <= 0 || c.Dedupe.Threshold > 1 {
		errs = append(errs, fmt.Errorf("dedupe.threshold must be in (0, 1], got %v", c.Dedupe.Threshold))
	}
	if c.Classifier.Model == "" {
		errs = append(errs, errors.New("classifier.model is required"))
	}
	if c.Classifier.Workers < 1 {
		errs = append(errs, errors.New("classifier.workers must be at least 1"))
	}
	if c.Classifier.MaxDepth < 1 || c.Classifier.MaxDepth > 3 {
		errs = append(errs, fmt.Errorf("classifier.max_depth must be between 1 and 3, got %d", c.Classifier.MaxDepth))
	}
	switch c.Cache.Type {
	case "none", "file", "memory", "redis", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown cache type %q", c.Cache.Type))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// FetchWorkers is the fetch pool size, never above the browser capacity.
func (c *Config) FetchWorkers() int {
	return min(c.Fetch.Workers, c.Browser.MaxSessions)
}

// ClassifyWorkers is the classifier pool size. It stays below the fetch pool
// so a browser session is always free for fetching, but is at least 1.
func (c *Config) ClassifyWorkers() int {
	return max(1, min(c.Classifier.Workers, c.FetchWorkers()-1))
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
