package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/xtruder/bookmark-curator/internal/config"
	"github.com/xtruder/bookmark-curator/internal/llm"
	"github.com/xtruder/bookmark-curator/internal/pipeline"
	"github.com/xtruder/bookmark-curator/internal/web"
	"github.com/xtruder/bookmark-curator/internal/x"
)

// loadConfig reads the config file and applies command line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
	if v := c.String("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if v := c.String("endpoint"); v != "" {
		cfg.Browser.Endpoint = v
	}
	if v := c.String("llm-url"); v != "" {
		cfg.Classifier.BaseURL = v
	}
	if v := c.String("llm-key"); v != "" {
		cfg.Classifier.APIKey = v
	}
	if v := c.String("model"); v != "" {
		cfg.Classifier.Model = v
	}
	if c.Bool("keep-dead") {
		cfg.Tree.KeepDead = true
	}
	if c.Bool("no-cache") {
		cfg.Cache.Type = "none"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogger(cfg.Log)
	return cfg, nil
}

func setupLogger(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// openCache returns the configured cache. A cache that cannot be opened
// is logged and replaced by no caching.
func openCache(ctx context.Context, cfg config.CacheConfig) (x.Cache, func()) {
	cache, closeFn, err := newCache(ctx, cfg)
	if err != nil {
		slog.Warn("failed to initialize cache, continuing without it", "type", cfg.Type, "error", err)
		return x.NopCache{}, func() {}
	}
	slog.Debug("using cache", "type", cfg.Type)
	return cache, closeFn
}

func newCache(ctx context.Context, cfg config.CacheConfig) (x.Cache, func(), error) {
	noop := func() {}

	switch cfg.Type {
	case "file":
		dir, err := cacheDir(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		cache, err := x.NewFileCache(dir, cfg.TTL)
		return cache, noop, err
	case "memory":
		cache, err := x.NewMemoryCache(ctx, cfg.TTL, cfg.MemoryMB)
		if err != nil {
			return nil, nil, err
		}
		return cache, func() { _ = cache.Close() }, nil
	case "redis":
		r := cfg.Redis
		cache, err := x.NewRedisCache(ctx, r.Addr, r.Password, r.DB, r.Prefix, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		return cache, func() { _ = cache.Close() }, nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			dir, err := cacheDir(cfg.Dir)
			if err != nil {
				return nil, nil, err
			}
			path = filepath.Join(dir, "cache.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		cache, err := x.NewSQLiteCache(path, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		return cache, func() { _ = cache.Close() }, nil
	default:
		return x.NopCache{}, noop, nil
	}
}

func cacheDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "bookmark-curator"), nil
}

// connectBrowser probes the DevTools endpoint and attaches to it.
func connectBrowser(ctx context.Context, cfg config.BrowserConfig) (*web.RodNavigator, error) {
	probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	defer cancel()

	client := web.NewRetryableClient(2, 500*time.Millisecond, 2*time.Second)
	controlURL, err := web.ResolveEndpoint(probeCtx, client.StandardClient(), cfg.Endpoint)
	if err != nil {
		return nil, pipeline.Fatal(pipeline.EndpointUnavailable, err)
	}

	nav, err := web.ConnectBrowser(controlURL)
	if err != nil {
		return nil, pipeline.Fatal(pipeline.EndpointUnavailable, err)
	}
	return nav, nil
}

// newLLMClient builds the model client and checks the endpoint answers.
func newLLMClient(ctx context.Context, cfg config.ClassifierConfig, cache x.Cache) (*llm.OpenAIClient, error) {
	prompts, err := llm.LoadPrompts(cfg.PromptsDir)
	if err != nil {
		return nil, err
	}

	client := web.NewRetryableClient(2, time.Second, 10*time.Second)
	llmClient, err := llm.NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, client.StandardClient(), cache, prompts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := llmClient.Ping(pingCtx); err != nil {
		return nil, pipeline.Fatal(pipeline.EndpointUnavailable, err)
	}
	return llmClient, nil
}
