// Package config loads client settings from a YAML file, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/mnehpets/gripp/jsonrpc"
)

// Retry back-off policies.
const (
	BackOffNone        = "none"
	BackOffConstant    = "constant"
	BackOffExponential = "exponential"
)

const defaultRetryInterval = 500 * time.Millisecond

type Config struct {
	Token          string          `yaml:"token"`
	BaseURL        string          `yaml:"base_url"`
	PageSize       int             `yaml:"page_size"`
	Timeout        time.Duration   `yaml:"timeout"`
	ConnectTimeout time.Duration   `yaml:"connect_timeout"`
	Retry          RetryConfig     `yaml:"retry"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	LogLevel       string          `yaml:"log_level"`
}

type RetryConfig struct {
	BackOff     string        `yaml:"backoff"`
	Interval    time.Duration `yaml:"interval"`
	MaxInterval time.Duration `yaml:"max_interval"`
}

// RateLimitConfig throttles requests on the client side. A zero RPS disables
// throttling.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func Default() Config {
	return Config{
		PageSize:       jsonrpc.DefaultPageSize,
		Timeout:        jsonrpc.DefaultTimeout,
		ConnectTimeout: jsonrpc.DefaultConnectTimeout,
		Retry:          RetryConfig{BackOff: BackOffNone, Interval: defaultRetryInterval},
		LogLevel:       "info",
	}
}

// Load builds a Config from defaults, the YAML file at path, the given .env
// files and the process environment. An empty path skips the YAML file. With
// no envFiles, ".env" is read if it exists.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		Merge(&cfg, parsed)
	}

	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return cfg, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := ApplyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	if len(files) == 0 {
		env, err := godotenv.Read()
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("config: reading .env: %w", err)
		}
		return env, nil
	}
	env, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("config: reading env files: %w", err)
	}
	return env, nil
}

// Merge copies the non-zero fields of src into dst.
func Merge(dst *Config, src Config) {
	if src.Token != "" {
		dst.Token = src.Token
	}
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.PageSize != 0 {
		dst.PageSize = src.PageSize
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
	if src.ConnectTimeout != 0 {
		dst.ConnectTimeout = src.ConnectTimeout
	}
	if src.Retry.BackOff != "" {
		dst.Retry.BackOff = src.Retry.BackOff
	}
	if src.Retry.Interval != 0 {
		dst.Retry.Interval = src.Retry.Interval
	}
	if src.Retry.MaxInterval != 0 {
		dst.Retry.MaxInterval = src.Retry.MaxInterval
	}
	if src.RateLimit.RPS != 0 {
		dst.RateLimit.RPS = src.RateLimit.RPS
	}
	if src.RateLimit.Burst != 0 {
		dst.RateLimit.Burst = src.RateLimit.Burst
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
}

// ApplyEnv overrides cfg with GRIPP_* variables found by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("GRIPP_API_TOKEN"); ok {
		cfg.Token = v
	}
	if v, ok := get("GRIPP_API_URL"); ok {
		cfg.BaseURL = v
	}
	if v, ok := get("GRIPP_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("GRIPP_RETRY_BACKOFF"); ok {
		cfg.Retry.BackOff = strings.ToLower(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"GRIPP_PAGE_SIZE", &cfg.PageSize},
		{"GRIPP_RATE_LIMIT_BURST", &cfg.RateLimit.Burst},
	}
	for _, e := range ints {
		if v, ok := get(e.key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", e.key, err)
			}
			*e.dst = n
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"GRIPP_TIMEOUT", &cfg.Timeout},
		{"GRIPP_CONNECT_TIMEOUT", &cfg.ConnectTimeout},
		{"GRIPP_RETRY_INTERVAL", &cfg.Retry.Interval},
	}
	for _, e := range durations {
		if v, ok := get(e.key); ok {
			d, err := parseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", e.key, err)
			}
			*e.dst = d
		}
	}

	if v, ok := get("GRIPP_RATE_LIMIT_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: GRIPP_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RPS = f
	}
	return nil
}

// parseDuration accepts Go durations ("30s") and bare seconds ("30").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

// Validate checks that the configuration can build a client.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Token) == "" {
		problems = append(problems, "API token is required (GRIPP_API_TOKEN)")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		problems = append(problems, "API URL is required (GRIPP_API_URL)")
	} else if err := jsonrpc.ValidateBaseURL(c.BaseURL); err != nil {
		problems = append(problems, fmt.Sprintf("API URL %q must be an absolute http(s) URL (GRIPP_API_URL)", c.BaseURL))
	}
	if c.PageSize < 0 {
		problems = append(problems, "page size must not be negative")
	}
	if c.Timeout < 0 || c.ConnectTimeout < 0 {
		problems = append(problems, "timeouts must not be negative")
	}
	switch c.Retry.BackOff {
	case "", BackOffNone, BackOffConstant, BackOffExponential:
	default:
		problems = append(problems, fmt.Sprintf("unknown retry backoff %q", c.Retry.BackOff))
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		problems = append(problems, "rate limit must not be negative")
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			problems = append(problems, fmt.Sprintf("unknown log level %q", c.LogLevel))
		}
	}
	if len(problems) > 0 {
		return &jsonrpc.ConfigurationError{Message: "Gripp client is not configured: " + strings.Join(problems, "; ")}
	}
	return nil
}

// Level returns the configured log level, info when unset or invalid.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// NewBackOff returns the retry delay policy factory for the client.
func (c Config) NewBackOff() func() backoff.BackOff {
	interval := c.Retry.Interval
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	switch c.Retry.BackOff {
	case BackOffConstant:
		return func() backoff.BackOff { return backoff.NewConstantBackOff(interval) }
	case BackOffExponential:
		return func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = interval
			if c.Retry.MaxInterval > 0 {
				b.MaxInterval = c.Retry.MaxInterval
			}
			// Attempts are bounded by the client.
			b.MaxElapsedTime = 0
			return b
		}
	}
	return func() backoff.BackOff { return &backoff.ZeroBackOff{} }
}

// NewLimiter returns the client-side rate limiter, or nil when disabled.
func (c Config) NewLimiter() *rate.Limiter {
	if c.RateLimit.RPS <= 0 {
		return nil
	}
	burst := c.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.RateLimit.RPS), burst)
}

// NewClient validates the configuration and builds a client. opts are applied
// after the configured ones and may override them.
func (c Config) NewClient(opts ...jsonrpc.Option) (*jsonrpc.Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	base := []jsonrpc.Option{
		jsonrpc.WithHTTPClient(jsonrpc.NewHTTPClient(c.ConnectTimeout, c.Timeout)),
		jsonrpc.WithPageSize(c.PageSize),
		jsonrpc.WithRetryBackOff(c.NewBackOff()),
	}
	if l := c.NewLimiter(); l != nil {
		base = append(base, jsonrpc.WithRateLimiter(l))
	}
	return jsonrpc.New(c.Token, c.BaseURL, append(base, opts...)...)
}
