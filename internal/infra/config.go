package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"aux_relay/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	DefaultSwissQuoteURL    = "https://forex-data-feed.swissquote.com/public-quotes/bboquotes/instrument/XAU"
	DefaultSilverBullionURL = "https://www.silverbullion.com.sg/Data/GetMetalPrices"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 내용을 덮어씁니다.
type Config struct {
	Server struct {
		Port                int `yaml:"port"`
		HeartbeatIntervalMS int `yaml:"heartbeat_interval_ms"`
	} `yaml:"server"`

	Feed struct {
		Source           string `yaml:"source"`
		PollIntervalMS   int    `yaml:"poll_interval_ms"`
		FetchTimeoutMS   int    `yaml:"fetch_timeout_ms"`
		SwissQuoteURL    string `yaml:"swissquote_url"`
		SilverBullionURL string `yaml:"silverbullion_url"`
	} `yaml:"feed"`

	Cache struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"cache"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다. 파일이 없으면 기본값을 사용합니다.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Environment-only deployments carry no file.
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// 환경 변수 오버라이드
	if err := overrideWithEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.HeartbeatIntervalMS == 0 {
		cfg.Server.HeartbeatIntervalMS = 30000
	}
	if cfg.Feed.PollIntervalMS == 0 {
		cfg.Feed.PollIntervalMS = 5000
	}
	if cfg.Feed.FetchTimeoutMS == 0 {
		cfg.Feed.FetchTimeoutMS = 10000
	}
	if cfg.Feed.SwissQuoteURL == "" {
		cfg.Feed.SwissQuoteURL = DefaultSwissQuoteURL
	}
	if cfg.Feed.SilverBullionURL == "" {
		cfg.Feed.SilverBullionURL = DefaultSilverBullionURL
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "aux"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &domain.ConfigError{Field: "server.port", Err: fmt.Errorf("out of range: %d", c.Server.Port)}
	}
	if c.Server.HeartbeatIntervalMS <= 0 {
		return &domain.ConfigError{Field: "server.heartbeat_interval_ms", Err: errors.New("must be positive")}
	}
	if c.Feed.PollIntervalMS <= 0 {
		return &domain.ConfigError{Field: "feed.poll_interval_ms", Err: errors.New("must be positive")}
	}
	if c.Feed.FetchTimeoutMS <= 0 {
		return &domain.ConfigError{Field: "feed.fetch_timeout_ms", Err: errors.New("must be positive")}
	}
	if !isHTTPURL(c.Feed.SwissQuoteURL) {
		return &domain.ConfigError{Field: "feed.swissquote_url", Err: fmt.Errorf("invalid URL: %s", c.Feed.SwissQuoteURL)}
	}
	if !isHTTPURL(c.Feed.SilverBullionURL) {
		return &domain.ConfigError{Field: "feed.silverbullion_url", Err: fmt.Errorf("invalid URL: %s", c.Feed.SilverBullionURL)}
	}
	return nil
}

// Source returns the configured feed
func (c *Config) Source() domain.Source {
	return domain.ParseSource(c.Feed.Source)
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Feed.PollIntervalMS) * time.Millisecond
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Server.HeartbeatIntervalMS) * time.Millisecond
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Feed.FetchTimeoutMS) * time.Millisecond
}

func (c *Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("SOURCE"); v != "" {
		cfg.Feed.Source = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CACHE_DB_PATH"); v != "" {
		cfg.Cache.DBPath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	ints := []struct {
		env   string
		field string
		dst   *int
	}{
		{"PORT", "server.port", &cfg.Server.Port},
		{"HEARTBEAT_INTERVAL_MS", "server.heartbeat_interval_ms", &cfg.Server.HeartbeatIntervalMS},
		{"POLL_INTERVAL_MS", "feed.poll_interval_ms", &cfg.Feed.PollIntervalMS},
		{"FETCH_TIMEOUT_MS", "feed.fetch_timeout_ms", &cfg.Feed.FetchTimeoutMS},
	}
	for _, it := range ints {
		v := os.Getenv(it.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &domain.ConfigError{Field: it.field, Err: fmt.Errorf("%s=%q: %w", it.env, v, err)}
		}
		*it.dst = n
	}
	return nil
}
