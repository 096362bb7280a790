package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultModel    string `yaml:"default_model"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent provider calls
}

type QueueConfig struct {
	Workers    int           `yaml:"workers"`  // workers per task category
	Capacity   int           `yaml:"capacity"` // max queued jobs per category
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type WindowConfig struct {
	Window      time.Duration `yaml:"window"`
	MaxRequests int           `yaml:"max_requests"`
}

type LimitsConfig struct {
	IP   WindowConfig `yaml:"ip"`
	User WindowConfig `yaml:"user"`
}

type CreditsConfig struct {
	ImageCost           int64 `yaml:"image_cost"`
	VideoCost           int64 `yaml:"video_cost"`
	AudioCost           int64 `yaml:"audio_cost"`
	DocumentCost        int64 `yaml:"document_cost"`
	CodeCost            int64 `yaml:"code_cost"`
	TextTokensPerCredit int   `yaml:"text_tokens_per_credit"`
}

type ChainConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	StepTimeout  time.Duration `yaml:"step_timeout"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Queue    QueueConfig    `yaml:"queue"`
	Limits   LimitsConfig   `yaml:"limits"`
	Credits  CreditsConfig  `yaml:"credits"`
	Chain    ChainConfig    `yaml:"chain"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.OpenAIBaseURL == "" {
		cfg.AI.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 4
	}
	if cfg.Queue.Capacity <= 0 {
		cfg.Queue.Capacity = 256
	}
	if cfg.Queue.MaxRetries <= 0 {
		cfg.Queue.MaxRetries = 3
	}
	if cfg.Queue.RetryDelay <= 0 {
		cfg.Queue.RetryDelay = 2 * time.Second
	}
	if cfg.Limits.IP.Window <= 0 {
		cfg.Limits.IP.Window = time.Minute
	}
	if cfg.Limits.IP.MaxRequests <= 0 {
		cfg.Limits.IP.MaxRequests = 60
	}
	if cfg.Limits.User.Window <= 0 {
		cfg.Limits.User.Window = time.Minute
	}
	if cfg.Limits.User.MaxRequests <= 0 {
		cfg.Limits.User.MaxRequests = 30
	}
	if cfg.Credits.ImageCost <= 0 {
		cfg.Credits.ImageCost = 1
	}
	if cfg.Credits.VideoCost <= 0 {
		cfg.Credits.VideoCost = 10
	}
	if cfg.Credits.AudioCost <= 0 {
		cfg.Credits.AudioCost = 2
	}
	if cfg.Credits.DocumentCost <= 0 {
		cfg.Credits.DocumentCost = 1
	}
	if cfg.Credits.CodeCost <= 0 {
		cfg.Credits.CodeCost = 1
	}
	if cfg.Credits.TextTokensPerCredit <= 0 {
		cfg.Credits.TextTokensPerCredit = 1000
	}
	if cfg.Chain.PollInterval <= 0 {
		cfg.Chain.PollInterval = 500 * time.Millisecond
	}
	if cfg.Chain.StepTimeout <= 0 {
		cfg.Chain.StepTimeout = 5 * time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
