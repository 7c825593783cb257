package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
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

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type StorageConfig struct {
	BaseURL    string `yaml:"base_url"`
	ServiceKey string `yaml:"service_key"`
	Bucket     string `yaml:"bucket"`
}

type WorkerConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	BatchSize      int           `yaml:"batch_size"`
	MaxAttempts    int           `yaml:"max_attempts"`
	ClaimRetries   int           `yaml:"claim_retries"`
	ClaimRetryBase time.Duration `yaml:"claim_retry_base"`
}

type TranscriberConfig struct {
	Provider  string `yaml:"provider"` // whisper | gemini | noop; empty picks by configured keys
	OpenAIKey string `yaml:"openai_key"`
	GeminiKey string `yaml:"gemini_key"`
	GeminiURL string `yaml:"gemini_url"`
	Model     string `yaml:"model"`
}

type MailjetConfig struct {
	APIKey    string        `yaml:"api_key"`
	APISecret string        `yaml:"api_secret"`
	BaseURL   string        `yaml:"base_url"`
	FromEmail string        `yaml:"from_email"`
	FromName  string        `yaml:"from_name"`
	Timeout   time.Duration `yaml:"timeout"`
}

type EmailConfig struct {
	Subject string `yaml:"subject"`
	ReplyTo string `yaml:"reply_to"`
}

type SummarizerConfig struct {
	MaxBullets int `yaml:"max_bullets"` // clamped to [3,5]
}

type APIConfig struct {
	Port        int      `yaml:"port"`
	MaxAudioMB  int      `yaml:"max_audio_mb"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type AdminConfig struct {
	Port int `yaml:"port"`
}

type Config struct {
	Log         LogConfig         `yaml:"log"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Storage     StorageConfig     `yaml:"storage"`
	Worker      WorkerConfig      `yaml:"worker"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Mailjet     MailjetConfig     `yaml:"mailjet"`
	Email       EmailConfig       `yaml:"email"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	API         APIConfig         `yaml:"api"`
	Admin       AdminConfig       `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path and applies defaults matching the
// production deployment.
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
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 1 * time.Hour
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "voice-audio"
	}
	if cfg.Worker.PollInterval <= 0 {
		cfg.Worker.PollInterval = 2 * time.Second
	}
	if cfg.Worker.BatchSize <= 0 {
		cfg.Worker.BatchSize = 10
	}
	if cfg.Worker.MaxAttempts <= 0 {
		cfg.Worker.MaxAttempts = 3
	}
	if cfg.Worker.ClaimRetries <= 0 {
		cfg.Worker.ClaimRetries = 3
	}
	if cfg.Worker.ClaimRetryBase <= 0 {
		cfg.Worker.ClaimRetryBase = 500 * time.Millisecond
	}
	if cfg.Mailjet.BaseURL == "" {
		cfg.Mailjet.BaseURL = "https://api.mailjet.com"
	}
	if cfg.Mailjet.FromName == "" {
		cfg.Mailjet.FromName = "Voice Agent"
	}
	if cfg.Mailjet.Timeout <= 0 {
		cfg.Mailjet.Timeout = 20 * time.Second
	}
	if cfg.Email.Subject == "" {
		cfg.Email.Subject = "Your conversation summary"
	}
	if cfg.Summarizer.MaxBullets <= 0 {
		cfg.Summarizer.MaxBullets = 5
	}
	if cfg.API.MaxAudioMB <= 0 {
		cfg.API.MaxAudioMB = 25
	}

	cfg.Mailjet.APIKey = strings.TrimSpace(cfg.Mailjet.APIKey)
	cfg.Mailjet.APISecret = strings.TrimSpace(cfg.Mailjet.APISecret)
	cfg.Mailjet.FromEmail = strings.TrimSpace(cfg.Mailjet.FromEmail)
	cfg.Email.ReplyTo = strings.TrimSpace(cfg.Email.ReplyTo)

	if cfg.Mailjet.APIKey != "" && cfg.Mailjet.APIKey == cfg.Mailjet.APISecret {
		return nil, errors.New("mailjet api_key and api_secret must be different values")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
