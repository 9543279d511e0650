package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trend-brief/internal/models"
	"trend-brief/shared/prompt"
)

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Cache      CacheConfig      `yaml:"cache"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Watch      WatchConfig      `yaml:"watch"`
	Email      EmailConfig      `yaml:"email"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

type YouTubeConfig struct {
	APIKey            string  `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	ClientID          string  `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret      string  `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile         string  `yaml:"token_file"`
	CategoryID        string  `yaml:"category_id"`
	Language          string  `yaml:"language"`
	LookbackDays      int     `yaml:"lookback_days"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// DemoMode reports whether no credentials are configured, in which case the
// built-in fixture replaces live searches.
func (y YouTubeConfig) DemoMode() bool {
	return y.APIKey == "" && (y.ClientID == "" || y.ClientSecret == "")
}

type ServerConfig struct {
	Port          string `yaml:"port" env:"PORT"`
	CORSOrigins   string `yaml:"cors_origins"`
	LogLevel      string `yaml:"log_level" env:"LOG_LEVEL"`
	MaxResultsCap int    `yaml:"max_results_cap"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
}

type CacheConfig struct {
	RedisURL   string `yaml:"redis_url" env:"REDIS_URL"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

type PromptConfig struct {
	Locale   string `yaml:"locale"`
	Timezone string `yaml:"timezone"`
}

type WatchConfig struct {
	Keywords    []string `yaml:"keywords"`
	MaxResults  int      `yaml:"max_results"`
	VideoFilter string   `yaml:"video_filter"`
	Schedule    string   `yaml:"schedule"`

	DataDir           string `yaml:"data_dir"`
	TrackerMaxAgeDays int    `yaml:"tracker_max_age_days"`
}

func (w WatchConfig) TrackerMaxAge() time.Duration {
	return time.Duration(w.TrackerMaxAgeDays) * 24 * time.Hour
}

type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

// Enabled reports whether any email setting was provided.
func (e EmailConfig) Enabled() bool {
	return e.SMTPServer != "" || e.ToEmail != "" || e.Username != ""
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageNone     = "none"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	return LoadFile(configFile)
}

// LoadFile reads path if it exists; a missing file leaves everything to the
// environment and defaults.
func LoadFile(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	envOr(&c.YouTube.APIKey, "YOUTUBE_API_KEY")
	envOr(&c.YouTube.ClientID, "GOOGLE_CLIENT_ID")
	envOr(&c.YouTube.ClientSecret, "GOOGLE_CLIENT_SECRET")
	envOr(&c.Server.Port, "PORT")
	envOr(&c.Server.LogLevel, "LOG_LEVEL")
	envOr(&c.Storage.DatabaseURL, "DATABASE_URL")
	envOr(&c.Cache.RedisURL, "REDIS_URL")
	envOr(&c.Email.Username, "EMAIL_USERNAME")
	envOr(&c.Email.Password, "EMAIL_PASSWORD")
}

func (c *Config) applyDefaults() {
	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}
	if c.YouTube.CategoryID == "" {
		c.YouTube.CategoryID = "20" // Gaming
	}
	if c.YouTube.Language == "" {
		c.YouTube.Language = "en"
	}
	if c.YouTube.LookbackDays == 0 {
		c.YouTube.LookbackDays = 30
	}
	if c.YouTube.RequestsPerSecond == 0 {
		c.YouTube.RequestsPerSecond = 5
	}

	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.CORSOrigins == "" {
		c.Server.CORSOrigins = "*"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.MaxResultsCap == 0 {
		c.Server.MaxResultsCap = 50
	}

	if c.Storage.Driver == "" {
		if c.Storage.DatabaseURL != "" {
			c.Storage.Driver = StoragePostgres
		} else {
			c.Storage.Driver = StorageSQLite
		}
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/trends.db"
	}

	if c.Cache.TTLMinutes == 0 {
		c.Cache.TTLMinutes = 15
	}

	if c.Prompt.Locale == "" {
		c.Prompt.Locale = "en-US"
	}
	if c.Prompt.Timezone == "" {
		c.Prompt.Timezone = "UTC"
	}

	if c.Watch.MaxResults == 0 {
		c.Watch.MaxResults = 20
	}
	if c.Watch.VideoFilter == "" {
		c.Watch.VideoFilter = string(models.FilterAll)
	}
	if c.Watch.Schedule == "" {
		c.Watch.Schedule = "0 0 9 * * *" // Daily at 9 AM
	}
	if c.Watch.DataDir == "" {
		c.Watch.DataDir = "data"
	}
	if c.Watch.TrackerMaxAgeDays == 0 {
		c.Watch.TrackerMaxAgeDays = 14
	}

	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}

	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8081
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageSQLite, StorageNone:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("postgres storage requires a database URL (set DATABASE_URL or storage.database_url)")
		}
	default:
		return fmt.Errorf("unknown storage driver %q (want sqlite, postgres or none)", c.Storage.Driver)
	}

	if !models.VideoFilter(c.Watch.VideoFilter).Valid() {
		return fmt.Errorf("invalid watch.video_filter %q (want all, shorts or longform)", c.Watch.VideoFilter)
	}
	if c.Watch.MaxResults < 1 || c.Watch.MaxResults > c.Server.MaxResultsCap {
		return fmt.Errorf("watch.max_results must be between 1 and %d", c.Server.MaxResultsCap)
	}
	for _, kw := range c.Watch.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("watch.keywords must not contain empty entries")
		}
	}

	if _, err := c.Locale(); err != nil {
		return err
	}

	if c.Email.Enabled() {
		if c.Email.SMTPServer == "" || c.Email.ToEmail == "" || c.Email.FromEmail == "" {
			return fmt.Errorf("email requires smtp_server, from_email and to_email")
		}
		if c.Email.Username == "" || c.Email.Password == "" {
			return fmt.Errorf("email username and password are required (set EMAIL_USERNAME and EMAIL_PASSWORD)")
		}
	}

	return nil
}

// Locale builds the prompt locale from the prompt section.
func (c *Config) Locale() (*prompt.Locale, error) {
	return prompt.ParseLocale(c.Prompt.Locale, c.Prompt.Timezone)
}

func envOr(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}
