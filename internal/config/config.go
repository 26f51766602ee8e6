package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vitals-monitor/internal/alerts"
	"vitals-monitor/internal/history"
	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/monitor"
)

// Environment overrides for the live feed.
const (
	EnvFeedURL   = "VITALS_FEED_URL"
	EnvFeedToken = "VITALS_FEED_TOKEN"
)

// MinInterval is the shortest accepted sampling or analysis interval.
// Anything shorter leaves the live fetch without a usable deadline.
const MinInterval = 10 * time.Millisecond

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	SubjectID        string        `yaml:"subject_id"`
	SamplingInterval time.Duration `yaml:"sampling_interval"`
	AnalysisInterval time.Duration `yaml:"analysis_interval"`
	HistoryCapacity  int           `yaml:"history_capacity"`
	AlertCapacity    int           `yaml:"alert_capacity"`
	ChartWindow      int           `yaml:"chart_window"`
	Feed             FeedConfig    `yaml:"feed"`
	HTTP             HTTPConfig    `yaml:"http"`
	Log              LogConfig     `yaml:"log"`
	Alerts           AlertsConfig  `yaml:"alerts"`
	Console          ConsoleConfig `yaml:"console"`
}

// FeedConfig points at the live vitals feed. An empty URL means
// synthetic data only.
type FeedConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Buffer int    `yaml:"buffer"`
}

type AlertsConfig struct {
	Webhook string      `yaml:"webhook"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type ConsoleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a runnable configuration with synthetic data only.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML file at path. An empty path starts from Default.
// Environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FetchTimeout bounds one live fetch: half a sampling interval.
func (c *Config) FetchTimeout() time.Duration {
	return c.SamplingInterval / 2
}

// KafkaEnabled reports whether alerts go to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.Alerts.Kafka.Brokers) > 0
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvFeedURL)); v != "" {
		c.Feed.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFeedToken)); v != "" {
		c.Feed.Token = v
	}
}

func (c *Config) applyDefaults() {
	if c.SubjectID == "" {
		c.SubjectID = "subject-1"
	}
	if c.SamplingInterval == 0 {
		c.SamplingInterval = monitor.DefaultSamplingInterval
	}
	if c.AnalysisInterval == 0 {
		c.AnalysisInterval = monitor.DefaultAnalysisInterval
	}
	if c.HistoryCapacity == 0 {
		c.HistoryCapacity = history.DefaultCapacity
	}
	if c.AlertCapacity == 0 {
		c.AlertCapacity = alerts.DefaultCapacity
	}
	if c.ChartWindow == 0 {
		c.ChartWindow = monitor.DefaultChartWindow
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Buffer == 0 {
		c.Log.Buffer = 500
	}
	if c.KafkaEnabled() && c.Alerts.Kafka.Topic == "" {
		c.Alerts.Kafka.Topic = "vitals.alerts"
	}
}

func (c *Config) validate() error {
	if c.SamplingInterval < MinInterval {
		return fmt.Errorf("%w: sampling_interval must be at least %s", ErrInvalid, MinInterval)
	}
	if c.AnalysisInterval < MinInterval {
		return fmt.Errorf("%w: analysis_interval must be at least %s", ErrInvalid, MinInterval)
	}
	if c.HistoryCapacity < 1 {
		return fmt.Errorf("%w: history_capacity must be at least 1", ErrInvalid)
	}
	if c.AlertCapacity < 1 {
		return fmt.Errorf("%w: alert_capacity must be at least 1", ErrInvalid)
	}
	if c.ChartWindow < 1 {
		return fmt.Errorf("%w: chart_window must be at least 1", ErrInvalid)
	}
	if c.Log.Buffer < 1 {
		return fmt.Errorf("%w: log.buffer must be at least 1", ErrInvalid)
	}
	if _, err := logs.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	if c.Feed.URL != "" {
		if err := alerts.ValidateWebhookURL(c.Feed.URL); err != nil {
			return fmt.Errorf("%w: feed.url: %v", ErrInvalid, err)
		}
	}
	if c.Alerts.Webhook != "" {
		if err := alerts.ValidateWebhookURL(c.Alerts.Webhook); err != nil {
			return fmt.Errorf("%w: alerts.webhook: %v", ErrInvalid, err)
		}
	}
	for _, b := range c.Alerts.Kafka.Brokers {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("%w: alerts.kafka.brokers contains an empty entry", ErrInvalid)
		}
	}
	return nil
}
