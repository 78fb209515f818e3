package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"SignalFeed/internal/strategy"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider string   `yaml:"provider"` // yahoo or rest
		BaseURL  string   `yaml:"base_url"`
		APIKey   string   `yaml:"api_key"`
		Symbols  []string `yaml:"symbols"`
		Proxy    string   `yaml:"proxy"`
	} `yaml:"data_source"`
	Signals struct {
		RSIOversold     float64 `yaml:"rsi_oversold"`
		RSIOverbought   float64 `yaml:"rsi_overbought"`
		VolumeThreshold float64 `yaml:"volume_threshold"`
		MinConfluence   int     `yaml:"min_confluence"`
	} `yaml:"signals"`
	Schedule struct {
		RecommendationsCron string `yaml:"recommendations_cron"`
		AlertsCron          string `yaml:"alerts_cron"`
		Timezone            string `yaml:"timezone"`
	} `yaml:"schedule"`
	Generator struct {
		Provider string        `yaml:"provider"` // gemini or rules
		APIKey   string        `yaml:"api_key"`
		Model    string        `yaml:"model"`
		Endpoint string        `yaml:"endpoint"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"generator"`
	Orchestrator struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"orchestrator"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telemetry struct {
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaTopic   string   `yaml:"kafka_topic"`
		Metrics      bool     `yaml:"metrics"`
	} `yaml:"telemetry"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

// Load reads .env, then the YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Telemetry.Metrics = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"LOG_LEVEL":            &c.Log.Level,
		"TELEGRAM_BOT_TOKEN":   &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":     &c.Telegram.ChatID,
		"HTTPS_PROXY":          &c.DataSource.Proxy,
		"DATA_SOURCE_BASE_URL": &c.DataSource.BaseURL,
		"DATA_SOURCE_API_KEY":  &c.DataSource.APIKey,
		"GEMINI_API_KEY":       &c.Generator.APIKey,
		"GEMINI_MODEL":         &c.Generator.Model,
		"GENERATOR_PROVIDER":   &c.Generator.Provider,
		"SQLITE_PATH":          &c.Database.SQLitePath,
		"CRON_RECOMMENDATIONS": &c.Schedule.RecommendationsCron,
		"CRON_ALERTS":          &c.Schedule.AlertsCron,
		"KAFKA_TOPIC":          &c.Telemetry.KafkaTopic,
		"SERVER_ADDR":          &c.Server.Addr,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("WATCHLIST"); v != "" {
		c.DataSource.Symbols = splitList(v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Telemetry.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("ORCHESTRATOR_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ORCHESTRATOR_CONCURRENCY: %w", err)
		}
		c.Orchestrator.Concurrency = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if len(c.DataSource.Symbols) == 0 {
		c.DataSource.Symbols = []string{"SPX500", "NDX", "AAPL", "MSFT", "NVDA"}
	}

	def := strategy.DefaultConfig()
	if c.Signals.RSIOversold == 0 {
		c.Signals.RSIOversold = def.RSIOversold
	}
	if c.Signals.RSIOverbought == 0 {
		c.Signals.RSIOverbought = def.RSIOverbought
	}
	if c.Signals.VolumeThreshold == 0 {
		c.Signals.VolumeThreshold = def.VolumeThreshold
	}
	if c.Signals.MinConfluence == 0 {
		c.Signals.MinConfluence = def.MinConfluence
	}

	if c.Schedule.RecommendationsCron == "" {
		c.Schedule.RecommendationsCron = "0 30 7 * * 1-5"
	}
	if c.Schedule.AlertsCron == "" {
		c.Schedule.AlertsCron = "0 */15 14-21 * * 1-5"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "America/New_York"
	}

	if c.Generator.Provider == "" {
		c.Generator.Provider = "gemini"
	}
	if c.Generator.Timeout == 0 {
		c.Generator.Timeout = 60 * time.Second
	}
	if c.Orchestrator.Concurrency == 0 {
		c.Orchestrator.Concurrency = 4
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/signalfeed.db"
	}
	if c.Telemetry.KafkaTopic == "" {
		c.Telemetry.KafkaTopic = "signalfeed.runs"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Generator.Provider {
	case "gemini":
		if c.Generator.APIKey == "" {
			return fmt.Errorf("generator.api_key is required for the gemini provider")
		}
	case "rules":
	default:
		return fmt.Errorf("generator.provider must be gemini or rules, got %q", c.Generator.Provider)
	}

	switch c.DataSource.Provider {
	case "yahoo":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider must be yahoo or rest, got %q", c.DataSource.Provider)
	}

	if c.Signals.RSIOversold >= c.Signals.RSIOverbought {
		return fmt.Errorf("signals.rsi_oversold must be below signals.rsi_overbought")
	}
	if c.Signals.MinConfluence < 1 {
		return fmt.Errorf("signals.min_confluence must be at least 1")
	}
	if c.Orchestrator.Concurrency < 1 {
		return fmt.Errorf("orchestrator.concurrency must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, spec := range map[string]string{
		"schedule.recommendations_cron": c.Schedule.RecommendationsCron,
		"schedule.alerts_cron":          c.Schedule.AlertsCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}

// Strategy maps the signals section onto the scorer configuration.
func (c *Config) Strategy() strategy.Config {
	return strategy.Config{
		RSIOversold:     c.Signals.RSIOversold,
		RSIOverbought:   c.Signals.RSIOverbought,
		VolumeThreshold: c.Signals.VolumeThreshold,
		MinConfluence:   c.Signals.MinConfluence,
	}
}

// Location returns the scheduler timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
