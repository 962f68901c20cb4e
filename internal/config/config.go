package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Market   MarketConfig   `yaml:"market"`
	Landing  []LandingPage  `yaml:"landing"`
	Store    StoreConfig    `yaml:"store"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Publish  PublishConfig  `yaml:"publish"`
	Brief    BriefConfig    `yaml:"brief"`
}

type SiteConfig struct {
	BaseURL     string `yaml:"base_url"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	OutputDir   string `yaml:"output_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type MarketConfig struct {
	Symbols          []string            `yaml:"symbols"`
	Sectors          map[string][]string `yaml:"sectors"`
	TopN             int                 `yaml:"top_n"`
	RequestPacingMs  int                 `yaml:"request_pacing_ms"`
	RequestTimeoutMs int                 `yaml:"request_timeout_ms"`
	FinnhubAPIKey    string              `yaml:"finnhub_api_key"`
}

type LandingPage struct {
	Slug        string `yaml:"slug"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type StoreConfig struct {
	Sqlite SqliteConfig `yaml:"sqlite"`
}

type SqliteConfig struct {
	Path string `yaml:"path"`
}

type ScheduleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

type PublishConfig struct {
	Git  GitConfig  `yaml:"git"`
	Ping PingConfig `yaml:"ping"`
}

type GitConfig struct {
	Enabled bool   `yaml:"enabled"`
	Author  string `yaml:"author"`
	Email   string `yaml:"email"`
}

type PingConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Endpoints []string `yaml:"endpoints"`
	TimeoutMs int      `yaml:"timeout_ms"`
}

type BriefConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ByAzure    bool   `yaml:"by_azure"`
	APIVersion string `yaml:"api_version"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Secrets can come from the environment instead of the config file.
	if cfg.Market.FinnhubAPIKey == "" {
		cfg.Market.FinnhubAPIKey = os.Getenv("FINNHUB_API_KEY")
	}
	if cfg.Brief.APIKey == "" {
		cfg.Brief.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:     "https://example.com",
			Title:       "Market Movers",
			Description: "Daily pre-market gainers, decliners and most active stocks.",
			OutputDir:   "public",
		},
		Log:    LogConfig{Level: "info"},
		Server: ServerConfig{Port: 8080},
		Market: MarketConfig{
			Symbols:          []string{"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "TSLA"},
			TopN:             10,
			RequestPacingMs:  500,
			RequestTimeoutMs: 10000,
		},
		Landing: []LandingPage{
			{
				Slug:        "pre-market-gainers",
				Title:       "Pre-Market Gainers",
				Description: "Stocks moving up before the opening bell.",
			},
			{
				Slug:        "stocks-to-watch-today",
				Title:       "Stocks To Watch Today",
				Description: "Most active tickers by traded volume.",
			},
		},
		Store: StoreConfig{
			Sqlite: SqliteConfig{Path: "data/site.db"},
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 0 8 * * 1-5",
		},
		Publish: PublishConfig{
			Git: GitConfig{
				Enabled: false,
				Author:  "marketpages",
				Email:   "marketpages@localhost",
			},
			Ping: PingConfig{
				Enabled: false,
				Endpoints: []string{
					"https://www.google.com/ping",
					"https://www.bing.com/ping",
				},
				TimeoutMs: 5000,
			},
		},
		Brief: BriefConfig{
			Enabled:   false,
			Model:     "gpt-4.1-mini",
			TimeoutMs: 15000,
		},
	}
}

func (c *Config) validate() error {
	if c.Site.OutputDir == "" {
		return fmt.Errorf("site.output_dir must not be empty")
	}
	if len(c.Market.Symbols) == 0 {
		return fmt.Errorf("market.symbols must not be empty")
	}
	if c.Market.TopN <= 0 {
		return fmt.Errorf("market.top_n must be positive, got %d", c.Market.TopN)
	}
	if c.Market.RequestPacingMs < 0 {
		return fmt.Errorf("market.request_pacing_ms must not be negative")
	}
	for _, lp := range c.Landing {
		if lp.Slug == "" {
			return fmt.Errorf("landing page with empty slug")
		}
	}
	if c.Schedule.Enabled && c.Schedule.Cron == "" {
		return fmt.Errorf("schedule.cron must be set when schedule is enabled")
	}
	return nil
}
