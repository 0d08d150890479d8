package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Lazy     LazyConfig     `mapstructure:"lazy"`
	Layout   LayoutConfig   `mapstructure:"layout"`
	Database DatabaseConfig `mapstructure:"database"`
	UI       UIConfig       `mapstructure:"ui"`
	Keys     KeyConfig      `mapstructure:"keys"`
}

type ServerConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
}

type FeedConfig struct {
	PageLimit          int     `mapstructure:"page_limit"`
	FallbackConfidence float64 `mapstructure:"fallback_confidence"`
	SentinelThreshold  int     `mapstructure:"sentinel_threshold"`
	DefaultSort        string  `mapstructure:"default_sort"`
}

type LazyConfig struct {
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	Eager       bool          `mapstructure:"eager"`
	Constrained bool          `mapstructure:"constrained"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

type LayoutConfig struct {
	MinCardWidth   int           `mapstructure:"min_card_width"`
	Gap            int           `mapstructure:"gap"`
	ResizeDebounce time.Duration `mapstructure:"resize_debounce"`
	Breakpoints    []Breakpoint  `mapstructure:"breakpoints"`
}

type Breakpoint struct {
	MinWidth int `mapstructure:"min_width"`
	Columns  int `mapstructure:"columns"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

type UIConfig struct {
	Colors UIColors   `mapstructure:"colors"`
	Card   CardConfig `mapstructure:"card"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Surface   string `mapstructure:"surface"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Error     string `mapstructure:"error"`
	Real      string `mapstructure:"real"`
	Fake      string `mapstructure:"fake"`
}

type CardConfig struct {
	MaxTitleLength   int `mapstructure:"max_title_length"`
	MaxExcerptLength int `mapstructure:"max_excerpt_length"`
	BoxHeight        int `mapstructure:"box_height"`
}

type KeyConfig struct {
	Quit          string `mapstructure:"quit"`
	Submit        string `mapstructure:"submit"`
	Refresh       string `mapstructure:"refresh"`
	CycleFilter   string `mapstructure:"cycle_filter"`
	CycleSort     string `mapstructure:"cycle_sort"`
	Search        string `mapstructure:"search"`
	ArchiveSearch string `mapstructure:"archive_search"`
	Stats         string `mapstructure:"stats"`
	Like          string `mapstructure:"like"`
	Bookmark      string `mapstructure:"bookmark"`
	LoadMedia     string `mapstructure:"load_media"`
	Back          string `mapstructure:"back"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".verifeed.db")
	searchIndexPath := filepath.Join(homeDir, ".verifeed", "index.bleve")

	return &Config{
		Server: ServerConfig{
			BaseURL:     "http://localhost:5000",
			HTTPTimeout: 30 * time.Second,
			UserAgent:   "verifeed/1.0 (https://github.com/jmherbst/verifeed)",
		},
		Feed: FeedConfig{
			PageLimit:          20,
			FallbackConfidence: 0.85,
			SentinelThreshold:  3,
			DefaultSort:        "time",
		},
		Lazy: LazyConfig{
			MaxRetries:  3,
			RetryDelay:  2 * time.Second,
			HTTPTimeout: 15 * time.Second,
		},
		Layout: LayoutConfig{
			MinCardWidth:   28,
			Gap:            2,
			ResizeDebounce: 250 * time.Millisecond,
			Breakpoints: []Breakpoint{
				{MinWidth: 180, Columns: 5},
				{MinWidth: 150, Columns: 4},
				{MinWidth: 110, Columns: 3},
				{MinWidth: 70, Columns: 2},
			},
		},
		Database: DatabaseConfig{
			Path:        dbPath,
			Timeout:     1 * time.Second,
			SearchIndex: searchIndexPath,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#7C8CF8",
				Secondary: "#4ECDC4",
				Accent:    "#95E1D3",
				Surface:   "#16213E",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
				Real:      "#10B981",
				Fake:      "#EF4444",
			},
			Card: CardConfig{
				MaxTitleLength:   60,
				MaxExcerptLength: 120,
				BoxHeight:        7,
			},
		},
		Keys: KeyConfig{
			Quit:          "q",
			Submit:        "n",
			Refresh:       "r",
			CycleFilter:   "f",
			CycleSort:     "s",
			Search:        "/",
			ArchiveSearch: "a",
			Stats:         "t",
			Like:          "l",
			Bookmark:      "b",
			LoadMedia:     "m",
			Back:          "esc",
		},
	}
}

// DefaultConfigPath is where generated configuration is written.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "verifeed", "config.toml")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("server", cfg.Server)
	v.SetDefault("feed", cfg.Feed)
	v.SetDefault("lazy", cfg.Lazy)
	v.SetDefault("layout", cfg.Layout)
	v.SetDefault("database", cfg.Database)
	v.SetDefault("ui", cfg.UI)
	v.SetDefault("keys", cfg.Keys)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "verifeed")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VERIFEED")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	return &config, nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations serialize as strings for TOML readability
	serverCfg := map[string]interface{}{
		"base_url":     config.Server.BaseURL,
		"http_timeout": config.Server.HTTPTimeout.String(),
		"user_agent":   config.Server.UserAgent,
	}

	lazyCfg := map[string]interface{}{
		"max_retries":  config.Lazy.MaxRetries,
		"retry_delay":  config.Lazy.RetryDelay.String(),
		"eager":        config.Lazy.Eager,
		"constrained":  config.Lazy.Constrained,
		"http_timeout": config.Lazy.HTTPTimeout.String(),
	}

	layoutCfg := map[string]interface{}{
		"min_card_width":  config.Layout.MinCardWidth,
		"gap":             config.Layout.Gap,
		"resize_debounce": config.Layout.ResizeDebounce.String(),
		"breakpoints":     config.Layout.Breakpoints,
	}

	dbCfg := map[string]interface{}{
		"path":         config.Database.Path,
		"timeout":      config.Database.Timeout.String(),
		"search_index": config.Database.SearchIndex,
	}

	v.Set("server", serverCfg)
	v.Set("feed", config.Feed)
	v.Set("lazy", lazyCfg)
	v.Set("layout", layoutCfg)
	v.Set("database", dbCfg)
	v.Set("ui", config.UI)
	v.Set("keys", config.Keys)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
