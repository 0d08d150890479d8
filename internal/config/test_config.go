package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Server.BaseURL = "http://127.0.0.1:0"
	cfg.Server.HTTPTimeout = 5 * time.Second
	cfg.Server.UserAgent = "verifeed-test/1.0"
	cfg.Lazy.RetryDelay = 10 * time.Millisecond
	cfg.Layout.ResizeDebounce = 0
	cfg.Database.Path = ""
	cfg.Database.SearchIndex = ""
	return cfg
}
