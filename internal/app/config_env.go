package app

import (
	"os"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment
// variables. Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.URL == "" {
		cfg.URL = os.Getenv("RECEIPT_URL")
	}
	if cfg.BrowserPath == "" {
		// Support both names; BROWSER_PATH wins when both are set.
		v := os.Getenv("BROWSER_PATH")
		if v == "" {
			v = os.Getenv("CHROME_PATH")
		}
		cfg.BrowserPath = v
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = os.Getenv("BROWSER_UA")
	}
	if cfg.Timeout == 0 {
		if d, err := time.ParseDuration(os.Getenv("RENDER_TIMEOUT")); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
	if cfg.DynamicWait == 0 {
		if d, err := time.ParseDuration(os.Getenv("DYNAMIC_WAIT")); err == nil && d > 0 {
			cfg.DynamicWait = d
		}
	}
}
