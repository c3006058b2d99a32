package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema. Nested
// sections improve readability and map naturally to flags/env.
type FileConfig struct {
	URL    string `yaml:"url" json:"url"`
	Input  string `yaml:"input" json:"input"`
	Output string `yaml:"output" json:"output"`

	OutputPDF string `yaml:"outputPDF" json:"outputPDF"`
	DumpHTML  string `yaml:"dumpHTML" json:"dumpHTML"`

	Browser struct {
		Path      string `yaml:"path" json:"path"`
		Headful   bool   `yaml:"headful" json:"headful"`
		UserAgent string `yaml:"userAgent" json:"userAgent"`
	} `yaml:"browser" json:"browser"`

	Timeouts struct {
		Total       time.Duration `yaml:"total" json:"total"`
		DynamicWait time.Duration `yaml:"dynamicWait" json:"dynamicWait"`
	} `yaml:"timeouts" json:"timeouts"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields
// that are currently unset in cfg. Flags should already have been parsed;
// this lets the file supply defaults while preserving explicit flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.URL == "" && fc.URL != "" {
		cfg.URL = fc.URL
	}
	if cfg.InputPath == "" && fc.Input != "" {
		cfg.InputPath = fc.Input
	}
	if (cfg.OutputPath == "" || cfg.OutputPath == OutputDefault) && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.OutputPDFPath == "" && fc.OutputPDF != "" {
		cfg.OutputPDFPath = fc.OutputPDF
	}
	if cfg.DumpHTMLPath == "" && fc.DumpHTML != "" {
		cfg.DumpHTMLPath = fc.DumpHTML
	}

	if cfg.BrowserPath == "" && fc.Browser.Path != "" {
		cfg.BrowserPath = fc.Browser.Path
	}
	if !cfg.Headful && fc.Browser.Headful {
		cfg.Headful = true
	}
	if cfg.UserAgent == "" && fc.Browser.UserAgent != "" {
		cfg.UserAgent = fc.Browser.UserAgent
	}

	if (cfg.Timeout == 0 || cfg.Timeout == TimeoutDefault) && fc.Timeouts.Total > 0 {
		cfg.Timeout = fc.Timeouts.Total
	}
	if cfg.DynamicWait == 0 && fc.Timeouts.DynamicWait > 0 {
		cfg.DynamicWait = fc.Timeouts.DynamicWait
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// Flag defaults shared with cmd/gofiscal so the file overlay can tell
// "left at default" apart from "explicitly set".
const (
	OutputDefault  = "receipt.json"
	TimeoutDefault = 30 * time.Second
)

// ValidateConfig performs minimal schema validation for required
// settings.
func ValidateConfig(cfg Config) error {
	if cfg.URL == "" && cfg.InputPath == "" {
		return errors.New("config: either a verification URL or an input HTML file is required")
	}
	if cfg.URL != "" && cfg.InputPath != "" {
		return errors.New("config: url and input are mutually exclusive")
	}
	if cfg.OutputPath == "" {
		return errors.New("config: output path is required")
	}
	if cfg.Timeout < 0 || cfg.DynamicWait < 0 {
		return errors.New("config: negative timeouts are not allowed")
	}
	return nil
}
