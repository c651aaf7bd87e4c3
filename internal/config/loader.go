package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".sitemigrate.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Duration is a time.Duration that reads either a Go duration string
// ("1500ms", "2s") or a bare integer number of milliseconds from YAML.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var millis int64
	if err := node.Decode(&millis); err == nil {
		d.Duration = time.Duration(millis) * time.Millisecond
		return nil
	}
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string or milliseconds: %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// File mirrors Config as it appears in .sitemigrate.yaml.
// Pointer fields distinguish "absent" from an explicit zero value
// (maxDepth: 0 is meaningful).
type File struct {
	StartURL             string         `yaml:"startUrl,omitempty"`
	BaseURL              string         `yaml:"baseUrl,omitempty"`
	MaxPages             *int           `yaml:"maxPages,omitempty"`
	MaxDepth             *int           `yaml:"maxDepth,omitempty"`
	Concurrency          *int           `yaml:"concurrency,omitempty"`
	DelayBetweenRequests *Duration      `yaml:"delayBetweenRequests,omitempty"`
	Timeout              *Duration      `yaml:"timeout,omitempty"`
	SettleDelay          *Duration      `yaml:"settleDelay,omitempty"`
	DownloadMedia        *bool          `yaml:"downloadMedia,omitempty"`
	ImageFormats         []string       `yaml:"imageFormats,omitempty"`
	DocumentFormats      []string       `yaml:"documentFormats,omitempty"`
	ExcludePatterns      []string       `yaml:"excludePatterns,omitempty"`
	PageTypes            []PageTypeRule `yaml:"pageTypes,omitempty"`
	IgnoreSelectors      []string       `yaml:"ignoreSelectors,omitempty"`
	UserAgent            string         `yaml:"userAgent,omitempty"`
	Viewport             *Viewport      `yaml:"viewport,omitempty"`
	OutputDir            string         `yaml:"outputDir,omitempty"`
	RespectRobots        *bool          `yaml:"respectRobots,omitempty"`
	Headless             *bool          `yaml:"headless,omitempty"`
	ProxyURL             string         `yaml:"proxyUrl,omitempty"`
	DownloadConcurrency  *int           `yaml:"downloadConcurrency,omitempty"`
	DownloadRateLimit    *float64       `yaml:"downloadRateLimit,omitempty"`
	ExtractEXIF          *bool          `yaml:"extractExif,omitempty"`
	SaveHistory          *bool          `yaml:"saveHistory,omitempty"`
}

// LoadConfigFile reads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &f, nil
}

// Apply overlays every value present in the file onto cfg.
// List values replace the defaults rather than extending them.
func (f *File) Apply(cfg *Config) {
	if f.StartURL != "" {
		cfg.StartURL = f.StartURL
	}
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.MaxPages != nil {
		cfg.MaxPages = *f.MaxPages
	}
	if f.MaxDepth != nil {
		cfg.MaxDepth = *f.MaxDepth
	}
	if f.Concurrency != nil {
		cfg.Concurrency = *f.Concurrency
	}
	if f.DelayBetweenRequests != nil {
		cfg.DelayBetweenRequests = f.DelayBetweenRequests.Duration
	}
	if f.Timeout != nil {
		cfg.Timeout = f.Timeout.Duration
	}
	if f.SettleDelay != nil {
		cfg.SettleDelay = f.SettleDelay.Duration
	}
	if f.DownloadMedia != nil {
		cfg.DownloadMedia = *f.DownloadMedia
	}
	if len(f.ImageFormats) > 0 {
		cfg.ImageFormats = f.ImageFormats
	}
	if len(f.DocumentFormats) > 0 {
		cfg.DocumentFormats = f.DocumentFormats
	}
	if len(f.ExcludePatterns) > 0 {
		cfg.ExcludePatterns = f.ExcludePatterns
	}
	if len(f.PageTypes) > 0 {
		cfg.PageTypes = f.PageTypes
	}
	if len(f.IgnoreSelectors) > 0 {
		cfg.IgnoreSelectors = f.IgnoreSelectors
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.Viewport != nil {
		cfg.Viewport = *f.Viewport
	}
	if f.OutputDir != "" {
		cfg.OutputDir = f.OutputDir
	}
	if f.RespectRobots != nil {
		cfg.RespectRobots = *f.RespectRobots
	}
	if f.Headless != nil {
		cfg.Headless = *f.Headless
	}
	if f.ProxyURL != "" {
		cfg.ProxyURL = f.ProxyURL
	}
	if f.DownloadConcurrency != nil {
		cfg.DownloadConcurrency = *f.DownloadConcurrency
	}
	if f.DownloadRateLimit != nil {
		cfg.DownloadRateLimit = *f.DownloadRateLimit
	}
	if f.ExtractEXIF != nil {
		cfg.ExtractEXIF = *f.ExtractEXIF
	}
	if f.SaveHistory != nil {
		cfg.SaveHistory = *f.SaveHistory
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .sitemigrate.yaml in the current directory
// 3. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
