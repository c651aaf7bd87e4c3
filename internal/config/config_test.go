package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies the documented defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default MaxPages is 500", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 500 {
			t.Errorf("expected MaxPages to be 500, got %d", cfg.MaxPages)
		}
	})

	t.Run("default MaxDepth is 5", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxDepth != 5 {
			t.Errorf("expected MaxDepth to be 5, got %d", cfg.MaxDepth)
		}
	})

	t.Run("default Concurrency is 3", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 3 {
			t.Errorf("expected Concurrency to be 3, got %d", cfg.Concurrency)
		}
	})

	t.Run("default delays", func(t *testing.T) {
		t.Parallel()
		if cfg.DelayBetweenRequests != time.Second {
			t.Errorf("expected DelayBetweenRequests 1s, got %v", cfg.DelayBetweenRequests)
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout 30s, got %v", cfg.Timeout)
		}
		if cfg.SettleDelay != 2*time.Second {
			t.Errorf("expected SettleDelay 2s, got %v", cfg.SettleDelay)
		}
	})

	t.Run("home rule comes first", func(t *testing.T) {
		t.Parallel()
		if len(cfg.PageTypes) == 0 || cfg.PageTypes[0].Type != "home" {
			t.Errorf("expected first page type rule to be home, got %+v", cfg.PageTypes)
		}
	})

	t.Run("defaults validate once a start URL is set", func(t *testing.T) {
		t.Parallel()
		c := NewConfig()
		c.StartURL = "https://example.com/"
		if err := c.Validate(); err != nil {
			t.Errorf("expected defaults to be valid, got %v", err)
		}
	})
}

// TestConfigValidate tests one validation rule per case.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		c := NewConfig()
		c.StartURL = "https://example.com/"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: nil},
		{name: "missing start URL", mutate: func(c *Config) { c.StartURL = "" }, wantErr: ErrNoStartURL},
		{name: "relative start URL", mutate: func(c *Config) { c.StartURL = "/about" }, wantErr: ErrInvalidStartURL},
		{name: "ftp start URL", mutate: func(c *Config) { c.StartURL = "ftp://example.com" }, wantErr: ErrInvalidStartURL},
		{name: "base URL without host", mutate: func(c *Config) { c.BaseURL = "/only/path" }, wantErr: ErrInvalidBaseURL},
		{name: "zero max pages", mutate: func(c *Config) { c.MaxPages = 0 }, wantErr: ErrInvalidMaxPages},
		{name: "negative max depth", mutate: func(c *Config) { c.MaxDepth = -1 }, wantErr: ErrInvalidMaxDepth},
		{name: "zero max depth is valid", mutate: func(c *Config) { c.MaxDepth = 0 }, wantErr: nil},
		{name: "zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, wantErr: ErrInvalidConcurrency},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative delay", mutate: func(c *Config) { c.DelayBetweenRequests = -time.Second }, wantErr: ErrInvalidDelay},
		{name: "negative settle delay", mutate: func(c *Config) { c.SettleDelay = -time.Second }, wantErr: ErrInvalidDelay},
		{name: "zero viewport", mutate: func(c *Config) { c.Viewport.Width = 0 }, wantErr: ErrInvalidViewport},
		{name: "zero download concurrency", mutate: func(c *Config) { c.DownloadConcurrency = 0 }, wantErr: ErrInvalidDownloadConcurrency},
		{name: "negative rate limit", mutate: func(c *Config) { c.DownloadRateLimit = -1 }, wantErr: ErrInvalidRateLimit},
		{name: "empty output dir", mutate: func(c *Config) { c.OutputDir = " " }, wantErr: ErrNoOutputDir},
		{name: "bad exclude pattern", mutate: func(c *Config) { c.ExcludePatterns = []string{"("} }, wantErr: ErrInvalidPattern},
		{name: "bad page type pattern", mutate: func(c *Config) {
			c.PageTypes = []PageTypeRule{{Type: "blog", Pattern: "[a-"}}
		}, wantErr: ErrInvalidPattern},
		{name: "page type without tag", mutate: func(c *Config) {
			c.PageTypes = []PageTypeRule{{Type: "", Pattern: "/x"}}
		}, wantErr: ErrInvalidPageTypeRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCompilePatterns(t *testing.T) {
	t.Parallel()

	t.Run("skips blank patterns", func(t *testing.T) {
		t.Parallel()
		compiled, err := CompilePatterns([]string{"/a", "  ", "", "/b"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(compiled) != 2 {
			t.Errorf("expected 2 compiled patterns, got %d", len(compiled))
		}
	})

	t.Run("reports the failing pattern", func(t *testing.T) {
		t.Parallel()
		_, err := CompilePatterns([]string{"/ok", "(unclosed"})
		var pe *PatternError
		if !errors.As(err, &pe) {
			t.Fatalf("expected PatternError, got %v", err)
		}
		if pe.Pattern != "(unclosed" {
			t.Errorf("expected pattern '(unclosed', got %q", pe.Pattern)
		}
	})
}

func TestResolvedBaseURL(t *testing.T) {
	t.Parallel()

	t.Run("derives from start URL", func(t *testing.T) {
		t.Parallel()
		c := NewConfig()
		c.StartURL = "https://www.example.com/services/web?x=1"
		if got := c.ResolvedBaseURL(); got != "https://www.example.com/" {
			t.Errorf("expected https://www.example.com/, got %q", got)
		}
	})

	t.Run("explicit base URL wins", func(t *testing.T) {
		t.Parallel()
		c := NewConfig()
		c.StartURL = "https://www.example.com/landing"
		c.BaseURL = "https://example.com"
		if got := c.ResolvedBaseURL(); got != "https://example.com" {
			t.Errorf("expected https://example.com, got %q", got)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("applies values over defaults", func(t *testing.T) {
		t.Parallel()
		content := `
startUrl: https://example.com/
maxPages: 25
maxDepth: 0
concurrency: 2
delayBetweenRequests: 1500
timeout: 45s
downloadMedia: false
excludePatterns:
  - /private
pageTypes:
  - type: blog
    pattern: /journal
viewport:
  width: 800
  height: 600
`
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		cfg := NewConfig()
		f.Apply(cfg)

		if cfg.StartURL != "https://example.com/" {
			t.Errorf("unexpected StartURL %q", cfg.StartURL)
		}
		if cfg.MaxPages != 25 {
			t.Errorf("expected MaxPages 25, got %d", cfg.MaxPages)
		}
		if cfg.MaxDepth != 0 {
			t.Errorf("expected explicit MaxDepth 0, got %d", cfg.MaxDepth)
		}
		if cfg.DelayBetweenRequests != 1500*time.Millisecond {
			t.Errorf("expected 1.5s delay, got %v", cfg.DelayBetweenRequests)
		}
		if cfg.Timeout != 45*time.Second {
			t.Errorf("expected 45s timeout, got %v", cfg.Timeout)
		}
		if cfg.DownloadMedia {
			t.Error("expected DownloadMedia to be false")
		}
		if len(cfg.ExcludePatterns) != 1 || cfg.ExcludePatterns[0] != "/private" {
			t.Errorf("expected exclude patterns to be replaced, got %v", cfg.ExcludePatterns)
		}
		if len(cfg.PageTypes) != 1 || cfg.PageTypes[0].Type != "blog" {
			t.Errorf("expected page types to be replaced, got %v", cfg.PageTypes)
		}
		if cfg.Viewport.Width != 800 || cfg.Viewport.Height != 600 {
			t.Errorf("unexpected viewport %+v", cfg.Viewport)
		}
		// concurrency comes from the file, user agent keeps its default
		if cfg.Concurrency != 2 || cfg.UserAgent != DefaultUserAgent {
			t.Errorf("unexpected concurrency/user agent: %d %q", cfg.Concurrency, cfg.UserAgent)
		}
	})

	t.Run("invalid duration is an error", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("timeout: soon\n"), 0600); err != nil {
			t.Fatal(err)
		}
		_, err := LoadConfigFile(path)
		if err == nil || !strings.Contains(err.Error(), "soon") {
			t.Errorf("expected duration error mentioning the value, got %v", err)
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("maxPages: 1\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		t.Parallel()
		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
			t.Errorf("expected empty path, got %q", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("expected data dir to end with %s, got %s", AppName, XDGDataDir())
	}
	if !strings.HasSuffix(XDGConfigDir(), AppName) {
		t.Errorf("expected config dir to end with %s, got %s", AppName, XDGConfigDir())
	}
}
