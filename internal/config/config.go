package config

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitemigrate"

	// DefaultMaxPages caps the number of pages fetched in one run.
	DefaultMaxPages = 500

	// DefaultMaxDepth is the deepest link level followed from the start URL.
	// Depth 0 is the start page itself.
	DefaultMaxDepth = 5

	// DefaultConcurrency is the number of pages rendered at the same time.
	// Each in-flight page is a browser tab, so this stays small.
	DefaultConcurrency = 3

	// DefaultDelayBetweenRequests is the pause between two dispatch batches.
	DefaultDelayBetweenRequests = 1 * time.Second

	// DefaultTimeout bounds a single page navigation.
	DefaultTimeout = 30 * time.Second

	// DefaultSettleDelay is the extra wait after the network goes idle so
	// late client-side rendering can finish.
	DefaultSettleDelay = 2 * time.Second

	// DefaultDownloadConcurrency is the number of media files fetched at once.
	DefaultDownloadConcurrency = 4

	// DefaultDownloadRateLimit is the sustained media request rate (requests/second).
	DefaultDownloadRateLimit = 5.0

	// DefaultOutputDir is where the migration bundle is written.
	DefaultOutputDir = "migration-output"

	// DefaultUserAgent is sent by both the browser and the media downloader.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 sitemigrate/1.0"

	// DefaultViewportWidth and DefaultViewportHeight size the browser window.
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
)

// PageTypeRule tags pages whose URL path matches Pattern.
type PageTypeRule struct {
	// Type is the tag assigned to matching pages (e.g. "blog").
	Type string `yaml:"type"`

	// Pattern is a regular expression matched against the URL path.
	Pattern string `yaml:"pattern"`
}

// Viewport is the browser window size used for rendering.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Config holds every option of a crawl run.
// It is built from defaults, the config file and CLI flags, then passed
// explicitly to the components that need it.
type Config struct {
	// StartURL is the first page fetched (depth 0).
	StartURL string

	// BaseURL defines the site boundary. Links whose hostname differs from
	// BaseURL's hostname are external and never crawled.
	// Empty means "derive from StartURL".
	BaseURL string

	// MaxPages is the ceiling on pages fetched in one run.
	MaxPages int

	// MaxDepth is the ceiling on link depth. 0 fetches only StartURL.
	MaxDepth int

	// Concurrency is the maximum number of pages in flight at once.
	Concurrency int

	// DelayBetweenRequests is slept between dispatch batches.
	DelayBetweenRequests time.Duration

	// Timeout bounds one page navigation.
	Timeout time.Duration

	// SettleDelay is waited after network idleness before the DOM is captured.
	SettleDelay time.Duration

	// DownloadMedia enables image and document downloads.
	DownloadMedia bool

	// ImageFormats lists file extensions (with dot) treated as images.
	ImageFormats []string

	// DocumentFormats lists file extensions (with dot) treated as documents.
	DocumentFormats []string

	// ExcludePatterns are regular expressions; matching URLs are never crawled.
	ExcludePatterns []string

	// PageTypes is the ordered page-type rule table (first match wins).
	PageTypes []PageTypeRule

	// IgnoreSelectors are CSS selectors removed from the DOM before extraction.
	IgnoreSelectors []string

	// UserAgent is sent by the browser and the downloader.
	UserAgent string

	// Viewport is the browser window size.
	Viewport Viewport

	// OutputDir is the root of the migration bundle.
	OutputDir string

	// RespectRobots makes the crawler skip URLs disallowed by robots.txt.
	RespectRobots bool

	// Headless runs Chrome without a window. Disable for debugging.
	Headless bool

	// ProxyURL routes browser and downloader traffic through a proxy
	// (http://, https:// or socks5://).
	ProxyURL string

	// DownloadConcurrency is the number of media files fetched at once.
	DownloadConcurrency int

	// DownloadRateLimit is the sustained media request rate in requests/second.
	// 0 disables rate limiting.
	DownloadRateLimit float64

	// ExtractEXIF records EXIF metadata of downloaded JPEG/TIFF images.
	ExtractEXIF bool

	// SaveHistory stores the run in the history database under DBDir.
	SaveHistory bool

	// DBDir is the directory of the history database.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output to JSON lines.
	LogJSON bool

	// ConfigFilePath is the explicit config file path given on the command line.
	ConfigFilePath string
}

// NewConfig creates a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		MaxPages:             DefaultMaxPages,
		MaxDepth:             DefaultMaxDepth,
		Concurrency:          DefaultConcurrency,
		DelayBetweenRequests: DefaultDelayBetweenRequests,
		Timeout:              DefaultTimeout,
		SettleDelay:          DefaultSettleDelay,
		DownloadMedia:        true,
		ImageFormats:         DefaultImageFormats(),
		DocumentFormats:      DefaultDocumentFormats(),
		ExcludePatterns:      DefaultExcludePatterns(),
		PageTypes:            DefaultPageTypes(),
		IgnoreSelectors:      DefaultIgnoreSelectors(),
		UserAgent:            DefaultUserAgent,
		Viewport:             Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		OutputDir:            DefaultOutputDir,
		Headless:             true,
		DownloadConcurrency:  DefaultDownloadConcurrency,
		DownloadRateLimit:    DefaultDownloadRateLimit,
		ExtractEXIF:          true,
		SaveHistory:          true,
		DBDir:                XDGDataDir(),
	}
}

// DefaultImageFormats returns the default image extension list.
func DefaultImageFormats() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".avif", ".ico"}
}

// DefaultDocumentFormats returns the default document extension list.
func DefaultDocumentFormats() []string {
	return []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".csv", ".zip"}
}

// DefaultExcludePatterns returns the default exclusion rules: admin and login
// areas, feeds, pagination and tracking query parameters.
func DefaultExcludePatterns() []string {
	return []string{
		`/wp-admin`,
		`/wp-login`,
		`/wp-json`,
		`/admin(/|$|\?)`,
		`/login(/|$|\?)`,
		`/logout(/|$|\?)`,
		`/feed/?($|\?)`,
		`\.rss($|\?)`,
		`/page/\d+`,
		`[?&]page=\d+`,
		`[?&](utm_[a-z]+|fbclid|gclid|mc_cid|mc_eid)=`,
		`[?&]replytocom=`,
	}
}

// DefaultPageTypes returns the default ordered page-type rules.
func DefaultPageTypes() []PageTypeRule {
	return []PageTypeRule{
		{Type: "home", Pattern: `^/?$`},
		{Type: "about", Pattern: `/(about|who-we-are|our-story)`},
		{Type: "services", Pattern: `/(services?|solutions|capabilities)`},
		{Type: "blog", Pattern: `/(blog|news|insights|articles?)`},
		{Type: "contact", Pattern: `/(contact|get-in-touch)`},
		{Type: "team", Pattern: `/(team|leadership|our-people|staff)`},
		{Type: "case-study", Pattern: `/(case-stud|portfolio|success-stor)`},
		{Type: "resource", Pattern: `/(resources?|downloads?|whitepapers?|guides?)`},
	}
}

// DefaultIgnoreSelectors returns selectors stripped before extraction.
func DefaultIgnoreSelectors() []string {
	return []string{
		"script:not([type='application/ld+json'])",
		"style",
		"noscript",
		".cookie-banner",
		".cookie-notice",
		"#cookie-notice",
		".popup",
		".modal",
	}
}

// ResolvedBaseURL returns BaseURL, or the scheme and host of StartURL when
// BaseURL is empty.
func (c *Config) ResolvedBaseURL() string {
	if strings.TrimSpace(c.BaseURL) != "" {
		return c.BaseURL
	}
	u, err := url.Parse(c.StartURL)
	if err != nil || u.Host == "" {
		return c.StartURL
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String()
}

// XDGDataDir returns the XDG data directory for sitemigrate.
// On Linux: ~/.local/share/sitemigrate
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitemigrate.
// On Linux: ~/.config/sitemigrate
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StartURL) == "" {
		return ErrNoStartURL
	}
	start, err := url.Parse(c.StartURL)
	if err != nil || (start.Scheme != "http" && start.Scheme != "https") || start.Host == "" {
		return ErrInvalidStartURL
	}
	if c.BaseURL != "" {
		base, err := url.Parse(c.BaseURL)
		if err != nil || base.Host == "" {
			return ErrInvalidBaseURL
		}
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.DelayBetweenRequests < 0 || c.SettleDelay < 0 {
		return ErrInvalidDelay
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return ErrInvalidViewport
	}
	if c.DownloadConcurrency <= 0 {
		return ErrInvalidDownloadConcurrency
	}
	if c.DownloadRateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return ErrNoOutputDir
	}
	if _, err := CompilePatterns(c.ExcludePatterns); err != nil {
		return err
	}
	for _, rule := range c.PageTypes {
		if strings.TrimSpace(rule.Type) == "" {
			return ErrInvalidPageTypeRule
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return &PatternError{Pattern: rule.Pattern, Err: err}
		}
	}
	return nil
}

// CompilePatterns compiles a list of regular expressions, skipping blanks.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, raw := range patterns {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, &PatternError{Pattern: raw, Err: err}
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
