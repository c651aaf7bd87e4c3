package crawler

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/nao1215/sitemigrate/internal/config"
	"github.com/nao1215/sitemigrate/internal/model"
)

// pageTypeRule is one compiled entry of the ordered page-type table.
type pageTypeRule struct {
	pageType model.PageType
	pattern  *regexp.Regexp
}

// Classifier answers every question the crawler and the extractor ask about
// a URL. All methods are pure: the same input always yields the same output.
type Classifier struct {
	// baseHost is the lower-cased hostname defining the site boundary.
	baseHost string

	// exclude are matched against the full absolute URL.
	exclude []*regexp.Regexp

	// pageTypes are matched against the URL path, first match wins.
	pageTypes []pageTypeRule

	imageExts    []string
	documentExts []string
}

// NewClassifier compiles the rule tables of cfg.
func NewClassifier(cfg *config.Config) (*Classifier, error) {
	base, err := url.Parse(cfg.ResolvedBaseURL())
	if err != nil || base.Hostname() == "" {
		return nil, config.ErrInvalidBaseURL
	}

	exclude, err := config.CompilePatterns(cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	rules := make([]pageTypeRule, 0, len(cfg.PageTypes))
	for _, r := range cfg.PageTypes {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, &config.PatternError{Pattern: r.Pattern, Err: err}
		}
		rules = append(rules, pageTypeRule{pageType: model.PageType(r.Type), pattern: re})
	}

	return &Classifier{
		baseHost:     strings.ToLower(base.Hostname()),
		exclude:      exclude,
		pageTypes:    rules,
		imageExts:    lowerAll(cfg.ImageFormats),
		documentExts: lowerAll(cfg.DocumentFormats),
	}, nil
}

// BaseHost returns the hostname that defines the site boundary.
func (c *Classifier) BaseHost() string {
	return c.baseHost
}

// Normalize resolves href against pageURL and returns the canonical absolute
// form used for deduplication: http(s) only, lower-cased scheme and host,
// no fragment, default ports removed, "/" for an empty path.
// It returns false for malformed input and non-navigational links
// (mailto:, tel:, javascript:, data:, bare fragments).
func Normalize(href, pageURL string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"mailto:", "tel:", "javascript:", "data:", "sms:", "ftp:"} {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	u := base.ResolveReference(ref)

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil
	if u.Path == "" {
		u.Path = "/"
	}
	if u.RawQuery == "" {
		u.ForceQuery = false
	}
	return u.String(), true
}

// IsInternal reports whether rawURL's hostname is the site's hostname.
func (c *Classifier) IsInternal(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), c.baseHost)
}

// ShouldExclude reports whether rawURL matches any exclusion pattern.
func (c *Classifier) ShouldExclude(rawURL string) bool {
	for _, re := range c.exclude {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// ClassifyPageType returns the tag of the first rule matching the URL path,
// or "general" when no rule matches.
func (c *Classifier) ClassifyPageType(rawURL string) model.PageType {
	p := urlPath(rawURL)
	for _, r := range c.pageTypes {
		if r.pattern.MatchString(p) {
			return r.pageType
		}
	}
	return model.PageTypeGeneral
}

// IsImage reports whether the URL path ends in a configured image extension.
func (c *Classifier) IsImage(rawURL string) bool {
	return hasAnySuffix(urlPath(rawURL), c.imageExts)
}

// IsDocument reports whether the URL path ends in a configured document extension.
func (c *Classifier) IsDocument(rawURL string) bool {
	return hasAnySuffix(urlPath(rawURL), c.documentExts)
}

// Extension returns the lower-cased extension of the URL path, including the dot.
func Extension(rawURL string) string {
	return strings.ToLower(path.Ext(urlPath(rawURL)))
}

var (
	slugInvalid   = regexp.MustCompile(`[^a-z0-9]+`)
	pageExtension = regexp.MustCompile(`\.(html?|php|aspx?|jsp)$`)
)

// maxSlugLength bounds generated file names.
const maxSlugLength = 100

// Slug derives a file-system friendly name from the URL path:
// segments are joined with "-", lower-cased, and every run of other
// characters collapses to a single "-". The root path is "home".
// Query strings are ignored, so collisions are resolved by CrawlState.
func Slug(rawURL string) string {
	p := strings.ToLower(urlPath(rawURL))
	p = pageExtension.ReplaceAllString(p, "")

	segments := strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return "home"
	}

	slug := slugInvalid.ReplaceAllString(strings.Join(segments, "-"), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return "page"
	}
	return slug
}

// urlPath returns the unescaped path of rawURL, or rawURL itself when it
// does not parse. An empty path is "/".
func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func hasAnySuffix(s string, suffixes []string) bool {
	s = strings.ToLower(s)
	for _, suffix := range suffixes {
		if suffix != "" && strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		out = append(out, s)
	}
	return out
}
