package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/nao1215/sitemigrate/internal/crawler"
	"github.com/nao1215/sitemigrate/internal/model"
	"golang.org/x/net/html"
)

var (
	// ErrEmptyDocument is returned for blank HTML.
	ErrEmptyDocument = errors.New("empty HTML document")

	// ErrInvalidSelector is returned by New for an ignore selector that
	// does not compile.
	ErrInvalidSelector = errors.New("invalid CSS selector")
)

// Extractor extracts page records. It holds no per-page state and is safe
// for concurrent use.
type Extractor struct {
	classifier *crawler.Classifier
	ignore     []cascadia.Selector
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor. Elements matching ignoreSelectors are removed
// before anything is extracted.
func New(classifier *crawler.Classifier, ignoreSelectors []string, opts ...Option) (*Extractor, error) {
	e := &Extractor{classifier: classifier}
	for _, raw := range ignoreSelectors {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		sel, err := cascadia.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidSelector, raw, err)
		}
		e.ignore = append(e.ignore, sel)
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e, nil
}

// page is the state of one extraction.
type page struct {
	doc *goquery.Document

	// url is the page URL, base the URL relative links resolve against.
	url  string
	base *url.URL
}

// Extract parses rawHTML and returns the page record and the page's
// crawlable links: absolute, internal, neither image nor document, each
// listed once. URL-derived record fields (slug, page type, depth) are left
// for the caller.
func (e *Extractor) Extract(rawHTML, pageURL string) (*model.PageRecord, []string, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, nil, ErrEmptyDocument
	}
	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		return nil, nil, fmt.Errorf("invalid page URL %q", pageURL)
	}

	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, nil, fmt.Errorf("parse HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)
	p := &page{doc: doc, url: pageURL, base: base}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			p.base = b
		}
	}

	record := &model.PageRecord{URL: pageURL}
	// Tag snippets and follow buttons often sit in ignored regions.
	record.Integrations = model.Integrations{
		Tracking: tracking(rawHTML),
		Social:   p.socialProfiles(),
		Emails:   p.emails(),
	}

	for _, sel := range e.ignore {
		doc.FindMatcher(sel).Remove()
	}
	record.Metadata = p.metadata()
	record.SEO = e.seo(p)
	record.Content = model.Content{
		Hero:     p.hero(),
		Sections: p.sections(),
		Forms:    p.forms(),
	}
	record.Navigation = p.navigation()
	record.Media = model.Media{
		Images:    e.images(p),
		Videos:    p.videos(),
		Documents: e.documents(p),
	}

	return record, e.links(p), nil
}

// links returns the crawlable links of the page in document order.
func (e *Extractor) links(p *page) []string {
	seen := make(map[string]struct{})
	var links []string
	p.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := crawler.Normalize(href, p.base.String())
		if !ok {
			return
		}
		if !e.classifier.IsInternal(link) || e.classifier.IsImage(link) || e.classifier.IsDocument(link) {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links
}

// resolve makes raw absolute against the page base. It returns "" for
// empty, script and malformed references.
func (p *page) resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "javascript:") {
		return ""
	}
	u, err := p.base.Parse(raw)
	if err != nil {
		return ""
	}
	return u.String()
}

// attr returns the trimmed value of the first present attribute in names.
func attr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// hints returns the lower-cased class and id of s, used by the class-name
// heuristics.
func hints(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return strings.ToLower(attr(s, "class") + " " + attr(s, "id"))
}

// containsAny reports whether s contains any of the needles.
func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// text returns the visible text of s with whitespace collapsed. Text of
// adjacent elements is separated by a space.
func text(s *goquery.Selection) string {
	var parts []string
	for _, n := range s.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		*parts = append(*parts, n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// innerHTML returns the inner HTML of the first node of s, or "".
func innerHTML(s *goquery.Selection) string {
	h, err := s.Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(h)
}
