package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"time"
)

// Validation errors returned by PageRecord.Validate.
var (
	// ErrInvalidPageURL is returned when a record's URL is not absolute.
	ErrInvalidPageURL = errors.New("page record URL must be absolute")

	// ErrEmptySlug is returned when a record has no slug.
	ErrEmptySlug = errors.New("page record slug must not be empty")
)

// PageRecord is everything extracted from one successfully fetched page.
// It is created once per URL and never modified after the crawler hands
// it to the reporter.
type PageRecord struct {
	// URL is the absolute, normalized page URL. Unique within a run.
	URL string `json:"url"`

	// Slug is the file-system friendly name used for pages/<slug>.json.
	Slug string `json:"slug"`

	// PageType is the tag assigned by the page-type rules.
	PageType PageType `json:"pageType"`

	// CrawledAt is when the page finished rendering.
	CrawledAt time.Time `json:"crawledAt"`

	// Depth is the link distance from the start URL.
	Depth int `json:"depth"`

	// ParentURL is the page the URL was discovered on. Empty for the start URL.
	ParentURL string `json:"parentUrl,omitempty"`

	Metadata   Metadata   `json:"metadata"`
	Content    Content    `json:"content"`
	Navigation Navigation `json:"navigation"`
	Media      Media      `json:"media"`
	SEO        SEO        `json:"seo"`

	// Integrations are the third-party services wired into the page.
	Integrations Integrations `json:"integrations"`

	// ContentHash is the SHA-256 of the rendered HTML.
	// The history database compares it across runs to spot changed pages.
	ContentHash string `json:"contentHash"`
}

// Integrations are third-party services a page depends on. They have to be
// set up again on the new site.
type Integrations struct {
	Tracking []TrackingTag   `json:"tracking"`
	Social   []SocialProfile `json:"social"`

	// Emails are the lower-cased contact addresses published on the page.
	Emails []string `json:"emails"`
}

// TrackingTag is an analytics or advertising account ID embedded in a page.
type TrackingTag struct {
	// Provider is the service, e.g. "google-tag-manager".
	Provider string `json:"provider"`
	ID       string `json:"id"`
}

// SocialProfile is a link to an account of the site owner on a social platform.
type SocialProfile struct {
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
	URL      string `json:"url"`
}

// Metadata holds the document title and <meta>/<link> values.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`

	// Canonical is the href of <link rel="canonical">, resolved to absolute.
	Canonical string `json:"canonical,omitempty"`

	// Robots is the content of <meta name="robots">.
	Robots string `json:"robots,omitempty"`

	OGTitle       string `json:"ogTitle,omitempty"`
	OGDescription string `json:"ogDescription,omitempty"`
	OGImage       string `json:"ogImage,omitempty"`
	OGType        string `json:"ogType,omitempty"`
	OGURL         string `json:"ogUrl,omitempty"`
}

// Content is the body content of a page.
type Content struct {
	// Hero is nil when the page has no hero-like block.
	Hero     *Hero     `json:"hero"`
	Sections []Section `json:"sections"`
	Forms    []Form    `json:"forms"`
}

// Hero is the top-of-page banner block.
type Hero struct {
	Heading    string `json:"heading"`
	Subheading string `json:"subheading"`
	Image      string `json:"image,omitempty"`
	CTA        *Link  `json:"cta,omitempty"`
}

// Link is an anchor's text and resolved href.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`

	// Active marks the navigation entry of the current page.
	Active bool `json:"active,omitempty"`
}

// Section is one content block of a page.
type Section struct {
	Type    SectionType `json:"type"`
	ID      string      `json:"id,omitempty"`
	Heading string      `json:"heading"`

	// Text is the whitespace-collapsed text content.
	Text string `json:"text"`

	// HTML is the raw inner HTML, kept for manual migration review.
	HTML   string   `json:"html"`
	Images []string `json:"images"`
	Links  []Link   `json:"links"`
}

// Form represents an HTML form element.
type Form struct {
	// Action is the form's action URL, resolved to absolute when possible.
	Action string `json:"action"`

	// Method is the upper-cased HTTP method. Defaults to POST.
	Method string `json:"method"`

	ID     string      `json:"id,omitempty"`
	Fields []FormField `json:"fields"`
}

// FormField is an input, select or textarea of a form.
type FormField struct {
	Name string `json:"name"`

	// Type is the input type, or "select"/"textarea" for those elements.
	Type string `json:"type"`

	// Label is the text of the associated <label>, if any.
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// Navigation holds the menus found on a page.
type Navigation struct {
	Primary    []Link `json:"primary"`
	Footer     []Link `json:"footer"`
	Breadcrumb []Link `json:"breadcrumb"`
}

// Media holds every media reference found on a page.
type Media struct {
	Images    []ImageRecord    `json:"images"`
	Videos    []VideoRecord    `json:"videos"`
	Documents []DocumentRecord `json:"documents"`
}

// SEO holds the heading outline and JSON-LD blocks.
type SEO struct {
	H1 []string `json:"h1"`
	H2 []string `json:"h2"`

	// StructuredData holds every JSON-LD block that parsed successfully,
	// kept verbatim.
	StructuredData []json.RawMessage `json:"structuredData"`
}

// Title returns the best available title: <title>, then og:title, then the first H1.
func (p *PageRecord) Title() string {
	switch {
	case p.Metadata.Title != "":
		return p.Metadata.Title
	case p.Metadata.OGTitle != "":
		return p.Metadata.OGTitle
	case len(p.SEO.H1) > 0:
		return p.SEO.H1[0]
	default:
		return ""
	}
}

// ComputeHash calculates and sets the SHA-256 hash of the rendered HTML.
func (p *PageRecord) ComputeHash(html string) {
	if html == "" {
		p.ContentHash = ""
		return
	}
	hash := sha256.Sum256([]byte(html))
	p.ContentHash = hex.EncodeToString(hash[:])
}

// Validate checks the fields the reporter relies on.
func (p *PageRecord) Validate() error {
	u, err := url.Parse(p.URL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidPageURL
	}
	if p.Slug == "" {
		return ErrEmptySlug
	}
	return nil
}

// Normalize replaces nil slices with empty ones so JSON output has [] rather than null.
func (p *PageRecord) Normalize() {
	if p.PageType == "" {
		p.PageType = PageTypeGeneral
	}
	if p.Content.Sections == nil {
		p.Content.Sections = []Section{}
	}
	if p.Content.Forms == nil {
		p.Content.Forms = []Form{}
	}
	if p.Navigation.Primary == nil {
		p.Navigation.Primary = []Link{}
	}
	if p.Navigation.Footer == nil {
		p.Navigation.Footer = []Link{}
	}
	if p.Navigation.Breadcrumb == nil {
		p.Navigation.Breadcrumb = []Link{}
	}
	if p.Media.Images == nil {
		p.Media.Images = []ImageRecord{}
	}
	if p.Media.Videos == nil {
		p.Media.Videos = []VideoRecord{}
	}
	if p.Media.Documents == nil {
		p.Media.Documents = []DocumentRecord{}
	}
	if p.SEO.H1 == nil {
		p.SEO.H1 = []string{}
	}
	if p.SEO.H2 == nil {
		p.SEO.H2 = []string{}
	}
	if p.SEO.StructuredData == nil {
		p.SEO.StructuredData = []json.RawMessage{}
	}
	if p.Integrations.Tracking == nil {
		p.Integrations.Tracking = []TrackingTag{}
	}
	if p.Integrations.Social == nil {
		p.Integrations.Social = []SocialProfile{}
	}
	if p.Integrations.Emails == nil {
		p.Integrations.Emails = []string{}
	}
	for i := range p.Content.Sections {
		s := &p.Content.Sections[i]
		if s.Images == nil {
			s.Images = []string{}
		}
		if s.Links == nil {
			s.Links = []Link{}
		}
	}
	for i := range p.Content.Forms {
		if p.Content.Forms[i].Fields == nil {
			p.Content.Forms[i].Fields = []FormField{}
		}
	}
}
