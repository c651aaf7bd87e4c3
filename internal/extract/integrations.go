package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/sitemigrate/internal/model"
)

// trackingPattern finds one provider's account ID in raw HTML. When the
// expression has a capture group, the first group is the ID.
type trackingPattern struct {
	provider string
	re       *regexp.Regexp
}

// trackingPatterns run against the raw HTML, since ignore selectors usually
// strip the scripts that carry the IDs.
var trackingPatterns = []trackingPattern{
	{provider: "google-analytics", re: regexp.MustCompile(`\bUA-\d{4,10}-\d{1,4}\b`)},
	{provider: "google-analytics-4", re: regexp.MustCompile(`\bG-[A-Z0-9]{10,12}\b`)},
	{provider: "google-tag-manager", re: regexp.MustCompile(`\bGTM-[A-Z0-9]{6,8}\b`)},
	{provider: "google-ads", re: regexp.MustCompile(`\bAW-\d{9,11}\b`)},
	{provider: "google-adsense", re: regexp.MustCompile(`\bca-pub-\d{16}\b`)},
	{provider: "facebook-pixel", re: regexp.MustCompile(`fbq\s*\(\s*['"]init['"]\s*,\s*['"](\d{15,16})['"]`)},
	{provider: "linkedin-insight", re: regexp.MustCompile(`_linkedin_partner_id\s*=\s*['"]?(\d{5,10})`)},
	{provider: "hotjar", re: regexp.MustCompile(`hjid\s*:\s*(\d{6,8})`)},
	{provider: "microsoft-clarity", re: regexp.MustCompile(`clarity\.ms/tag/([a-z0-9]{8,12})`)},
	{provider: "matomo", re: regexp.MustCompile(`_paq\.push\s*\(\s*\[\s*['"]setSiteId['"]\s*,\s*['"]?(\d+)['"]?\s*\]`)},
	{provider: "yandex-metrica", re: regexp.MustCompile(`\bym\s*\(\s*(\d{8,9})`)},
}

// tracking returns the tracking IDs in rawHTML, each listed once, ordered
// by provider table position then first occurrence.
func tracking(rawHTML string) []model.TrackingTag {
	var tags []model.TrackingTag
	seen := make(map[model.TrackingTag]bool)

	for _, tp := range trackingPatterns {
		for _, m := range tp.re.FindAllStringSubmatch(rawHTML, -1) {
			id := m[0]
			if len(m) > 1 && m[1] != "" {
				id = m[1]
			}
			tag := model.TrackingTag{Provider: tp.provider, ID: id}
			if seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// socialPlatform matches profile URLs of one platform. The first capture
// group of each pattern is the handle.
type socialPlatform struct {
	name     string
	patterns []*regexp.Regexp
}

var socialPlatforms = []socialPlatform{
	{name: "facebook", patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)^https?://(?:www\.|m\.)?(?:facebook|fb)\.com/([A-Za-z0-9.\-]+)/?$`),
	}},
	{name: "x", patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)^https?://(?:www\.|mobile\.)?(?:twitter|x)\.com/([A-Za-z0-9_]{1,15})/?$`),
	}},
	{name: "instagram", patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)^https?://(?:www\.)?instagram\.com/([A-Za-z0-9_.]+)/?$`),
	}},
	{name: "linkedin", patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)^https?://(?:[a-z]{2,3}\.|www\.)?linkedin\.com/(?:company|school|showcase)/([A-Za-z0-9_\-%]+)/?$`),
		regexp.MustCompile(`(?i)^https?://(?:[a-z]{2,3}\.|www\.)?linkedin\.com/in/([A-Za-z0-9_\-%]+)/?$`),
	}},
	{name: "youtube", patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)^https?://(?:www\.)?youtube\.com/(?:channel/|c/|user/|@)([A-Za-z0-9_.\-]+)/?$`),
	}},
	{name: "tiktok", patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)^https?://(?:www\.)?tiktok\.com/@([A-Za-z0-9_.]+)/?$`),
	}},
	{name: "pinterest", patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)^https?://(?:[a-z]{2}\.|www\.)?pinterest\.[a-z.]+/([A-Za-z0-9_]+)/?$`),
	}},
	{name: "github", patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)^https?://(?:www\.)?github\.com/([A-Za-z0-9\-]+)/?$`),
	}},
}

// nonProfileHandles are path segments of share buttons and site pages that
// the profile patterns would otherwise accept.
var nonProfileHandles = map[string]bool{
	"sharer":       true,
	"sharer.php":   true,
	"share":        true,
	"share.php":    true,
	"dialog":       true,
	"intent":       true,
	"home":         true,
	"home.php":     true,
	"login":        true,
	"search":       true,
	"explore":      true,
	"hashtag":      true,
	"watch":        true,
	"embed":        true,
	"pages":        true,
	"plugins":      true,
	"tr":           true,
	"shareArticle": true,
}

// socialProfiles returns the social profile links of the page, each
// platform and handle listed once, in document order.
func (p *page) socialProfiles() []model.SocialProfile {
	var profiles []model.SocialProfile
	seen := make(map[string]bool)

	p.doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := p.resolve(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		u, err := url.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		// Query and fragment carry tracking parameters, never the handle.
		u.RawQuery, u.Fragment = "", ""
		clean := u.String()

		platform, handle, ok := matchSocial(clean)
		if !ok {
			return
		}
		key := platform + "/" + strings.ToLower(handle)
		if seen[key] {
			return
		}
		seen[key] = true
		profiles = append(profiles, model.SocialProfile{Platform: platform, Handle: handle, URL: clean})
	})
	return profiles
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// emails returns the lower-cased addresses of mailto links and of the page
// text, each listed once, links first.
func (p *page) emails() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(addr string) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if emailPattern.FindString(addr) != addr || seen[addr] || isAssetName(addr) {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}

	p.doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if len(href) < len("mailto:") || !strings.EqualFold(href[:len("mailto:")], "mailto:") {
			return
		}
		addr, _, _ := strings.Cut(href[len("mailto:"):], "?")
		if decoded, err := url.PathUnescape(addr); err == nil {
			addr = decoded
		}
		for part := range strings.SplitSeq(addr, ",") {
			add(part)
		}
	})
	for _, m := range emailPattern.FindAllString(text(p.doc.Find("body")), -1) {
		add(m)
	}
	return out
}

// isAssetName reports whether addr is a retina file name such as
// logo@2x.png rather than an address.
func isAssetName(addr string) bool {
	switch strings.ToLower(addr[strings.LastIndex(addr, ".")+1:]) {
	case "png", "jpg", "jpeg", "gif", "webp", "svg", "avif":
		return true
	}
	return false
}

// matchSocial returns the platform and handle of a profile URL.
func matchSocial(rawURL string) (string, string, bool) {
	for _, sp := range socialPlatforms {
		for _, re := range sp.patterns {
			m := re.FindStringSubmatch(rawURL)
			if m == nil {
				continue
			}
			handle := m[1]
			if nonProfileHandles[handle] || nonProfileHandles[strings.ToLower(handle)] {
				return "", "", false
			}
			if decoded, err := url.PathUnescape(handle); err == nil {
				handle = decoded
			}
			return sp.name, handle, true
		}
	}
	return "", "", false
}
