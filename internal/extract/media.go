package extract

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/sitemigrate/internal/crawler"
	"github.com/nao1215/sitemigrate/internal/model"
)

// imageContextRule assigns an image context when any hint matches the class,
// id or alt text of the image or of its parent.
type imageContextRule struct {
	context model.ImageContext
	hints   []string
}

var imageContextRules = []imageContextRule{
	{context: model.ImageContextLogo, hints: []string{"logo", "brand"}},
	{context: model.ImageContextHero, hints: []string{"hero", "banner", "jumbotron"}},
	{context: model.ImageContextTeam, hints: []string{"team", "staff", "member", "avatar", "headshot", "profile", "author"}},
}

// classifyImage returns the context of img, content when no rule matches.
func classifyImage(img *goquery.Selection) model.ImageContext {
	hint := hints(img) + " " + strings.ToLower(attr(img, "alt")) + " " + hints(img.Parent())
	for _, rule := range imageContextRules {
		if containsAny(hint, rule.hints...) {
			return rule.context
		}
	}
	return model.ImageContextContent
}

// imageSource returns src, or a lazy-loading attribute when src is empty or
// an inline placeholder.
func imageSource(img *goquery.Selection) string {
	src := attr(img, "src")
	if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
		return attr(img, "data-src", "data-lazy-src", "data-original")
	}
	return src
}

// images returns the page's images, once per URL. Sources without an image
// extension are skipped.
func (e *Extractor) images(p *page) []model.ImageRecord {
	var out []model.ImageRecord
	seen := make(map[string]struct{})
	p.doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := p.resolve(imageSource(img))
		if src == "" || !e.classifier.IsImage(src) {
			return
		}
		if _, dup := seen[src]; dup {
			return
		}
		seen[src] = struct{}{}
		out = append(out, model.ImageRecord{
			URL:        src,
			Alt:        attr(img, "alt"),
			Context:    classifyImage(img),
			ParentPage: p.url,
		})
	})
	return out
}

// videoRule recognizes one hosting platform. The first submatch of pattern
// is the video ID.
type videoRule struct {
	platform model.VideoPlatform
	pattern  *regexp.Regexp
	embed    func(id string) string
}

var videoRules = []videoRule{
	{
		platform: model.VideoPlatformYouTube,
		pattern:  regexp.MustCompile(`(?:youtube(?:-nocookie)?\.com/(?:watch\?(?:[^#]*&)?v=|embed/|v/|shorts/|live/)|youtu\.be/)([A-Za-z0-9_-]{11})`),
		embed:    func(id string) string { return "https://www.youtube.com/embed/" + id },
	},
	{
		platform: model.VideoPlatformVimeo,
		pattern:  regexp.MustCompile(`vimeo\.com/(?:video/|channels/[^/]+/|groups/[^/]+/videos/)?(\d+)`),
		embed:    func(id string) string { return "https://player.vimeo.com/video/" + id },
	},
}

// videoExtensions mark self-hosted video files.
var videoExtensions = []string{".mp4", ".webm", ".ogv", ".ogg", ".mov", ".m4v"}

// ParseVideo identifies the platform of a video URL. It returns false when
// rawURL is neither a known platform nor a video file.
func ParseVideo(rawURL string) (model.VideoRecord, bool) {
	for _, rule := range videoRules {
		if m := rule.pattern.FindStringSubmatch(rawURL); m != nil {
			return model.VideoRecord{
				URL:      rawURL,
				Platform: rule.platform,
				ID:       m[1],
				EmbedURL: rule.embed(m[1]),
			}, true
		}
	}
	if isVideoFile(rawURL) {
		return selfHosted(rawURL), true
	}
	return model.VideoRecord{}, false
}

func selfHosted(rawURL string) model.VideoRecord {
	return model.VideoRecord{
		URL:      rawURL,
		Platform: model.VideoPlatformSelfHosted,
		EmbedURL: rawURL,
	}
}

func isVideoFile(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, v := range videoExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

// videos returns embedded and linked videos, once per embed URL.
func (p *page) videos() []model.VideoRecord {
	var out []model.VideoRecord
	seen := make(map[string]struct{})
	add := func(v model.VideoRecord, title string) {
		if _, dup := seen[v.EmbedURL]; dup {
			return
		}
		seen[v.EmbedURL] = struct{}{}
		v.Title = title
		v.ParentPage = p.url
		out = append(out, v)
	}

	p.doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		src := p.resolve(attr(s, "src", "data-src"))
		if v, ok := ParseVideo(src); ok && src != "" {
			add(v, attr(s, "title", "aria-label"))
		}
	})
	p.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := p.resolve(attr(s, "href"))
		if v, ok := ParseVideo(href); ok && href != "" {
			add(v, text(s))
		}
	})
	p.doc.Find("video").Each(func(_ int, s *goquery.Selection) {
		title := attr(s, "title", "aria-label")
		if src := p.resolve(attr(s, "src", "data-src")); src != "" {
			add(selfHosted(src), title)
		}
		s.Find("source[src]").Each(func(_ int, source *goquery.Selection) {
			if src := p.resolve(attr(source, "src")); src != "" {
				add(selfHosted(src), title)
			}
		})
	})
	return out
}

// documents returns linked documents, once per URL.
func (e *Extractor) documents(p *page) []model.DocumentRecord {
	var out []model.DocumentRecord
	seen := make(map[string]struct{})
	p.doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := p.resolve(attr(a, "href"))
		if href == "" || !e.classifier.IsDocument(href) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		title := text(a)
		if title == "" {
			title = attr(a, "title", "aria-label")
		}
		if title == "" {
			if u, err := url.Parse(href); err == nil {
				title = path.Base(u.Path)
			}
		}
		out = append(out, model.DocumentRecord{
			URL:        href,
			Title:      title,
			Extension:  crawler.Extension(href),
			ParentPage: p.url,
		})
	})
	return out
}
