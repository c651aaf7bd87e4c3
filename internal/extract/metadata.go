package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/sitemigrate/internal/model"
)

// metadata reads the title, the named meta tags, OpenGraph and the
// canonical link.
func (p *page) metadata() model.Metadata {
	return model.Metadata{
		Title:         text(p.doc.Find("head title").First()),
		Description:   p.meta("name", "description"),
		Keywords:      p.meta("name", "keywords"),
		Robots:        p.meta("name", "robots"),
		Canonical:     p.resolve(attr(p.doc.Find("link[rel='canonical']").First(), "href")),
		OGTitle:       p.meta("property", "og:title"),
		OGDescription: p.meta("property", "og:description"),
		OGImage:       p.resolve(p.meta("property", "og:image")),
		OGType:        p.meta("property", "og:type"),
		OGURL:         p.meta("property", "og:url"),
	}
}

// meta returns the content of the first meta tag whose key attribute
// equals name, compared case-insensitively.
func (p *page) meta(key, name string) string {
	var content string
	p.doc.Find("meta[" + key + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(attr(s, key), name) {
			return true
		}
		content = attr(s, "content")
		return false
	})
	return content
}

// seo collects headings and JSON-LD blocks.
func (e *Extractor) seo(p *page) model.SEO {
	seo := model.SEO{
		H1: headings(p.doc.Find("h1")),
		H2: headings(p.doc.Find("h2")),
	}

	p.doc.Find("script[type='application/ld+json']").Each(func(i int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(raw)); err != nil {
			e.logger.Debug("skipping invalid JSON-LD block", "url", p.url, "index", i, "error", err)
			return
		}
		seo.StructuredData = append(seo.StructuredData, json.RawMessage(buf.Bytes()))
	})
	return seo
}

// headings returns the non-empty texts of sel.
func headings(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := text(s); t != "" {
			out = append(out, t)
		}
	})
	return out
}
