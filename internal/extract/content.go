package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/sitemigrate/internal/model"
)

// heroSelectors are tried in order; the first match is the hero.
var heroSelectors = []string{
	".hero, .banner, .jumbotron",
	"[class*='hero'], [id*='hero'], [class*='banner']",
	"header",
}

// ctaSelector finds call-to-action links, falling back to any link.
const ctaSelector = "a.btn, a.button, a[class*='cta'], a[class*='btn'], a[class*='button']"

// sectionSelector finds content blocks.
const sectionSelector = "section, article, div.section, div.content-section, div[class*='section-'], div[class*='-section']"

// galleryMinImages is the image count above which a section is a gallery.
const galleryMinImages = 3

// sectionRule classifies a section. Rules are evaluated in order.
type sectionRule struct {
	kind  model.SectionType
	match func(s *goquery.Selection, hint string) bool
}

var sectionRules = []sectionRule{
	{
		kind: model.SectionTypeGallery,
		match: func(s *goquery.Selection, hint string) bool {
			return containsAny(hint, "gallery", "carousel", "slider") || s.Find("img").Length() > galleryMinImages
		},
	},
	{
		kind: model.SectionTypeVideo,
		match: func(s *goquery.Selection, hint string) bool {
			return strings.Contains(hint, "video") || s.Find("iframe, video").Length() > 0
		},
	},
	{
		kind: model.SectionTypeForm,
		match: func(s *goquery.Selection, hint string) bool {
			return strings.Contains(hint, "form") || s.Find("form").Length() > 0
		},
	},
	{
		kind: model.SectionTypeTestimonial,
		match: func(_ *goquery.Selection, hint string) bool {
			return containsAny(hint, "testimonial", "review", "quote")
		},
	},
	{
		kind: model.SectionTypeImageText,
		match: func(s *goquery.Selection, _ string) bool {
			return s.Find("img").Length() > 0
		},
	},
}

// classifySection returns the type of the first matching rule, or text.
func classifySection(s *goquery.Selection) model.SectionType {
	hint := hints(s)
	for _, rule := range sectionRules {
		if rule.match(s, hint) {
			return rule.kind
		}
	}
	return model.SectionTypeText
}

// hero returns the page's hero block, or nil.
func (p *page) hero() *model.Hero {
	var el *goquery.Selection
	for _, sel := range heroSelectors {
		if m := p.doc.Find(sel).First(); m.Length() > 0 {
			el = m
			break
		}
	}
	if el == nil {
		return nil
	}

	h := &model.Hero{
		Heading:    text(el.Find("h1, h2, h3").First()),
		Subheading: text(el.Find("p").First()),
		Image:      p.resolve(imageSource(el.Find("img").First())),
	}

	cta := el.Find(ctaSelector).First()
	if cta.Length() == 0 {
		cta = el.Find("a[href]").First()
	}
	if href := p.resolve(attr(cta, "href")); href != "" {
		h.CTA = &model.Link{Text: text(cta), Href: href}
	}

	if h.Heading == "" && h.Subheading == "" && h.Image == "" && h.CTA == nil {
		return nil
	}
	return h
}

// sections returns the page's content sections. Blocks without text or
// images are dropped.
func (p *page) sections() []model.Section {
	var out []model.Section
	p.doc.Find(sectionSelector).Each(func(_ int, s *goquery.Selection) {
		sec := model.Section{
			Type:    classifySection(s),
			ID:      attr(s, "id"),
			Heading: text(s.Find("h1, h2, h3, h4, h5, h6").First()),
			Text:    text(s),
			HTML:    innerHTML(s),
		}
		s.Find("img").Each(func(_ int, img *goquery.Selection) {
			if src := p.resolve(imageSource(img)); src != "" {
				sec.Images = append(sec.Images, src)
			}
		})
		s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			if href := p.resolve(attr(a, "href")); href != "" {
				sec.Links = append(sec.Links, model.Link{Text: text(a), Href: href})
			}
		})
		if sec.Text == "" && len(sec.Images) == 0 {
			return
		}
		out = append(out, sec)
	})
	return out
}

// skippedFieldTypes are input types that carry no user data.
var skippedFieldTypes = map[string]struct{}{
	"hidden": {},
	"submit": {},
	"button": {},
	"reset":  {},
	"image":  {},
}

// forms returns every form on the page.
func (p *page) forms() []model.Form {
	var out []model.Form
	p.doc.Find("form").Each(func(_ int, f *goquery.Selection) {
		method := strings.ToUpper(attr(f, "method"))
		if method == "" {
			method = "POST"
		}
		form := model.Form{
			Action: p.resolve(attr(f, "action")),
			Method: method,
			ID:     attr(f, "id"),
		}

		labels := labelsByID(f)
		f.Find("input, select, textarea").Each(func(_ int, in *goquery.Selection) {
			_, required := in.Attr("required")
			field := model.FormField{
				Name:     attr(in, "name"),
				Type:     fieldType(in),
				Required: required || strings.EqualFold(attr(in, "aria-required"), "true"),
			}
			if _, skip := skippedFieldTypes[field.Type]; skip {
				return
			}
			field.Label = fieldLabel(in, labels)
			form.Fields = append(form.Fields, field)
		})
		out = append(out, form)
	})
	return out
}

// fieldType returns the lower-cased input type, or the element name for
// select and textarea.
func fieldType(in *goquery.Selection) string {
	name := goquery.NodeName(in)
	if name != "input" {
		return name
	}
	if t := strings.ToLower(attr(in, "type")); t != "" {
		return t
	}
	return "text"
}

// labelsByID maps label[for] targets to label text.
func labelsByID(f *goquery.Selection) map[string]string {
	labels := make(map[string]string)
	f.Find("label[for]").Each(func(_ int, l *goquery.Selection) {
		if id := attr(l, "for"); id != "" {
			labels[id] = text(l)
		}
	})
	return labels
}

// fieldLabel finds the label of a field: a label[for], an enclosing label,
// then aria-label and placeholder.
func fieldLabel(in *goquery.Selection, labels map[string]string) string {
	if id := attr(in, "id"); id != "" {
		if l, ok := labels[id]; ok && l != "" {
			return l
		}
	}
	if l := text(in.Closest("label")); l != "" {
		return l
	}
	return attr(in, "aria-label", "placeholder")
}
