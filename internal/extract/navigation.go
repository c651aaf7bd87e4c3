package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/sitemigrate/internal/model"
)

// primaryNavSelector matches menu containers; the first one outside the
// footer that is not a breadcrumb is the primary menu.
const primaryNavSelector = "nav, [role='navigation'], .nav, .navbar, .menu, #menu, .main-menu"

// breadcrumbSelector matches breadcrumb trails.
const breadcrumbSelector = ".breadcrumb, .breadcrumbs, [class*='breadcrumb'], [aria-label='breadcrumb'], [aria-label='Breadcrumb'], [itemtype*='BreadcrumbList']"

// activeHints mark the current menu entry.
var activeHints = []string{"active", "current", "selected"}

// navigation extracts the primary menu, the footer menu and the breadcrumb.
func (p *page) navigation() model.Navigation {
	return model.Navigation{
		Primary:    p.primaryNav(),
		Footer:     p.footerNav(),
		Breadcrumb: p.breadcrumb(),
	}
}

func (p *page) primaryNav() []model.Link {
	var menu *goquery.Selection
	p.doc.Find(primaryNavSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Closest("footer").Length() > 0 || isBreadcrumb(s) {
			return true
		}
		menu = s
		return false
	})
	if menu == nil {
		return nil
	}

	var links []model.Link
	seen := make(map[string]struct{})
	menu.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := p.resolve(attr(a, "href"))
		label := text(a)
		if href == "" || label == "" {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, model.Link{Text: label, Href: href, Active: isActive(a)})
	})
	return links
}

func (p *page) footerNav() []model.Link {
	var links []model.Link
	seen := make(map[string]struct{})
	p.doc.Find("footer a[href], [role='contentinfo'] a[href]").Each(func(_ int, a *goquery.Selection) {
		href := p.resolve(attr(a, "href"))
		label := text(a)
		if href == "" || label == "" {
			return
		}
		key := label + "\x00" + href
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, model.Link{Text: label, Href: href})
	})
	return links
}

// breadcrumb returns the trail. Items without a link (usually the current
// page) keep an empty Href.
func (p *page) breadcrumb() []model.Link {
	trail := p.doc.Find(breadcrumbSelector).First()
	if trail.Length() == 0 {
		return nil
	}

	var links []model.Link
	items := trail.Find("li")
	if items.Length() == 0 {
		items = trail.Find("a[href]")
	}
	items.Each(func(_ int, item *goquery.Selection) {
		label := text(item)
		if label == "" {
			return
		}
		a := item
		if goquery.NodeName(item) != "a" {
			a = item.Find("a[href]").First()
		}
		links = append(links, model.Link{Text: label, Href: p.resolve(attr(a, "href"))})
	})
	return links
}

func isBreadcrumb(s *goquery.Selection) bool {
	return strings.Contains(hints(s), "breadcrumb") || strings.Contains(strings.ToLower(attr(s, "aria-label")), "breadcrumb")
}

// isActive reports whether a menu link is marked as the current page on
// itself or on its list item.
func isActive(a *goquery.Selection) bool {
	if _, ok := a.Attr("aria-current"); ok {
		return true
	}
	return containsAny(hints(a), activeHints...) || containsAny(hints(a.Parent()), activeHints...)
}
