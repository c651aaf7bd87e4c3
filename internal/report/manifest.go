package report

import (
	"time"

	"github.com/nao1215/sitemigrate/internal/media"
	"github.com/nao1215/sitemigrate/internal/model"
)

// SiteStructure is the content of site-structure.json: every crawled page
// as a flat list in crawl order and as a tree following discovery links.
type SiteStructure struct {
	RunID       string           `json:"runId"`
	StartURL    string           `json:"startUrl"`
	BaseURL     string           `json:"baseUrl"`
	GeneratedAt time.Time        `json:"generatedAt"`
	TotalPages  int              `json:"totalPages"`
	Pages       []StructureEntry `json:"pages"`
	Tree        []*StructureNode `json:"tree"`
}

// StructureEntry describes one page of the site.
type StructureEntry struct {
	URL       string         `json:"url"`
	Slug      string         `json:"slug"`
	Title     string         `json:"title"`
	PageType  model.PageType `json:"pageType"`
	Depth     int            `json:"depth"`
	ParentURL string         `json:"parentUrl,omitempty"`

	// File is the page JSON path relative to the output directory.
	File string `json:"file"`
}

// StructureNode is a page and the pages first discovered on it.
type StructureNode struct {
	URL      string           `json:"url"`
	Slug     string           `json:"slug"`
	Title    string           `json:"title"`
	Children []*StructureNode `json:"children"`
}

// NewSiteStructure builds the site structure of a run.
// Pages whose parent was not crawled become roots of the tree.
func NewSiteStructure(run model.RunInfo, pages []*model.PageRecord, now time.Time) *SiteStructure {
	s := &SiteStructure{
		RunID:       run.ID,
		StartURL:    run.StartURL,
		BaseURL:     run.BaseURL,
		GeneratedAt: now,
		TotalPages:  len(pages),
		Pages:       make([]StructureEntry, 0, len(pages)),
		Tree:        []*StructureNode{},
	}

	nodes := make(map[string]*StructureNode, len(pages))
	for _, p := range pages {
		s.Pages = append(s.Pages, StructureEntry{
			URL:       p.URL,
			Slug:      p.Slug,
			Title:     p.Title(),
			PageType:  p.PageType,
			Depth:     p.Depth,
			ParentURL: p.ParentURL,
			File:      media.PagePath(p.Slug),
		})
		nodes[p.URL] = &StructureNode{URL: p.URL, Slug: p.Slug, Title: p.Title(), Children: []*StructureNode{}}
	}

	// Pages are in crawl order, so a parent is always seen before its children.
	for _, p := range pages {
		node := nodes[p.URL]
		if parent, ok := nodes[p.ParentURL]; ok && p.ParentURL != p.URL {
			parent.Children = append(parent.Children, node)
			continue
		}
		s.Tree = append(s.Tree, node)
	}
	return s
}

// NavigationMap is the content of navigation-map.json.
type NavigationMap struct {
	// Primary is the union of every page's main menu, first occurrence first.
	Primary []model.Link `json:"primary"`

	// Footer is the union of every page's footer links.
	Footer []model.Link     `json:"footer"`
	Pages  []PageNavigation `json:"pages"`
}

// PageNavigation is the navigation context of one page.
type PageNavigation struct {
	URL        string       `json:"url"`
	Slug       string       `json:"slug"`
	Breadcrumb []model.Link `json:"breadcrumb"`

	// ActiveItem is the text of the primary menu entry marked active.
	ActiveItem string `json:"activeItem,omitempty"`
}

// NewNavigationMap merges the menus of every page.
func NewNavigationMap(pages []*model.PageRecord) *NavigationMap {
	m := &NavigationMap{
		Primary: []model.Link{},
		Footer:  []model.Link{},
		Pages:   make([]PageNavigation, 0, len(pages)),
	}

	seenPrimary := map[string]bool{}
	seenFooter := map[model.Link]bool{}
	for _, p := range pages {
		nav := PageNavigation{URL: p.URL, Slug: p.Slug, Breadcrumb: p.Navigation.Breadcrumb}
		if nav.Breadcrumb == nil {
			nav.Breadcrumb = []model.Link{}
		}

		for _, l := range p.Navigation.Primary {
			if l.Active && nav.ActiveItem == "" {
				nav.ActiveItem = l.Text
			}
			l.Active = false
			if seenPrimary[l.Href] {
				continue
			}
			seenPrimary[l.Href] = true
			m.Primary = append(m.Primary, l)
		}
		for _, l := range p.Navigation.Footer {
			l.Active = false
			if seenFooter[l] {
				continue
			}
			seenFooter[l] = true
			m.Footer = append(m.Footer, l)
		}
		m.Pages = append(m.Pages, nav)
	}
	return m
}

// VideoInventory is the content of media/videos/video-inventory.json.
type VideoInventory struct {
	Total      int           `json:"total"`
	ByPlatform []model.Count `json:"byPlatform"`
	Videos     []VideoEntry  `json:"videos"`
}

// VideoEntry is one distinct video and the pages it appears on.
type VideoEntry struct {
	Platform model.VideoPlatform `json:"platform"`
	ID       string              `json:"id,omitempty"`
	URL      string              `json:"url"`
	EmbedURL string              `json:"embedUrl"`
	Title    string              `json:"title,omitempty"`
	Pages    []string            `json:"pages"`
}

// NewVideoInventory collects distinct videos across pages, keyed by
// embed URL.
func NewVideoInventory(pages []*model.PageRecord) *VideoInventory {
	inv := &VideoInventory{Videos: []VideoEntry{}}
	index := map[string]int{}
	byPlatform := map[string]int{}

	for _, p := range pages {
		for _, v := range p.Media.Videos {
			key := v.EmbedURL
			if key == "" {
				key = v.URL
			}
			if i, ok := index[key]; ok {
				e := &inv.Videos[i]
				if e.Pages[len(e.Pages)-1] != p.URL {
					e.Pages = append(e.Pages, p.URL)
				}
				if e.Title == "" {
					e.Title = v.Title
				}
				continue
			}
			index[key] = len(inv.Videos)
			byPlatform[v.Platform.String()]++
			inv.Videos = append(inv.Videos, VideoEntry{
				Platform: v.Platform,
				ID:       v.ID,
				URL:      v.URL,
				EmbedURL: v.EmbedURL,
				Title:    v.Title,
				Pages:    []string{p.URL},
			})
		}
	}

	inv.Total = len(inv.Videos)
	inv.ByPlatform = model.SortedCounts(byPlatform)
	return inv
}
