package model

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"time"
)

// RunInfo identifies a crawl run.
type RunInfo struct {
	// ID is a random UUID assigned when the run starts.
	ID       string    `json:"id"`
	StartURL string    `json:"startUrl"`
	BaseURL  string    `json:"baseUrl"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Interrupted is true when the run was cancelled before the frontier drained.
	Interrupted bool `json:"interrupted"`
}

// Duration returns how long the run took.
func (r RunInfo) Duration() time.Duration {
	if r.Finished.Before(r.Started) {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// CrawlStats are counters kept by the scheduler while it runs.
type CrawlStats struct {
	// Visited is the number of URLs fetched or attempted.
	Visited int `json:"visited"`

	// Excluded counts frontier entries dropped by exclusion patterns.
	Excluded int `json:"excluded"`

	// TooDeep counts frontier entries dropped for exceeding the depth limit.
	TooDeep int `json:"tooDeep"`

	// RobotsBlocked counts frontier entries disallowed by robots.txt.
	RobotsBlocked int `json:"robotsBlocked"`

	// Remaining is the frontier size when the run stopped.
	Remaining int `json:"remaining"`

	// MaxDepthSeen is the deepest level of any fetched page.
	MaxDepthSeen int `json:"maxDepthSeen"`
}

// Count is one row of a breakdown table.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CrawlReport aggregates a finished run. It is built once by BuildReport
// and never modified.
type CrawlReport struct {
	Run   RunInfo    `json:"run"`
	Stats CrawlStats `json:"stats"`

	Pages     int `json:"pages"`
	Images    int `json:"images"`
	Videos    int `json:"videos"`
	Documents int `json:"documents"`
	Forms     int `json:"forms"`

	// Downloaded counts images and documents that have a local file.
	Downloaded int `json:"downloaded"`

	// ImagesWithGPS counts downloaded images embedding GPS coordinates.
	ImagesWithGPS int `json:"imagesWithGps"`

	// StructuredDataPages counts pages carrying at least one JSON-LD block.
	StructuredDataPages int `json:"structuredDataPages"`

	ByPageType      []Count `json:"byPageType"`
	ByImageContext  []Count `json:"byImageContext"`
	ByVideoPlatform []Count `json:"byVideoPlatform"`
	BySectionType   []Count `json:"bySectionType"`

	// TrackingTags and SocialProfiles list each integration once for the
	// whole site, sorted by provider or platform.
	TrackingTags   []TrackingTag   `json:"trackingTags"`
	SocialProfiles []SocialProfile `json:"socialProfiles"`
	ContactEmails  []string        `json:"contactEmails"`

	Errors []CrawlError `json:"errors"`
}

// BuildReport folds pages and errors into a CrawlReport.
// Breakdowns are sorted by descending count, then label.
func BuildReport(run RunInfo, stats CrawlStats, pages []*PageRecord, errs []CrawlError) *CrawlReport {
	r := &CrawlReport{
		Run:    run,
		Stats:  stats,
		Pages:  len(pages),
		Errors: make([]CrawlError, len(errs)),
	}
	copy(r.Errors, errs)

	byType := map[string]int{}
	byContext := map[string]int{}
	byPlatform := map[string]int{}
	bySection := map[string]int{}
	tracking := map[TrackingTag]bool{}
	social := map[string]SocialProfile{}
	emails := map[string]bool{}

	for _, p := range pages {
		byType[p.PageType.String()]++
		r.Forms += len(p.Content.Forms)
		if len(p.SEO.StructuredData) > 0 {
			r.StructuredDataPages++
		}
		for _, s := range p.Content.Sections {
			bySection[s.Type.String()]++
		}
		for _, img := range p.Media.Images {
			r.Images++
			byContext[img.Context.String()]++
			if img.LocalPath != "" {
				r.Downloaded++
			}
			if img.EXIF != nil && img.EXIF.HasGPS {
				r.ImagesWithGPS++
			}
		}
		for _, v := range p.Media.Videos {
			r.Videos++
			byPlatform[v.Platform.String()]++
		}
		for _, d := range p.Media.Documents {
			r.Documents++
			if d.LocalPath != "" {
				r.Downloaded++
			}
		}
		for _, t := range p.Integrations.Tracking {
			tracking[t] = true
		}
		for _, sp := range p.Integrations.Social {
			key := sp.Platform + "/" + strings.ToLower(sp.Handle)
			if _, ok := social[key]; !ok {
				social[key] = sp
			}
		}
		for _, e := range p.Integrations.Emails {
			emails[e] = true
		}
	}

	r.ByPageType = SortedCounts(byType)
	r.ByImageContext = SortedCounts(byContext)
	r.ByVideoPlatform = SortedCounts(byPlatform)
	r.BySectionType = SortedCounts(bySection)

	r.TrackingTags = slices.AppendSeq(make([]TrackingTag, 0, len(tracking)), maps.Keys(tracking))
	slices.SortFunc(r.TrackingTags, func(a, b TrackingTag) int {
		return cmp.Or(cmp.Compare(a.Provider, b.Provider), cmp.Compare(a.ID, b.ID))
	})
	r.SocialProfiles = slices.AppendSeq(make([]SocialProfile, 0, len(social)), maps.Values(social))
	slices.SortFunc(r.SocialProfiles, func(a, b SocialProfile) int {
		return cmp.Or(cmp.Compare(a.Platform, b.Platform), cmp.Compare(strings.ToLower(a.Handle), strings.ToLower(b.Handle)))
	})
	r.ContactEmails = slices.Sorted(maps.Keys(emails))
	if r.ContactEmails == nil {
		r.ContactEmails = []string{}
	}

	slices.SortStableFunc(r.Errors, func(a, b CrawlError) int {
		return a.At.Compare(b.At)
	})
	return r
}

// ErrorsByKind returns the number of errors of each kind.
func (r *CrawlReport) ErrorsByKind() map[ErrorKind]int {
	out := make(map[ErrorKind]int)
	for _, e := range r.Errors {
		out[e.Kind]++
	}
	return out
}

// HasErrors returns true if any page or asset failed.
func (r *CrawlReport) HasErrors() bool {
	return len(r.Errors) > 0
}

// SortedCounts turns a label count map into rows sorted by descending
// count, then label.
func SortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for label, n := range m {
		out = append(out, Count{Label: label, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}
