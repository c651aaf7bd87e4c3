package database

import (
	"context"
	"fmt"
	"strings"
)

// Comparison is the difference between the page sets of two runs of a site.
type Comparison struct {
	Site     string     `json:"site"`
	Previous RunSummary `json:"previous"`
	Current  RunSummary `json:"current"`

	// Added holds pages of the current run missing from the previous one.
	Added []PageSnapshot `json:"added"`

	// Removed holds pages of the previous run missing from the current one.
	Removed []PageSnapshot `json:"removed"`

	// Retitled holds pages present in both runs whose title changed.
	Retitled []TitleChange `json:"retitled"`

	// Changed holds pages present in both runs whose rendered HTML changed.
	Changed []PageSnapshot `json:"changed"`
}

// TitleChange is a page whose title differs between two runs.
type TitleChange struct {
	URL      string `json:"url"`
	OldTitle string `json:"oldTitle"`
	NewTitle string `json:"newTitle"`
}

// HasChanges returns true if the two runs differ.
func (c *Comparison) HasChanges() bool {
	return len(c.Added)+len(c.Removed)+len(c.Retitled)+len(c.Changed) > 0
}

// CompareLatest compares the two most recent runs of a site.
// It returns ErrNotEnoughRuns when fewer than two runs are stored.
func (cdb *CrawlDB) CompareLatest(ctx context.Context, site string) (*Comparison, error) {
	runs, err := cdb.ListRuns(ctx, site)
	if err != nil {
		return nil, err
	}
	if len(runs) < 2 {
		return nil, fmt.Errorf("%w: %s has %d run(s)", ErrNotEnoughRuns, site, len(runs))
	}

	return cdb.CompareRuns(ctx, runs[1], runs[0])
}

// CompareRuns diffs the pages of two runs.
func (cdb *CrawlDB) CompareRuns(ctx context.Context, previous, current RunSummary) (*Comparison, error) {
	oldPages, err := cdb.GetRunPages(ctx, previous.ID)
	if err != nil {
		return nil, err
	}
	newPages, err := cdb.GetRunPages(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	c := &Comparison{
		Site:     strings.ToLower(current.Site),
		Previous: previous,
		Current:  current,
	}

	old := make(map[string]PageSnapshot, len(oldPages))
	for _, p := range oldPages {
		old[p.URL] = p
	}
	seen := make(map[string]bool, len(newPages))

	for _, p := range newPages {
		seen[p.URL] = true
		prev, ok := old[p.URL]
		if !ok {
			c.Added = append(c.Added, p)
			continue
		}
		if prev.Title != p.Title {
			c.Retitled = append(c.Retitled, TitleChange{URL: p.URL, OldTitle: prev.Title, NewTitle: p.Title})
		}
		if prev.ContentHash != "" && p.ContentHash != "" && prev.ContentHash != p.ContentHash {
			c.Changed = append(c.Changed, p)
		}
	}
	for _, p := range oldPages {
		if !seen[p.URL] {
			c.Removed = append(c.Removed, p)
		}
	}

	return c, nil
}
