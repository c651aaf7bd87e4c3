package model

import "time"

// ImageRecord is an image referenced by a page.
type ImageRecord struct {
	// URL is the absolute image URL (src or data-src).
	URL string `json:"url"`
	Alt string `json:"alt"`

	// Context decides the download directory under media/images/.
	Context    ImageContext `json:"context"`
	ParentPage string       `json:"parentPage"`

	// LocalPath is the downloaded file path relative to the output
	// directory. Empty when downloads are disabled or failed.
	LocalPath string `json:"localPath,omitempty"`

	// EXIF is set for downloaded JPEG/TIFF files carrying EXIF data.
	EXIF *EXIFSummary `json:"exif,omitempty"`
}

// VideoRecord is a video embedded in or linked from a page.
// Videos are never downloaded.
type VideoRecord struct {
	// URL is the source URL as found on the page.
	URL        string        `json:"url"`
	Platform   VideoPlatform `json:"platform"`
	ID         string        `json:"id,omitempty"`
	EmbedURL   string        `json:"embedUrl"`
	Title      string        `json:"title,omitempty"`
	ParentPage string        `json:"parentPage"`
}

// DocumentRecord is a downloadable document linked from a page.
type DocumentRecord struct {
	URL string `json:"url"`

	// Title is the anchor text.
	Title string `json:"title"`

	// Extension is the lower-cased file extension including the dot.
	Extension  string `json:"extension"`
	ParentPage string `json:"parentPage"`
	LocalPath  string `json:"localPath,omitempty"`
}

// EXIFSummary is the subset of EXIF tags useful when reviewing migrated images.
type EXIFSummary struct {
	Make     string `json:"make,omitempty"`
	Model    string `json:"model,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	Software string `json:"software,omitempty"`
	Artist   string `json:"artist,omitempty"`

	// HasGPS is true when the file embeds GPS coordinates.
	HasGPS bool `json:"hasGps"`
}

// CrawlError is a per-URL or per-asset failure. Errors never abort a run;
// they are collected and listed in the report.
type CrawlError struct {
	URL     string    `json:"url"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NewCrawlError creates a CrawlError timestamped now.
func NewCrawlError(rawURL string, kind ErrorKind, err error) CrawlError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return CrawlError{URL: rawURL, Kind: kind, Message: msg, At: time.Now()}
}
