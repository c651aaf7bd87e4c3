package model

// unknownStr is the string representation for unknown enum values.
const unknownStr = "unknown"

// PageType is the tag assigned to a page by the ordered page-type rules.
// Rule tables are configurable, so any non-empty string is a valid tag;
// the constants below are the defaults.
type PageType string

// Default page types.
const (
	PageTypeGeneral   PageType = "general"
	PageTypeHome      PageType = "home"
	PageTypeAbout     PageType = "about"
	PageTypeServices  PageType = "services"
	PageTypeBlog      PageType = "blog"
	PageTypeContact   PageType = "contact"
	PageTypeTeam      PageType = "team"
	PageTypeCaseStudy PageType = "case-study"
	PageTypeResource  PageType = "resource"
)

// String returns the tag, or "general" for the empty tag.
func (p PageType) String() string {
	if p == "" {
		return string(PageTypeGeneral)
	}
	return string(p)
}

// ImageContext is where an image is used on a page. It also names the
// directory under media/images/ the file is downloaded to.
type ImageContext string

// Image contexts.
const (
	ImageContextUnknown ImageContext = ""
	// ImageContextLogo is a site or partner logo.
	ImageContextLogo ImageContext = "logos"
	// ImageContextHero is a banner or hero image.
	ImageContextHero ImageContext = "heroes"
	// ImageContextTeam is a staff or team member photo.
	ImageContextTeam ImageContext = "team"
	// ImageContextContent is any other image in the page body.
	ImageContextContent ImageContext = "content"
)

// ImageContexts returns every known image context in directory order.
func ImageContexts() []ImageContext {
	return []ImageContext{ImageContextHero, ImageContextContent, ImageContextLogo, ImageContextTeam}
}

// String returns the string representation of the ImageContext.
func (c ImageContext) String() string {
	if c == ImageContextUnknown {
		return unknownStr
	}
	return string(c)
}

// IsValid returns true if this is a known context.
func (c ImageContext) IsValid() bool {
	switch c {
	case ImageContextLogo, ImageContextHero, ImageContextTeam, ImageContextContent:
		return true
	default:
		return false
	}
}

// ParseImageContext converts a string to ImageContext.
// Singular forms are accepted.
func ParseImageContext(s string) ImageContext {
	switch s {
	case "logos", "logo":
		return ImageContextLogo
	case "heroes", "hero":
		return ImageContextHero
	case "team":
		return ImageContextTeam
	case "content":
		return ImageContextContent
	default:
		return ImageContextUnknown
	}
}

// VideoPlatform is the host of an embedded or linked video.
type VideoPlatform string

// Video platforms.
const (
	VideoPlatformUnknown    VideoPlatform = ""
	VideoPlatformYouTube    VideoPlatform = "youtube"
	VideoPlatformVimeo      VideoPlatform = "vimeo"
	VideoPlatformSelfHosted VideoPlatform = "self-hosted"
)

// String returns the string representation of the VideoPlatform.
func (p VideoPlatform) String() string {
	if p == VideoPlatformUnknown {
		return unknownStr
	}
	return string(p)
}

// IsValid returns true if this is a known platform.
func (p VideoPlatform) IsValid() bool {
	switch p {
	case VideoPlatformYouTube, VideoPlatformVimeo, VideoPlatformSelfHosted:
		return true
	default:
		return false
	}
}

// IsEmbeddable returns true if the platform has a player URL derived from a video ID.
func (p VideoPlatform) IsEmbeddable() bool {
	return p == VideoPlatformYouTube || p == VideoPlatformVimeo
}

// ParseVideoPlatform converts a string to VideoPlatform.
func ParseVideoPlatform(s string) VideoPlatform {
	switch s {
	case "youtube", "youtu.be":
		return VideoPlatformYouTube
	case "vimeo":
		return VideoPlatformVimeo
	case "self-hosted", "selfhosted", "file":
		return VideoPlatformSelfHosted
	default:
		return VideoPlatformUnknown
	}
}

// SectionType classifies a content section.
type SectionType string

// Section types, listed from highest to lowest classification priority.
const (
	SectionTypeGallery     SectionType = "gallery"
	SectionTypeVideo       SectionType = "video"
	SectionTypeForm        SectionType = "form"
	SectionTypeTestimonial SectionType = "testimonial"
	SectionTypeImageText   SectionType = "image-text"
	SectionTypeText        SectionType = "text"
)

// String returns the string representation of the SectionType.
func (s SectionType) String() string {
	if s == "" {
		return string(SectionTypeText)
	}
	return string(s)
}

// IsValid returns true if this is a known section type.
func (s SectionType) IsValid() bool {
	switch s {
	case SectionTypeGallery, SectionTypeVideo, SectionTypeForm,
		SectionTypeTestimonial, SectionTypeImageText, SectionTypeText:
		return true
	default:
		return false
	}
}

// ErrorKind classifies a CrawlError.
type ErrorKind string

// Error kinds.
const (
	// ErrorKindNavigation is a page that could not be loaded or rendered.
	ErrorKindNavigation ErrorKind = "navigation"
	// ErrorKindExtraction is a rendered page whose HTML could not be parsed.
	ErrorKindExtraction ErrorKind = "extraction"
	// ErrorKindDownload is a media file that could not be downloaded.
	ErrorKindDownload ErrorKind = "download"
	// ErrorKindOutput is an artifact that could not be written.
	ErrorKindOutput ErrorKind = "output"
)

// String returns the string representation of the ErrorKind.
func (k ErrorKind) String() string {
	if k == "" {
		return unknownStr
	}
	return string(k)
}
