package media

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nao1215/sitemigrate/internal/model"
	"golang.org/x/crypto/sha3"
)

// Bundle directories and files, relative to the output directory.
const (
	PagesDir          = "pages"
	ImagesDir         = "media/images"
	VideosDir         = "media/videos"
	DocumentsDir      = "media/documents"
	VideoInventory    = "media/videos/video-inventory.json"
	SiteStructureFile = "site-structure.json"
	NavigationMapFile = "navigation-map.json"
	URLMappingFile    = "url-mapping.csv"
	ReportFile        = "migration-report.md"
)

// maxBaseName bounds the readable part of a generated file name.
const maxBaseName = 80

// Layout resolves bundle paths under Root.
type Layout struct {
	Root string
}

// NewLayout creates a Layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// Dirs returns every bundle directory, relative to Root.
func Dirs() []string {
	dirs := []string{PagesDir, VideosDir, DocumentsDir}
	for _, c := range model.ImageContexts() {
		dirs = append(dirs, ImageDir(c))
	}
	return dirs
}

// Prepare creates the directory tree.
func (l Layout) Prepare() error {
	for _, dir := range Dirs() {
		if err := os.MkdirAll(l.Abs(dir), 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Abs joins a bundle-relative path onto Root.
func (l Layout) Abs(rel string) string {
	return filepath.Join(l.Root, filepath.FromSlash(rel))
}

// PagePath returns the relative path of a page's JSON file.
func PagePath(slug string) string {
	return path.Join(PagesDir, slug+".json")
}

// ImageDir returns the directory of images with the given context.
// Unknown contexts go to content.
func ImageDir(c model.ImageContext) string {
	if !c.IsValid() {
		c = model.ImageContextContent
	}
	return path.Join(ImagesDir, c.String())
}

// ImagePath returns the relative path an image is saved to.
func ImagePath(img model.ImageRecord) string {
	return path.Join(ImageDir(img.Context), FileName(img.URL))
}

// DocumentPath returns the relative path a document is saved to.
func DocumentPath(doc model.DocumentRecord) string {
	return path.Join(DocumentsDir, FileName(doc.URL))
}

// FileName derives a file name from rawURL: the sanitized base name of
// the path followed by eight hex digits of the URL's SHA3-256 digest.
func FileName(rawURL string) string {
	base := "file"
	if u, err := url.Parse(rawURL); err == nil {
		if b := path.Base(u.Path); b != "/" && b != "." {
			base = b
		}
	}

	ext := sanitize(strings.ToLower(path.Ext(base)))
	if ext != "" {
		ext = "." + ext
	}
	stem := sanitize(strings.TrimSuffix(base, path.Ext(base)))
	if stem == "" {
		stem = "file"
	}
	if len(stem) > maxBaseName {
		stem = stem[:maxBaseName]
	}

	sum := sha3.Sum256([]byte(rawURL))
	return stem + "-" + hex.EncodeToString(sum[:4]) + ext
}

// sanitize keeps letters, digits, dots, dashes and underscores.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
