package media

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/nao1215/sitemigrate/internal/model"
)

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		pattern string
	}{
		{name: "keeps base name", url: "https://example.com/img/logo.png", pattern: `^logo-[0-9a-f]{8}\.png$`},
		{name: "lower-cases extension", url: "https://example.com/files/Report.PDF", pattern: `^Report-[0-9a-f]{8}\.pdf$`},
		{name: "drops query", url: "https://example.com/a/photo.jpg?w=800", pattern: `^photo-[0-9a-f]{8}\.jpg$`},
		{name: "sanitizes", url: "https://example.com/a/my%20photo(1).jpeg", pattern: `^my_photo_1-[0-9a-f]{8}\.jpeg$`},
		{name: "no base name", url: "https://example.com/", pattern: `^file-[0-9a-f]{8}$`},
		{name: "malformed", url: "::", pattern: `^file-[0-9a-f]{8}$`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FileName(tt.url)
			if !regexp.MustCompile(tt.pattern).MatchString(got) {
				t.Errorf("FileName(%q) = %q, want match for %s", tt.url, got, tt.pattern)
			}
		})
	}

	t.Run("same base name from different URLs", func(t *testing.T) {
		t.Parallel()
		a := FileName("https://example.com/a/logo.png")
		b := FileName("https://example.com/b/logo.png")
		if a == b {
			t.Errorf("expected distinct names, both %q", a)
		}
		if FileName("https://example.com/a/logo.png") != a {
			t.Error("expected FileName to be deterministic")
		}
	})

	t.Run("long names are truncated", func(t *testing.T) {
		t.Parallel()
		got := FileName("https://example.com/" + strings.Repeat("x", 300) + ".png")
		if len(got) > maxBaseName+len("-12345678.png") {
			t.Errorf("name too long: %d", len(got))
		}
	})
}

func TestImagePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		context model.ImageContext
		dir     string
	}{
		{context: model.ImageContextLogo, dir: "media/images/logos/"},
		{context: model.ImageContextHero, dir: "media/images/heroes/"},
		{context: model.ImageContextTeam, dir: "media/images/team/"},
		{context: model.ImageContextContent, dir: "media/images/content/"},
		{context: model.ImageContextUnknown, dir: "media/images/content/"},
	}

	for _, tt := range tests {
		t.Run(string(tt.context), func(t *testing.T) {
			t.Parallel()
			got := ImagePath(model.ImageRecord{URL: "https://example.com/logo.png", Context: tt.context})
			if !strings.HasPrefix(got, tt.dir) {
				t.Errorf("expected %q under %q", got, tt.dir)
			}
		})
	}

	if got := DocumentPath(model.DocumentRecord{URL: "https://example.com/a.pdf"}); !strings.HasPrefix(got, "media/documents/a-") {
		t.Errorf("unexpected document path %q", got)
	}
	if got := PagePath("about"); got != "pages/about.json" {
		t.Errorf("unexpected page path %q", got)
	}
}

func TestLayoutPrepare(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "out")
	layout := NewLayout(root)
	if err := layout.Prepare(); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	for _, dir := range []string{
		"pages",
		"media/images/heroes",
		"media/images/content",
		"media/images/logos",
		"media/images/team",
		"media/videos",
		"media/documents",
	} {
		info, err := os.Stat(layout.Abs(dir))
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", dir)
		}
	}

	t.Run("root is a file", func(t *testing.T) {
		t.Parallel()
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		if err := NewLayout(file).Prepare(); err == nil {
			t.Error("expected error when root is a file")
		}
	})
}
