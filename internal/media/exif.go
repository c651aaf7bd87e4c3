package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	"github.com/nao1215/sitemigrate/internal/model"
)

// maxEXIFFileSize bounds how much of a file is searched for EXIF data.
const maxEXIFFileSize = 32 << 20

// exifExtensions are the formats that carry EXIF blocks.
var exifExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".tif":  {},
	".tiff": {},
}

// SupportsEXIF reports whether the file at path may carry EXIF data.
func SupportsEXIF(path string) bool {
	_, ok := exifExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ReadEXIF summarizes the EXIF tags of the image at path.
// It returns nil without error when the file has no EXIF block.
func ReadEXIF(path string) (*model.EXIFSummary, error) {
	f, err := os.Open(path) //nolint:gosec // path is inside the output directory
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxEXIFFileSize))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return ParseEXIF(data)
}

// ParseEXIF summarizes the EXIF tags found in image data.
func ParseEXIF(data []byte) (*model.EXIFSummary, error) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return nil, nil
		}
		return nil, fmt.Errorf("search EXIF: %w", err)
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil, fmt.Errorf("parse EXIF: %w", err)
	}

	summary := &model.EXIFSummary{}
	for _, entry := range entries {
		value := strings.TrimSpace(strings.Trim(entry.Formatted, "\x00"))
		switch entry.TagName {
		case "Make":
			summary.Make = value
		case "Model":
			summary.Model = value
		case "Software", "ProcessingSoftware":
			if summary.Software == "" {
				summary.Software = value
			}
		case "Artist", "XPAuthor":
			if summary.Artist == "" {
				summary.Artist = value
			}
		case "DateTimeOriginal":
			summary.DateTime = value
		case "DateTime":
			if summary.DateTime == "" {
				summary.DateTime = value
			}
		case "GPSLatitude", "GPSLongitude":
			summary.HasGPS = true
		}
	}
	return summary, nil
}
