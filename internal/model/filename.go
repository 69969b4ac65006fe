package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// NameConfig holds output file naming settings.
//
// The FileNameFormat supports placeholders that are replaced with actual
// values:
//   - {artist} - All track artists joined with ", "
//   - {title} - Track title
//   - {album} - Album title
//   - {tracknum} - Track number (2 digits, zero-padded)
//   - {year} - Release year (4 digits)
//
// Example:
//
//	cfg := &NameConfig{FileNameFormat: "{tracknum} {artist} - {title}"}
//	// Results in filenames like "01 The Beatles - Come Together.mp3"
type NameConfig struct {
	// FileNameFormat is the template for output file names,
	// without extension.
	FileNameFormat string
}

// FileName computes the output file name for the track, including ext.
// Invalid filename characters are replaced with underscores.
func (t *TrackDescriptor) FileName(cfg *NameConfig, ext string) string {
	fileName := cfg.FileNameFormat
	fileName = strings.ReplaceAll(fileName, "{year}", t.Year())
	fileName = strings.ReplaceAll(fileName, "{album}", t.AlbumName)
	fileName = strings.ReplaceAll(fileName, "{artist}", t.JoinedArtists())
	fileName = strings.ReplaceAll(fileName, "{title}", t.Title)
	fileName = strings.ReplaceAll(fileName, "{tracknum}", fmt.Sprintf("%02d", t.TrackNumber))
	return sanitizeFileName(fileName) + ext
}

// OutputPath computes the full output path for the track inside dir.
func (t *TrackDescriptor) OutputPath(dir string, cfg *NameConfig, ext string) string {
	fileName := t.FileName(cfg, ext)
	filePath := filepath.Join(dir, fileName)

	// Limit total path length for Windows compatibility (MAX_PATH = 260)
	if len(filePath) >= 260 {
		base := strings.TrimSuffix(fileName, ext)
		maxLen := 11 - len(ext) // Leave room for path separator and extension
		if maxLen > 0 && maxLen < len(base) {
			filePath = filepath.Join(dir, base[:maxLen]+ext)
		}
	}

	return filePath
}

// sanitizeFileName removes or replaces characters that are invalid in
// file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) are replaced with underscore
//   - Trailing dots are removed (Windows limitation)
//   - Multiple whitespace is collapsed to single space
//   - Trailing whitespace is removed
//
// Example:
//
//	sanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
func sanitizeFileName(name string) string {
	// Replace invalid path/file characters
	invalidChars := regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	name = invalidChars.ReplaceAllString(name, "_")

	// Remove trailing dots
	name = regexp.MustCompile(`\.+$`).ReplaceAllString(name, "")

	// Replace multiple whitespace with single space
	name = regexp.MustCompile(`\s+`).ReplaceAllString(name, " ")

	// Remove trailing whitespace
	name = strings.TrimRight(name, " ")

	return name
}
