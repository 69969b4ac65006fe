package model

import (
	"fmt"
	"strings"
)

// Format represents the requested audio output format.
type Format string

const (
	// FormatMP3 re-encodes the downloaded audio to MP3 (highest VBR quality).
	FormatMP3 Format = "mp3"

	// FormatFLAC re-encodes the downloaded audio to FLAC.
	FormatFLAC Format = "flac"

	// FormatOriginal keeps whatever container the source served.
	FormatOriginal Format = "original"
)

// ParseFormat parses a format name as accepted by the --format flag.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatMP3, FormatFLAC, FormatOriginal:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q, expected mp3, flac or original", s)
	}
}

// Extension returns the file extension the format produces, including the
// dot. FormatOriginal returns "" because the container is only known once
// the download finished.
func (f Format) Extension() string {
	switch f {
	case FormatMP3:
		return ".mp3"
	case FormatFLAC:
		return ".flac"
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return string(f)
}
