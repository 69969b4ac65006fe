package audio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Trevrosa/sptfydl/internal/model"
)

// PlaylistFormat represents supported playlist file formats.
//
// Each format has different features and compatibility:
//   - M3U: Simple text format, widely supported
//   - PLS: INI-style format, used by Winamp
//   - WPL: XML format, Windows Media Player
//   - ZPL: XML format, Zune/Groove Music
type PlaylistFormat int

const (
	// FormatM3U creates .m3u files (most compatible).
	// Can be extended with EXTINF lines for duration/title info.
	FormatM3U PlaylistFormat = iota

	// FormatPLS creates .pls files (Winamp/SHOUTcast format).
	// INI-style format with file, title, and length info.
	FormatPLS

	// FormatWPL creates .wpl files (Windows Media Player).
	// XML-based SMIL format.
	FormatWPL

	// FormatZPL creates .zpl files (Zune/Groove Music).
	// XML-based SMIL format with extended metadata.
	FormatZPL
)

// ParsePlaylistFormat maps a configuration string to a format.
// Unknown values fall back to M3U.
func ParsePlaylistFormat(s string) PlaylistFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pls":
		return FormatPLS
	case "wpl":
		return FormatWPL
	case "zpl":
		return FormatZPL
	default:
		return FormatM3U
	}
}

// Extension returns the file extension for the format, with dot.
func (f PlaylistFormat) Extension() string {
	switch f {
	case FormatPLS:
		return ".pls"
	case FormatWPL:
		return ".wpl"
	case FormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

// PlaylistEntry is one downloaded file in a playlist.
type PlaylistEntry struct {
	// Path is the location of the audio file. Only its base name ends
	// up in the playlist, which is expected to sit in the same
	// directory as the files.
	Path string

	// Track supplies titles, artists and durations.
	Track model.TrackDescriptor
}

// PlaylistCreator generates playlist files in various formats.
//
// Example:
//
//	creator := NewPlaylistCreator(FormatM3U, true)
//	content := creator.CreatePlaylist("Liked Songs", entries)
//	os.WriteFile(path, []byte(content), 0644)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:180,Artist - Song Title
//	// Artist - Song Title.mp3
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool // For M3U: include EXTINF lines with duration/title
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// Parameters:
//   - format: The playlist format to generate
//   - extended: For M3U format, whether to include #EXTINF lines
//     (ignored for other formats)
func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// CreatePlaylist generates playlist content for a downloaded
// collection. Entries are written in the given order.
//
// Returns the playlist as a string, ready to be written to a file.
func (p *PlaylistCreator) CreatePlaylist(name string, entries []PlaylistEntry) string {
	switch p.format {
	case FormatM3U:
		return p.createM3U(entries)
	case FormatPLS:
		return p.createPLS(entries)
	case FormatWPL:
		return p.createWPL(name, entries)
	case FormatZPL:
		return p.createZPL(name, entries)
	default:
		return p.createM3U(entries)
	}
}

// createM3U generates an M3U playlist.
//
// Standard M3U format:
//
//	filename1.mp3
//	filename2.mp3
//
// Extended M3U format (when extended=true):
//
//	#EXTM3U
//	#EXTINF:180,Artist - Title
//	filename1.mp3
func (p *PlaylistCreator) createM3U(entries []PlaylistEntry) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, entry := range entries {
		if p.extended {
			seconds := int(entry.Track.Duration.Seconds())
			sb.WriteString(fmt.Sprintf("#EXTINF:%d,%s\n", seconds, entry.Track.Query()))
		}
		sb.WriteString(filepath.Base(entry.Path) + "\n")
	}

	return sb.String()
}

// createPLS generates a PLS playlist.
//
// PLS format is an INI-style text file:
//
//	[playlist]
//	File1=filename1.mp3
//	Title1=Song Title
//	Length1=180
//	NumberOfEntries=2
//	Version=2
func (p *PlaylistCreator) createPLS(entries []PlaylistEntry) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")

	for i, entry := range entries {
		idx := i + 1
		sb.WriteString(fmt.Sprintf("File%d=%s\n", idx, filepath.Base(entry.Path)))
		sb.WriteString(fmt.Sprintf("Title%d=%s\n", idx, entry.Track.Title))
		sb.WriteString(fmt.Sprintf("Length%d=%d\n", idx, int(entry.Track.Duration.Seconds())))
	}

	sb.WriteString(fmt.Sprintf("NumberOfEntries=%d\n", len(entries)))
	sb.WriteString("Version=2\n")

	return sb.String()
}

// createWPL generates a Windows Media Player playlist.
//
// WPL is an XML-based SMIL format used by Windows Media Player.
func (p *PlaylistCreator) createWPL(name string, entries []PlaylistEntry) string {
	var sb strings.Builder

	sb.WriteString("<?wpl version=\"1.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(name)))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, entry := range entries {
		sb.WriteString(fmt.Sprintf("      <media src=\"%s\"/>\n", escapeXML(filepath.Base(entry.Path))))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// createZPL generates a Zune/Groove Music playlist.
//
// ZPL is similar to WPL but includes additional metadata attributes
// like album title, artist, and track duration.
func (p *PlaylistCreator) createZPL(name string, entries []PlaylistEntry) string {
	var sb strings.Builder

	sb.WriteString("<?zpl version=\"2.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(name)))
	sb.WriteString("    <meta name=\"Generator\" content=\"sptfydl\"/>\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(entries)))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, entry := range entries {
		track := entry.Track
		sb.WriteString(fmt.Sprintf("      <media src=\"%s\" albumTitle=\"%s\" albumArtist=\"%s\" trackTitle=\"%s\" trackArtist=\"%s\" duration=\"%d\"/>\n",
			escapeXML(filepath.Base(entry.Path)),
			escapeXML(track.AlbumName),
			escapeXML(strings.Join(track.AlbumArtists, ", ")),
			escapeXML(track.Title),
			escapeXML(track.JoinedArtists()),
			track.Duration.Milliseconds()))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// escapeXML escapes special XML characters in a string.
//
// Replaces: & < > " '
// With:     &amp; &lt; &gt; &quot; &apos;
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
