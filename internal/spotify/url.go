package spotify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// LinkKind is the kind of Spotify URL the resolver accepts.
type LinkKind string

const (
	// KindTrack is a single track link.
	KindTrack LinkKind = "track"

	// KindAlbum is an album link.
	KindAlbum LinkKind = "album"

	// KindPlaylist is a playlist link.
	KindPlaylist LinkKind = "playlist"
)

var (
	// ErrInvalidURL marks input that is not a Spotify URL at all.
	ErrInvalidURL = errors.New("invalid Spotify URL")

	// ErrUnsupportedKind marks Spotify URLs that point at something
	// other than a track, album or playlist.
	ErrUnsupportedKind = errors.New("unsupported Spotify URL kind")
)

// ParseLink extracts the kind and ID from a Spotify URL.
//
// Accepted are URLs whose host is spotify.com or a subdomain of it and
// whose path looks like /track/<id>, /album/<id> or /playlist/<id>.
// The locale prefix open.spotify.com sometimes inserts (/intl-de/...)
// is tolerated. Query parameters such as ?si= are ignored.
func ParseLink(raw string) (LinkKind, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := strings.ToLower(u.Hostname())
	if host != "spotify.com" && !strings.HasSuffix(host, ".spotify.com") {
		return "", "", fmt.Errorf("%w: host %q", ErrInvalidURL, u.Hostname())
	}

	segments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) < 2 || segments[1] == "" {
		return "", "", fmt.Errorf("%w: missing id", ErrInvalidURL)
	}

	switch kind := LinkKind(segments[0]); kind {
	case KindTrack, KindAlbum, KindPlaylist:
		return kind, segments[1], nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedKind, segments[0])
	}
}
