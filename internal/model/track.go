package model

import (
	"fmt"
	"strings"
	"time"
)

// Artist is one performing artist on a track.
type Artist struct {
	// Name is the artist display name.
	Name string

	// Genres lists the genres Spotify attributes to the artist.
	// May be empty; Spotify only exposes genres per artist, not per track.
	Genres []string
}

// TrackDescriptor describes a single Spotify track to search for and
// download.
//
// A descriptor contains:
//   - Identity (Spotify ID, position in the source collection)
//   - Display metadata (title, artists, album)
//   - Tagging metadata (track/disc numbers, release date, ISRC, genres)
//   - The cover art URL for embedding
//
// Descriptors are produced by the resolver and are immutable afterwards;
// the pipeline copies them by value.
type TrackDescriptor struct {
	// Index is the zero-based position of the track in the source
	// collection. It fixes the ordering of the final report.
	Index int

	// ID is the Spotify track ID.
	ID string

	// Title is the track title.
	Title string

	// Artists lists the performing artists in Spotify's order.
	// Always has at least one entry for a valid descriptor.
	Artists []Artist

	// AlbumName is the title of the album the track appears on.
	AlbumName string

	// AlbumArtists lists the album-level artist names.
	AlbumArtists []string

	// ISRC is the International Standard Recording Code, if Spotify
	// reports one. Empty otherwise.
	ISRC string

	// Duration is the track length as reported by Spotify.
	Duration time.Duration

	// TrackNumber is the 1-indexed position on the disc.
	TrackNumber int

	// DiscNumber is the 1-indexed disc, usually 1.
	DiscNumber int

	// ReleaseDate is the album release date as reported by Spotify,
	// either "2006-01-02", "2006-01" or just "2006".
	ReleaseDate string

	// Explicit marks tracks flagged as explicit.
	Explicit bool

	// CoverURL is the URL of the largest album cover image.
	// Empty string means no artwork is available.
	CoverURL string
}

// ArtistNames returns the artist names in order.
func (t *TrackDescriptor) ArtistNames() []string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return names
}

// JoinedArtists returns all artist names joined with ", ".
func (t *TrackDescriptor) JoinedArtists() string {
	return strings.Join(t.ArtistNames(), ", ")
}

// Genres returns the deduplicated genres of all artists, in artist order.
func (t *TrackDescriptor) Genres() []string {
	var genres []string
	seen := make(map[string]struct{})
	for _, a := range t.Artists {
		for _, g := range a.Genres {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			genres = append(genres, g)
		}
	}
	return genres
}

// Year returns the four digit release year, or "" when the release date
// is missing or malformed.
func (t *TrackDescriptor) Year() string {
	if len(t.ReleaseDate) < 4 {
		return ""
	}
	year := t.ReleaseDate[:4]
	for _, r := range year {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return year
}

// Query returns the generic search query for the track,
// "Artist A, Artist B - Title".
func (t *TrackDescriptor) Query() string {
	return fmt.Sprintf("%s - %s", t.JoinedArtists(), t.Title)
}

// String implements fmt.Stringer and matches Query.
func (t *TrackDescriptor) String() string {
	return t.Query()
}

// HasArtwork returns true if the track has cover art available for download.
func (t *TrackDescriptor) HasArtwork() bool {
	return t.CoverURL != ""
}
