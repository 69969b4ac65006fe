package model

import "time"

// SearchCandidate is one search result considered for a track.
//
// Candidates are produced unscored by the search tool and scored by the
// matcher against the descriptor they were found for. Higher scores mean
// a closer match; the score range is 0 to 100.
type SearchCandidate struct {
	// ID is the source video identifier.
	ID string

	// URL is the watch page URL used for the actual download.
	URL string

	// Title is the result title as reported by the source.
	Title string

	// Uploader is the channel or artist that published the result.
	Uploader string

	// Duration is the result length. Zero when the source did not
	// report one.
	Duration time.Duration

	// Score is the 0-100 match confidence against the descriptor the
	// candidate was found for. Zero until scored.
	Score int
}

// ResolvedSelection pairs a descriptor with the one candidate accepted
// for download. At most one selection exists per descriptor.
type ResolvedSelection struct {
	Track     TrackDescriptor
	Candidate SearchCandidate
}
