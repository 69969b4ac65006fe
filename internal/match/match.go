// Package match scores search candidates against track descriptors.
//
// Scoring weighs three components: title similarity, artist similarity
// and duration closeness. String similarity uses the Wagner-Fischer edit
// distance normalized to 0-100; the overall score stays in the same
// range so it reads as a confidence percentage:
//
//	ranked := match.Rank(td, candidates)
//	best := ranked[0] // highest score, closest duration on ties
package match

import (
	"sort"
	"strings"
	"time"

	"github.com/xrash/smetrics"

	"github.com/Trevrosa/sptfydl/internal/model"
)

// Component weights, summing to 100.
const (
	titleWeight    = 45
	artistWeight   = 35
	durationWeight = 20
)

// durationTolerance is the difference at which duration closeness
// reaches zero.
const durationTolerance = 10 * time.Second

// Similarity returns a 0-100 similarity between two strings.
//
// Comparison is case-insensitive. Substitutions cost double so that
// rewrites rate worse than insertions, matching how search results
// usually decorate titles rather than change them.
func Similarity(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	distance := smetrics.WagnerFischer(a, b, 1, 1, 2)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	score := 100 - distance*100/maxLen
	if score < 0 {
		return 0
	}
	return score
}

// Score computes the 0-100 match confidence of a candidate for a track.
func Score(track model.TrackDescriptor, cand model.SearchCandidate) int {
	title := titleScore(track, cand)
	artist := artistScore(track, cand)
	duration := durationScore(cand.Duration, track.Duration)

	return (title*titleWeight + artist*artistWeight + duration*durationWeight) / 100
}

// Rank returns the candidates scored and ordered best first: score
// descending, ties broken by duration closeness to the track.
func Rank(track model.TrackDescriptor, cands []model.SearchCandidate) []model.SearchCandidate {
	ranked := make([]model.SearchCandidate, len(cands))
	copy(ranked, cands)

	for i := range ranked {
		ranked[i].Score = Score(track, ranked[i])
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return durationDiff(ranked[i].Duration, track.Duration) < durationDiff(ranked[j].Duration, track.Duration)
	})

	return ranked
}

// titleScore compares the candidate title against the bare track title
// and against the "artists - title" form uploads commonly use.
func titleScore(track model.TrackDescriptor, cand model.SearchCandidate) int {
	score := Similarity(track.Title, cand.Title)
	if s := Similarity(track.Query(), cand.Title); s > score {
		score = s
	}
	return score
}

// artistScore compares the uploader against the joined artists and the
// primary artist alone. "Topic" auto-channels are normalized first.
func artistScore(track model.TrackDescriptor, cand model.SearchCandidate) int {
	uploader := strings.TrimSuffix(strings.TrimSpace(cand.Uploader), " - Topic")

	score := Similarity(uploader, track.JoinedArtists())
	if len(track.Artists) > 0 {
		if s := Similarity(uploader, track.Artists[0].Name); s > score {
			score = s
		}
	}
	return score
}

// durationScore maps the duration difference onto 0-100, hitting zero at
// durationTolerance. Unreported durations score neutrally.
func durationScore(got, want time.Duration) int {
	if got == 0 || want == 0 {
		return 50
	}

	diff := durationDiff(got, want)
	if diff >= durationTolerance {
		return 0
	}
	return int(100 - diff*100/durationTolerance)
}

func durationDiff(a, b time.Duration) time.Duration {
	if a > b {
		return a - b
	}
	return b - a
}
