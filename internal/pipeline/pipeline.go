package pipeline

import (
	"context"

	"github.com/Trevrosa/sptfydl/internal/model"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a pipeline progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Backoff holds retry pacing parameters. The wait before retry n is
// Cooldown * Exponent^(n-1) seconds.
type Backoff struct {
	Cooldown float64
	Exponent float64
}

// Config configures a pipeline run.
type Config struct {
	// Searchers is the search worker pool size.
	Searchers int

	// Downloaders is the download worker pool size.
	Downloaders int

	// SearchRetries is the attempt budget per track search.
	SearchRetries int

	// DownloadRetries is the attempt budget per download.
	DownloadRetries int

	// SearchLimit caps how many candidates a search may return.
	SearchLimit int

	// SearchBackoff paces search retries.
	SearchBackoff Backoff

	// DownloadBackoff paces download retries.
	DownloadBackoff Backoff

	// UseISRC prefixes searches with an ISRC-qualified query when the
	// track carries one, falling back to the plain query once.
	UseISRC bool

	// NoInteraction auto-selects the best candidate instead of
	// prompting.
	NoInteraction bool
}

// withDefaults clamps nonsensical values so a zero-ish Config still
// runs.
func (c Config) withDefaults() Config {
	if c.Searchers < 1 {
		c.Searchers = 1
	}
	if c.Downloaders < 1 {
		c.Downloaders = 1
	}
	if c.SearchRetries < 1 {
		c.SearchRetries = 1
	}
	if c.DownloadRetries < 1 {
		c.DownloadRetries = 1
	}
	if c.SearchLimit < 1 {
		c.SearchLimit = 1
	}
	if c.SearchBackoff.Cooldown <= 0 {
		c.SearchBackoff.Cooldown = 1
	}
	if c.SearchBackoff.Exponent <= 0 {
		c.SearchBackoff.Exponent = 1
	}
	if c.DownloadBackoff.Cooldown <= 0 {
		c.DownloadBackoff.Cooldown = 1
	}
	if c.DownloadBackoff.Exponent <= 0 {
		c.DownloadBackoff.Exponent = 1
	}
	return c
}

// Source is a stream of track descriptors to process.
//
// Tracks is closed by the producer when the stream ends; Err reports
// the reason when it ended early and is only valid after Tracks
// closed.
type Source struct {
	// Name labels the collection, used for the report heading and the
	// failure file name.
	Name string

	// Total is the expected track count, for progress display. Zero
	// when unknown.
	Total int

	// Tracks delivers the descriptors.
	Tracks <-chan model.TrackDescriptor

	// Err reports a stream failure, nil for a clean end.
	Err func() error
}

// Searcher finds download candidates for a query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.SearchCandidate, error)
}

// Downloader fetches the audio for a selection and returns the final
// file path.
type Downloader interface {
	Download(ctx context.Context, sel model.ResolvedSelection) (string, error)
}

// Tagger writes metadata into a downloaded file.
type Tagger interface {
	Tag(ctx context.Context, path string, track model.TrackDescriptor) error
}

// Selector picks one candidate index from a ranked list.
type Selector interface {
	Select(ctx context.Context, track model.TrackDescriptor, candidates []model.SearchCandidate) (int, error)
}
