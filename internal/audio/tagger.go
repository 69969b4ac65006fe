package audio

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Trevrosa/sptfydl/internal/http"
	ioutils "github.com/Trevrosa/sptfydl/internal/io"
	"github.com/Trevrosa/sptfydl/internal/model"
)

// Config holds tagging configuration.
type Config struct {
	// EmbedCoverArt controls whether album art is embedded.
	EmbedCoverArt bool

	// CoverArtResize controls whether the art is downscaled first.
	CoverArtResize bool

	// CoverArtMaxSize is the longest allowed edge in pixels when
	// resizing is enabled.
	CoverArtMaxSize int
}

// Tagger writes metadata into downloaded audio files.
//
// MP3 files get ID3v2 frames, FLAC files get a Vorbis comment block and
// an embedded picture. Other containers are left untouched.
//
// Example:
//
//	tagger := NewTagger(cfg, httpClient, logger)
//	if err := tagger.Tag(ctx, path, track); err != nil {
//	    log.Warn("tagging failed", zap.Error(err))
//	}
type Tagger struct {
	cfg    Config
	client *http.Client
	images *ioutils.ImageService
	log    *zap.Logger

	// Tracks of one album share a cover URL, so fetched art is cached
	// across concurrent Tag calls.
	mu  sync.Mutex
	art map[string][]byte
}

// NewTagger creates a Tagger.
func NewTagger(cfg Config, client *http.Client, log *zap.Logger) *Tagger {
	return &Tagger{
		cfg:    cfg,
		client: client,
		images: ioutils.NewImageService(),
		log:    log,
		art:    make(map[string][]byte),
	}
}

// Taggable reports whether a file's container supports tags.
func Taggable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".flac":
		return true
	}
	return false
}

// Tag writes the track's metadata into the file at path.
//
// Files in containers without tag support are skipped with a nil
// error. Cover art problems degrade to tagging without art; only a
// failed tag write is returned as an error.
func (t *Tagger) Tag(ctx context.Context, path string, track model.TrackDescriptor) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return t.tagMP3(ctx, path, track)
	case ".flac":
		return t.tagFLAC(ctx, path, track)
	}

	t.log.Debug("skipping tags for unsupported container", zap.String("path", path))
	return nil
}

// artwork fetches and prepares cover art for embedding, or nil when art
// is disabled, absent or unusable.
func (t *Tagger) artwork(ctx context.Context, track model.TrackDescriptor) []byte {
	if !t.cfg.EmbedCoverArt || !track.HasArtwork() {
		return nil
	}

	t.mu.Lock()
	cached, ok := t.art[track.CoverURL]
	t.mu.Unlock()
	if ok {
		return cached
	}

	data, err := t.client.DownloadBytes(ctx, track.CoverURL)
	if err != nil {
		t.log.Warn("could not fetch cover art", zap.String("url", track.CoverURL), zap.Error(err))
		return nil
	}

	if t.cfg.CoverArtResize {
		data, err = t.images.ResizeImage(ctx, data, t.cfg.CoverArtMaxSize)
	} else {
		data, err = t.images.ConvertToJPEG(ctx, data)
	}
	if err != nil {
		t.log.Warn("could not prepare cover art", zap.String("url", track.CoverURL), zap.Error(err))
		return nil
	}

	t.mu.Lock()
	t.art[track.CoverURL] = data
	t.mu.Unlock()

	return data
}
