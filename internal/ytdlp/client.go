package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	ioutils "github.com/Trevrosa/sptfydl/internal/io"
	"github.com/Trevrosa/sptfydl/internal/model"
)

// EnsureInstalled makes sure a yt-dlp binary is available, downloading a
// release on first use. Must be called once before any Client method.
func EnsureInstalled(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	return nil
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Dir is the output directory for downloads.
	Dir string

	// Format is the requested audio format.
	Format model.Format

	// Names controls final file naming.
	Names *model.NameConfig

	// ExtraArgs are passed to yt-dlp verbatim on downloads, for
	// cookies, proxies, rate limits and the like.
	ExtraArgs []string

	// ShowOutput mirrors captured yt-dlp output to stderr.
	ShowOutput bool
}

// Client invokes yt-dlp for candidate searches and audio downloads.
type Client struct {
	cfg ClientConfig
	log *zap.Logger
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	return &Client{cfg: cfg, log: log}
}

// Search runs a ytsearch query and returns the unscored candidates.
// An empty result with a nil error means the query found nothing.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]model.SearchCandidate, error) {
	if limit <= 0 {
		limit = 1
	}

	c.log.Debug("searching", zap.String("query", query), zap.Int("limit", limit))

	dl := ytdlp.New().
		SkipDownload().
		FlatPlaylist().
		DumpSingleJSON().
		NoWarnings()

	result, err := dl.Run(ctx, fmt.Sprintf("ytsearch%d:%s", limit, query))
	c.echo(result, false) // stdout is the JSON payload, keep it quiet
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search: %w", err)
	}

	infos, err := result.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parse search output: %w", err)
	}

	var cands []model.SearchCandidate
	for _, entry := range collectEntries(infos) {
		if cand, ok := candidateFromEntry(entry); ok {
			cands = append(cands, cand)
		}
	}

	c.log.Debug("search finished", zap.String("query", query), zap.Int("results", len(cands)))
	return cands, nil
}

// Download fetches the audio for the selection into the output
// directory and returns the final file path.
//
// The file is written under a hidden staging name first and renamed to
// its template-derived name only after yt-dlp finished, so aborted
// downloads never leave half-written files under their final name.
func (c *Client) Download(ctx context.Context, sel model.ResolvedSelection) (string, error) {
	if err := ioutils.EnsureDir(c.cfg.Dir); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	staging := "." + uuid.New().String()

	dl := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		Format("ba").
		Output(filepath.Join(c.cfg.Dir, staging+".%(ext)s"))

	switch c.cfg.Format {
	case model.FormatMP3:
		dl = dl.ExtractAudio().AudioFormat("mp3").AudioQuality("0")
	case model.FormatFLAC:
		dl = dl.ExtractAudio().AudioFormat("flac")
	}

	track := sel.Track.String()
	dl.ProgressFunc(time.Second, func(update ytdlp.ProgressUpdate) {
		if update.TotalBytes > 0 {
			percent := float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100
			c.log.Debug("downloading", zap.String("track", track), zap.Int("percent", int(percent)))
		}
	})

	args := append(append([]string{}, c.cfg.ExtraArgs...), sel.Candidate.URL)
	result, err := dl.Run(ctx, args...)
	c.echo(result, true)
	if err != nil {
		c.cleanupStaging(staging)
		return "", fmt.Errorf("yt-dlp: %w", err)
	}

	staged, err := c.locateStaged(staging)
	if err != nil {
		return "", err
	}

	final := sel.Track.OutputPath(c.cfg.Dir, c.cfg.Names, filepath.Ext(staged))
	if err := os.Rename(staged, final); err != nil {
		c.cleanupStaging(staging)
		return "", fmt.Errorf("rename download: %w", err)
	}

	c.log.Debug("downloaded", zap.String("track", track), zap.String("path", final))
	return final, nil
}

// stagedFiles lists the files produced under a staging prefix.
// Directory listing instead of globbing keeps unusual characters in the
// output directory harmless.
func (c *Client) stagedFiles(staging string) []string {
	entries, err := os.ReadDir(c.cfg.Dir)
	if err != nil {
		return nil
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), staging+".") {
			paths = append(paths, filepath.Join(c.cfg.Dir, entry.Name()))
		}
	}
	return paths
}

// locateStaged finds the file a finished download produced.
func (c *Client) locateStaged(staging string) (string, error) {
	matches := c.stagedFiles(staging)
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("yt-dlp reported success but produced no file")
	case 1:
		return matches[0], nil
	}

	// Prefer the requested container when a source file was left behind
	if ext := c.cfg.Format.Extension(); ext != "" {
		for _, m := range matches {
			if filepath.Ext(m) == ext {
				return m, nil
			}
		}
	}

	sort.Strings(matches)
	return matches[0], nil
}

// cleanupStaging removes leftover staging files after a failed attempt.
func (c *Client) cleanupStaging(staging string) {
	for _, path := range c.stagedFiles(staging) {
		if err := os.Remove(path); err != nil {
			c.log.Debug("could not remove staging file", zap.String("path", path), zap.Error(err))
		}
	}
}

// echo mirrors captured tool output to stderr when enabled.
func (c *Client) echo(result *ytdlp.Result, includeStdout bool) {
	if !c.cfg.ShowOutput || result == nil {
		return
	}
	if includeStdout {
		if s := strings.TrimSpace(result.Stdout); s != "" {
			fmt.Fprintln(os.Stderr, s)
		}
	}
	if s := strings.TrimSpace(result.Stderr); s != "" {
		fmt.Fprintln(os.Stderr, s)
	}
}

// collectEntries flattens extracted info into result entries. A search
// comes back as one playlist whose Entries are the hits; a plain video
// stands for itself.
func collectEntries(infos []*ytdlp.ExtractedInfo) []*ytdlp.ExtractedInfo {
	var entries []*ytdlp.ExtractedInfo
	for _, info := range infos {
		if info == nil {
			continue
		}
		if len(info.Entries) > 0 {
			entries = append(entries, info.Entries...)
			continue
		}
		entries = append(entries, info)
	}
	return entries
}

// candidateFromEntry converts one extracted entry into a candidate.
// Entries without an ID are dropped.
func candidateFromEntry(entry *ytdlp.ExtractedInfo) (model.SearchCandidate, bool) {
	if entry == nil || entry.ID == "" {
		return model.SearchCandidate{}, false
	}

	cand := model.SearchCandidate{ID: entry.ID}

	if entry.Title != nil {
		cand.Title = *entry.Title
	}

	switch {
	case entry.WebpageURL != nil && *entry.WebpageURL != "":
		cand.URL = *entry.WebpageURL
	case entry.URL != nil && *entry.URL != "":
		cand.URL = *entry.URL
	default:
		cand.URL = "https://www.youtube.com/watch?v=" + entry.ID
	}

	switch {
	case entry.Uploader != nil && *entry.Uploader != "":
		cand.Uploader = *entry.Uploader
	case entry.Channel != nil:
		cand.Uploader = *entry.Channel
	}

	if entry.Duration != nil {
		cand.Duration = time.Duration(*entry.Duration * float64(time.Second))
	}

	return cand, true
}
