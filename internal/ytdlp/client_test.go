package ytdlp

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/Trevrosa/sptfydl/internal/model"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func newTestClient(t *testing.T, format model.Format) *Client {
	t.Helper()
	return NewClient(ClientConfig{Dir: t.TempDir(), Format: format}, zap.NewNop())
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLocateStaged_SingleFile(t *testing.T) {
	c := newTestClient(t, model.FormatMP3)
	want := filepath.Join(c.cfg.Dir, ".staging123.mp3")
	touch(t, want)
	touch(t, filepath.Join(c.cfg.Dir, "unrelated.mp3"))

	got, err := c.locateStaged(".staging123")
	if err != nil {
		t.Fatalf("locateStaged() error = %v", err)
	}
	if got != want {
		t.Errorf("locateStaged() = %q, want %q", got, want)
	}
}

func TestLocateStaged_PrefersRequestedFormat(t *testing.T) {
	c := newTestClient(t, model.FormatMP3)
	touch(t, filepath.Join(c.cfg.Dir, ".staging123.webm"))
	want := filepath.Join(c.cfg.Dir, ".staging123.mp3")
	touch(t, want)

	got, err := c.locateStaged(".staging123")
	if err != nil {
		t.Fatalf("locateStaged() error = %v", err)
	}
	if got != want {
		t.Errorf("locateStaged() = %q, want %q", got, want)
	}
}

func TestLocateStaged_NoFile(t *testing.T) {
	c := newTestClient(t, model.FormatMP3)
	if _, err := c.locateStaged(".staging123"); err == nil {
		t.Error("locateStaged() expected an error when no file was produced")
	}
}

func TestCleanupStaging(t *testing.T) {
	c := newTestClient(t, model.FormatMP3)
	staged := filepath.Join(c.cfg.Dir, ".staging123.part")
	touch(t, staged)
	keep := filepath.Join(c.cfg.Dir, "keep.mp3")
	touch(t, keep)

	c.cleanupStaging(".staging123")

	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Errorf("staging file still exists, stat error = %v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("unrelated file was removed: %v", err)
	}
}

func TestCandidateFromEntry(t *testing.T) {
	entry := &ytdlp.ExtractedInfo{
		ID:         "dQw4w9WgXcQ",
		Title:      strPtr("Song Title"),
		Uploader:   strPtr("Some Artist"),
		WebpageURL: strPtr("https://www.youtube.com/watch?v=dQw4w9WgXcQ"),
		Duration:   floatPtr(212.5),
	}

	cand, ok := candidateFromEntry(entry)
	if !ok {
		t.Fatal("candidateFromEntry() dropped a valid entry")
	}
	if cand.ID != "dQw4w9WgXcQ" {
		t.Errorf("ID = %q, want %q", cand.ID, "dQw4w9WgXcQ")
	}
	if cand.Title != "Song Title" {
		t.Errorf("Title = %q, want %q", cand.Title, "Song Title")
	}
	if cand.Uploader != "Some Artist" {
		t.Errorf("Uploader = %q, want %q", cand.Uploader, "Some Artist")
	}
	if cand.URL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("URL = %q", cand.URL)
	}
	if cand.Duration != 212500*time.Millisecond {
		t.Errorf("Duration = %v, want 3m32.5s", cand.Duration)
	}
}

func TestCandidateFromEntry_URLFallback(t *testing.T) {
	cand, ok := candidateFromEntry(&ytdlp.ExtractedInfo{ID: "abc123"})
	if !ok {
		t.Fatal("candidateFromEntry() dropped a valid entry")
	}
	want := "https://www.youtube.com/watch?v=abc123"
	if cand.URL != want {
		t.Errorf("URL = %q, want %q", cand.URL, want)
	}
}

func TestCandidateFromEntry_ChannelAsUploader(t *testing.T) {
	entry := &ytdlp.ExtractedInfo{
		ID:      "abc123",
		Channel: strPtr("Artist - Topic"),
	}

	cand, ok := candidateFromEntry(entry)
	if !ok {
		t.Fatal("candidateFromEntry() dropped a valid entry")
	}
	if cand.Uploader != "Artist - Topic" {
		t.Errorf("Uploader = %q, want %q", cand.Uploader, "Artist - Topic")
	}
}

func TestCandidateFromEntry_DropsMissingID(t *testing.T) {
	if _, ok := candidateFromEntry(&ytdlp.ExtractedInfo{}); ok {
		t.Error("candidateFromEntry() kept an entry without an ID")
	}
	if _, ok := candidateFromEntry(nil); ok {
		t.Error("candidateFromEntry() kept a nil entry")
	}
}

func TestCollectEntries_FlattensSearchPlaylist(t *testing.T) {
	infos := []*ytdlp.ExtractedInfo{
		{
			ID: "search-results",
			Entries: []*ytdlp.ExtractedInfo{
				{ID: "one"},
				{ID: "two"},
			},
		},
	}

	entries := collectEntries(infos)
	if len(entries) != 2 {
		t.Fatalf("collectEntries() returned %d entries, want 2", len(entries))
	}
	if entries[0].ID != "one" || entries[1].ID != "two" {
		t.Errorf("collectEntries() = [%s %s], want [one two]", entries[0].ID, entries[1].ID)
	}
}

func TestCollectEntries_KeepsPlainVideo(t *testing.T) {
	entries := collectEntries([]*ytdlp.ExtractedInfo{{ID: "solo"}, nil})
	if len(entries) != 1 || entries[0].ID != "solo" {
		t.Errorf("collectEntries() = %v, want the single video entry", entries)
	}
}
