package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Trevrosa/sptfydl/internal/model"
)

type searcherFunc func(ctx context.Context, query string, limit int) ([]model.SearchCandidate, error)

func (f searcherFunc) Search(ctx context.Context, query string, limit int) ([]model.SearchCandidate, error) {
	return f(ctx, query, limit)
}

type downloaderFunc func(ctx context.Context, sel model.ResolvedSelection) (string, error)

func (f downloaderFunc) Download(ctx context.Context, sel model.ResolvedSelection) (string, error) {
	return f(ctx, sel)
}

type taggerFunc func(ctx context.Context, path string, track model.TrackDescriptor) error

func (f taggerFunc) Tag(ctx context.Context, path string, track model.TrackDescriptor) error {
	return f(ctx, path, track)
}

type selectorFunc func(ctx context.Context, track model.TrackDescriptor, candidates []model.SearchCandidate) (int, error)

func (f selectorFunc) Select(ctx context.Context, track model.TrackDescriptor, candidates []model.SearchCandidate) (int, error) {
	return f(ctx, track, candidates)
}

func testConfig() Config {
	return Config{
		Searchers:       2,
		Downloaders:     2,
		SearchRetries:   3,
		DownloadRetries: 5,
		SearchLimit:     5,
		SearchBackoff:   Backoff{Cooldown: 0.001, Exponent: 1},
		DownloadBackoff: Backoff{Cooldown: 0.001, Exponent: 1},
		NoInteraction:   true,
	}
}

func testTracks(n int) []model.TrackDescriptor {
	tracks := make([]model.TrackDescriptor, n)
	for i := range tracks {
		tracks[i] = model.TrackDescriptor{
			Index:    i,
			ID:       fmt.Sprintf("id%d", i),
			Title:    fmt.Sprintf("Track %d", i+1),
			Artists:  []model.Artist{{Name: "Artist"}},
			Duration: 3 * time.Minute,
		}
	}
	return tracks
}

func testSource(tracks ...model.TrackDescriptor) Source {
	ch := make(chan model.TrackDescriptor, len(tracks))
	for _, td := range tracks {
		ch <- td
	}
	close(ch)
	return Source{
		Name:   "Test",
		Total:  len(tracks),
		Tracks: ch,
		Err:    func() error { return nil },
	}
}

// oneResult resolves every query to a single matching candidate, which
// skips the interactive prompt.
func oneResult() searcherFunc {
	return func(_ context.Context, query string, _ int) ([]model.SearchCandidate, error) {
		return []model.SearchCandidate{{
			ID:    query,
			URL:   "https://example.com/" + query,
			Title: query,
		}}, nil
	}
}

func okDownload() downloaderFunc {
	return func(_ context.Context, sel model.ResolvedSelection) (string, error) {
		return "/music/" + sel.Track.Title + ".mp3", nil
	}
}

// noPrompt fails the test if a prompt is ever requested.
func noPrompt(t *testing.T) selectorFunc {
	return func(context.Context, model.TrackDescriptor, []model.SearchCandidate) (int, error) {
		t.Error("selector called unexpectedly")
		return 0, nil
	}
}

func TestRunAllSuccess(t *testing.T) {
	var mu sync.Mutex
	var downloaded []string
	downloader := downloaderFunc(func(_ context.Context, sel model.ResolvedSelection) (string, error) {
		mu.Lock()
		downloaded = append(downloaded, sel.Candidate.URL)
		mu.Unlock()
		return "/music/" + sel.Track.Title + ".mp3", nil
	})

	coord := NewCoordinator(testConfig(), oneResult(), downloader, nil, noPrompt(t), nil, zap.NewNop())
	report, err := coord.Run(context.Background(), testSource(testTracks(3)...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Len() != 3 {
		t.Fatalf("report has %d outcomes, want 3", report.Len())
	}
	if !report.AllSucceeded() {
		t.Error("AllSucceeded() = false, want true")
	}
	for i, o := range report.Outcomes() {
		if o.Track.Index != i {
			t.Errorf("outcome %d has track index %d", i, o.Track.Index)
		}
		if o.Kind != model.OutcomeSuccess {
			t.Errorf("outcome %d kind = %v, want success", i, o.Kind)
		}
		if o.Path == "" {
			t.Errorf("outcome %d has no path", i)
		}
	}
	if len(downloaded) != 3 {
		t.Errorf("downloader ran %d times, want 3", len(downloaded))
	}

	resolved, done, failed, total := coord.Progress()
	if resolved != 3 || done != 3 || failed != 0 || total != 3 {
		t.Errorf("Progress() = %d/%d/%d/%d, want 3/3/0/3", resolved, done, failed, total)
	}
}

func TestRunNoResultsNotRetried(t *testing.T) {
	var searches int64
	searcher := searcherFunc(func(context.Context, string, int) ([]model.SearchCandidate, error) {
		atomic.AddInt64(&searches, 1)
		return nil, nil
	})
	downloader := downloaderFunc(func(_ context.Context, sel model.ResolvedSelection) (string, error) {
		t.Errorf("download requested for unresolved track %s", sel.Track.Query())
		return "", nil
	})

	coord := NewCoordinator(testConfig(), searcher, downloader, nil, noPrompt(t), nil, zap.NewNop())
	report, err := coord.Run(context.Background(), testSource(testTracks(1)...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := atomic.LoadInt64(&searches); got != 1 {
		t.Errorf("search ran %d times, want 1 (empty results are final)", got)
	}
	o := report.Outcomes()[0]
	if o.Kind != model.OutcomeSearchFailed {
		t.Errorf("outcome kind = %v, want search failed", o.Kind)
	}
	if o.Reason != "no results" {
		t.Errorf("outcome reason = %q, want %q", o.Reason, "no results")
	}
	if o.Retries != 0 {
		t.Errorf("outcome retries = %d, want 0", o.Retries)
	}
}

func TestRunDownloadRetryThenSuccess(t *testing.T) {
	var calls int64
	downloader := downloaderFunc(func(context.Context, model.ResolvedSelection) (string, error) {
		if atomic.AddInt64(&calls, 1) < 3 {
			return "", errors.New("exit status 1")
		}
		return "/music/track.mp3", nil
	})

	var mu sync.Mutex
	var messages []string
	onProgress := func(e ProgressEvent) {
		mu.Lock()
		messages = append(messages, e.Message)
		mu.Unlock()
	}

	coord := NewCoordinator(testConfig(), oneResult(), downloader, nil, noPrompt(t), onProgress, zap.NewNop())
	report, err := coord.Run(context.Background(), testSource(testTracks(1)...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	o := report.Outcomes()[0]
	if o.Kind != model.OutcomeSuccess {
		t.Fatalf("outcome kind = %v, want success", o.Kind)
	}
	if o.Retries != 2 {
		t.Errorf("outcome retries = %d, want 2", o.Retries)
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Errorf("downloader ran %d times, want 3", got)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"Retry 1/5", "Retry 2/5"}
	for _, fragment := range want {
		found := false
		for _, msg := range messages {
			if len(msg) >= len(fragment) && msg[:len(fragment)] == fragment {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no progress message starting with %q in %v", fragment, messages)
		}
	}
}

func TestRunDownloadBudgetExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.DownloadRetries = 3

	var calls int64
	downloader := downloaderFunc(func(context.Context, model.ResolvedSelection) (string, error) {
		atomic.AddInt64(&calls, 1)
		return "", errors.New("exit status 1")
	})

	coord := NewCoordinator(cfg, oneResult(), downloader, nil, noPrompt(t), nil, zap.NewNop())
	report, err := coord.Run(context.Background(), testSource(testTracks(1)...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Errorf("downloader ran %d times, want 3", got)
	}
	o := report.Outcomes()[0]
	if o.Kind != model.OutcomeDownloadFailed {
		t.Errorf("outcome kind = %v, want download failed", o.Kind)
	}
	if o.Retries != 2 {
		t.Errorf("outcome retries = %d, want 2", o.Retries)
	}
	if o.Candidate == nil {
		t.Error("outcome has no candidate")
	}
	if o.Reason != "exit status 1" {
		t.Errorf("outcome reason = %q, want %q", o.Reason, "exit status 1")
	}
}

func TestRunSearchBudgetExhausted(t *testing.T) {
	var searches int64
	searcher := searcherFunc(func(context.Context, string, int) ([]model.SearchCandidate, error) {
		atomic.AddInt64(&searches, 1)
		return nil, errors.New("network is unreachable")
	})
	downloader := downloaderFunc(func(context.Context, model.ResolvedSelection) (string, error) {
		t.Error("download requested for unresolved track")
		return "", nil
	})

	coord := NewCoordinator(testConfig(), searcher, downloader, nil, noPrompt(t), nil, zap.NewNop())
	report, err := coord.Run(context.Background(), testSource(testTracks(1)...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := atomic.LoadInt64(&searches); got != 3 {
		t.Errorf("search ran %d times, want 3", got)
	}
	o := report.Outcomes()[0]
	if o.Kind != model.OutcomeSearchFailed {
		t.Errorf("outcome kind = %v, want search failed", o.Kind)
	}
	if o.Retries != 2 {
		t.Errorf("outcome retries = %d, want 2", o.Retries)
	}
}

func TestRunNoInteractionPicksBestMatch(t *testing.T) {
	td := model.TrackDescriptor{
		Title:    "Blue Monday",
		Artists:  []model.Artist{{Name: "New Order"}},
		Duration: 7*time.Minute + 30*time.Second,
	}
	searcher := searcherFunc(func(context.Context, string, int) ([]model.SearchCandidate, error) {
		return []model.SearchCandidate{
			{ID: "bad", URL: "https://example.com/bad", Title: "unrelated live footage", Uploader: "someone", Duration: time.Minute},
			{ID: "good", URL: "https://example.com/good", Title: "New Order - Blue Monday", Uploader: "New Order - Topic", Duration: 7*time.Minute + 29*time.Second},
		}, nil
	})

	var mu sync.Mutex
	var downloaded []string
	downloader := downloaderFunc(func(_ context.Context, sel model.ResolvedSelection) (string, error) {
		mu.Lock()
		downloaded = append(downloaded, sel.Candidate.ID)
		mu.Unlock()
		return "/music/blue monday.mp3", nil
	})

	coord := NewCoordinator(testConfig(), searcher, downloader, nil, noPrompt(t), nil, zap.NewNop())
	report, err := coord.Run(context.Background(), testSource(td))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(downloaded) != 1 || downloaded[0] != "good" {
		t.Errorf("downloaded %v, want the best ranked candidate", downloaded)
	}
	o := report.Outcomes()[0]
	if o.Candidate == nil || o.Candidate.ID != "good" {
		t.Errorf("outcome candidate = %+v, want the best ranked one", o.Candidate)
	}
	if o.Candidate != nil && o.Candidate.Score == 0 {
		t.Error("accepted candidate was never scored")
	}
}

func TestRunPromptChoosesCandidate(t *testing.T) {
	cfg := testConfig()
	cfg.NoInteraction = false

	searcher := searcherFunc(func(context.Context, string, int) ([]model.SearchCandidate, error) {
		return []model.SearchCandidate{
			{ID: "a", URL: "https://example.com/a", Title: "Track 1", Uploader: "Artist", Duration: 3 * time.Minute},
			{ID: "b", URL: "https://example.com/b", Title: "Track 1 (live)", Uploader: "Artist", Duration: 3*time.Minute + 40*time.Second},
		}, nil
	})

	var prompts int64
	selector := selectorFunc(func(_ context.Context, _ model.TrackDescriptor, candidates []model.SearchCandidate) (int, error) {
		atomic.AddInt64(&prompts, 1)
		return len(candidates) - 1, nil
	})

	var mu sync.Mutex
	var downloaded []string
	downloader := downloaderFunc(func(_ context.Context, sel model.ResolvedSelection) (string, error) {
		mu.Lock()
		downloaded = append(downloaded, sel.Candidate.ID)
		mu.Unlock()
		return "/music/track.mp3", nil
	})

	coord := NewCoordinator(cfg, searcher, downloader, nil, selector, nil, zap.NewNop())
	report, err := coord.Run(context.Background(), testSource(testTracks(1)...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := atomic.LoadInt64(&prompts); got != 1 {
		t.Errorf("selector ran %d times, want 1", got)
	}
	// The ranked list puts the exact title match first, so picking the
	// last entry must download the live version.
	if len(downloaded) != 1 || downloaded[0] != "b" {
		t.Errorf("downloaded %v, want the prompted pick", downloaded)
	}
	if !report.AllSucceeded() {
		t.Error("AllSucceeded() = false, want true")
	}
}

func TestRunPromptSkippedForSingleCandidate(t *testing.T) {
	cfg := testConfig()
	cfg.NoInteraction = false

	coord := NewCoordinator(cfg, oneResult(), okDownload(), nil, noPrompt(t), nil, zap.NewNop())
	report, err := coord.Run(context.Background(), testSource(testTracks(1)...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.AllSucceeded() {
		t.Error("AllSucceeded() = false, want true")
	}
}

func TestRunPromptInterruptStopsRun(t *testing.T) {
	cfg := testConfig()
	cfg.NoInteraction = false
	cfg.Searchers = 1

	errInterrupt := errors.New("prompt interrupted")
	selector := selectorFunc(func(context.Context, model.TrackDescriptor, []model.SearchCandidate) (int, error) {
		return 0, errInterrupt
	})
	searcher := searcherFunc(func(_ context.Context, query string, _ int) ([]model.SearchCandidate, error) {
		return []model.SearchCandidate{
			{ID: "a", URL: "https://example.com/a", Title: query},
			{ID: "b", URL: "https://example.com/b", Title: query + " (live)"},
		}, nil
	})
	downloader := downloaderFunc(func(context.Context, model.ResolvedSelection) (string, error) {
		t.Error("download requested after interrupt")
		return "", nil
	})

	coord := NewCoordinator(cfg, searcher, downloader, nil, selector, nil, zap.NewNop())
	report, err := coord.Run(context.Background(), testSource(testTracks(3)...))
	if !errors.Is(err, errInterrupt) {
		t.Fatalf("Run() error = %v, want the prompt error", err)
	}

	if report.Len() != 3 {
		t.Errorf("report has %d outcomes, want all 3 tracks accounted for", report.Len())
	}
	if report.Succeeded() != 0 {
		t.Errorf("Succeeded() = %d, want 0", report.Succeeded())
	}
	if o := report.Outcomes()[0]; o.Reason != "prompt interrupted" {
		t.Errorf("first outcome reason = %q, want %q", o.Reason, "prompt interrupted")
	}
}

func TestRunDiskFullAbortsRun(t *testing.T) {
	cfg := testConfig()
	cfg.Searchers = 1
	cfg.Downloaders = 1

	downloader := downloaderFunc(func(context.Context, model.ResolvedSelection) (string, error) {
		return "", fmt.Errorf("copying file: %w", syscall.ENOSPC)
	})

	coord := NewCoordinator(cfg, oneResult(), downloader, nil, noPrompt(t), nil, zap.NewNop())
	report, err := coord.Run(context.Background(), testSource(testTracks(2)...))
	if !errors.Is(err, syscall.ENOSPC) {
		t.Fatalf("Run() error = %v, want ENOSPC", err)
	}

	if report.Len() != 2 {
		t.Errorf("report has %d outcomes, want all 2 tracks accounted for", report.Len())
	}
	if report.Succeeded() != 0 {
		t.Errorf("Succeeded() = %d, want 0", report.Succeeded())
	}
}

func TestRunTagFailureKeepsFile(t *testing.T) {
	tagger := taggerFunc(func(context.Context, string, model.TrackDescriptor) error {
		return errors.New("bad frame")
	})

	coord := NewCoordinator(testConfig(), oneResult(), okDownload(), tagger, noPrompt(t), nil, zap.NewNop())
	report, err := coord.Run(context.Background(), testSource(testTracks(1)...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	o := report.Outcomes()[0]
	if o.Kind != model.OutcomeTagFailed {
		t.Fatalf("outcome kind = %v, want tag failed", o.Kind)
	}
	if o.Path == "" {
		t.Error("outcome lost the downloaded file path")
	}
	if o.Reason != "bad frame" {
		t.Errorf("outcome reason = %q, want %q", o.Reason, "bad frame")
	}
	if report.AllSucceeded() {
		t.Error("AllSucceeded() = true, want false for a tag failure")
	}
	if len(report.Failed()) != 0 {
		t.Error("Failed() includes a track whose file exists")
	}

	_, done, failed, _ := coord.Progress()
	if done != 1 || failed != 0 {
		t.Errorf("Progress() done/failed = %d/%d, want 1/0", done, failed)
	}
}

func TestRunISRCQueryFirst(t *testing.T) {
	cfg := testConfig()
	cfg.UseISRC = true

	tracks := testTracks(1)
	tracks[0].ISRC = "USUM71703861"

	var mu sync.Mutex
	var queries []string
	searcher := searcherFunc(func(_ context.Context, query string, _ int) ([]model.SearchCandidate, error) {
		mu.Lock()
		queries = append(queries, query)
		mu.Unlock()
		if query == "USUM71703861" {
			return nil, nil
		}
		return []model.SearchCandidate{{ID: "v", URL: "https://example.com/v", Title: query}}, nil
	})

	coord := NewCoordinator(cfg, searcher, okDownload(), nil, noPrompt(t), nil, zap.NewNop())
	report, err := coord.Run(context.Background(), testSource(tracks...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"USUM71703861", "Artist - Track 1"}
	if len(queries) != 2 || queries[0] != want[0] || queries[1] != want[1] {
		t.Errorf("queries = %v, want %v", queries, want)
	}
	if !report.AllSucceeded() {
		t.Error("AllSucceeded() = false, want true")
	}
}

func TestRunSourceError(t *testing.T) {
	srcErr := errors.New("token expired")

	ch := make(chan model.TrackDescriptor, 1)
	ch <- testTracks(1)[0]
	close(ch)
	src := Source{Name: "Test", Total: 3, Tracks: ch, Err: func() error { return srcErr }}

	coord := NewCoordinator(testConfig(), oneResult(), okDownload(), nil, noPrompt(t), nil, zap.NewNop())
	report, err := coord.Run(context.Background(), src)
	if !errors.Is(err, srcErr) {
		t.Fatalf("Run() error = %v, want the source error", err)
	}
	if report.Len() != 1 {
		t.Errorf("report has %d outcomes, want 1 for the delivered track", report.Len())
	}
}

func TestQueries(t *testing.T) {
	td := model.TrackDescriptor{
		Title:   "Track",
		Artists: []model.Artist{{Name: "Artist"}},
		ISRC:    "USUM71703861",
	}

	tests := []struct {
		name    string
		useISRC bool
		isrc    string
		want    []string
	}{
		{"isrc enabled", true, "USUM71703861", []string{"USUM71703861", "Artist - Track"}},
		{"isrc disabled", false, "USUM71703861", []string{"Artist - Track"}},
		{"isrc missing", true, "", []string{"Artist - Track"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coordinator{cfg: Config{UseISRC: tt.useISRC}}
			td := td
			td.ISRC = tt.isrc

			got := c.queries(td)
			if len(got) != len(tt.want) {
				t.Fatalf("queries() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("queries()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReasonText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"canceled", context.Canceled, "aborted"},
		{"wrapped canceled", fmt.Errorf("search: %w", context.Canceled), "aborted"},
		{"deadline", context.DeadlineExceeded, "timed out"},
		{"plain", errors.New("exit status 1"), "exit status 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reasonText(tt.err); got != tt.want {
				t.Errorf("reasonText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"disk full", syscall.ENOSPC, true},
		{"wrapped disk full", fmt.Errorf("write: %w", syscall.ENOSPC), true},
		{"canceled", context.Canceled, true},
		{"tool failure", errors.New("exit status 1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isFatal(tt.err); got != tt.want {
				t.Errorf("isFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.Searchers != 1 || cfg.Downloaders != 1 {
		t.Errorf("pool sizes = %d/%d, want 1/1", cfg.Searchers, cfg.Downloaders)
	}
	if cfg.SearchRetries != 1 || cfg.DownloadRetries != 1 {
		t.Errorf("attempt budgets = %d/%d, want 1/1", cfg.SearchRetries, cfg.DownloadRetries)
	}
	if cfg.SearchLimit != 1 {
		t.Errorf("search limit = %d, want 1", cfg.SearchLimit)
	}
	if cfg.SearchBackoff.Cooldown <= 0 || cfg.SearchBackoff.Exponent <= 0 {
		t.Errorf("search backoff = %+v, want positive values", cfg.SearchBackoff)
	}
	if cfg.DownloadBackoff.Cooldown <= 0 || cfg.DownloadBackoff.Exponent <= 0 {
		t.Errorf("download backoff = %+v, want positive values", cfg.DownloadBackoff)
	}
}
