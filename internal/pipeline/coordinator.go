package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Trevrosa/sptfydl/internal/match"
	"github.com/Trevrosa/sptfydl/internal/model"
)

// errNoResults marks a search that returned nothing. Never retried.
var errNoResults = errors.New("no results")

// Coordinator drives the search and download pools and folds their
// outcomes into a Report.
type Coordinator struct {
	cfg        Config
	searcher   Searcher
	downloader Downloader
	tagger     Tagger
	selector   Selector
	log        *zap.Logger

	onProgress func(ProgressEvent)

	// Counters for progress polling. All other accumulation happens on
	// the aggregation goroutine via the outcomes channel.
	total    int64
	resolved int64
	done     int64
	failed   int64

	cancel    context.CancelFunc
	fatalOnce sync.Once
	fatalErr  error
}

// NewCoordinator wires the pipeline collaborators together.
//
// tagger may be nil to disable tagging, onProgress may be nil.
func NewCoordinator(cfg Config, searcher Searcher, downloader Downloader, tagger Tagger, selector Selector, onProgress func(ProgressEvent), log *zap.Logger) *Coordinator {
	return &Coordinator{
		cfg:        cfg.withDefaults(),
		searcher:   searcher,
		downloader: downloader,
		tagger:     tagger,
		selector:   selector,
		onProgress: onProgress,
		log:        log,
	}
}

// promptRequest is a suspended search worker asking for a candidate
// choice. The reply channel is buffered so the handler never blocks on
// a worker that gave up waiting.
type promptRequest struct {
	track      model.TrackDescriptor
	candidates []model.SearchCandidate
	reply      chan promptReply
}

type promptReply struct {
	index int
	err   error
}

// Run processes every track the source delivers and returns the
// aggregated report.
//
// The error is nil when the stream completed, even if individual
// tracks failed; it is non-nil when the stream itself broke or a fatal
// error aborted the run. The report always covers every descriptor
// received from the source, aborted ones included.
func (c *Coordinator) Run(ctx context.Context, src Source) (*Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	defer cancel()

	atomic.StoreInt64(&c.total, int64(src.Total))

	selCh := make(chan model.ResolvedSelection, c.cfg.Downloaders)
	outCh := make(chan model.DownloadOutcome, c.cfg.Searchers+c.cfg.Downloaders)
	promptCh := make(chan promptRequest)

	report := NewReport(src.Name)

	// Single aggregation goroutine; workers only send messages.
	var aggWG sync.WaitGroup
	aggWG.Add(1)
	go func() {
		defer aggWG.Done()
		for outcome := range outCh {
			report.add(outcome)
			if outcome.Downloaded() {
				atomic.AddInt64(&c.done, 1)
			} else {
				atomic.AddInt64(&c.failed, 1)
			}
		}
	}()

	// Serialized prompt handler. Suspended workers queue here so at
	// most one prompt is on screen while the pools keep working.
	var promptWG sync.WaitGroup
	promptWG.Add(1)
	go func() {
		defer promptWG.Done()
		for req := range promptCh {
			index, err := c.selector.Select(ctx, req.track, req.candidates)
			req.reply <- promptReply{index: index, err: err}
		}
	}()

	// Download pool, fed by the search pool through selCh.
	var dg errgroup.Group
	dg.SetLimit(c.cfg.Downloaders)
	dlDone := make(chan struct{})
	go func() {
		defer close(dlDone)
		for sel := range selCh {
			sel := sel
			dg.Go(func() error {
				c.downloadOne(ctx, sel, outCh)
				return nil
			})
		}
		dg.Wait()
	}()

	// Search pool. After a fatal error, admission stops and the rest
	// of the stream drains into aborted outcomes so the report stays
	// complete.
	var sg errgroup.Group
	sg.SetLimit(c.cfg.Searchers)
	for td := range src.Tracks {
		if ctx.Err() != nil {
			outCh <- model.DownloadOutcome{
				Track:  td,
				Kind:   model.OutcomeSearchFailed,
				Reason: reasonText(ctx.Err()),
			}
			continue
		}
		td := td
		sg.Go(func() error {
			c.searchOne(ctx, td, selCh, outCh, promptCh)
			return nil
		})
	}
	sg.Wait()
	close(promptCh)
	close(selCh)
	<-dlDone
	close(outCh)
	aggWG.Wait()
	promptWG.Wait()

	if err := src.Err(); err != nil {
		return report, fmt.Errorf("resolving tracks: %w", err)
	}
	if c.fatalErr != nil {
		return report, c.fatalErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// Progress returns the counters for display: admitted selections,
// finished downloads, failed tracks and the expected total.
func (c *Coordinator) Progress() (resolved, done, failed, total int64) {
	return atomic.LoadInt64(&c.resolved), atomic.LoadInt64(&c.done),
		atomic.LoadInt64(&c.failed), atomic.LoadInt64(&c.total)
}

// searchOne resolves one descriptor to a selection and hands it to the
// download pool, or records the failure outcome.
func (c *Coordinator) searchOne(ctx context.Context, td model.TrackDescriptor, selCh chan<- model.ResolvedSelection, outCh chan<- model.DownloadOutcome, promptCh chan<- promptRequest) {
	cands, state := c.searchCandidates(ctx, td)
	if state.Status != model.StatusSucceeded {
		c.progressf(LevelError, "Search failed for %s: %v", td.Query(), state.Reason)
		outCh <- model.DownloadOutcome{
			Track:   td,
			Kind:    model.OutcomeSearchFailed,
			Reason:  reasonText(state.Reason),
			Retries: state.Retries(),
		}
		return
	}

	index := 0
	if !c.cfg.NoInteraction && len(cands) > 1 {
		var err error
		index, err = c.promptSelect(ctx, td, cands, promptCh)
		if err != nil {
			// A dead prompt means the user is done with the run.
			if !isAbort(err) {
				c.fail(err)
			}
			outCh <- model.DownloadOutcome{
				Track:  td,
				Kind:   model.OutcomeSearchFailed,
				Reason: reasonText(err),
			}
			return
		}
	}

	sel := model.ResolvedSelection{Track: td, Candidate: cands[index]}
	c.log.Debug("resolved",
		zap.String("track", td.Query()),
		zap.String("url", sel.Candidate.URL),
		zap.Int("score", sel.Candidate.Score))

	select {
	case selCh <- sel:
		atomic.AddInt64(&c.resolved, 1)
	case <-ctx.Done():
		outCh <- model.DownloadOutcome{
			Track:     td,
			Candidate: &sel.Candidate,
			Kind:      model.OutcomeDownloadFailed,
			Reason:    reasonText(ctx.Err()),
		}
	}
}

// searchCandidates runs the retry loop for one descriptor and returns
// the ranked candidates.
//
// Empty results are not retried: they fall through to the next query
// form, or fail the track once no form is left. Transient errors eat
// into the attempt budget with backoff in between.
func (c *Coordinator) searchCandidates(ctx context.Context, td model.TrackDescriptor) ([]model.SearchCandidate, model.ItemState) {
	state := model.NewItemState()
	queries := c.queries(td)
	qi := 0

	for state.Next(c.cfg.SearchRetries) {
		if err := ctx.Err(); err != nil {
			state.FailNow(err)
			break
		}

		cands, err := c.searcher.Search(ctx, queries[qi], c.cfg.SearchLimit)
		if err != nil {
			if isAbort(err) {
				state.FailNow(err)
				break
			}
			state.Fail(err, c.cfg.SearchRetries)
			if state.Status == model.StatusRetrying {
				c.progressf(LevelWarning, "Search %d/%d failed for %s: %v", state.Attempts, c.cfg.SearchRetries, td.Query(), err)
				c.waitForRetry(ctx, state.Retries(), c.cfg.SearchBackoff)
			}
			continue
		}

		if len(cands) == 0 {
			if qi+1 < len(queries) {
				c.log.Debug("no results, falling back",
					zap.String("query", queries[qi]),
					zap.String("next", queries[qi+1]))
				qi++
				continue
			}
			state.FailNow(errNoResults)
			break
		}

		state.Succeed()
		return match.Rank(td, cands), state
	}

	// A query-form fallback can eat the last attempt, leaving the state
	// non-terminal with no reason recorded.
	if !state.Status.Terminal() {
		state.FailNow(errNoResults)
	}
	return nil, state
}

// queries builds the ordered query list for a track: the ISRC when
// enabled and present, then the plain artist and title form.
func (c *Coordinator) queries(td model.TrackDescriptor) []string {
	if c.cfg.UseISRC && td.ISRC != "" {
		return []string{td.ISRC, td.Query()}
	}
	return []string{td.Query()}
}

// promptSelect suspends the worker on the serialized prompt handler
// and waits for the user's choice.
func (c *Coordinator) promptSelect(ctx context.Context, td model.TrackDescriptor, cands []model.SearchCandidate, promptCh chan<- promptRequest) (int, error) {
	req := promptRequest{track: td, candidates: cands, reply: make(chan promptReply, 1)}

	select {
	case promptCh <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case rep := <-req.reply:
		if rep.err != nil {
			return 0, rep.err
		}
		if rep.index < 0 || rep.index >= len(cands) {
			return 0, nil
		}
		return rep.index, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// downloadOne fetches one selection, tags the result and emits the
// outcome.
func (c *Coordinator) downloadOne(ctx context.Context, sel model.ResolvedSelection, outCh chan<- model.DownloadOutcome) {
	state := model.NewItemState()
	var path string

	for state.Next(c.cfg.DownloadRetries) {
		if err := ctx.Err(); err != nil {
			state.FailNow(err)
			break
		}

		p, err := c.downloader.Download(ctx, sel)
		if err == nil {
			path = p
			state.Succeed()
			break
		}

		if isFatal(err) {
			state.FailNow(err)
			if !isAbort(err) {
				// Out of disk space kills the whole run.
				c.fail(err)
			}
			break
		}

		state.Fail(err, c.cfg.DownloadRetries)
		if state.Status == model.StatusRetrying {
			c.progressf(LevelWarning, "Retry %d/%d for %s: %v", state.Attempts, c.cfg.DownloadRetries, sel.Track.Query(), err)
			c.waitForRetry(ctx, state.Retries(), c.cfg.DownloadBackoff)
		}
	}

	if state.Status != model.StatusSucceeded {
		c.progressf(LevelError, "Error downloading %s: %v", sel.Track.Query(), state.Reason)
		outCh <- model.DownloadOutcome{
			Track:     sel.Track,
			Candidate: &sel.Candidate,
			Kind:      model.OutcomeDownloadFailed,
			Reason:    reasonText(state.Reason),
			Retries:   state.Retries(),
		}
		return
	}

	kind := model.OutcomeSuccess
	reason := ""
	if c.tagger != nil {
		if err := c.tagger.Tag(ctx, path, sel.Track); err != nil {
			if isFatal(err) && !isAbort(err) {
				c.fail(err)
			}
			c.progressf(LevelWarning, "Error tagging %s: %v", sel.Track.Query(), err)
			kind = model.OutcomeTagFailed
			reason = err.Error()
		}
	}

	if kind == model.OutcomeSuccess {
		c.progressf(LevelVerbose, "Downloaded: %s", filepath.Base(path))
	}

	outCh <- model.DownloadOutcome{
		Track:     sel.Track,
		Candidate: &sel.Candidate,
		Kind:      kind,
		Path:      path,
		Reason:    reason,
		Retries:   state.Retries(),
	}
}

// waitForRetry sleeps the backoff delay before the given retry,
// returning early on cancellation.
func (c *Coordinator) waitForRetry(ctx context.Context, retry int, b Backoff) {
	cooldown := b.Cooldown * math.Pow(b.Exponent, float64(retry))
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(cooldown * float64(time.Second))):
	}
}

// fail records the first fatal error and cancels the run.
func (c *Coordinator) fail(err error) {
	c.fatalOnce.Do(func() {
		c.fatalErr = err
		c.cancel()
	})
}

func (c *Coordinator) progressf(level ProgressLevel, format string, args ...any) {
	if c.onProgress != nil {
		c.onProgress(ProgressEvent{Message: fmt.Sprintf(format, args...), Level: level})
	}
}

// isAbort reports whether err is a cancellation rather than a real
// failure.
func isAbort(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// isFatal reports whether err must stop the retry loop for good.
func isFatal(err error) bool {
	return isAbort(err) || errors.Is(err, syscall.ENOSPC)
}

// reasonText renders a failure reason for the report.
func reasonText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "aborted"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	}
	return err.Error()
}
