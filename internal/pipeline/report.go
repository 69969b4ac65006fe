package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	ioutils "github.com/Trevrosa/sptfydl/internal/io"
	"github.com/Trevrosa/sptfydl/internal/model"
)

// Report accumulates the terminal outcome of every track in one run.
//
// Outcomes arrive through add on the aggregation goroutine only, so no
// locking is needed; readers use the report after Run returned.
type Report struct {
	// Name is the source collection name, shown in the summary and used
	// for the failed tracks file.
	Name string

	outcomes []model.DownloadOutcome
}

// NewReport returns an empty report for the named collection.
func NewReport(name string) *Report {
	return &Report{Name: name}
}

func (r *Report) add(o model.DownloadOutcome) {
	r.outcomes = append(r.outcomes, o)
}

// Outcomes returns a copy of the outcomes in source order.
func (r *Report) Outcomes() []model.DownloadOutcome {
	out := make([]model.DownloadOutcome, len(r.outcomes))
	copy(out, r.outcomes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Track.Index < out[j].Track.Index
	})
	return out
}

// Len returns the number of recorded outcomes.
func (r *Report) Len() int {
	return len(r.outcomes)
}

// Succeeded returns the number of tracks that downloaded and tagged
// cleanly.
func (r *Report) Succeeded() int {
	n := 0
	for i := range r.outcomes {
		if r.outcomes[i].Kind == model.OutcomeSuccess {
			n++
		}
	}
	return n
}

// AllSucceeded reports whether no track failed in any way. Tag
// failures count as failures here even though the audio file exists.
func (r *Report) AllSucceeded() bool {
	return r.Succeeded() == r.Len()
}

// Failed returns the outcomes without an audio file, in source order.
func (r *Report) Failed() []model.DownloadOutcome {
	var failed []model.DownloadOutcome
	for _, o := range r.Outcomes() {
		if !o.Downloaded() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Render writes the per-track result table to w.
func (r *Report) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Title", "Artists", "Status", "Detail"})
	table.SetRowLine(false)
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold},
		tablewriter.Colors{tablewriter.Bold},
		tablewriter.Colors{tablewriter.Bold},
		tablewriter.Colors{tablewriter.Bold},
		tablewriter.Colors{tablewriter.Bold},
	)

	for _, o := range r.Outcomes() {
		table.Append([]string{
			strconv.Itoa(o.Track.Index + 1),
			o.Track.Title,
			o.Track.JoinedArtists(),
			statusCell(o.Kind),
			detailCell(o),
		})
	}
	table.Render()
}

// Summary returns the one line result count for the run.
func (r *Report) Summary() string {
	downloaded := 0
	for i := range r.outcomes {
		if r.outcomes[i].Downloaded() {
			downloaded++
		}
	}
	return fmt.Sprintf("%s: %d/%d downloaded, %d failed",
		r.Name, downloaded, r.Len(), r.Len()-downloaded)
}

// WriteFailed writes the failed tracks to a text file in dir so a
// later run can pick them up. It returns the file path, or an empty
// string when nothing failed.
func (r *Report) WriteFailed(ctx context.Context, dir string) (string, error) {
	failed := r.Failed()
	if len(failed) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, o := range failed {
		fmt.Fprintf(&sb, "%s: %s\n", o.Track.Query(), o.Reason)
	}

	name := "failed-" + ioutils.SanitizeFileName(r.Name) + ".txt"
	path := filepath.Join(dir, name)
	if err := ioutils.WriteFile(ctx, path, []byte(sb.String())); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return path, nil
}

func statusCell(kind model.OutcomeKind) string {
	switch kind {
	case model.OutcomeSuccess:
		return color.GreenString(kind.String())
	case model.OutcomeTagFailed:
		return color.YellowString(kind.String())
	default:
		return color.RedString(kind.String())
	}
}

func detailCell(o model.DownloadOutcome) string {
	switch o.Kind {
	case model.OutcomeSuccess:
		return filepath.Base(o.Path)
	case model.OutcomeTagFailed:
		return fmt.Sprintf("%s (%s)", filepath.Base(o.Path), o.Reason)
	}
	switch {
	case o.Retries == 1:
		return fmt.Sprintf("%s (after 1 retry)", o.Reason)
	case o.Retries > 1:
		return fmt.Sprintf("%s (after %d retries)", o.Reason, o.Retries)
	}
	return o.Reason
}
