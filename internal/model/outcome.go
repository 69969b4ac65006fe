package model

// OutcomeKind classifies the terminal result for one track.
type OutcomeKind int

const (
	// OutcomeSuccess means the track was downloaded and, when requested,
	// fully tagged.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeSearchFailed means no candidate could be resolved.
	OutcomeSearchFailed

	// OutcomeDownloadFailed means a candidate was resolved but the
	// download never finished.
	OutcomeDownloadFailed

	// OutcomeTagFailed means the file was downloaded but writing the
	// metadata tags failed. The audio file is kept.
	OutcomeTagFailed
)

// String returns the human readable status label used in the report.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "ok"
	case OutcomeSearchFailed:
		return "search failed"
	case OutcomeDownloadFailed:
		return "download failed"
	case OutcomeTagFailed:
		return "tag failed"
	default:
		return "unknown"
	}
}

// DownloadOutcome is the terminal record for one descriptor. Exactly one
// outcome is emitted per descriptor that entered the pipeline.
type DownloadOutcome struct {
	// Track is the descriptor the outcome belongs to.
	Track TrackDescriptor

	// Candidate is the accepted search result, nil when the search
	// stage never resolved one.
	Candidate *SearchCandidate

	// Kind classifies the result.
	Kind OutcomeKind

	// Path is the final audio file path. Set for OutcomeSuccess and
	// OutcomeTagFailed, empty otherwise.
	Path string

	// Reason is a short failure description, empty on success.
	Reason string

	// Retries is the number of retries spent in the stage that decided
	// the outcome.
	Retries int
}

// Downloaded returns true when an audio file exists for the track,
// which includes tag failures.
func (o *DownloadOutcome) Downloaded() bool {
	return o.Kind == OutcomeSuccess || o.Kind == OutcomeTagFailed
}
