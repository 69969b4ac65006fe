// Package model defines the core data structures used throughout
// the sptfydl application.
//
// # TrackDescriptor
//
// TrackDescriptor carries everything known about a Spotify track that the
// rest of the pipeline needs: identity, display metadata, tagging metadata
// and the cover art URL. Descriptors are immutable once resolved:
//
//	fmt.Println(td.String()) // "Artist A, Artist B - Title"
//	fmt.Println(td.Query())  // search query for yt-dlp
//
// # SearchCandidate and ResolvedSelection
//
// SearchCandidate is one search result scored against the descriptor it
// was produced for. ResolvedSelection pairs a descriptor with the single
// candidate that was accepted for download:
//
//	sel := model.ResolvedSelection{Track: td, Candidate: best}
//
// # ItemState and DownloadOutcome
//
// ItemState is the retry state machine for one unit of work (pending,
// retrying, succeeded, failed). DownloadOutcome is the terminal record
// for one descriptor and is what the final report is built from. Every
// descriptor that enters the pipeline produces exactly one outcome.
//
// # File Naming
//
// NameConfig controls how output file names are computed using placeholders:
//
//	cfg := &model.NameConfig{FileNameFormat: "{artist} - {title}"}
//	path := td.OutputPath("/music", cfg, ".mp3")
//
// Available placeholders: {artist}, {title}, {album}, {tracknum}, {year}.
// Invalid filename characters are replaced with underscores and overlong
// paths are truncated for Windows compatibility.
package model
