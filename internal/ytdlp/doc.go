// Package ytdlp wraps the yt-dlp tool for candidate searches and audio
// downloads.
//
// # Installation
//
// EnsureInstalled downloads a yt-dlp release binary on first use and
// must run once before anything else:
//
//	if err := ytdlp.EnsureInstalled(ctx); err != nil {
//		return err
//	}
//
// # Searching
//
// Search runs a ytsearch query in flat playlist mode and converts the
// JSON dump into candidates:
//
//	cands, err := client.Search(ctx, "Artist - Title", 5)
//
// Candidates come back unscored; ranking them against the wanted track
// is the match package's job.
//
// # Downloading
//
// Download fetches the best audio stream for a selection, optionally
// converting it to MP3 or FLAC, and renames the result into its final
// template-derived name:
//
//	path, err := client.Download(ctx, selection)
//
// Files are staged under a hidden random name while yt-dlp runs, so an
// aborted download never leaves a partial file under a name a later
// run would mistake for a finished one.
package ytdlp
