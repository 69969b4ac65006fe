// Package http provides the HTTP client used for cover art downloads.
//
// Audio downloads are handled entirely by yt-dlp, so this client stays
// deliberately small:
//   - User-Agent header on every request
//   - Timeout handling
//   - In-memory downloads for small resources
//
// # Basic Usage
//
//	client := http.NewClient()
//
//	// Fetch cover art
//	imageData, err := client.DownloadBytes(ctx, coverURL)
package http
