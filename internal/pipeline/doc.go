// Package pipeline runs the two stage search and download pipeline
// that turns resolved track descriptors into audio files on disk.
//
// # Coordinator
//
// The Coordinator owns two bounded worker pools connected by a
// channel. Search workers resolve each descriptor to a candidate URL,
// download workers fetch and tag the audio:
//
//  1. Search for candidates, retrying transient failures
//  2. Rank candidates against the track metadata
//  3. Ask the user to pick one (interactive runs only)
//  4. Download the picked candidate, retrying tool failures
//  5. Write metadata tags into the finished file
//
// # Basic Usage
//
//	coord := pipeline.NewCoordinator(cfg, searcher, downloader, tagger, selector,
//	    func(event pipeline.ProgressEvent) {
//	        fmt.Println(event.Message)
//	    }, logger)
//
//	report, err := coord.Run(ctx, source)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report.Render(os.Stdout)
//
// # Concurrency
//
// Pool sizes come from Config:
//   - Searchers: how many tracks to search for in parallel
//   - Downloaders: how many tracks to download in parallel
//
// Interactive prompts are serialized through a single handler
// goroutine, so only one question is ever on screen. A worker waiting
// for an answer occupies its pool slot; the other workers keep going.
//
// # Outcomes
//
// Every descriptor that enters the pipeline produces exactly one
// DownloadOutcome, collected by a single aggregation goroutine into
// the Report. Failed searches, failed downloads and aborted tracks all
// appear there, so the report always covers the whole collection.
//
// # Retry Logic
//
// Transient search and download failures are retried with exponential
// backoff within per-stage attempt budgets. Empty search results and
// cancellations are never retried; running out of disk space aborts
// the whole run.
package pipeline
