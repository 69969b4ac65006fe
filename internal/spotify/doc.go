// Package spotify resolves Spotify URLs into track descriptors using
// the Web API.
//
// The package handles three link kinds:
//
//  1. Track links, resolved to a single descriptor
//  2. Album links, resolved through the album track listing
//  3. Playlist links, resolved through the playlist item listing
//
// # URL Parsing
//
// ParseLink validates the host and extracts the kind and ID:
//
//	kind, id, err := spotify.ParseLink("https://open.spotify.com/album/4E6...")
//
// # Resolving
//
// The Resolver authenticates with the client-credentials flow, caching
// the access token between runs, and streams descriptors lazily:
//
//	resolver, err := spotify.NewResolver(ctx, creds, configDir, logger)
//	res, err := resolver.Resolve(ctx, url)
//	for td := range res.Tracks {
//	    // feed the pipeline
//	}
//	if err := res.Err(); err != nil {
//	    // pagination failed mid-stream
//	}
//
// # Batching
//
// Playlists are paged 100 items at a time. Album listings only carry
// simplified tracks, so full metadata (ISRC, album artists, cover art)
// is re-fetched through the bulk track endpoint, 50 IDs per request.
// Artist genres come from the bulk artist endpoint with the same chunk
// size and are cached per resolution.
package spotify
