package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Trevrosa/sptfydl/internal/config"
	"github.com/Trevrosa/sptfydl/internal/model"
)

const (
	// albumPageSize is the page size for album track listings.
	albumPageSize = 50

	// playlistPageSize is the page size for playlist item listings,
	// the maximum the API allows per request.
	playlistPageSize = 100

	// bulkChunkSize is the maximum ID count for the bulk track and
	// artist endpoints.
	bulkChunkSize = 50
)

// Resolver expands Spotify URLs into streams of track descriptors.
type Resolver struct {
	client *spotify.Client
	log    *zap.Logger
}

// NewResolver authenticates with the client-credentials flow and returns
// a ready Resolver. Tokens are cached in dir between runs.
func NewResolver(ctx context.Context, creds *config.Credentials, dir string, log *zap.Logger) (*Resolver, error) {
	token, err := resolveToken(ctx, creds, dir, log)
	if err != nil {
		return nil, fmt.Errorf("spotify auth: %w", err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	return &Resolver{
		client: spotify.New(httpClient),
		log:    log,
	}, nil
}

// resolveToken returns a cached access token when one is still valid and
// requests a fresh one otherwise.
func resolveToken(ctx context.Context, creds *config.Credentials, dir string, log *zap.Logger) (*oauth2.Token, error) {
	if cached := config.LoadToken(dir); cached != nil && cached.Valid() {
		log.Debug("using cached Spotify token", zap.Time("expiry", cached.Expiry))
		return &oauth2.Token{
			AccessToken: cached.AccessToken,
			TokenType:   cached.TokenType,
			Expiry:      cached.Expiry,
		}, nil
	}

	cfg := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	token, err := cfg.Token(ctx)
	if err != nil {
		return nil, err
	}

	cache := &config.CachedToken{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Expiry:      token.Expiry,
	}
	if err := cache.Save(dir); err != nil {
		log.Warn("could not cache Spotify token", zap.Error(err))
	}
	log.Debug("fetched fresh Spotify token", zap.Time("expiry", token.Expiry))

	return token, nil
}

// Resolution is a lazily resolved track collection.
//
// Tracks is single-pass: descriptors are produced while the consumer
// reads, so a long playlist starts downloading before its last page was
// fetched. After Tracks is closed, Err reports whether the producer
// stopped because of a pagination failure.
type Resolution struct {
	// Kind is the resolved URL kind.
	Kind LinkKind

	// Name is the collection display name, e.g. "Album - Artist" or
	// "Playlist - Owner". Used for the failure report file name.
	Name string

	// Total is the track count as reported by the API. Playlist items
	// that are not tracks (episodes, local files) are skipped, which
	// can make the streamed count smaller.
	Total int

	// Tracks streams the descriptors in collection order.
	Tracks <-chan model.TrackDescriptor

	// err is set by the producer before Tracks is closed.
	err error
}

// Err returns the pagination error that ended the stream, if any.
// Only valid once Tracks has been closed.
func (r *Resolution) Err() error {
	return r.err
}

// Resolve expands a Spotify URL into a Resolution.
//
// Metadata for the collection itself is fetched synchronously so that an
// invalid URL or missing resource fails fast; the per-track stream runs
// in the background afterwards.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*Resolution, error) {
	kind, id, err := ParseLink(rawURL)
	if err != nil {
		return nil, err
	}

	r.log.Debug("resolving Spotify URL", zap.String("kind", string(kind)), zap.String("id", id))

	switch kind {
	case KindTrack:
		return r.resolveTrack(ctx, spotify.ID(id))
	case KindAlbum:
		return r.resolveAlbum(ctx, spotify.ID(id))
	default:
		return r.resolvePlaylist(ctx, spotify.ID(id))
	}
}

func (r *Resolver) resolveTrack(ctx context.Context, id spotify.ID) (*Resolution, error) {
	full, err := r.client.GetTrack(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}

	genres := r.artistGenres(ctx, trackArtistIDs([]*spotify.FullTrack{full}), make(map[spotify.ID][]string))

	ch := make(chan model.TrackDescriptor, 1)
	ch <- newDescriptor(0, full, genres)
	close(ch)

	return &Resolution{
		Kind:   KindTrack,
		Name:   fmt.Sprintf("%s - %s", full.Name, joinArtists(full.Artists)),
		Total:  1,
		Tracks: ch,
	}, nil
}

func (r *Resolver) resolveAlbum(ctx context.Context, id spotify.ID) (*Resolution, error) {
	album, err := r.client.GetAlbum(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get album: %w", err)
	}

	ch := make(chan model.TrackDescriptor, albumPageSize)
	res := &Resolution{
		Kind:   KindAlbum,
		Name:   fmt.Sprintf("%s - %s", album.Name, joinArtists(album.Artists)),
		Total:  int(album.Tracks.Total),
		Tracks: ch,
	}

	go func() {
		defer close(ch)
		res.err = r.streamAlbum(ctx, id, ch)
	}()

	return res, nil
}

func (r *Resolver) resolvePlaylist(ctx context.Context, id spotify.ID) (*Resolution, error) {
	playlist, err := r.client.GetPlaylist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}

	owner := playlist.Owner.DisplayName
	if owner == "" {
		owner = "NO OWNER"
	}

	ch := make(chan model.TrackDescriptor, playlistPageSize)
	res := &Resolution{
		Kind:   KindPlaylist,
		Name:   fmt.Sprintf("%s - %s", playlist.Name, owner),
		Total:  int(playlist.Tracks.Total),
		Tracks: ch,
	}

	go func() {
		defer close(ch)
		res.err = r.streamPlaylist(ctx, id, ch)
	}()

	return res, nil
}

// streamAlbum pages through the album track listing. The listing only
// carries simplified tracks, so each page is re-fetched through the bulk
// track endpoint to pick up ISRCs and album level metadata.
func (r *Resolver) streamAlbum(ctx context.Context, id spotify.ID, out chan<- model.TrackDescriptor) error {
	genreCache := make(map[spotify.ID][]string)
	index := 0

	for offset := 0; ; {
		page, err := r.client.GetAlbumTracks(ctx, id, spotify.Limit(albumPageSize), spotify.Offset(offset))
		if err != nil {
			return fmt.Errorf("get album tracks (offset %d): %w", offset, err)
		}
		if len(page.Tracks) == 0 {
			return nil
		}

		ids := make([]spotify.ID, 0, len(page.Tracks))
		for _, st := range page.Tracks {
			ids = append(ids, st.ID)
		}

		full, err := r.fullTracks(ctx, ids)
		if err != nil {
			return err
		}

		genres := r.artistGenres(ctx, trackArtistIDs(full), genreCache)

		for _, ft := range full {
			select {
			case out <- newDescriptor(index, ft, genres):
				index++
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		offset += len(page.Tracks)
		if offset >= int(page.Total) {
			return nil
		}
	}
}

// streamPlaylist pages through the playlist items. Episodes and local
// files have no usable source and are skipped.
func (r *Resolver) streamPlaylist(ctx context.Context, id spotify.ID, out chan<- model.TrackDescriptor) error {
	genreCache := make(map[spotify.ID][]string)
	index := 0

	for offset := 0; ; {
		page, err := r.client.GetPlaylistItems(ctx, id, spotify.Limit(playlistPageSize), spotify.Offset(offset))
		if err != nil {
			return fmt.Errorf("get playlist items (offset %d): %w", offset, err)
		}
		if len(page.Items) == 0 {
			return nil
		}

		full := make([]*spotify.FullTrack, 0, len(page.Items))
		for _, item := range page.Items {
			if item.Track.Track == nil {
				r.log.Debug("skipping non-track playlist item", zap.Int("offset", offset))
				continue
			}
			full = append(full, item.Track.Track)
		}

		genres := r.artistGenres(ctx, trackArtistIDs(full), genreCache)

		for _, ft := range full {
			select {
			case out <- newDescriptor(index, ft, genres):
				index++
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		offset += len(page.Items)
		if offset >= int(page.Total) {
			return nil
		}
	}
}

// fullTracks fetches full track objects through the bulk endpoint,
// chunked to its 50 ID limit. Order follows the request order.
func (r *Resolver) fullTracks(ctx context.Context, ids []spotify.ID) ([]*spotify.FullTrack, error) {
	tracks := make([]*spotify.FullTrack, 0, len(ids))
	for _, chunk := range chunkIDs(ids, bulkChunkSize) {
		full, err := r.client.GetTracks(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("get tracks: %w", err)
		}
		tracks = append(tracks, full...)
	}
	return tracks, nil
}

// artistGenres fills the cache with genres for the given artist IDs,
// fetching uncached ones in batches. Genres are cosmetic tag data, so
// lookup failures are logged and produce empty genres instead of
// failing the resolution.
func (r *Resolver) artistGenres(ctx context.Context, ids []spotify.ID, cache map[spotify.ID][]string) map[spotify.ID][]string {
	var missing []spotify.ID
	for _, id := range ids {
		if _, ok := cache[id]; !ok {
			missing = append(missing, id)
		}
	}

	for _, chunk := range chunkIDs(missing, bulkChunkSize) {
		artists, err := r.client.GetArtists(ctx, chunk...)
		if err != nil {
			r.log.Warn("could not fetch artist genres", zap.Int("artists", len(chunk)), zap.Error(err))
			for _, id := range chunk {
				cache[id] = nil
			}
			continue
		}
		for _, artist := range artists {
			if artist != nil {
				cache[artist.ID] = artist.Genres
			}
		}
	}

	return cache
}

// newDescriptor converts a full track into the pipeline descriptor.
func newDescriptor(index int, ft *spotify.FullTrack, genres map[spotify.ID][]string) model.TrackDescriptor {
	artists := make([]model.Artist, len(ft.Artists))
	for i, a := range ft.Artists {
		artists[i] = model.Artist{Name: a.Name, Genres: genres[a.ID]}
	}

	albumArtists := make([]string, len(ft.Album.Artists))
	for i, a := range ft.Album.Artists {
		albumArtists[i] = a.Name
	}

	var coverURL string
	if len(ft.Album.Images) > 0 {
		// Spotify lists the largest image first
		coverURL = ft.Album.Images[0].URL
	}

	return model.TrackDescriptor{
		Index:        index,
		ID:           string(ft.ID),
		Title:        ft.Name,
		Artists:      artists,
		AlbumName:    ft.Album.Name,
		AlbumArtists: albumArtists,
		ISRC:         ft.ExternalIDs["isrc"],
		Duration:     ft.TimeDuration(),
		TrackNumber:  int(ft.TrackNumber),
		DiscNumber:   int(ft.DiscNumber),
		ReleaseDate:  ft.Album.ReleaseDate,
		Explicit:     ft.Explicit,
		CoverURL:     coverURL,
	}
}

// trackArtistIDs returns the unique artist IDs across tracks, in first
// appearance order.
func trackArtistIDs(tracks []*spotify.FullTrack) []spotify.ID {
	var ids []spotify.ID
	seen := make(map[spotify.ID]struct{})
	for _, ft := range tracks {
		for _, a := range ft.Artists {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// chunkIDs splits ids into chunks of at most size elements.
func chunkIDs(ids []spotify.ID, size int) [][]spotify.ID {
	var chunks [][]spotify.ID
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

func joinArtists(artists []spotify.SimpleArtist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}
