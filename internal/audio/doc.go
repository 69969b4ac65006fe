// Package audio writes metadata into downloaded files and generates
// playlist files.
//
// # Tagging
//
// Tagger embeds track metadata after a download finished:
//   - MP3: ID3v2 text frames (title, artist, album, album artist,
//     genre, year, date, track and disc number, ISRC) plus an attached
//     front cover picture
//   - FLAC: a Vorbis comment block with the equivalent fields plus a
//     picture block
//
// Containers without tag support are skipped silently, which matters
// for downloads that keep the source format.
//
// Cover art is fetched over HTTP, converted to JPEG and optionally
// downscaled before embedding. Art failures never fail the tag write;
// the file simply ends up without a picture.
//
// # Playlists
//
// PlaylistCreator renders a downloaded collection as a playlist file in
// M3U, PLS, WPL or ZPL format:
//
//	creator := NewPlaylistCreator(FormatM3U, true)
//	content := creator.CreatePlaylist("My Playlist", entries)
package audio
