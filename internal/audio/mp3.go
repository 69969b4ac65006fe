package audio

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"

	"github.com/Trevrosa/sptfydl/internal/model"
)

// tagMP3 writes ID3v2 frames into an MP3 file.
func (t *Tagger) tagMP3(ctx context.Context, path string, track model.TrackDescriptor) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tags: %w", err)
	}
	defer tag.Close()

	applyMP3Frames(tag, track, t.artwork(ctx, track))

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save id3 tags: %w", err)
	}
	return nil
}

// applyMP3Frames sets the text and picture frames for a track.
func applyMP3Frames(tag *id3v2.Tag, track model.TrackDescriptor, artwork []byte) {
	tag.SetTitle(track.Title)
	tag.SetArtist(track.JoinedArtists())
	tag.SetAlbum(track.AlbumName)

	if genres := track.Genres(); len(genres) > 0 {
		tag.SetGenre(strings.Join(genres, "; "))
	}

	// Year (TYER) - ID3v2.3
	if year := track.Year(); year != "" {
		tag.AddTextFrame("TYER", id3v2.EncodingUTF8, year)
	}

	// Date (TDRC) - ID3v2.4
	if track.ReleaseDate != "" {
		tag.AddTextFrame("TDRC", id3v2.EncodingUTF8, track.ReleaseDate)
	}

	// Track Number (TRCK)
	if track.TrackNumber > 0 {
		tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, strconv.Itoa(track.TrackNumber))
	}

	// Disc Number (TPOS)
	if track.DiscNumber > 0 {
		tag.AddTextFrame("TPOS", id3v2.EncodingUTF8, strconv.Itoa(track.DiscNumber))
	}

	// Album Artist (TPE2)
	if len(track.AlbumArtists) > 0 {
		tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, strings.Join(track.AlbumArtists, ", "))
	}

	// ISRC (TSRC)
	if track.ISRC != "" {
		tag.AddTextFrame("TSRC", id3v2.EncodingUTF8, track.ISRC)
	}

	if artwork != nil {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     artwork,
		})
	}
}
