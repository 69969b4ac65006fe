package audio

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"go.uber.org/zap"

	"github.com/Trevrosa/sptfydl/internal/model"
)

// tagFLAC writes a Vorbis comment block and cover picture into a FLAC
// file, replacing any existing ones.
func (t *Tagger) tagFLAC(ctx context.Context, path string, track model.TrackDescriptor) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}

	// Drop stale comment and picture blocks before appending ours
	var kept []*flac.MetaDataBlock
	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment && block.Type != flac.Picture {
			kept = append(kept, block)
		}
	}
	f.Meta = kept

	comment := buildVorbis(track)
	block := comment.Marshal()
	f.Meta = append(f.Meta, &block)

	if artwork := t.artwork(ctx, track); artwork != nil {
		picture, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Cover", artwork, "image/jpeg")
		if err != nil {
			t.log.Warn("could not build flac picture block", zap.Error(err))
		} else {
			pictureBlock := picture.Marshal()
			f.Meta = append(f.Meta, &pictureBlock)
		}
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save flac: %w", err)
	}
	return nil
}

// buildVorbis assembles the comment block for a track.
func buildVorbis(track model.TrackDescriptor) *flacvorbis.MetaDataBlockVorbisComment {
	comment := flacvorbis.New()

	addVorbisField(comment, flacvorbis.FIELD_TITLE, track.Title)
	addVorbisField(comment, flacvorbis.FIELD_ARTIST, track.JoinedArtists())
	addVorbisField(comment, flacvorbis.FIELD_ALBUM, track.AlbumName)
	addVorbisField(comment, "ALBUMARTIST", strings.Join(track.AlbumArtists, ", "))
	addVorbisField(comment, flacvorbis.FIELD_GENRE, strings.Join(track.Genres(), "; "))

	if track.TrackNumber > 0 {
		addVorbisField(comment, flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(track.TrackNumber))
	}
	if track.DiscNumber > 0 {
		addVorbisField(comment, "DISCNUMBER", strconv.Itoa(track.DiscNumber))
	}

	addVorbisField(comment, flacvorbis.FIELD_DATE, track.ReleaseDate)
	addVorbisField(comment, "YEAR", track.Year())
	addVorbisField(comment, flacvorbis.FIELD_ISRC, track.ISRC)

	return comment
}

// addVorbisField skips empty values so files never carry blank fields.
func addVorbisField(comment *flacvorbis.MetaDataBlockVorbisComment, field, value string) {
	if value != "" {
		comment.Add(field, value)
	}
}
