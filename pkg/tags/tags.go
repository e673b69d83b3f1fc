package tags

import (
	"fmt"

	"github.com/bogem/id3v2"
)

// Info is the metadata written to a track.
type Info struct {
	Title   string
	Artist  string
	Album   string
	Year    string
	Lyrics  string
	Comment string
}

// Write sets the ID3 frames of an mp3 file. Empty fields are left untouched.
func Write(path string, info Info) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("tags: couldn't open %s: %w", path, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if info.Title != "" {
		tag.SetTitle(info.Title)
	}
	if info.Artist != "" {
		tag.SetArtist(info.Artist)
	}
	if info.Album != "" {
		tag.SetAlbum(info.Album)
	}
	if info.Year != "" {
		tag.SetYear(info.Year)
	}
	if info.Lyrics != "" {
		tag.DeleteFrames(tag.CommonID("Unsynchronised lyrics/text transcription"))
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          id3v2.EncodingUTF8,
			Language:          "eng",
			ContentDescriptor: "",
			Lyrics:            info.Lyrics,
		})
	}
	if info.Comment != "" {
		tag.DeleteFrames(tag.CommonID("Comments"))
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "rapbattle",
			Text:        info.Comment,
		})
	}
	if err := tag.Save(); err != nil {
		return fmt.Errorf("tags: couldn't save %s: %w", path, err)
	}
	return nil
}
