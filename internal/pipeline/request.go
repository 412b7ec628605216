package pipeline

import (
	"path/filepath"
	"strconv"
	"strings"

	"factfetch/internal/textutil"
)

// Request is one candidate download inside a batch.
type Request struct {
	Subject   string
	SourceURL string
	// Ordinal is the 1-based position of the top-level link when the batch
	// has more than one; zero otherwise.
	Ordinal int
	// Position is the 1-based playlist position for playlist members; zero
	// otherwise.
	Position   int
	IsPlaylist bool
}

// Artifact is a downloaded file and its content digest.
type Artifact struct {
	Path      string
	Hash      string
	SourceURL string
	Size      int64
}

const videoExt = ".mp4"

// FileName builds "<slug>[_<ordinal>][_<position>]_<urlhash>.mp4".
func (r Request) FileName() string {
	return r.stem() + videoExt
}

func (r Request) stem() string {
	var b strings.Builder
	b.WriteString(textutil.Slug(r.Subject))
	if r.Ordinal > 0 {
		b.WriteByte('_')
		b.WriteString(strconv.Itoa(r.Ordinal))
	}
	if r.Position > 0 {
		b.WriteByte('_')
		b.WriteString(strconv.Itoa(r.Position))
	}
	b.WriteByte('_')
	b.WriteString(textutil.ShortHash(strings.TrimSpace(r.SourceURL)))
	return b.String()
}

// Destination joins FileName onto dir.
func (r Request) Destination(dir string) string {
	return filepath.Join(dir, r.FileName())
}

// StagingPath is where the downloader writes before the file is fingerprinted.
// It keeps the video extension so the downloader does not append another.
func (r Request) StagingPath(dir string) string {
	return filepath.Join(dir, r.stem()+".download"+videoExt)
}

// AlternatePath is used when Destination is already occupied by a different
// file; the content hash prefix keeps it distinct.
func (r Request) AlternatePath(dir, hash string) string {
	if len(hash) > 8 {
		hash = hash[:8]
	}
	return filepath.Join(dir, r.stem()+"_"+hash+videoExt)
}
