package chime

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNoSource is returned when no chime file exists in the sound directory.
var ErrNoSource = errors.New("chime source not found")

// Format is the audio container of a chime file.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

const (
	mp3Name = "doorbell.mp3"
	wavName = "doorbell.wav"
)

// Source is a resolved chime file.
type Source struct {
	Path   string `json:"path"`
	Format Format `json:"format"`
}

// Resolver finds the chime file, preferring mp3 over wav.
type Resolver struct {
	dir string
}

// NewResolver creates a resolver rooted at dir.
func NewResolver(dir string) *Resolver {
	return &Resolver{dir: dir}
}

// Candidates lists the paths Resolve looks at, in order.
func (r *Resolver) Candidates() []string {
	return []string{
		filepath.Join(r.dir, mp3Name),
		filepath.Join(r.dir, wavName),
	}
}

// Resolve returns the first existing chime file.
func (r *Resolver) Resolve() (Source, error) {
	formats := []Format{FormatMP3, FormatWAV}
	for i, path := range r.Candidates() {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return Source{Path: path, Format: formats[i]}, nil
	}
	return Source{}, ErrNoSource
}
