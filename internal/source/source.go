package source

import (
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/csvupload/internal/uploader"
)

// PathSource selects a file on disk by path. An empty path selects nothing.
type PathSource struct {
	path string
}

// NewPathSource returns a source for path.
func NewPathSource(path string) *PathSource {
	return &PathSource{path: path}
}

// Selected implements uploader.FileSource.
func (s *PathSource) Selected() (uploader.File, bool) {
	if s.path == "" {
		return nil, false
	}
	return &diskFile{path: s.path}, true
}

// ReaderSource selects an already open reader under a given name.
// A nil reader selects nothing.
type ReaderSource struct {
	name string
	r    io.Reader
}

// NewReaderSource returns a source that uploads r as name.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{name: name, r: r}
}

// Selected implements uploader.FileSource.
func (s *ReaderSource) Selected() (uploader.File, bool) {
	if s.r == nil {
		return nil, false
	}
	return &readerFile{name: s.name, r: s.r}, true
}

type diskFile struct {
	path string
}

func (f *diskFile) Name() string {
	return filepath.Base(f.path)
}

func (f *diskFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path) // #nosec G304 -- path is chosen by the user
}

type readerFile struct {
	name string
	r    io.Reader
}

func (f *readerFile) Name() string {
	return f.name
}

func (f *readerFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(f.r), nil
}
