// Package dataset reads the bundled latency dataset used when a request
// arrives without a body.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// DefaultFile is the dataset file name shipped next to the binary.
const DefaultFile = "q-vercel-latency.json"

// Source supplies raw fallback payload bytes.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// FileSource reads the dataset from disk on every call so that replacing
// the file takes effect without a restart.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path, defaulting to DefaultFile.
func NewFileSource(path string) *FileSource {
	if path == "" {
		path = DefaultFile
	}
	return &FileSource{path: path}
}

// Path returns the file the source reads.
func (s *FileSource) Path() string { return s.path }

// Load returns the file contents. A missing file yields ErrNotFound; any
// other failure yields ErrRead.
func (s *FileSource) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, s.path, err)
	}
	return data, nil
}
