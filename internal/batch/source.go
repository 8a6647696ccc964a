package batch

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source is the read-only payload behind a batch item.
type Source interface {
	Name() string
	Size() int64
	Open() (io.ReadCloser, error)
}

type FileSource struct {
	path string
	size int64
}

// NewFileSource captures the size of the file at path. The file is reopened
// on every Open so a source can be transcribed more than once.
func NewFileSource(path string) (*FileSource, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("audio file %s is a directory", path)
	}
	return &FileSource{path: path, size: info.Size()}, nil
}

func (f *FileSource) Name() string { return filepath.Base(f.path) }

func (f *FileSource) Size() int64 { return f.size }

func (f *FileSource) Path() string { return f.path }

func (f *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

type MemorySource struct {
	name string
	data []byte
}

func NewMemorySource(name string, data []byte) *MemorySource {
	return &MemorySource{name: name, data: data}
}

func (m *MemorySource) Name() string { return m.name }

func (m *MemorySource) Size() int64 { return int64(len(m.data)) }

func (m *MemorySource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}
