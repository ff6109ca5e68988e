package xlstream

import (
	"io"
	"os"
)

// FileSystem is the file capability used for the output file and for the
// per-sheet scratch files. The default implementation uses the os package.
type FileSystem interface {
	Create(name string) (io.WriteCloser, error)
	Open(name string) (io.ReadCloser, error)
	Exists(name string) bool
	Remove(name string) error
	MkdirTemp(dir, pattern string) (string, error)
	RemoveAll(path string) error
}

// OSFileSystem implements FileSystem on top of the local disk.
type OSFileSystem struct{}

func (OSFileSystem) Create(name string) (io.WriteCloser, error) { return os.Create(name) }
func (OSFileSystem) Open(name string) (io.ReadCloser, error)    { return os.Open(name) }
func (OSFileSystem) Remove(name string) error                   { return os.Remove(name) }
func (OSFileSystem) RemoveAll(path string) error                { return os.RemoveAll(path) }

func (OSFileSystem) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
