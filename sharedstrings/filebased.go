package sharedstrings

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultChunkSize       = 10000
	DefaultMaxLoadedChunks = 3
)

// FileBasedStrategy writes strings to chunk files of chunkSize entries each
// and loads whole chunks on lookup, keeping the most recently used ones in
// memory. Each line of a chunk holds an index and its quoted value; a later
// line for the same index overrides an earlier one.
type FileBasedStrategy struct {
	dir       string
	chunkSize int
	loaded    *lru.Cache[int, map[int]string]

	// one chunk is open for appending at a time
	writeChunk int
	file       *os.File
	buf        *bufio.Writer
	closed     bool
}

// NewFileBasedStrategy creates its chunk directory inside tempDir
// (os.TempDir() when empty). Non-positive sizes use the defaults.
func NewFileBasedStrategy(tempDir string, chunkSize, maxLoadedChunks int) (*FileBasedStrategy, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if maxLoadedChunks <= 0 {
		maxLoadedChunks = DefaultMaxLoadedChunks
	}
	loaded, err := lru.New[int, map[int]string](maxLoadedChunks)
	if err != nil {
		return nil, fmt.Errorf("create chunk cache: %w", err)
	}
	dir, err := os.MkdirTemp(tempDir, "sharedstrings-*")
	if err != nil {
		return nil, ioError("create chunk directory", err)
	}
	return &FileBasedStrategy{dir: dir, chunkSize: chunkSize, loaded: loaded, writeChunk: -1}, nil
}

// Dir returns the chunk directory.
func (f *FileBasedStrategy) Dir() string { return f.dir }

func (f *FileBasedStrategy) chunkPath(chunk int) string {
	return filepath.Join(f.dir, fmt.Sprintf("chunk_%d.txt", chunk))
}

func (f *FileBasedStrategy) AddStringForIndex(value string, index int) error {
	if f.closed {
		return ErrCacheClosed
	}
	if index < 0 {
		return fmt.Errorf("negative shared string index %d", index)
	}
	chunk := index / f.chunkSize
	if chunk != f.writeChunk {
		if err := f.closeWriter(); err != nil {
			return err
		}
		file, err := os.OpenFile(f.chunkPath(chunk), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return ioError(fmt.Sprintf("open chunk %d", chunk), err)
		}
		f.file, f.buf, f.writeChunk = file, bufio.NewWriter(file), chunk
	}
	f.loaded.Remove(chunk)
	if _, err := f.buf.WriteString(strconv.Itoa(index) + "\t" + strconv.Quote(value) + "\n"); err != nil {
		return ioError(fmt.Sprintf("write chunk %d", chunk), err)
	}
	return nil
}

func (f *FileBasedStrategy) GetStringAtIndex(index int) (string, bool, error) {
	if index < 0 {
		return "", false, nil
	}
	chunk := index / f.chunkSize
	entries, ok := f.loaded.Get(chunk)
	if !ok {
		if chunk == f.writeChunk {
			if err := f.buf.Flush(); err != nil {
				return "", false, ioError(fmt.Sprintf("flush chunk %d", chunk), err)
			}
		}
		var err error
		entries, err = f.loadChunk(chunk)
		if err != nil {
			return "", false, err
		}
		f.loaded.Add(chunk, entries)
	}
	v, ok := entries[index]
	return v, ok, nil
}

func (f *FileBasedStrategy) loadChunk(chunk int) (map[int]string, error) {
	entries := make(map[int]string)
	file, err := os.Open(f.chunkPath(chunk))
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, ioError(fmt.Sprintf("open chunk %d", chunk), err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			idx, value, perr := parseChunkLine(strings.TrimSuffix(line, "\n"))
			if perr != nil {
				return nil, ioError(fmt.Sprintf("read chunk %d", chunk), perr)
			}
			entries[idx] = value
		}
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, ioError(fmt.Sprintf("read chunk %d", chunk), err)
		}
	}
}

func parseChunkLine(line string) (int, string, error) {
	rawIndex, quoted, ok := strings.Cut(line, "\t")
	if !ok {
		return 0, "", fmt.Errorf("malformed line %q", line)
	}
	idx, err := strconv.Atoi(rawIndex)
	if err != nil {
		return 0, "", err
	}
	value, err := strconv.Unquote(quoted)
	if err != nil {
		return 0, "", err
	}
	return idx, value, nil
}

func (f *FileBasedStrategy) closeWriter() error {
	if f.file == nil {
		return nil
	}
	err := f.buf.Flush()
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	chunk := f.writeChunk
	f.file, f.buf, f.writeChunk = nil, nil, -1
	if err != nil {
		return ioError(fmt.Sprintf("close chunk %d", chunk), err)
	}
	return nil
}

// CloseCache flushes the chunk being written.
func (f *FileBasedStrategy) CloseCache() error {
	f.closed = true
	return f.closeWriter()
}

// ClearCache removes the chunk directory.
func (f *FileBasedStrategy) ClearCache() error {
	f.closed = true
	werr := f.closeWriter()
	f.loaded.Purge()
	if err := os.RemoveAll(f.dir); err != nil {
		return ioError("remove chunk directory", err)
	}
	return werr
}
