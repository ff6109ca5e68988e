package xlstream

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// newFileWriter opens a writer on a fresh file and returns it with the file
// path and the scratch folder it uses.
func newFileWriter(t *testing.T, format Format, opts ...Option) (w *Writer, path, scratch string) {
	t.Helper()
	scratch = t.TempDir()
	path = filepath.Join(t.TempDir(), "out."+format.String())
	w, err := NewWriter(format, append([]Option{WithTempDir(scratch)}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, w.OpenToFile(path))
	return w, path, scratch
}

// openWorkbook reopens a written XLSX file with excelize.
func openWorkbook(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func sheetRows(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

// zipEntries returns the entries of a zip container in archive order.
func zipEntries(t *testing.T, data []byte) []*zip.File {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return zr.File
}

// zipEntry returns the content of one entry of the zip container at path.
func zipEntry(t *testing.T, path, name string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, f := range zipEntries(t, data) {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return ""
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "%s should be empty", dir)
}

var errInjected = errors.New("injected failure")

// faultyFS fails Create for every path containing failOn.
type faultyFS struct {
	OSFileSystem
	failOn string
}

func (fs faultyFS) Create(name string) (io.WriteCloser, error) {
	if fs.failOn != "" && strings.Contains(filepath.Base(name), fs.failOn) {
		return nil, errInjected
	}
	return fs.OSFileSystem.Create(name)
}

// failingWriter accepts limit bytes, then fails.
type failingWriter struct {
	limit int
	n     int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.limit {
		return 0, errInjected
	}
	w.n += len(p)
	return len(p), nil
}
