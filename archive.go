package xlstream

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// ArchiveSink receives the named entries of a container and seals them into
// the packaged bytes.
type ArchiveSink interface {
	// Create starts a new entry. The previous entry is finished implicitly.
	// Stored entries are written without compression.
	Create(name string, stored bool) (io.Writer, error)
	// Seal writes the archive directory. No entry can be added afterwards.
	Seal() error
}

// zipSink is an ArchiveSink streaming a zip container to an io.Writer.
type zipSink struct {
	zw      *zip.Writer
	counter *countingWriter
}

func newZipSink(w io.Writer) *zipSink {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	return &zipSink{zw: zw, counter: cw}
}

func (z *zipSink) Create(name string, stored bool) (io.Writer, error) {
	method := zip.Deflate
	if stored {
		method = zip.Store
	}
	w, err := z.zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return nil, ioError(fmt.Sprintf("create archive entry %q", name), err)
	}
	return w, nil
}

func (z *zipSink) Seal() error {
	if err := z.zw.Close(); err != nil {
		return ioError("seal archive", err)
	}
	return nil
}

// Written returns the number of packaged bytes sent to the destination.
func (z *zipSink) Written() int64 { return z.counter.n }

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeEntry writes data as a complete entry.
func writeEntry(sink ArchiveSink, name string, data []byte) error {
	w, err := sink.Create(name, false)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return ioError(fmt.Sprintf("write archive entry %q", name), err)
	}
	return nil
}

// copyFileInto streams a scratch file into w.
func copyFileInto(fs FileSystem, w io.Writer, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		return ioError(fmt.Sprintf("open scratch file %q", path), err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return ioError(fmt.Sprintf("copy scratch file %q", path), err)
	}
	return nil
}
