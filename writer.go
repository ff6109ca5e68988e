package xlstream

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"

	"go.uber.org/zap"
)

type writerState int

const (
	stateUnopened writerState = iota
	stateOpened
	stateClosed
)

// Writer streams rows into a spreadsheet container. Its lifecycle is
// NewWriter, one Open* call, any number of AddRow* calls, then Close.
// A Writer must not be used from several goroutines at once.
type Writer struct {
	format Format
	opts   *options
	logger *zap.Logger
	hooks  writerHooks
	state  writerState

	sink       io.Writer
	sinkCloser io.Closer
	outputPath string // set when writing to the file system
}

// NewWriter creates a writer for format.
func NewWriter(format Format, opts ...Option) (*Writer, error) {
	if !format.valid() {
		return nil, fmt.Errorf("%w: unknown format %v", ErrInvalidArgument, format)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	namer, err := newSheetNamer(o.sheetNameExpr)
	if err != nil {
		return nil, err
	}
	return &Writer{
		format: format,
		opts:   o,
		logger: o.logger,
		hooks:  newWorkbook(format, o, namer),
	}, nil
}

// Format returns the container format of the writer.
func (w *Writer) Format() Format { return w.format }

// OpenToFile creates the file at outputPath and opens the writer on it.
func (w *Writer) OpenToFile(outputPath string) error {
	if err := w.checkUnopened(); err != nil {
		return err
	}
	f, err := w.opts.fs.Create(outputPath)
	if err != nil {
		return ioError(fmt.Sprintf("create output file %q", outputPath), err)
	}
	w.outputPath = outputPath
	if err := w.open(f, f); err != nil {
		w.removeOutputFile()
		return err
	}
	return nil
}

// OpenToHTTP streams the container to an HTTP response as a download named
// after the base name of fileName.
func (w *Writer) OpenToHTTP(rw http.ResponseWriter, fileName string) error {
	if rw == nil {
		return fmt.Errorf("%w: nil response writer", ErrInvalidArgument)
	}
	if err := w.checkUnopened(); err != nil {
		return err
	}
	name := path.Base(filepath.ToSlash(fileName))
	h := rw.Header()
	h.Set("Content-Type", w.format.ContentType())
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	h.Set("Cache-Control", "max-age=0")
	h.Set("Pragma", "public")
	return w.open(rw, nil)
}

// OpenToWriter streams the container to dst. The writer does not close dst.
func (w *Writer) OpenToWriter(dst io.Writer) error {
	if dst == nil {
		return fmt.Errorf("%w: nil destination", ErrInvalidArgument)
	}
	if err := w.checkUnopened(); err != nil {
		return err
	}
	return w.open(dst, nil)
}

func (w *Writer) checkUnopened() error {
	if w.state != stateUnopened {
		return ErrWriterAlreadyOpened
	}
	return nil
}

func (w *Writer) open(sink io.Writer, closer io.Closer) error {
	if err := w.hooks.open(); err != nil {
		if closer != nil {
			closer.Close()
		}
		return err
	}
	w.sink = sink
	w.sinkCloser = closer
	w.state = stateOpened
	w.logger.Debug("writer opened", zap.Stringer("format", w.format), zap.String("output", w.outputPath))
	return nil
}

// AddRow appends a row to the current sheet, with the default row style
// merged under the row style. If writing fails, the writer is closed, the
// output file is deleted and the original error is returned.
func (w *Writer) AddRow(in RowInput) error {
	row, err := resolveRow(in, nil)
	if err != nil {
		return err
	}
	return w.addRow(row)
}

// AddRowWithStyle appends a row rendered with style.
func (w *Writer) AddRowWithStyle(in RowInput, style *Style) error {
	if style == nil {
		return fmt.Errorf("%w: style must not be nil", ErrInvalidArgument)
	}
	row, err := resolveRow(in, style)
	if err != nil {
		return err
	}
	return w.addRow(row)
}

// AddRows appends rows in order and stops at the first failure. Rows added
// before the failure are kept.
func (w *Writer) AddRows(rows []RowInput) error {
	for _, in := range rows {
		if err := w.AddRow(in); err != nil {
			return err
		}
	}
	return nil
}

// AddRowsWithStyle is AddRows with the same style for every row.
func (w *Writer) AddRowsWithStyle(rows []RowInput, style *Style) error {
	if style == nil {
		return fmt.Errorf("%w: style must not be nil", ErrInvalidArgument)
	}
	for _, in := range rows {
		if err := w.AddRowWithStyle(in, style); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) addRow(row *Row) error {
	if w.state != stateOpened {
		return ErrWriterNotOpened
	}
	row.ApplyStyle(w.opts.defaultRowStyle)
	if err := w.hooks.addRow(row); err != nil {
		w.closeAndCleanup(err)
		return err
	}
	return nil
}

// closeAndCleanup closes the writer and deletes everything it created so far.
func (w *Writer) closeAndCleanup(cause error) {
	w.logger.Warn("write failed, discarding output", zap.String("output", w.outputPath), zap.Error(cause))
	if err := w.Close(); err != nil {
		w.logger.Debug("close after failed write", zap.Error(err))
	}
	w.removeOutputFile()
}

func (w *Writer) removeOutputFile() {
	if w.outputPath == "" || !w.opts.fs.Exists(w.outputPath) {
		return
	}
	if err := w.opts.fs.Remove(w.outputPath); err != nil {
		w.logger.Warn("remove output file", zap.String("output", w.outputPath), zap.Error(err))
	}
}

// Close packages all sheets into the output and releases every resource.
// It does nothing if the writer is not opened. When packaging fails the
// output file is deleted.
func (w *Writer) Close() error {
	if w.state != stateOpened {
		return nil
	}
	w.state = stateClosed
	err := w.hooks.close(w.sink)
	if w.sinkCloser != nil {
		if cerr := w.sinkCloser.Close(); cerr != nil {
			err = errors.Join(err, ioError("close output", cerr))
		}
	}
	w.sink, w.sinkCloser = nil, nil
	if err != nil {
		w.removeOutputFile()
		return err
	}
	w.logger.Debug("writer closed", zap.String("output", w.outputPath))
	return nil
}

// sheetManager is implemented by hooks that manage several sheets.
type sheetManager interface {
	Sheets() []*Sheet
	currentWorksheet() *worksheet
	addNewSheetAndMakeItCurrent() (*worksheet, error)
	setCurrentSheet(*Sheet) error
}

func (w *Writer) sheets() (sheetManager, error) {
	if w.state != stateOpened {
		return nil, ErrWriterNotOpened
	}
	m, ok := w.hooks.(sheetManager)
	if !ok {
		return nil, fmt.Errorf("%w: %v writer has no sheets", ErrInvalidArgument, w.format)
	}
	return m, nil
}

// Sheets returns the sheets of the workbook in order.
func (w *Writer) Sheets() ([]*Sheet, error) {
	m, err := w.sheets()
	if err != nil {
		return nil, err
	}
	return m.Sheets(), nil
}

// CurrentSheet returns the sheet rows are currently written to.
func (w *Writer) CurrentSheet() (*Sheet, error) {
	m, err := w.sheets()
	if err != nil {
		return nil, err
	}
	return m.currentWorksheet().sheet, nil
}

// AddNewSheetAndMakeItCurrent creates a sheet and writes the next rows to it.
func (w *Writer) AddNewSheetAndMakeItCurrent() (*Sheet, error) {
	m, err := w.sheets()
	if err != nil {
		return nil, err
	}
	ws, err := m.addNewSheetAndMakeItCurrent()
	if err != nil {
		return nil, err
	}
	return ws.sheet, nil
}

// SetCurrentSheet resumes writing on sheet, after its last written row.
func (w *Writer) SetCurrentSheet(sheet *Sheet) error {
	m, err := w.sheets()
	if err != nil {
		return err
	}
	return m.setCurrentSheet(sheet)
}
