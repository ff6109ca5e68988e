package xlstream

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// writerHooks is the format side of the writer lifecycle.
type writerHooks interface {
	open() error
	addRow(row *Row) error
	close(dst io.Writer) error
}

// workbook owns the worksheets of one document, the current sheet pointer and
// the pagination policy.
type workbook struct {
	tag     Format
	opts    *options
	namer   *sheetNamer
	logger  *zap.Logger
	format  containerFormat
	dir     string
	names   *nameRegistry
	maxRows int

	worksheets []*worksheet
	current    int
}

func newWorkbook(tag Format, opts *options, namer *sheetNamer) *workbook {
	maxRows := tag.MaxRowsPerSheet()
	if opts.maxRowsPerSheet > 0 && opts.maxRowsPerSheet < maxRows {
		maxRows = opts.maxRowsPerSheet
	}
	return &workbook{
		tag:     tag,
		opts:    opts,
		namer:   namer,
		logger:  opts.logger.With(zap.String("format", tag.String())),
		names:   newNameRegistry(),
		maxRows: maxRows,
	}
}

// open creates the scratch directory and the first sheet.
func (wb *workbook) open() error {
	dir, err := wb.opts.fs.MkdirTemp(wb.opts.tempDir, "xlstream-*")
	if err != nil {
		return ioError("create scratch directory", err)
	}
	wb.dir = dir
	wb.format, err = newContainerFormat(wb.tag, wb.opts.fs, dir, wb.opts.inlineStrings)
	if err == nil {
		_, err = wb.addNewSheetAndMakeItCurrent()
	}
	if err != nil {
		wb.release()
		return err
	}
	return nil
}

// addNewSheet creates a sheet at the end of the workbook. The current sheet is unchanged.
func (wb *workbook) addNewSheet() (*worksheet, error) {
	index := len(wb.worksheets)
	name, err := wb.namer.name(index, wb.tag)
	if err != nil {
		return nil, err
	}
	sheet := &Sheet{index: index, book: wb.names}
	if err := sheet.SetName(name); err != nil {
		return nil, err
	}
	ws, err := newWorksheet(wb.opts.fs, wb.dir, sheet, wb.format)
	if err != nil {
		delete(wb.names.owners, name)
		return nil, err
	}
	wb.worksheets = append(wb.worksheets, ws)
	wb.logger.Debug("worksheet created", zap.Int("index", index), zap.String("name", name))
	return ws, nil
}

// addNewSheetAndMakeItCurrent creates a sheet and moves writing to it.
// Rows already written to other sheets are kept.
func (wb *workbook) addNewSheetAndMakeItCurrent() (*worksheet, error) {
	ws, err := wb.addNewSheet()
	if err != nil {
		return nil, err
	}
	wb.current = len(wb.worksheets) - 1
	return ws, nil
}

func (wb *workbook) currentWorksheet() *worksheet { return wb.worksheets[wb.current] }

// Sheets returns the sheets in workbook order.
func (wb *workbook) Sheets() []*Sheet {
	sheets := make([]*Sheet, len(wb.worksheets))
	for i, ws := range wb.worksheets {
		sheets[i] = ws.sheet
	}
	return sheets
}

// setCurrentSheet moves writing to the worksheet behind sheet.
func (wb *workbook) setCurrentSheet(sheet *Sheet) error {
	for i, ws := range wb.worksheets {
		if ws.sheet == sheet {
			wb.current = i
			return nil
		}
	}
	return ErrSheetNotFound
}

// addRow appends row to the current worksheet. A full worksheet is replaced
// by a new current one when automatic creation is enabled.
func (wb *workbook) addRow(row *Row) error {
	ws := wb.currentWorksheet()
	if ws.lastWrittenRowIndex >= wb.maxRows {
		if !wb.opts.autoNewSheets {
			return fmt.Errorf("%w: sheet %q already holds %d rows", ErrCapacityExceeded, ws.sheet.name, wb.maxRows)
		}
		next, err := wb.addNewSheetAndMakeItCurrent()
		if err != nil {
			return err
		}
		wb.logger.Info("sheet full, continuing on a new sheet",
			zap.String("full", ws.sheet.name), zap.String("next", next.sheet.name), zap.Int("maxRows", wb.maxRows))
		ws = next
	}
	return ws.addRow(row, wb.format)
}

// close finishes every worksheet, packages the container into dst and removes
// the scratch directory whatever the outcome.
func (wb *workbook) close(dst io.Writer) error {
	defer wb.release()

	var errs []error
	for _, ws := range wb.worksheets {
		if !ws.closed {
			errs = append(errs, ws.close(wb.format))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	sink := newZipSink(dst)
	if err := wb.format.pack(sink, wb.worksheets); err != nil {
		return err
	}
	if err := sink.Seal(); err != nil {
		return err
	}
	wb.logger.Debug("workbook packaged",
		zap.Int("sheets", len(wb.worksheets)), zap.String("size", humanize.Bytes(uint64(sink.Written()))))
	return nil
}

// release closes open scratch handles and deletes the scratch directory.
func (wb *workbook) release() {
	for _, ws := range wb.worksheets {
		if !ws.closed {
			ws.closed = true
			ws.file.Close()
		}
	}
	if wb.format != nil {
		wb.format.release()
	}
	if wb.dir == "" {
		return
	}
	if err := wb.opts.fs.RemoveAll(wb.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		wb.logger.Warn("remove scratch directory", zap.String("dir", wb.dir), zap.Error(err))
	}
	wb.dir = ""
}
