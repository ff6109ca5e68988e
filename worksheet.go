package xlstream

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const scratchBufferSize = 64 * 1024

// worksheet streams the rows of one sheet into a scratch file. The file is
// packaged into the container when the workbook is closed.
type worksheet struct {
	sheet               *Sheet
	lastWrittenRowIndex int
	maxColumns          int

	path   string
	file   io.WriteCloser
	buf    *bufio.Writer
	closed bool
}

func newWorksheet(fs FileSystem, dir string, sheet *Sheet, f containerFormat) (*worksheet, error) {
	path := filepath.Join(dir, fmt.Sprintf("sheet%d.part", sheet.index+1))
	file, err := fs.Create(path)
	if err != nil {
		return nil, ioError(fmt.Sprintf("create scratch file for sheet %q", sheet.name), err)
	}
	ws := &worksheet{
		sheet: sheet,
		path:  path,
		file:  file,
		buf:   bufio.NewWriterSize(file, scratchBufferSize),
	}
	if err := f.writeSheetStart(ws.buf); err != nil {
		file.Close()
		return nil, ioError(fmt.Sprintf("start sheet %q", sheet.name), err)
	}
	return ws, nil
}

// ExternalSheet returns the public identity of the worksheet.
func (ws *worksheet) ExternalSheet() *Sheet { return ws.sheet }

// LastWrittenRowIndex returns the 1-based number of the last row added, 0 when none.
func (ws *worksheet) LastWrittenRowIndex() int { return ws.lastWrittenRowIndex }

// addRow encodes row as the next row of the sheet. An encoding error leaves
// the scratch file untouched.
func (ws *worksheet) addRow(row *Row, f containerFormat) error {
	if ws.closed {
		return ioError(fmt.Sprintf("write to sheet %q", ws.sheet.name), os.ErrClosed)
	}
	rowNumber := ws.lastWrittenRowIndex + 1
	if err := f.writeRow(ws.buf, row, rowNumber); err != nil {
		return err
	}
	ws.lastWrittenRowIndex = rowNumber
	if n := len(row.Cells()); n > ws.maxColumns {
		ws.maxColumns = n
	}
	return nil
}

// close writes the sheet footer, flushes and releases the scratch file.
// It must be called exactly once.
func (ws *worksheet) close(f containerFormat) error {
	ws.closed = true
	err := f.writeSheetEnd(ws.buf)
	if err == nil {
		err = ws.buf.Flush()
	}
	if cerr := ws.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return ioError(fmt.Sprintf("finish sheet %q", ws.sheet.name), err)
	}
	return nil
}
