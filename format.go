package xlstream

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Format selects the container a Writer produces.
type Format int

const (
	FormatXLSX Format = iota // Office Open XML spreadsheet
	FormatODS                // OpenDocument spreadsheet
)

// MaxRowsPerSheetXLSX and MaxRowsPerSheetODS are the row ceilings of one sheet.
const (
	MaxRowsPerSheetXLSX = 1048576
	MaxRowsPerSheetODS  = 1048576
)

// String returns the file extension of the format without the dot.
func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatODS:
		return "ods"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ContentType returns the MIME type sent when streaming the format over HTTP.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatODS:
		return "application/vnd.oasis.opendocument.spreadsheet"
	default:
		return "application/octet-stream"
	}
}

// MaxRowsPerSheet returns the row capacity of one sheet.
func (f Format) MaxRowsPerSheet() int {
	switch f {
	case FormatODS:
		return MaxRowsPerSheetODS
	default:
		return MaxRowsPerSheetXLSX
	}
}

func (f Format) valid() bool { return f == FormatXLSX || f == FormatODS }

// containerFormat serializes rows for one format and assembles its container.
type containerFormat interface {
	writeSheetStart(w io.Writer) error
	// writeRow encodes row as row number rowNumber (1-based). Nothing is
	// written when encoding fails.
	writeRow(w io.Writer, row *Row, rowNumber int) error
	writeSheetEnd(w io.Writer) error
	// pack writes every container entry. Worksheets are already closed.
	pack(sink ArchiveSink, sheets []*worksheet) error
	// release closes format-level scratch files.
	release()
}

func newContainerFormat(tag Format, fs FileSystem, dir string, inlineStrings bool) (containerFormat, error) {
	switch tag {
	case FormatXLSX:
		return newXLSXFormat(fs, dir, inlineStrings)
	case FormatODS:
		return newODSFormat(fs), nil
	}
	return nil, fmt.Errorf("%w: unknown format %v", ErrInvalidArgument, tag)
}

// cellStyle returns the style a cell is rendered with: the cell style over
// the row style, with wrap text turned on for multi-line text unless the
// style decides it explicitly.
func cellStyle(row *Row, c *Cell) *Style {
	s := row.Style()
	if cs := c.Style(); cs != nil {
		s = cs.MergeWith(s)
	}
	if c.IsString() && !s.HasSetWrapText() && strings.ContainsRune(c.String(), '\n') {
		s = s.withWrapText()
	}
	return s
}

// checkWritable rejects values neither container can represent.
func checkWritable(c *Cell) error {
	switch {
	case c.IsError():
		return fmt.Errorf("%w: unsupported cell value of type %T", ErrInvalidArgument, c.Value())
	case c.IsNumeric() && !c.isFinite():
		return fmt.Errorf("%w: cell value %v is not a finite number", ErrInvalidArgument, c.Value())
	}
	return nil
}

// styleRegistry numbers distinct styles of a workbook. Id 0 is the empty style.
type styleRegistry struct {
	ids    map[string]int
	styles []*Style
}

func newStyleRegistry() *styleRegistry {
	r := &styleRegistry{ids: make(map[string]int)}
	r.register(NewStyle())
	return r
}

func (r *styleRegistry) register(s *Style) int {
	k := s.key()
	if id, ok := r.ids[k]; ok {
		return id
	}
	id := len(r.styles)
	r.ids[k] = id
	r.styles = append(r.styles, s)
	return id
}

// escapeXML writes s escaped for element text and attribute values.
func escapeXML(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}

func escapedXML(s string) string {
	var buf bytes.Buffer
	escapeXML(&buf, s)
	return buf.String()
}

// numericText returns the numeric representation written for a numeric cell.
func numericText(c *Cell) string {
	return strings.TrimLeft(c.String(), " \t\r\n")
}
