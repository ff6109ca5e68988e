package xlstream

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	xlsxMainNS = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	xlsxRelNS  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	xmlHeader  = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

	xlsxSheetStart = xmlHeader + `<worksheet xmlns="` + xlsxMainNS + `" xmlns:r="` + xlsxRelNS + `"><sheetData>`
	xlsxSheetEnd   = `</sheetData></worksheet>`
)

// xlsxFormat writes SpreadsheetML worksheets and packages them with the
// workbook parts.
type xlsxFormat struct {
	styles *styleRegistry
	sst    *sharedStringsWriter // nil when strings are inlined
	fs     FileSystem
	buf    bytes.Buffer
}

func newXLSXFormat(fs FileSystem, dir string, inlineStrings bool) (*xlsxFormat, error) {
	x := &xlsxFormat{styles: newStyleRegistry(), fs: fs}
	if !inlineStrings {
		sst, err := newSharedStringsWriter(fs, dir)
		if err != nil {
			return nil, err
		}
		x.sst = sst
	}
	return x, nil
}

func (x *xlsxFormat) writeSheetStart(w io.Writer) error {
	_, err := io.WriteString(w, xlsxSheetStart)
	return err
}

func (x *xlsxFormat) writeSheetEnd(w io.Writer) error {
	_, err := io.WriteString(w, xlsxSheetEnd)
	return err
}

// writeRow skips empty rows; the row number still advances.
func (x *xlsxFormat) writeRow(w io.Writer, row *Row, rowNumber int) error {
	if row.IsEmpty() {
		return nil
	}
	cells := row.Cells()
	if len(cells) > excelize.MaxColumns {
		return fmt.Errorf("%w: row %d has %d cells, at most %d are allowed", ErrInvalidArgument, rowNumber, len(cells), excelize.MaxColumns)
	}
	for _, c := range cells {
		if err := checkWritable(c); err != nil {
			return err
		}
	}

	x.buf.Reset()
	fmt.Fprintf(&x.buf, `<row r="%d" spans="1:%d">`, rowNumber, len(cells))
	for i, c := range cells {
		if err := x.writeCell(c, cellStyle(row, c), i+1, rowNumber); err != nil {
			return err
		}
	}
	x.buf.WriteString(`</row>`)
	if _, err := w.Write(x.buf.Bytes()); err != nil {
		return ioError(fmt.Sprintf("write row %d", rowNumber), err)
	}
	return nil
}

func (x *xlsxFormat) writeCell(c *Cell, style *Style, col, rowNumber int) error {
	styleID := x.styles.register(style)
	if c.IsEmpty() && styleID == 0 {
		return nil
	}
	ref, err := excelize.CoordinatesToCellName(col, rowNumber)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	x.buf.WriteString(`<c r="` + ref + `"`)
	if styleID != 0 {
		x.buf.WriteString(` s="` + strconv.Itoa(styleID) + `"`)
	}
	switch {
	case c.IsString():
		if x.sst == nil {
			x.buf.WriteString(` t="inlineStr"><is><t xml:space="preserve">`)
			escapeXML(&x.buf, c.String())
			x.buf.WriteString(`</t></is></c>`)
			return nil
		}
		index, err := x.sst.add(c.String())
		if err != nil {
			return err
		}
		x.buf.WriteString(` t="s"><v>` + strconv.Itoa(index) + `</v></c>`)
	case c.IsBoolean():
		v := "0"
		if c.boolValue() {
			v = "1"
		}
		x.buf.WriteString(` t="b"><v>` + v + `</v></c>`)
	case c.IsNumeric():
		x.buf.WriteString(`><v>`)
		escapeXML(&x.buf, numericText(c))
		x.buf.WriteString(`</v></c>`)
	default:
		x.buf.WriteString(`/>`)
	}
	return nil
}

func (x *xlsxFormat) release() {
	if x.sst != nil {
		x.sst.release()
	}
}

func (x *xlsxFormat) pack(sink ArchiveSink, sheets []*worksheet) error {
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", x.contentTypesXML(len(sheets))},
		{"_rels/.rels", []byte(xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rIdWorkbook" Type="` + xlsxRelNS + `/officeDocument" Target="xl/workbook.xml"/>` +
			`<Relationship Id="rIdCore" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
			`<Relationship Id="rIdApp" Type="` + xlsxRelNS + `/extended-properties" Target="docProps/app.xml"/>` +
			`</Relationships>`)},
		{"docProps/app.xml", []byte(xmlHeader + `<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">` +
			`<Application>xlstream</Application><TotalTime>0</TotalTime></Properties>`)},
		{"docProps/core.xml", coreXML(time.Now())},
		{"xl/workbook.xml", x.workbookXML(sheets)},
		{"xl/_rels/workbook.xml.rels", x.workbookRelsXML(len(sheets))},
		{"xl/styles.xml", x.stylesXML()},
	}
	for _, p := range parts {
		if err := writeEntry(sink, p.name, p.data); err != nil {
			return err
		}
	}
	if x.sst != nil {
		if err := x.sst.pack(sink); err != nil {
			return err
		}
	}
	for i, ws := range sheets {
		name := fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1)
		w, err := sink.Create(name, false)
		if err != nil {
			return err
		}
		if err := copyFileInto(x.fs, w, ws.path); err != nil {
			return err
		}
	}
	return nil
}

func (x *xlsxFormat) contentTypesXML(numSheets int) []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default ContentType="application/vnd.openxmlformats-package.relationships+xml" Extension="rels"/>`)
	b.WriteString(`<Default ContentType="application/xml" Extension="xml"/>`)
	b.WriteString(`<Override ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml" PartName="/xl/workbook.xml"/>`)
	for i := 1; i <= numSheets; i++ {
		fmt.Fprintf(&b, `<Override ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml" PartName="/xl/worksheets/sheet%d.xml"/>`, i)
	}
	b.WriteString(`<Override ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml" PartName="/xl/styles.xml"/>`)
	if x.sst != nil {
		b.WriteString(`<Override ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml" PartName="/xl/sharedStrings.xml"/>`)
	}
	b.WriteString(`<Override ContentType="application/vnd.openxmlformats-package.core-properties+xml" PartName="/docProps/core.xml"/>`)
	b.WriteString(`<Override ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml" PartName="/docProps/app.xml"/>`)
	b.WriteString(`</Types>`)
	return b.Bytes()
}

func (x *xlsxFormat) workbookXML(sheets []*worksheet) []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader + `<workbook xmlns="` + xlsxMainNS + `" xmlns:r="` + xlsxRelNS + `">`)
	b.WriteString(`<bookViews><workbookView/></bookViews><sheets>`)
	for i, ws := range sheets {
		b.WriteString(`<sheet name="`)
		escapeXML(&b, ws.sheet.name)
		fmt.Fprintf(&b, `" sheetId="%d" r:id="rIdSheet%d"/>`, i+1, i+1)
	}
	b.WriteString(`</sheets></workbook>`)
	return b.Bytes()
}

func (x *xlsxFormat) workbookRelsXML(numSheets int) []byte {
	var b bytes.Buffer
	b.WriteString(xmlHeader + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	b.WriteString(`<Relationship Id="rIdStyles" Type="` + xlsxRelNS + `/styles" Target="styles.xml"/>`)
	if x.sst != nil {
		b.WriteString(`<Relationship Id="rIdSharedStrings" Type="` + xlsxRelNS + `/sharedStrings" Target="sharedStrings.xml"/>`)
	}
	for i := 1; i <= numSheets; i++ {
		fmt.Fprintf(&b, `<Relationship Id="rIdSheet%d" Type="%s/worksheet" Target="worksheets/sheet%d.xml"/>`, i, xlsxRelNS, i)
	}
	b.WriteString(`</Relationships>`)
	return b.Bytes()
}

// stylesXML renders one font per registered style and one fill per distinct
// background color.
func (x *xlsxFormat) stylesXML() []byte {
	fills := map[string]int{}
	var fillOrder []string
	for _, s := range x.styles.styles {
		if bg := s.BackgroundColor(); bg != "" {
			if _, ok := fills[bg]; !ok {
				fills[bg] = len(fillOrder) + 2
				fillOrder = append(fillOrder, bg)
			}
		}
	}

	var b bytes.Buffer
	b.WriteString(xmlHeader + `<styleSheet xmlns="` + xlsxMainNS + `">`)
	fmt.Fprintf(&b, `<fonts count="%d">`, len(x.styles.styles))
	for _, s := range x.styles.styles {
		b.WriteString(`<font>`)
		if s.IsFontBold() {
			b.WriteString(`<b/>`)
		}
		if s.IsFontItalic() {
			b.WriteString(`<i/>`)
		}
		if s.IsFontUnderline() {
			b.WriteString(`<u/>`)
		}
		if s.IsFontStrikethrough() {
			b.WriteString(`<strike/>`)
		}
		fmt.Fprintf(&b, `<sz val="%g"/><color rgb="FF%s"/><name val="`, s.FontSize(), s.FontColor())
		escapeXML(&b, s.FontName())
		b.WriteString(`"/></font>`)
	}
	b.WriteString(`</fonts>`)

	fmt.Fprintf(&b, `<fills count="%d">`, len(fillOrder)+2)
	b.WriteString(`<fill><patternFill patternType="none"/></fill><fill><patternFill patternType="gray125"/></fill>`)
	for _, bg := range fillOrder {
		fmt.Fprintf(&b, `<fill><patternFill patternType="solid"><fgColor rgb="FF%s"/><bgColor indexed="64"/></patternFill></fill>`, bg)
	}
	b.WriteString(`</fills>`)
	b.WriteString(`<borders count="1"><border><left/><right/><top/><bottom/><diagonal/></border></borders>`)
	b.WriteString(`<cellStyleXfs count="1"><xf borderId="0" fillId="0" fontId="0" numFmtId="0"/></cellStyleXfs>`)

	fmt.Fprintf(&b, `<cellXfs count="%d">`, len(x.styles.styles))
	for id, s := range x.styles.styles {
		fillID := fills[s.BackgroundColor()]
		fmt.Fprintf(&b, `<xf numFmtId="0" fontId="%d" fillId="%d" borderId="0" xfId="0"`, id, fillID)
		if id > 0 {
			b.WriteString(` applyFont="1"`)
		}
		if fillID > 0 {
			b.WriteString(` applyFill="1"`)
		}
		if s.ShouldWrapText() {
			b.WriteString(` applyAlignment="1"><alignment wrapText="1"/></xf>`)
		} else {
			b.WriteString(`/>`)
		}
	}
	b.WriteString(`</cellXfs>`)
	b.WriteString(`<cellStyles count="1"><cellStyle builtinId="0" name="Normal" xfId="0"/></cellStyles>`)
	b.WriteString(`</styleSheet>`)
	return b.Bytes()
}

func coreXML(now time.Time) []byte {
	ts := now.UTC().Format(time.RFC3339)
	return []byte(xmlHeader + `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcmitype="http://purl.org/dc/dcmitype/"` +
		` xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<dcterms:created xsi:type="dcterms:W3CDTF">` + ts + `</dcterms:created>` +
		`<dcterms:modified xsi:type="dcterms:W3CDTF">` + ts + `</dcterms:modified>` +
		`<cp:revision>0</cp:revision></cp:coreProperties>`)
}

// sharedStringsWriter streams string values to a scratch file in table
// order. Strings are not deduplicated, so memory stays constant.
type sharedStringsWriter struct {
	fs     FileSystem
	path   string
	file   io.WriteCloser
	buf    *bufio.Writer
	count  int
	closed bool
	entry  bytes.Buffer
}

func newSharedStringsWriter(fs FileSystem, dir string) (*sharedStringsWriter, error) {
	path := filepath.Join(dir, "sharedStrings.part")
	file, err := fs.Create(path)
	if err != nil {
		return nil, ioError("create shared strings scratch file", err)
	}
	return &sharedStringsWriter{fs: fs, path: path, file: file, buf: bufio.NewWriterSize(file, scratchBufferSize)}, nil
}

// add appends s and returns its index in the table.
func (s *sharedStringsWriter) add(value string) (int, error) {
	s.entry.Reset()
	s.entry.WriteString(`<si><t xml:space="preserve">`)
	escapeXML(&s.entry, value)
	s.entry.WriteString(`</t></si>`)
	if _, err := s.buf.Write(s.entry.Bytes()); err != nil {
		return 0, ioError("write shared string", err)
	}
	index := s.count
	s.count++
	return index, nil
}

func (s *sharedStringsWriter) pack(sink ArchiveSink) error {
	err := s.buf.Flush()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	s.closed = true
	if err != nil {
		return ioError("finish shared strings", err)
	}
	w, err := sink.Create("xl/sharedStrings.xml", false)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `%s<sst xmlns="%s" count="%d" uniqueCount="%d">`, xmlHeader, xlsxMainNS, s.count, s.count); err != nil {
		return ioError("write shared strings header", err)
	}
	if err := copyFileInto(s.fs, w, s.path); err != nil {
		return err
	}
	if _, err := io.WriteString(w, `</sst>`); err != nil {
		return ioError("write shared strings footer", err)
	}
	return nil
}

func (s *sharedStringsWriter) release() {
	if !s.closed {
		s.closed = true
		s.file.Close()
	}
}
