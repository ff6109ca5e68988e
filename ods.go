package xlstream

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	odsMimeType = "application/vnd.oasis.opendocument.spreadsheet"

	odsNamespaces = ` xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"` +
		` xmlns:style="urn:oasis:names:tc:opendocument:xmlns:style:1.0"` +
		` xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"` +
		` xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"` +
		` xmlns:fo="urn:oasis:names:tc:opendocument:xmlns:xsl-fo-compatible:1.0"` +
		` xmlns:meta="urn:oasis:names:tc:opendocument:xmlns:meta:1.0"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/"` +
		` xmlns:calcext="urn:org:documentfoundation:names:experimental:calc:xmlns:calcext:1.0"`
)

// odsFormat writes table rows to per-sheet scratch files and assembles them
// into content.xml when packaging, because all tables share one part.
type odsFormat struct {
	styles *styleRegistry
	fs     FileSystem
	buf    bytes.Buffer
}

func newODSFormat(fs FileSystem) *odsFormat {
	return &odsFormat{styles: newStyleRegistry(), fs: fs}
}

// The table element carries the sheet name, which may change until packaging.
func (o *odsFormat) writeSheetStart(io.Writer) error { return nil }
func (o *odsFormat) writeSheetEnd(io.Writer) error   { return nil }
func (o *odsFormat) release()                        {}

func (o *odsFormat) writeRow(w io.Writer, row *Row, rowNumber int) error {
	for _, c := range row.Cells() {
		if err := checkWritable(c); err != nil {
			return err
		}
	}
	o.buf.Reset()
	o.buf.WriteString(`<table:table-row table:style-name="ro1">`)
	if len(row.Cells()) == 0 {
		o.buf.WriteString(`<table:table-cell/>`)
	}
	for _, c := range row.Cells() {
		o.writeCell(c, cellStyle(row, c))
	}
	o.buf.WriteString(`</table:table-row>`)
	if _, err := w.Write(o.buf.Bytes()); err != nil {
		return ioError(fmt.Sprintf("write row %d", rowNumber), err)
	}
	return nil
}

func (o *odsFormat) writeCell(c *Cell, style *Style) {
	fmt.Fprintf(&o.buf, `<table:table-cell table:style-name="ce%d"`, o.styles.register(style)+1)
	switch {
	case c.IsString():
		o.buf.WriteString(` office:value-type="string" calcext:value-type="string">`)
		for _, line := range strings.Split(c.String(), "\n") {
			o.buf.WriteString(`<text:p>`)
			escapeXML(&o.buf, line)
			o.buf.WriteString(`</text:p>`)
		}
		o.buf.WriteString(`</table:table-cell>`)
	case c.IsBoolean():
		v := "false"
		if c.boolValue() {
			v = "true"
		}
		o.buf.WriteString(` office:value-type="boolean" calcext:value-type="boolean" office:boolean-value="` + v + `">`)
		o.buf.WriteString(`<text:p>` + v + `</text:p></table:table-cell>`)
	case c.IsNumeric():
		num := escapedXML(numericText(c))
		o.buf.WriteString(` office:value-type="float" calcext:value-type="float" office:value="` + num + `">`)
		o.buf.WriteString(`<text:p>` + num + `</text:p></table:table-cell>`)
	default:
		o.buf.WriteString(`/>`)
	}
}

func (o *odsFormat) pack(sink ArchiveSink, sheets []*worksheet) error {
	// The mimetype entry must come first and stay uncompressed.
	w, err := sink.Create("mimetype", true)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, odsMimeType); err != nil {
		return ioError("write mimetype", err)
	}
	if err := writeEntry(sink, "META-INF/manifest.xml", []byte(xmlHeader+
		`<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0" manifest:version="1.2">`+
		`<manifest:file-entry manifest:full-path="/" manifest:media-type="`+odsMimeType+`"/>`+
		`<manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>`+
		`<manifest:file-entry manifest:full-path="meta.xml" manifest:media-type="text/xml"/>`+
		`<manifest:file-entry manifest:full-path="styles.xml" manifest:media-type="text/xml"/>`+
		`</manifest:manifest>`)); err != nil {
		return err
	}
	if err := writeEntry(sink, "meta.xml", []byte(xmlHeader+`<office:document-meta`+odsNamespaces+` office:version="1.2"><office:meta>`+
		`<meta:generator>xlstream</meta:generator><meta:creation-date>`+time.Now().UTC().Format(time.RFC3339)+
		`</meta:creation-date></office:meta></office:document-meta>`)); err != nil {
		return err
	}
	if err := writeEntry(sink, "styles.xml", []byte(xmlHeader+`<office:document-styles`+odsNamespaces+` office:version="1.2">`+
		`<office:styles><style:default-style style:family="table-cell">`+
		`<style:text-properties style:font-name="`+DefaultFontName+`" fo:font-size="`+fmt.Sprint(DefaultFontSize)+`pt"/>`+
		`</style:default-style></office:styles></office:document-styles>`)); err != nil {
		return err
	}
	return o.packContent(sink, sheets)
}

// packContent writes content.xml: automatic styles, then every table with
// the rows streamed from its scratch file.
func (o *odsFormat) packContent(sink ArchiveSink, sheets []*worksheet) error {
	w, err := sink.Create("content.xml", false)
	if err != nil {
		return err
	}
	var head bytes.Buffer
	head.WriteString(xmlHeader + `<office:document-content` + odsNamespaces + ` office:version="1.2">`)
	head.WriteString(`<office:automatic-styles>`)
	head.WriteString(`<style:style style:name="ta1" style:family="table"><style:table-properties table:display="true"/></style:style>`)
	head.WriteString(`<style:style style:name="ro1" style:family="table-row"><style:table-row-properties style:use-optimal-row-height="true"/></style:style>`)
	for id, s := range o.styles.styles {
		o.writeAutomaticStyle(&head, id, s)
	}
	head.WriteString(`</office:automatic-styles><office:body><office:spreadsheet>`)
	if _, err := w.Write(head.Bytes()); err != nil {
		return ioError("write content header", err)
	}

	for _, ws := range sheets {
		var table bytes.Buffer
		table.WriteString(`<table:table table:style-name="ta1" table:name="`)
		escapeXML(&table, ws.sheet.name)
		fmt.Fprintf(&table, `"><table:table-column table:default-cell-style-name="ce1" table:number-columns-repeated="%d"/>`, max(ws.maxColumns, 1))
		if _, err := w.Write(table.Bytes()); err != nil {
			return ioError("write table header", err)
		}
		if err := copyFileInto(o.fs, w, ws.path); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</table:table>`); err != nil {
			return ioError("write table footer", err)
		}
	}
	if _, err := io.WriteString(w, `</office:spreadsheet></office:body></office:document-content>`); err != nil {
		return ioError("write content footer", err)
	}
	return nil
}

func (o *odsFormat) writeAutomaticStyle(b *bytes.Buffer, id int, s *Style) {
	fmt.Fprintf(b, `<style:style style:name="ce%d" style:family="table-cell">`, id+1)
	fmt.Fprintf(b, `<style:text-properties fo:font-size="%gpt" fo:color="#%s" style:font-name="`, s.FontSize(), s.FontColor())
	escapeXML(b, s.FontName())
	b.WriteString(`"`)
	if s.IsFontBold() {
		b.WriteString(` fo:font-weight="bold"`)
	}
	if s.IsFontItalic() {
		b.WriteString(` fo:font-style="italic"`)
	}
	if s.IsFontUnderline() {
		b.WriteString(` style:text-underline-style="solid" style:text-underline-type="single"`)
	}
	if s.IsFontStrikethrough() {
		b.WriteString(` style:text-line-through-style="solid"`)
	}
	b.WriteString(`/>`)
	if s.ShouldWrapText() || s.HasBackgroundColor() {
		b.WriteString(`<style:table-cell-properties`)
		if s.ShouldWrapText() {
			b.WriteString(` fo:wrap-option="wrap" style:vertical-align="automatic"`)
		}
		if s.HasBackgroundColor() {
			b.WriteString(` fo:background-color="#` + s.BackgroundColor() + `"`)
		}
		b.WriteString(`/>`)
	}
	b.WriteString(`</style:style>`)
}
