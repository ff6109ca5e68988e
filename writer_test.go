package xlstream

import (
	"bytes"
	"math"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWriter_InvalidArguments(t *testing.T) {
	_, err := NewWriter(Format(9))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewWriter(FormatXLSX, WithSheetNameExpression(`1 +`))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWriter_Lifecycle(t *testing.T) {
	w, err := NewWriter(FormatXLSX, WithTempDir(t.TempDir()))
	require.NoError(t, err)

	assert.ErrorIs(t, w.AddRow(Values("too early")), ErrWriterNotOpened)
	assert.NoError(t, w.Close(), "closing an unopened writer does nothing")

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, w.OpenToFile(path))
	assert.ErrorIs(t, w.OpenToFile(path), ErrWriterAlreadyOpened)
	assert.ErrorIs(t, w.OpenToWriter(&bytes.Buffer{}), ErrWriterAlreadyOpened)

	require.NoError(t, w.AddRow(Values("a", 1)))
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close(), "second close does nothing")

	assert.ErrorIs(t, w.AddRow(Values("too late")), ErrWriterNotOpened)
	assert.ErrorIs(t, w.OpenToFile(path), ErrWriterAlreadyOpened)
	assert.FileExists(t, path)
}

func TestWriter_XLSXValues(t *testing.T) {
	w, path, scratch := newFileWriter(t, FormatXLSX)
	require.NoError(t, w.AddRow(Values("Name", "Age", "Score")))
	require.NoError(t, w.AddRow(Values("Alice", 30, 9.5)))
	require.NoError(t, w.AddRow(Values("Bob", "  41", nil, "x & <y>")))
	require.NoError(t, w.Close())
	requireEmptyDir(t, scratch)

	f := openWorkbook(t, path)
	assert.Equal(t, []string{"Sheet1"}, f.GetSheetList())
	rows := sheetRows(t, f, "Sheet1")
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Age", "Score"}, rows[0])
	assert.Equal(t, []string{"Alice", "30", "9.5"}, rows[1])
	assert.Equal(t, []string{"Bob", "41", "", "x & <y>"}, rows[2])

	sheetXML := zipEntry(t, path, "xl/worksheets/sheet1.xml")
	assert.Contains(t, sheetXML, `<c r="B3"><v>41</v></c>`)
	assert.NotContains(t, sheetXML, `r="C3"`, "unstyled empty cells are not written")
}

func TestWriter_XLSXBooleans(t *testing.T) {
	w, path, _ := newFileWriter(t, FormatXLSX)
	require.NoError(t, w.AddRow(Values(true, false)))
	require.NoError(t, w.Close())

	sheetXML := zipEntry(t, path, "xl/worksheets/sheet1.xml")
	assert.Contains(t, sheetXML, `<c r="A1" t="b"><v>1</v></c>`)
	assert.Contains(t, sheetXML, `<c r="B1" t="b"><v>0</v></c>`)
}

func TestWriter_EmptyRowsAreCounted(t *testing.T) {
	w, path, _ := newFileWriter(t, FormatXLSX)
	require.NoError(t, w.AddRow(Values("first")))
	require.NoError(t, w.AddRow(Values()))
	require.NoError(t, w.AddRow(Values("")))
	require.NoError(t, w.AddRow(Values("fourth")))
	require.NoError(t, w.Close())

	sheetXML := zipEntry(t, path, "xl/worksheets/sheet1.xml")
	assert.Contains(t, sheetXML, `<row r="1" `)
	assert.Contains(t, sheetXML, `<row r="4" `)
	assert.NotContains(t, sheetXML, `<row r="2" `)
	assert.NotContains(t, sheetXML, `<row r="3" `)

	rows := sheetRows(t, openWorkbook(t, path), "Sheet1")
	require.Len(t, rows, 4)
	assert.Empty(t, rows[1])
	assert.Equal(t, []string{"fourth"}, rows[3])
}

func TestWriter_PrebuiltRows(t *testing.T) {
	w, path, _ := newFileWriter(t, FormatXLSX)
	row := NewRow([]*Cell{NewCell("x", nil), NewCell(2, nil)}, nil)
	require.NoError(t, w.AddRows([]RowInput{Prebuilt(row), Values("y", 3)}))
	require.NoError(t, w.Close())

	rows := sheetRows(t, openWorkbook(t, path), "Sheet1")
	assert.Equal(t, [][]string{{"x", "2"}, {"y", "3"}}, rows)
}

func TestWriter_Styles(t *testing.T) {
	bold := NewStyleBuilder().SetFontBold().SetBackgroundColor(ColorYellow).Build()
	w, path, _ := newFileWriter(t, FormatXLSX, WithDefaultRowStyle(NewStyleBuilder().SetFontName("Calibri").Build()))

	require.NoError(t, w.AddRowWithStyle(Values("Header"), bold))
	require.NoError(t, w.AddRow(Values("multi\nline")))
	require.NoError(t, w.AddRowsWithStyle([]RowInput{Values("a"), Values("b")}, bold))
	assert.ErrorIs(t, w.AddRowWithStyle(Values("x"), nil), ErrInvalidArgument)
	assert.ErrorIs(t, w.AddRowsWithStyle([]RowInput{Values("x")}, nil), ErrInvalidArgument)
	require.NoError(t, w.Close())

	f := openWorkbook(t, path)
	styleID, err := f.GetCellStyle("Sheet1", "A1")
	require.NoError(t, err)
	assert.NotZero(t, styleID)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	assert.True(t, style.Font.Bold)
	assert.Equal(t, "Calibri", style.Font.Family)

	a3, err := f.GetCellStyle("Sheet1", "A3")
	require.NoError(t, err)
	assert.Equal(t, styleID, a3, "identical styles are registered once")

	wrapID, err := f.GetCellStyle("Sheet1", "A2")
	require.NoError(t, err)
	wrap, err := f.GetStyle(wrapID)
	require.NoError(t, err)
	require.NotNil(t, wrap.Alignment)
	assert.True(t, wrap.Alignment.WrapText)

	stylesXML := zipEntry(t, path, "xl/styles.xml")
	assert.Contains(t, stylesXML, `<fgColor rgb="FFFFFF00"/>`)
}

func TestWriter_SharedStrings(t *testing.T) {
	w, path, _ := newFileWriter(t, FormatXLSX, WithInlineStrings(false))
	require.NoError(t, w.AddRow(Values("dup", "dup", 1)))
	require.NoError(t, w.AddRow(Values("a < b")))
	require.NoError(t, w.Close())

	sst := zipEntry(t, path, "xl/sharedStrings.xml")
	assert.Contains(t, sst, `count="3" uniqueCount="3"`)
	assert.Contains(t, sst, `a &lt; b`)
	assert.Contains(t, zipEntry(t, path, "[Content_Types].xml"), "/xl/sharedStrings.xml")

	rows := sheetRows(t, openWorkbook(t, path), "Sheet1")
	assert.Equal(t, [][]string{{"dup", "dup", "1"}, {"a < b"}}, rows)
}

func TestWriter_OpenToHTTP(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(FormatXLSX, WithTempDir(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, w.OpenToHTTP(rec, "reports/2024/summary.xlsx"))
	require.NoError(t, w.AddRow(Values("streamed")))
	require.NoError(t, w.Close())

	h := rec.Header()
	assert.Equal(t, FormatXLSX.ContentType(), h.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="summary.xlsx"`, h.Get("Content-Disposition"))
	assert.Equal(t, "max-age=0", h.Get("Cache-Control"))
	assert.Equal(t, "public", h.Get("Pragma"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "streamed", v)
}

func TestWriter_OpenToWriterNil(t *testing.T) {
	w, err := NewWriter(FormatODS)
	require.NoError(t, err)
	assert.ErrorIs(t, w.OpenToWriter(nil), ErrInvalidArgument)
	assert.ErrorIs(t, w.OpenToHTTP(nil, "x.ods"), ErrInvalidArgument)
}

func TestWriter_UnsupportedValueCleansUp(t *testing.T) {
	for _, format := range []Format{FormatXLSX, FormatODS} {
		t.Run(format.String(), func(t *testing.T) {
			w, path, scratch := newFileWriter(t, format)
			require.NoError(t, w.AddRow(Values("ok")))

			err := w.AddRow(Values("bad", []int{1, 2}))
			assert.ErrorIs(t, err, ErrInvalidArgument)

			assert.NoFileExists(t, path)
			requireEmptyDir(t, scratch)
			assert.ErrorIs(t, w.AddRow(Values("after")), ErrWriterNotOpened)
		})
	}
}

func TestWriter_ScratchFailureCleansUp(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	w, path, scratch := newFileWriter(t, FormatXLSX,
		WithMaxRowsPerSheet(2),
		WithFileSystem(faultyFS{failOn: "sheet2"}),
		WithLogger(zap.New(core)))

	require.NoError(t, w.AddRow(Values(1)))
	require.NoError(t, w.AddRow(Values(2)))
	err := w.AddRow(Values(3))
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, errInjected)

	assert.NoFileExists(t, path)
	requireEmptyDir(t, scratch)
	assert.ErrorIs(t, w.AddRow(Values(4)), ErrWriterNotOpened)
	assert.Equal(t, 1, logs.FilterMessage("write failed, discarding output").Len())
}

func TestWriter_OpenFailures(t *testing.T) {
	w, err := NewWriter(FormatXLSX)
	require.NoError(t, err)
	err = w.OpenToFile(filepath.Join(t.TempDir(), "missing", "dir", "out.xlsx"))
	assert.ErrorIs(t, err, ErrIO)

	out := filepath.Join(t.TempDir(), "out.xlsx")
	scratch := t.TempDir()
	w, err = NewWriter(FormatXLSX, WithTempDir(scratch), WithFileSystem(faultyFS{failOn: "sheet1"}))
	require.NoError(t, err)
	assert.ErrorIs(t, w.OpenToFile(out), errInjected)
	assert.NoFileExists(t, out)
	requireEmptyDir(t, scratch)
}

func TestWriter_SinkFailureOnClose(t *testing.T) {
	scratch := t.TempDir()
	w, err := NewWriter(FormatODS, WithTempDir(scratch), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.NoError(t, w.OpenToWriter(&failingWriter{limit: 10}))
	require.NoError(t, w.AddRow(Values("a", "b")))

	assert.ErrorIs(t, w.Close(), ErrIO)
	requireEmptyDir(t, scratch)
}

func TestWriter_CloseRemovesOutputWhenPackagingFails(t *testing.T) {
	w, path, _ := newFileWriter(t, FormatXLSX)
	require.NoError(t, w.AddRow(Values("a")))

	// the scratch file vanishes before packaging
	ws := w.hooks.(*workbook).currentWorksheet()
	require.NoError(t, ws.buf.Flush())
	require.NoError(t, os.Remove(ws.path))

	assert.Error(t, w.Close())
	assert.NoFileExists(t, path)
}

func TestWriter_NamedValueTypes(t *testing.T) {
	for _, format := range []Format{FormatXLSX, FormatODS} {
		t.Run(format.String(), func(t *testing.T) {
			w, path, _ := newFileWriter(t, format)
			require.NoError(t, w.AddRow(Values(cents(1999), label("north"), flag(true), 2*time.Second)))
			require.NoError(t, w.Close())
			require.FileExists(t, path)

			if format == FormatODS {
				content := zipEntry(t, path, "content.xml")
				assert.Contains(t, content, `office:value="1999"`)
				assert.Contains(t, content, `<text:p>north</text:p>`)
				assert.Contains(t, content, `office:boolean-value="true"`)
				assert.Contains(t, content, `office:value="2000000000"`)
				return
			}
			sheetXML := zipEntry(t, path, "xl/worksheets/sheet1.xml")
			assert.Contains(t, sheetXML, `<c r="A1"><v>1999</v></c>`)
			assert.Contains(t, sheetXML, `<c r="C1" t="b"><v>1</v></c>`)
			assert.Contains(t, sheetXML, `<c r="D1"><v>2000000000</v></c>`)
			rows := sheetRows(t, openWorkbook(t, path), "Sheet1")
			require.Len(t, rows, 1)
			assert.Equal(t, "north", rows[0][1])
		})
	}
}

func TestWriter_NonFiniteNumbersCleanUp(t *testing.T) {
	for _, format := range []Format{FormatXLSX, FormatODS} {
		for name, value := range map[string]any{"nan": math.NaN(), "+inf": math.Inf(1), "-inf": float32(math.Inf(-1))} {
			t.Run(format.String()+"/"+name, func(t *testing.T) {
				w, path, scratch := newFileWriter(t, format)
				require.NoError(t, w.AddRow(Values("ok", 1.5)))

				err := w.AddRow(Values("bad", value))
				assert.ErrorIs(t, err, ErrInvalidArgument)
				assert.NoFileExists(t, path)
				requireEmptyDir(t, scratch)
				assert.ErrorIs(t, w.AddRow(Values("after")), ErrWriterNotOpened)
			})
		}
	}
}

func TestWriter_ColorsCannotInjectMarkup(t *testing.T) {
	injected := `000000"/><x y="`
	style := NewStyleBuilder().SetFontBold().SetFontColor(injected).SetBackgroundColor(injected).Build()

	w, path, _ := newFileWriter(t, FormatXLSX)
	require.NoError(t, w.AddRowWithStyle(Values("a"), style))
	require.NoError(t, w.Close())
	stylesXML := zipEntry(t, path, "xl/styles.xml")
	assert.NotContains(t, stylesXML, `<x `)
	assert.Contains(t, stylesXML, `<color rgb="FF000000"/>`)
	openWorkbook(t, path)

	o, odsPath, _ := newFileWriter(t, FormatODS)
	require.NoError(t, o.AddRowWithStyle(Values("a"), style))
	require.NoError(t, o.Close())
	content := zipEntry(t, odsPath, "content.xml")
	assert.NotContains(t, content, `<x `)
	assert.NotContains(t, content, `fo:background-color`)
}

func TestWriter_ZeroValuePrebuiltRow(t *testing.T) {
	w, path, _ := newFileWriter(t, FormatXLSX, WithDefaultRowStyle(NewStyleBuilder().SetFontItalic().Build()))
	row := &Row{}
	row.AddCell(NewCell("zero", nil))
	require.NoError(t, w.AddRow(Prebuilt(row)))
	require.NoError(t, w.AddRow(Prebuilt(&Row{})))
	require.NoError(t, w.Close())

	assert.True(t, row.Style().IsFontItalic())
	rows := sheetRows(t, openWorkbook(t, path), "Sheet1")
	assert.Equal(t, [][]string{{"zero"}}, rows)
}
