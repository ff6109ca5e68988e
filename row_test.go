package xlstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_NewRow(t *testing.T) {
	r := NewRow([]*Cell{NewCell("a", nil), nil, NewCell(1, nil)}, nil)
	assert.Len(t, r.Cells(), 2, "nil cells are skipped")
	require.NotNil(t, r.Style())
	assert.False(t, r.Style().IsFontBold())
}

func TestRow_AddCell(t *testing.T) {
	r := NewRow(nil, nil)
	r.AddCell(NewCell("x", nil))
	r.AddCell(nil)
	assert.Len(t, r.Cells(), 1)
}

func TestRow_IsEmpty(t *testing.T) {
	assert.True(t, NewRow(nil, nil).IsEmpty())
	assert.True(t, NewRow([]*Cell{NewCell("", nil)}, nil).IsEmpty())
	assert.False(t, NewRow([]*Cell{NewCell("", nil), NewCell("", nil)}, nil).IsEmpty())
	assert.False(t, NewRow([]*Cell{NewCell(0, nil)}, nil).IsEmpty())
}

func TestRow_ApplyStyle(t *testing.T) {
	own := NewStyleBuilder().SetFontSize(8).Build()
	r := NewRow(nil, own)

	r.ApplyStyle(NewStyleBuilder().SetFontSize(20).SetFontBold().Build())
	assert.Equal(t, 8.0, r.Style().FontSize())
	assert.True(t, r.Style().IsFontBold())

	before := r.Style()
	r.ApplyStyle(nil)
	assert.Same(t, before, r.Style())
}

func TestResolveRow(t *testing.T) {
	header := NewStyleBuilder().SetFontBold().Build()
	cell := NewCell("kept", NewStyleBuilder().SetFontItalic().Build())

	row, err := resolveRow(Values("a", 2, cell), header)
	require.NoError(t, err)
	require.Len(t, row.Cells(), 3)
	assert.Same(t, cell, row.Cells()[2])
	assert.True(t, row.Style().IsFontBold())

	prebuilt := NewRow([]*Cell{NewCell("p", nil)}, NewStyleBuilder().SetFontSize(30).Build())
	row, err = resolveRow(Prebuilt(prebuilt), header)
	require.NoError(t, err)
	assert.Same(t, prebuilt, row)
	assert.True(t, row.Style().IsFontBold())
	assert.Equal(t, 30.0, row.Style().FontSize())

	_, err = resolveRow(Prebuilt(nil), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = resolveRow(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCellStyle(t *testing.T) {
	rowStyle := NewStyleBuilder().SetFontBold().SetFontSize(12).Build()
	row := NewRow(nil, rowStyle)

	s := cellStyle(row, NewCell("plain", NewStyleBuilder().SetFontSize(16).Build()))
	assert.True(t, s.IsFontBold())
	assert.Equal(t, 16.0, s.FontSize())
	assert.False(t, s.ShouldWrapText())

	assert.True(t, cellStyle(row, NewCell("two\nlines", nil)).ShouldWrapText())

	noWrap := NewCell("two\nlines", NewStyleBuilder().SetShouldWrapText(false).Build())
	assert.False(t, cellStyle(row, noWrap).ShouldWrapText())
}

func TestRow_ZeroValueStyle(t *testing.T) {
	var r Row
	s := r.Style()
	require.NotNil(t, s)
	assert.Same(t, s, r.Style())

	var merged Row
	merged.ApplyStyle(NewStyleBuilder().SetFontBold().Build())
	assert.True(t, merged.Style().IsFontBold())
}
