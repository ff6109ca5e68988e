package xlstream

// Row is an ordered list of cells with a row-level style.
type Row struct {
	cells []*Cell
	style *Style
}

// NewRow creates a row from cells. A nil style is replaced by an empty one.
func NewRow(cells []*Cell, style *Style) *Row {
	r := &Row{}
	r.SetCells(cells)
	r.SetStyle(style)
	return r
}

// Cells returns the row cells.
func (r *Row) Cells() []*Cell { return r.cells }

// SetCells replaces all cells. Nil entries are skipped.
func (r *Row) SetCells(cells []*Cell) {
	r.cells = make([]*Cell, 0, len(cells))
	for _, c := range cells {
		r.AddCell(c)
	}
}

// AddCell appends a cell.
func (r *Row) AddCell(c *Cell) {
	if c == nil {
		return
	}
	r.cells = append(r.cells, c)
}

// Style returns the row style. A row without one, such as the zero Row,
// gets an empty style on first call, and the same instance afterwards.
func (r *Row) Style() *Style {
	if r.style == nil {
		r.style = NewStyle()
	}
	return r.style
}

// SetStyle replaces the row style. A nil style resets it to an empty one.
func (r *Row) SetStyle(s *Style) {
	if s == nil {
		s = NewStyle()
	}
	r.style = s
}

// ApplyStyle merges the current row style over s. A nil s is ignored.
func (r *Row) ApplyStyle(s *Style) {
	if s == nil {
		return
	}
	r.style = r.Style().MergeWith(s)
}

// IsEmpty reports whether the row has no cells or a single empty cell.
func (r *Row) IsEmpty() bool {
	return len(r.cells) == 0 || (len(r.cells) == 1 && r.cells[0].IsEmpty())
}
