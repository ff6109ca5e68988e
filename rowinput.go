package xlstream

import "fmt"

// RowInput is what the writer accepts as a row: either a prebuilt Row or a
// list of raw values. Use Prebuilt or Values to create one.
type RowInput interface {
	isRowInput()
}

type prebuiltRow struct{ row *Row }

type rawValues struct{ values []any }

func (prebuiltRow) isRowInput() {}
func (rawValues) isRowInput()   {}

// Prebuilt wraps an existing row.
func Prebuilt(row *Row) RowInput { return prebuiltRow{row: row} }

// Values wraps raw scalar values. A value that already is a *Cell is kept as is.
func Values(values ...any) RowInput { return rawValues{values: values} }

// resolveRow turns an input into a Row. A non-nil style is merged under the
// attributes of a prebuilt row, or becomes the style of a row built from values.
func resolveRow(in RowInput, style *Style) (*Row, error) {
	switch r := in.(type) {
	case prebuiltRow:
		if r.row == nil {
			return nil, errInvalidRowInput
		}
		r.row.ApplyStyle(style)
		return r.row, nil
	case rawValues:
		cells := make([]*Cell, 0, len(r.values))
		for _, value := range r.values {
			if c, ok := value.(*Cell); ok {
				cells = append(cells, c)
				continue
			}
			cells = append(cells, NewCell(value, nil))
		}
		return NewRow(cells, style), nil
	}
	return nil, errInvalidRowInput
}

var errInvalidRowInput = fmt.Errorf("%w: a row must be a prebuilt row or a list of values", ErrInvalidArgument)
