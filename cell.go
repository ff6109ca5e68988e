package xlstream

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// CellType represents the type of the value held by a cell.
type CellType int

const (
	CellNumeric CellType = iota // whole numbers, fractional numbers and numeric text
	CellString
	CellFormula // reserved, never detected
	CellEmpty
	CellBoolean
	CellError // a value that cannot be represented by any other type
)

// String returns a human-readable name for the CellType.
func (ct CellType) String() string {
	switch ct {
	case CellNumeric:
		return "Numeric"
	case CellString:
		return "String"
	case CellFormula:
		return "Formula"
	case CellEmpty:
		return "Empty"
	case CellBoolean:
		return "Boolean"
	case CellError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Cell holds a single value, its detected type and an optional style.
type Cell struct {
	value any
	typ   CellType
	style *Style
}

// NewCell creates a cell for value. The style may be nil.
func NewCell(value any, style *Style) *Cell {
	c := &Cell{style: style}
	c.SetValue(value)
	return c
}

// SetValue replaces the value and recomputes the cell type.
func (c *Cell) SetValue(value any) {
	c.value = value
	c.typ = detectCellType(value)
}

// Value returns the value as it was assigned.
func (c *Cell) Value() any { return c.value }

// Type returns the type detected for the current value.
func (c *Cell) Type() CellType { return c.typ }

// Style returns the cell style, or nil if none was set.
func (c *Cell) Style() *Style { return c.style }

// SetStyle sets the cell style.
func (c *Cell) SetStyle(s *Style) { c.style = s }

// IsBoolean reports whether the cell holds a boolean.
func (c *Cell) IsBoolean() bool { return c.typ == CellBoolean }

// IsEmpty reports whether the cell holds nil or an empty string.
func (c *Cell) IsEmpty() bool { return c.typ == CellEmpty }

// IsNumeric reports whether the cell holds a number or numeric text.
func (c *Cell) IsNumeric() bool { return c.typ == CellNumeric }

// IsString reports whether the cell holds non-numeric text.
func (c *Cell) IsString() bool { return c.typ == CellString }

// IsError reports whether the value cannot be written as any other type.
func (c *Cell) IsError() bool { return c.typ == CellError }

// IsFormula is reserved for formula support and always returns false.
func (c *Cell) IsFormula() bool { return c.typ == CellFormula }

// String returns the value formatted as text. Empty cells give "".
// Named types are formatted by their underlying kind.
func (c *Cell) String() string {
	switch v := c.value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	rv := reflect.ValueOf(c.value)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	}
	return fmt.Sprint(c.value)
}

// boolValue returns the value of a boolean cell.
func (c *Cell) boolValue() bool {
	if b, ok := c.value.(bool); ok {
		return b
	}
	rv := reflect.ValueOf(c.value)
	return rv.Kind() == reflect.Bool && rv.Bool()
}

// isFinite reports whether a numeric cell can be written as a number.
// NaN and infinities have no representation in either container.
func (c *Cell) isFinite() bool {
	var f float64
	switch v := c.value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		rv := reflect.ValueOf(c.value)
		if k := rv.Kind(); k != reflect.Float32 && k != reflect.Float64 {
			return true
		}
		f = rv.Float()
	}
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// detectCellType applies the precedence boolean, empty, numeric, string, error.
func detectCellType(value any) CellType {
	switch v := value.(type) {
	case bool:
		return CellBoolean
	case nil:
		return CellEmpty
	case string:
		if v == "" {
			return CellEmpty
		}
		if isNumericString(v) {
			return CellNumeric
		}
		return CellString
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return CellNumeric
	}
	return detectKind(reflect.ValueOf(value))
}

// detectKind classifies named types such as time.Duration or a string enum
// by their underlying kind.
func detectKind(rv reflect.Value) CellType {
	switch rv.Kind() {
	case reflect.Bool:
		return CellBoolean
	case reflect.String:
		return detectCellType(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return CellNumeric
	}
	return CellError
}

// isNumericString accepts optional leading whitespace, an optional sign,
// decimal digits with at most one dot and an optional exponent.
// Hex, inf, nan and digit separators are rejected.
func isNumericString(s string) bool {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits, dot := 0, false
mantissa:
	for ; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] == '.' && !dot:
			dot = true
		default:
			break mantissa
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}
