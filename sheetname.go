package xlstream

import (
	"fmt"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultSheetNameExpression names sheets Sheet1, Sheet2, ...
const DefaultSheetNameExpression = `"Sheet" + string(Number)`

// SheetNameEnv is the environment available to a sheet name expression.
type SheetNameEnv struct {
	Index  int    // zero-based position of the new sheet
	Number int    // Index + 1
	Format string // "xlsx" or "ods"
}

// sheetNamer evaluates a compiled expr program for each new sheet.
type sheetNamer struct {
	source  string
	program *vm.Program
}

func newSheetNamer(expression string) (*sheetNamer, error) {
	if expression == "" {
		expression = DefaultSheetNameExpression
	}
	program, err := expr.Compile(expression, expr.Env(SheetNameEnv{}), expr.AsKind(reflect.String))
	if err != nil {
		return nil, fmt.Errorf("%w: compile sheet name expression %q: %w", ErrInvalidArgument, expression, err)
	}
	return &sheetNamer{source: expression, program: program}, nil
}

func (n *sheetNamer) name(index int, format Format) (string, error) {
	out, err := expr.Run(n.program, SheetNameEnv{Index: index, Number: index + 1, Format: format.String()})
	if err != nil {
		return "", fmt.Errorf("%w: evaluate sheet name expression %q: %w", ErrInvalidArgument, n.source, err)
	}
	name, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("%w: sheet name expression %q evaluated to %T", ErrInvalidArgument, n.source, out)
	}
	return name, nil
}
