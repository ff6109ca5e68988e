package xlstream

import "go.uber.org/zap"

// options holds the configuration of a Writer. Options are fixed when the
// writer is created, so they are always set before it is opened.
type options struct {
	tempDir         string
	inlineStrings   bool
	autoNewSheets   bool
	maxRowsPerSheet int
	defaultRowStyle *Style
	sheetNameExpr   string
	fs              FileSystem
	logger          *zap.Logger
}

func defaultOptions() *options {
	return &options{
		inlineStrings: true,
		autoNewSheets: true,
		fs:            OSFileSystem{},
		logger:        zap.NewNop(),
	}
}

// Option configures a Writer.
type Option func(*options)

// WithTempDir sets the folder where scratch files are created (default: os.TempDir()).
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

// WithInlineStrings chooses between inline strings (default: true) and a
// shared strings table. Only XLSX uses a shared strings table.
func WithInlineStrings(inline bool) Option {
	return func(o *options) { o.inlineStrings = inline }
}

// WithAutoNewSheets controls whether a new sheet is created when the current
// one is full (default: true). When disabled, a full sheet rejects rows with
// ErrCapacityExceeded.
func WithAutoNewSheets(auto bool) Option {
	return func(o *options) { o.autoNewSheets = auto }
}

// WithMaxRowsPerSheet lowers the number of rows a sheet accepts. Values that
// are not positive or exceed the format limit leave the format limit in place.
func WithMaxRowsPerSheet(n int) Option {
	return func(o *options) { o.maxRowsPerSheet = n }
}

// WithDefaultRowStyle sets the style merged under every added row.
func WithDefaultRowStyle(s *Style) Option {
	return func(o *options) { o.defaultRowStyle = s }
}

// WithSheetNameExpression sets the expr expression naming new sheets.
// The environment is SheetNameEnv. Default: DefaultSheetNameExpression.
func WithSheetNameExpression(expression string) Option {
	return func(o *options) { o.sheetNameExpr = expression }
}

// WithFileSystem replaces the file capability used for output and scratch files.
func WithFileSystem(fs FileSystem) Option {
	return func(o *options) {
		if fs != nil {
			o.fs = fs
		}
	}
}

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
