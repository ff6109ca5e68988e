package xlstream

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports malformed caller input such as a missing style
	// or a value type that cannot be written.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrWriterNotOpened is returned when rows are added before the writer is opened or after it is closed.
	ErrWriterNotOpened = errors.New("writer is not opened")

	// ErrWriterAlreadyOpened is returned when a writer is opened twice.
	ErrWriterAlreadyOpened = errors.New("writer has already been opened")

	// ErrCapacityExceeded is returned when a worksheet is full and automatic sheet creation is disabled.
	ErrCapacityExceeded = errors.New("worksheet row capacity exceeded")

	// ErrSheetNotFound is returned when a sheet does not belong to the workbook.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrInvalidSheetName is returned by Sheet.SetName. It also matches ErrInvalidArgument.
	ErrInvalidSheetName = fmt.Errorf("%w: invalid sheet name", ErrInvalidArgument)

	// ErrIO reports a failure of the output sink, a scratch file or the archive.
	ErrIO = errors.New("i/o failure")
)

// ioError wraps err so that it matches both ErrIO and the original cause.
func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
