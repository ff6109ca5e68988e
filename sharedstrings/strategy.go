// Package sharedstrings resolves the shared string table of an XLSX file by
// index without requiring the whole table to fit in memory. A table is loaded
// once into a CachingStrategy, then looked up while the sheets are parsed.
package sharedstrings

import (
	"errors"
	"fmt"
)

// CachingStrategy stores shared strings by their index in the table.
type CachingStrategy interface {
	// AddStringForIndex stores value at index, replacing any previous value.
	AddStringForIndex(value string, index int) error
	// GetStringAtIndex returns the value stored at index. ok is false when
	// nothing was stored there, which is not an error.
	GetStringAtIndex(index int) (value string, ok bool, err error)
	// CloseCache ends the loading phase. Lookups keep working, additions fail.
	CloseCache() error
	// ClearCache destroys the cache and every artifact it created.
	ClearCache() error
}

var (
	// ErrIO reports a failure of the backing store.
	ErrIO = errors.New("shared strings cache i/o failure")

	// ErrCacheClosed is returned when a string is added after CloseCache.
	ErrCacheClosed = errors.New("shared strings cache is closed")
)

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}

// Resolve returns the string at index, or "" when the cache has no entry for
// it. Only backend failures are reported as errors.
func Resolve(cache CachingStrategy, index int) (string, error) {
	value, ok, err := cache.GetStringAtIndex(index)
	if err != nil || !ok {
		return "", err
	}
	return value, nil
}
