package sharedstrings

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// EstimatedBytesPerString is the memory assumed for one cached string when
// choosing a strategy.
const EstimatedBytesPerString = 12 * 1024

// DefaultMemoryBudget is the memory a table may use before it is cached out of memory.
const DefaultMemoryBudget = 128 * 1024 * 1024

// Factory picks a caching strategy for a table of a given size.
type Factory struct {
	memoryBudget    uint64
	chunkSize       int
	maxLoadedChunks int
	tempDir         string
	db              *sql.DB
	sqlOpts         []SQLOption
	logger          *zap.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithMemoryBudget sets the bytes a table may occupy in memory.
func WithMemoryBudget(bytes uint64) FactoryOption {
	return func(f *Factory) { f.memoryBudget = bytes }
}

// WithChunkSize sets the number of strings per chunk file of the file-based strategy.
func WithChunkSize(n int) FactoryOption {
	return func(f *Factory) { f.chunkSize = n }
}

// WithMaxLoadedChunks sets how many chunk files the file-based strategy keeps in memory.
func WithMaxLoadedChunks(n int) FactoryOption {
	return func(f *Factory) { f.maxLoadedChunks = n }
}

// WithStrategyTempDir sets where the file-based strategy creates its chunks.
func WithStrategyTempDir(dir string) FactoryOption {
	return func(f *Factory) { f.tempDir = dir }
}

// WithPersistentStore caches large tables in db instead of chunk files.
func WithPersistentStore(db *sql.DB, opts ...SQLOption) FactoryOption {
	return func(f *Factory) {
		f.db = db
		f.sqlOpts = opts
	}
}

// WithFactoryLogger sets the logger (default: no-op).
func WithFactoryLogger(l *zap.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFactory creates a Factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{memoryBudget: DefaultMemoryBudget, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ParseMemoryBudget parses a size such as "64 MiB" or "200MB".
func ParseMemoryBudget(s string) (uint64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parse memory budget %q: %w", s, err)
	}
	return n, nil
}

// FitsInMemory reports whether uniqueCount strings fit in the memory budget.
// An unknown count (0 or less) never fits.
func (f *Factory) FitsInMemory(uniqueCount int) bool {
	return uniqueCount > 0 && uint64(uniqueCount) <= f.memoryBudget/EstimatedBytesPerString
}

// estimatedSize returns the estimated footprint of uniqueCount strings,
// saturating instead of overflowing.
func estimatedSize(uniqueCount int) uint64 {
	if uniqueCount <= 0 {
		return 0
	}
	if uint64(uniqueCount) > math.MaxUint64/EstimatedBytesPerString {
		return math.MaxUint64
	}
	return uint64(uniqueCount) * EstimatedBytesPerString
}

// NewStrategy returns an in-memory strategy when the table fits in the
// memory budget, otherwise the persistent store when one is configured, and
// chunk files last.
func (f *Factory) NewStrategy(uniqueCount int) (CachingStrategy, error) {
	estimate := humanize.IBytes(estimatedSize(uniqueCount))
	switch {
	case f.FitsInMemory(uniqueCount):
		f.logger.Debug("caching shared strings in memory", zap.Int("uniqueCount", uniqueCount), zap.String("estimate", estimate))
		return NewInMemoryStrategy(uniqueCount), nil
	case f.db != nil:
		f.logger.Debug("caching shared strings in database", zap.Int("uniqueCount", uniqueCount), zap.String("estimate", estimate))
		s, err := NewSQLStrategy(f.db, f.sqlOpts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		f.logger.Debug("caching shared strings in chunk files", zap.Int("uniqueCount", uniqueCount), zap.String("estimate", estimate))
		s, err := NewFileBasedStrategy(f.tempDir, f.chunkSize, f.maxLoadedChunks)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
