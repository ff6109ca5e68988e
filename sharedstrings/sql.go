package sharedstrings

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

// DefaultBatchSize is the number of additions buffered before they are
// written in one transaction.
const DefaultBatchSize = 500

const (
	createCacheTableSQL = `CREATE TABLE IF NOT EXISTS shared_strings_cache (
	idx INTEGER NOT NULL,
	value TEXT NOT NULL,
	session_tag TEXT NOT NULL,
	PRIMARY KEY (session_tag, idx)
)`
	upsertStringSQL  = `REPLACE INTO shared_strings_cache (idx, value, session_tag) VALUES (?, ?, ?)`
	selectStringSQL  = `SELECT value FROM shared_strings_cache WHERE idx = ? AND session_tag = ?`
	deleteSessionSQL = `DELETE FROM shared_strings_cache WHERE session_tag = ?`
)

// SQLStrategy stores strings in one table of a SQL database. The table can
// be shared by many caches: every row carries the random session tag of the
// cache that wrote it and every statement is scoped by that tag.
type SQLStrategy struct {
	db         *sql.DB
	ownsDB     bool
	sessionTag string
	batchSize  int

	upsert *sql.Stmt
	lookup *sql.Stmt
	purge  *sql.Stmt

	pending []pendingString
	closed  bool
}

type pendingString struct {
	index int
	value string
}

// SQLOption configures a SQLStrategy.
type SQLOption func(*SQLStrategy)

// WithBatchSize sets how many additions are buffered before being written.
// 1 writes every addition immediately.
func WithBatchSize(n int) SQLOption {
	return func(s *SQLStrategy) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewSQLStrategy creates the cache table if it does not exist yet and starts
// a new session on db. The caller keeps ownership of db.
func NewSQLStrategy(db *sql.DB, opts ...SQLOption) (*SQLStrategy, error) {
	s := &SQLStrategy{
		db:         db,
		sessionTag: uuid.NewString(),
		batchSize:  DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.Exec(createCacheTableSQL); err != nil {
		return nil, ioError("create cache table", err)
	}
	var err error
	if s.upsert, err = db.Prepare(upsertStringSQL); err != nil {
		return nil, ioError("prepare upsert", err)
	}
	if s.lookup, err = db.Prepare(selectStringSQL); err != nil {
		s.closeStatements()
		return nil, ioError("prepare lookup", err)
	}
	if s.purge, err = db.Prepare(deleteSessionSQL); err != nil {
		s.closeStatements()
		return nil, ioError("prepare purge", err)
	}
	return s, nil
}

// OpenSQLite opens the SQLite database at dsn and starts a session on it.
// The database handle is closed by ClearCache.
func OpenSQLite(dsn string, opts ...SQLOption) (*SQLStrategy, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, ioError(fmt.Sprintf("open sqlite %q", dsn), err)
	}
	s, err := NewSQLStrategy(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// SessionTag returns the tag scoping the rows of this cache.
func (s *SQLStrategy) SessionTag() string { return s.sessionTag }

func (s *SQLStrategy) AddStringForIndex(value string, index int) error {
	if s.closed {
		return ErrCacheClosed
	}
	s.pending = append(s.pending, pendingString{index: index, value: value})
	if len(s.pending) >= s.batchSize {
		return s.flush()
	}
	return nil
}

// flush writes the buffered additions in one transaction, in order, so the
// last addition for an index wins.
func (s *SQLStrategy) flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return ioError("begin transaction", err)
	}
	stmt := tx.Stmt(s.upsert)
	for _, p := range s.pending {
		if _, err := stmt.Exec(p.index, p.value, s.sessionTag); err != nil {
			tx.Rollback()
			return ioError(fmt.Sprintf("cache string %d", p.index), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return ioError("commit transaction", err)
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *SQLStrategy) GetStringAtIndex(index int) (string, bool, error) {
	if s.lookup == nil {
		return "", false, nil
	}
	if err := s.flush(); err != nil {
		return "", false, err
	}
	var value string
	err := s.lookup.QueryRow(index, s.sessionTag).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ioError(fmt.Sprintf("fetch string %d", index), err)
	}
	return value, true, nil
}

// CloseCache writes the buffered additions. Lookups keep working.
func (s *SQLStrategy) CloseCache() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.flush()
}

// ClearCache deletes the rows of this session, releases the statements and
// closes the database when it was opened by OpenSQLite.
func (s *SQLStrategy) ClearCache() error {
	s.closed = true
	s.pending = nil
	var errs []error
	if s.purge != nil {
		if _, err := s.purge.Exec(s.sessionTag); err != nil {
			errs = append(errs, ioError("delete session rows", err))
		}
	}
	s.closeStatements()
	if s.ownsDB {
		if err := s.db.Close(); err != nil {
			errs = append(errs, ioError("close database", err))
		}
		s.ownsDB = false
	}
	return errors.Join(errs...)
}

func (s *SQLStrategy) closeStatements() {
	for _, stmt := range []*sql.Stmt{s.upsert, s.lookup, s.purge} {
		if stmt != nil {
			stmt.Close()
		}
	}
	s.upsert, s.lookup, s.purge = nil, nil, nil
}
