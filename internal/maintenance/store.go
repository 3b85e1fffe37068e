package maintenance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"

	_ "github.com/mattn/go-sqlite3"

	"github.com/charliek/respawn/internal/constants"
	"github.com/charliek/respawn/internal/domain"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// querier is the subset of *sql.DB and *sql.Tx the store needs
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store reads and writes the metadata column of one table.
// Rows are addressed by their id column.
type Store struct {
	db    *sql.DB
	q     querier
	table string
}

// ValidateTable checks that name can be used as an unquoted table name
func ValidateTable(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTable, name)
	}
	return nil
}

// Open opens an existing SQLite database. The file is never created.
func Open(path, table string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	// _busy_timeout: wait for a concurrent writer instead of failing immediately
	dsn := fmt.Sprintf("file:%s?mode=rw&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store, err := NewStore(db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an open database handle
func NewStore(db *sql.DB, table string) (*Store, error) {
	if table == "" {
		table = constants.DefaultMetadataTable
	}
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	return &Store{db: db, q: db, table: table}, nil
}

// Table returns the table the store operates on
func (s *Store) Table() string {
	return s.table
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// GetMetadata returns the raw metadata of row id. found is false when no
// such row exists; a NULL column yields nil data with found true.
func (s *Store) GetMetadata(ctx context.Context, id string) ([]byte, bool, error) {
	var raw sql.NullString
	query := fmt.Sprintf(`SELECT metadata FROM %s WHERE id = ?`, s.table)
	err := s.q.QueryRowContext(ctx, query, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading metadata for %s: %w", id, err)
	}
	if !raw.Valid {
		return nil, true, nil
	}
	return []byte(raw.String), true, nil
}

// UpdateMetadata stores raw as the metadata of row id and returns the
// number of rows changed
func (s *Store) UpdateMetadata(ctx context.Context, id string, raw []byte) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET metadata = ? WHERE id = ?`, s.table)
	result, err := s.q.ExecContext(ctx, query, string(raw), id)
	if err != nil {
		return 0, fmt.Errorf("updating metadata for %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting updated rows: %w", err)
	}
	return n, nil
}

// WithTx runs fn against a store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, table: s.table}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
