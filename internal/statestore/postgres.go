package statestore

import (
	"context"
	"database/sql"
	"log/slog"

	_ "github.com/lib/pq"
)

// PostgresStore keeps the whole ledger state in one key/value table:
//
//	CREATE TABLE ledger_state (key BYTEA PRIMARY KEY, value BYTEA NOT NULL)
//
// Each invocation maps to a SQL transaction, which is what gives the core
// its all-writes-or-none guarantee.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenPostgres connects to the database and verifies the connection.
func OpenPostgres(connStr string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return NewPostgresStore(db, logger), nil
}

func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// WithInvocation runs fn inside a serializable transaction. Serializable
// isolation is what rejects one of two concurrent invocations with
// conflicting read/write sets instead of losing an update.
func (s *PostgresStore) WithInvocation(ctx context.Context, fn func(State) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		s.logger.Error("Failed to begin invocation", "error", err)
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&pgState{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping reports database reachability for health checks.
func (s *PostgresStore) Ping() error {
	return s.db.Ping()
}

type pgState struct {
	tx *sql.Tx
}

func (s *pgState) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var value []byte
	err := s.tx.QueryRowContext(ctx,
		`SELECT value FROM ledger_state WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *pgState) Put(ctx context.Context, key, value []byte) error {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO ledger_state (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	return err
}

func (s *pgState) Range(ctx context.Context, start, end []byte) (Iterator, error) {
	rows, err := s.tx.QueryContext(ctx, `
		SELECT key, value FROM ledger_state
		WHERE key >= $1 AND key < $2
		ORDER BY key
	`, start, end)
	if err != nil {
		return nil, err
	}
	return &pgIterator{rows: rows}, nil
}

type pgIterator struct {
	rows  *sql.Rows
	key   []byte
	value []byte
	err   error
}

func (it *pgIterator) Next() bool {
	if !it.rows.Next() {
		return false
	}
	if err := it.rows.Scan(&it.key, &it.value); err != nil {
		it.err = err
		return false
	}
	return true
}

func (it *pgIterator) Key() []byte   { return it.key }
func (it *pgIterator) Value() []byte { return it.value }

func (it *pgIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *pgIterator) Close() error {
	return it.rows.Close()
}
