/*
Package store persists n-gram frequency tables and corpus statistics, either in
a SQLite database shared by many corpora or as JSON files in the layout
`<dir>/<corpus>_frequency_tables/<granularity>_<name>.json`.
*/
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/shannon/pkg/ngram"
)

// ErrTableNotFound is returned when no table is stored for a corpus, granularity and order.
var ErrTableNotFound = errors.New("store: frequency table not found")

// TableInfo identifies one stored frequency table.
type TableInfo struct {
	Id          int               `json:"id"`
	Corpus      string            `json:"corpus"`
	Granularity ngram.Granularity `json:"granularity"`
	Order       int               `json:"order"`
}

// SetupSchema initializes the tables used by Store. It is idempotent and safe
// to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaTables = `
CREATE TABLE IF NOT EXISTS ngram_tables (
    table_id INTEGER PRIMARY KEY,
    corpus_name TEXT NOT NULL,
    granularity TEXT NOT NULL,
    ngram_order INTEGER NOT NULL,
    UNIQUE (corpus_name, granularity, ngram_order)
);
`
		schemaCounts = `
CREATE TABLE IF NOT EXISTS ngram_counts (
    table_id INTEGER NOT NULL,
    ngram_key TEXT NOT NULL,
    frequency INTEGER NOT NULL,
    PRIMARY KEY (table_id, ngram_key)
);
`
		schemaStats = `
CREATE TABLE IF NOT EXISTS corpus_stats (
    corpus_name TEXT PRIMARY KEY,
    total_characters INTEGER NOT NULL,
    total_words INTEGER NOT NULL,
    total_sentences INTEGER NOT NULL,
    avg_sentence_length REAL NOT NULL
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaTables); err != nil {
		return fmt.Errorf("could not create tables schema: %w", err)
	}
	if _, err = tx.Exec(schemaCounts); err != nil {
		return fmt.Errorf("could not create counts schema: %w", err)
	}
	if _, err = tx.Exec(schemaStats); err != nil {
		return fmt.Errorf("could not create stats schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Store reads and writes frequency tables in a SQLite database through
// prepared statements.
type Store struct {
	db               *sql.DB
	stmtGetTableInfo *sql.Stmt
	stmtGetTables    *sql.Stmt
	stmtGetCounts    *sql.Stmt
	stmtTableSize    *sql.Stmt
	stmtPruneTable   *sql.Stmt
	stmtSaveStats    *sql.Stmt
	stmtLoadStats    *sql.Stmt
	logger           *slog.Logger
}

// NewStore creates a Store over db, which must already have the schema set up.
// It pre-compiles all statements, returning an error if any preparation fails.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetTableInfo, err := db.Prepare(`SELECT table_id FROM ngram_tables WHERE corpus_name = ? AND granularity = ? AND ngram_order = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetTables, err := db.Prepare(`SELECT table_id, corpus_name, granularity, ngram_order FROM ngram_tables ORDER BY corpus_name, granularity, ngram_order;`)
	if err != nil {
		return nil, err
	}

	stmtGetCounts, err := db.Prepare(`SELECT ngram_key, frequency FROM ngram_counts WHERE table_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtTableSize, err := db.Prepare(`SELECT COUNT(*), coalesce(SUM(frequency), 0) FROM ngram_counts WHERE table_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtPruneTable, err := db.Prepare(`DELETE FROM ngram_counts WHERE table_id = ? AND frequency <= ?;`)
	if err != nil {
		return nil, err
	}

	stmtSaveStats, err := db.Prepare(`
INSERT INTO corpus_stats (corpus_name, total_characters, total_words, total_sentences, avg_sentence_length) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(corpus_name) DO UPDATE SET
    total_characters = excluded.total_characters,
    total_words = excluded.total_words,
    total_sentences = excluded.total_sentences,
    avg_sentence_length = excluded.avg_sentence_length;`)
	if err != nil {
		return nil, err
	}

	stmtLoadStats, err := db.Prepare(`SELECT total_characters, total_words, total_sentences, avg_sentence_length FROM corpus_stats WHERE corpus_name = ?;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:               db,
		stmtGetTableInfo: stmtGetTableInfo,
		stmtGetTables:    stmtGetTables,
		stmtGetCounts:    stmtGetCounts,
		stmtTableSize:    stmtTableSize,
		stmtPruneTable:   stmtPruneTable,
		stmtSaveStats:    stmtSaveStats,
		stmtLoadStats:    stmtLoadStats,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtGetTableInfo.Close()
	_ = s.stmtGetTables.Close()
	_ = s.stmtGetCounts.Close()
	_ = s.stmtTableSize.Close()
	_ = s.stmtPruneTable.Close()
	_ = s.stmtSaveStats.Close()
	_ = s.stmtLoadStats.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}
