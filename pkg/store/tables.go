package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/shannon/pkg/corpus"
	"github.com/CTAG07/shannon/pkg/ngram"
)

// TableStats holds the size of one stored table.
type TableStats struct {
	Info           TableInfo `json:"info"`
	DistinctNgrams int       `json:"distinct_ngrams"`
	TotalFrequency int       `json:"total_frequency"`
}

// GetTableInfo looks up the stored table for a corpus, granularity and order.
// It returns ErrTableNotFound if there is none.
func (s *Store) GetTableInfo(ctx context.Context, corpusName string, g ngram.Granularity, order int) (TableInfo, error) {
	var id int
	err := s.stmtGetTableInfo.QueryRowContext(ctx, corpusName, g.String(), order).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return TableInfo{}, fmt.Errorf("%w: %s %s order %d", ErrTableNotFound, corpusName, g, order)
	}
	if err != nil {
		return TableInfo{}, err
	}
	return TableInfo{Id: id, Corpus: corpusName, Granularity: g, Order: order}, nil
}

// GetTableInfos returns every stored table, ordered by corpus, granularity and order.
func (s *Store) GetTableInfos(ctx context.Context) ([]TableInfo, error) {
	rows, err := s.stmtGetTables.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var infos []TableInfo
	for rows.Next() {
		var info TableInfo
		var granularity string
		if err = rows.Scan(&info.Id, &info.Corpus, &granularity, &info.Order); err != nil {
			return nil, err
		}
		if info.Granularity, err = ngram.ParseGranularity(granularity); err != nil {
			return nil, fmt.Errorf("table %d: %w", info.Id, err)
		}
		infos = append(infos, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// SaveTable stores t for the given corpus and granularity, replacing any table
// previously stored under the same corpus, granularity and order. The whole
// operation runs in one transaction.
func (s *Store) SaveTable(ctx context.Context, corpusName string, g ngram.Granularity, t *ngram.Table) (TableInfo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TableInfo{}, fmt.Errorf("could not begin transaction for save: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var id int
	err = tx.QueryRowContext(ctx, `
INSERT INTO ngram_tables (corpus_name, granularity, ngram_order) VALUES (?, ?, ?)
ON CONFLICT(corpus_name, granularity, ngram_order) DO UPDATE SET corpus_name = excluded.corpus_name
RETURNING table_id;`, corpusName, g.String(), t.Order()).Scan(&id)
	if err != nil {
		return TableInfo{}, fmt.Errorf("failed to get or insert table '%s': %w", corpusName, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM ngram_counts WHERE table_id = ?", id); err != nil {
		return TableInfo{}, fmt.Errorf("failed to clear counts for table %d: %w", id, err)
	}

	stmtInsertCount, err := tx.PrepareContext(ctx, `INSERT INTO ngram_counts (table_id, ngram_key, frequency) VALUES (?, ?, ?);`)
	if err != nil {
		return TableInfo{}, fmt.Errorf("failed to prepare count insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertCount)

	for key, count := range t.Counts() {
		if _, err = stmtInsertCount.ExecContext(ctx, id, key, count); err != nil {
			return TableInfo{}, fmt.Errorf("failed to insert n-gram %q: %w", key, err)
		}
	}

	info := TableInfo{Id: id, Corpus: corpusName, Granularity: g, Order: t.Order()}
	s.logger.InfoContext(ctx, "Frequency table saved",
		slog.String("corpus", corpusName),
		slog.String("granularity", g.String()),
		slog.Int("order", t.Order()),
		slog.Int("distinct_ngrams", t.Len()),
		slog.Int("total_frequency", t.Total()),
	)

	return info, tx.Commit()
}

// LoadTable reads a stored table back. Malformed keys or counts are reported as
// ngram.ErrMalformedTable.
func (s *Store) LoadTable(ctx context.Context, info TableInfo) (*ngram.Table, error) {
	rows, err := s.stmtGetCounts.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query counts for table %d: %w", info.Id, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var freq int
		if err = rows.Scan(&key, &freq); err != nil {
			return nil, err
		}
		counts[key] = freq
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	t, err := ngram.NewTable(info.Order, counts)
	if err != nil {
		return nil, fmt.Errorf("table %s %s order %d: %w", info.Corpus, info.Granularity, info.Order, err)
	}
	return t, nil
}

// Load is a convenience wrapper that looks up and loads a table in one call.
func (s *Store) Load(ctx context.Context, corpusName string, g ngram.Granularity, order int) (*ngram.Table, error) {
	info, err := s.GetTableInfo(ctx, corpusName, g, order)
	if err != nil {
		return nil, err
	}
	return s.LoadTable(ctx, info)
}

// RemoveTable deletes a table and all of its counts in one transaction.
func (s *Store) RemoveTable(ctx context.Context, info TableInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM ngram_counts WHERE table_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove counts for table %d: %w", info.Id, err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM ngram_tables WHERE table_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove table %d: %w", info.Id, err)
	}

	s.logger.InfoContext(ctx, "Frequency table removed",
		slog.String("corpus", info.Corpus),
		slog.Int("table_id", info.Id),
	)
	return tx.Commit()
}

// PruneTable removes every n-gram of a stored table with a frequency less than
// or equal to minFreq and returns how many were removed.
func (s *Store) PruneTable(ctx context.Context, info TableInfo, minFreq int) (int64, error) {
	res, err := s.stmtPruneTable.ExecContext(ctx, info.Id, minFreq)
	if err != nil {
		return 0, fmt.Errorf("could not prune table %d: %w", info.Id, err)
	}
	rowsAffected, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Frequency table pruned",
		slog.String("corpus", info.Corpus),
		slog.Int("table_id", info.Id),
		slog.Int("min_frequency", minFreq),
		slog.Int64("ngrams_removed", rowsAffected),
	)
	return rowsAffected, nil
}

// ExportTable writes a stored table to w in the persisted JSON form.
func (s *Store) ExportTable(ctx context.Context, info TableInfo, w io.Writer) error {
	t, err := s.LoadTable(ctx, info)
	if err != nil {
		return err
	}
	return ngram.EncodeTable(w, t)
}

// ImportTable reads a JSON table of the given order from r and saves it,
// replacing any existing table for the same corpus, granularity and order.
func (s *Store) ImportTable(ctx context.Context, corpusName string, g ngram.Granularity, order int, r io.Reader) (TableInfo, error) {
	t, err := ngram.DecodeTable(r, order)
	if err != nil {
		return TableInfo{}, fmt.Errorf("failed to decode table: %w", err)
	}
	return s.SaveTable(ctx, corpusName, g, t)
}

// GetTableStats returns the size of every stored table.
func (s *Store) GetTableStats(ctx context.Context) ([]TableStats, error) {
	infos, err := s.GetTableInfos(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]TableStats, 0, len(infos))
	for _, info := range infos {
		ts := TableStats{Info: info}
		if err = s.stmtTableSize.QueryRowContext(ctx, info.Id).Scan(&ts.DistinctNgrams, &ts.TotalFrequency); err != nil {
			return nil, err
		}
		stats = append(stats, ts)
	}
	return stats, nil
}

// SaveStats stores the sentence statistics of a corpus.
func (s *Store) SaveStats(ctx context.Context, corpusName string, st corpus.SentenceStats) error {
	_, err := s.stmtSaveStats.ExecContext(ctx, corpusName, st.TotalCharacters, st.TotalWords, st.TotalSentences, st.AvgSentenceLength)
	if err != nil {
		return fmt.Errorf("could not save stats for '%s': %w", corpusName, err)
	}
	return nil
}

// LoadStats reads the sentence statistics of a corpus.
func (s *Store) LoadStats(ctx context.Context, corpusName string) (corpus.SentenceStats, error) {
	var st corpus.SentenceStats
	err := s.stmtLoadStats.QueryRowContext(ctx, corpusName).Scan(&st.TotalCharacters, &st.TotalWords, &st.TotalSentences, &st.AvgSentenceLength)
	if errors.Is(err, sql.ErrNoRows) {
		return st, fmt.Errorf("%w: no stats for %s", ErrTableNotFound, corpusName)
	}
	return st, err
}
