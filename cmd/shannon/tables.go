package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/shannon/pkg/corpus"
	"github.com/CTAG07/shannon/pkg/ngram"
	"github.com/CTAG07/shannon/pkg/store"
)

// tableSource is where the CLI reads and writes frequency tables: the SQLite
// store or a directory of JSON files, depending on the configured storage.
type tableSource interface {
	Load(ctx context.Context, corpusName string, g ngram.Granularity, order int) (*ngram.Table, error)
	Save(ctx context.Context, corpusName string, g ngram.Granularity, t *ngram.Table) error
	SaveStats(ctx context.Context, corpusName string, st corpus.SentenceStats) error
	List(ctx context.Context, corpora []string) ([]store.TableStats, error)
	Prune(ctx context.Context, corpusName string, g ngram.Granularity, order, minFreq int) (int, error)
	Close() error
}

func openTables(config *Config, logger *slog.Logger) (tableSource, error) {
	switch config.Storage {
	case storageFiles:
		return &fileSource{dir: config.TablesDir, logger: logger}, nil
	case storageSQLite:
		if err := ensureDBDir(config.DatabasePath); err != nil {
			return nil, err
		}
		db, err := initDB(config.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err = store.SetupSchema(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to setup schema: %w", err)
		}
		s, err := store.NewStore(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create store: %w", err)
		}
		s.SetLogger(logger)
		return &sqliteSource{db: db, store: s}, nil
	default:
		return nil, fmt.Errorf("unknown storage %q", config.Storage)
	}
}

// ensureDBDir creates the directory of a SQLite data source path.
func ensureDBDir(dataSource string) error {
	path, _, _ := strings.Cut(strings.TrimPrefix(dataSource, "file:"), "?")
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

type sqliteSource struct {
	db    *sql.DB
	store *store.Store
}

func (s *sqliteSource) Load(ctx context.Context, corpusName string, g ngram.Granularity, order int) (*ngram.Table, error) {
	return s.store.Load(ctx, corpusName, g, order)
}

func (s *sqliteSource) Save(ctx context.Context, corpusName string, g ngram.Granularity, t *ngram.Table) error {
	_, err := s.store.SaveTable(ctx, corpusName, g, t)
	return err
}

func (s *sqliteSource) SaveStats(ctx context.Context, corpusName string, st corpus.SentenceStats) error {
	return s.store.SaveStats(ctx, corpusName, st)
}

func (s *sqliteSource) List(ctx context.Context, _ []string) ([]store.TableStats, error) {
	return s.store.GetTableStats(ctx)
}

func (s *sqliteSource) Prune(ctx context.Context, corpusName string, g ngram.Granularity, order, minFreq int) (int, error) {
	info, err := s.store.GetTableInfo(ctx, corpusName, g, order)
	if err != nil {
		return 0, err
	}
	removed, err := s.store.PruneTable(ctx, info, minFreq)
	return int(removed), err
}

func (s *sqliteSource) Close() error {
	s.store.Close()
	return s.db.Close()
}

type fileSource struct {
	dir    string
	logger *slog.Logger
}

func (f *fileSource) Load(_ context.Context, corpusName string, g ngram.Granularity, order int) (*ngram.Table, error) {
	return store.ReadTableFile(store.TablePath(f.dir, corpusName, g, order), order)
}

func (f *fileSource) Save(_ context.Context, corpusName string, g ngram.Granularity, t *ngram.Table) error {
	path := store.TablePath(f.dir, corpusName, g, t.Order())
	if err := store.WriteTableFile(path, t); err != nil {
		return err
	}
	f.logger.Info("Frequency table saved", slog.String("path", path), slog.Int("distinct_ngrams", t.Len()))
	return nil
}

func (f *fileSource) SaveStats(_ context.Context, corpusName string, st corpus.SentenceStats) error {
	return store.WriteStatsFile(f.dir, corpusName, st)
}

// List reads every table file of the given corpora, skipping missing ones.
func (f *fileSource) List(ctx context.Context, corpora []string) ([]store.TableStats, error) {
	var stats []store.TableStats
	for _, name := range corpora {
		for _, g := range []ngram.Granularity{ngram.Char, ngram.Word} {
			for n := ngram.MinOrder; n <= ngram.MaxOrder; n++ {
				t, err := f.Load(ctx, name, g, n)
				if errors.Is(err, store.ErrTableNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
				stats = append(stats, store.TableStats{
					Info:           store.TableInfo{Corpus: name, Granularity: g, Order: n},
					DistinctNgrams: t.Len(),
					TotalFrequency: t.Total(),
				})
			}
		}
	}
	return stats, nil
}

func (f *fileSource) Prune(ctx context.Context, corpusName string, g ngram.Granularity, order, minFreq int) (int, error) {
	t, err := f.Load(ctx, corpusName, g, order)
	if err != nil {
		return 0, err
	}
	pruned := t.Prune(minFreq)
	if err = f.Save(ctx, corpusName, g, pruned); err != nil {
		return 0, err
	}
	return t.Len() - pruned.Len(), nil
}

func (f *fileSource) Close() error { return nil }

// loadStyleTables loads the table of the given granularity and order for every
// corpus, keyed by corpus name.
func loadStyleTables(ctx context.Context, src tableSource, corpora []string, g ngram.Granularity, order int) (map[string]*ngram.Table, error) {
	tables := make(map[string]*ngram.Table, len(corpora))
	for _, name := range corpora {
		t, err := src.Load(ctx, name, g, order)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s tables for %s: %w", g, name, err)
		}
		tables[name] = t
	}
	return tables, nil
}
