package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/CTAG07/shannon/pkg/corpus"
	"github.com/CTAG07/shannon/pkg/ngram"
)

var orderNames = map[int]string{1: "unigram", 2: "bigram", 3: "trigram"}

// TableDir returns the directory holding a corpus's table files.
func TableDir(dir, corpusName string) string {
	return filepath.Join(dir, corpusName+"_frequency_tables")
}

// TablePath returns the file path of a table, for example
// `<dir>/austen_frequency_tables/word_bigram.json`.
func TablePath(dir, corpusName string, g ngram.Granularity, order int) string {
	return filepath.Join(TableDir(dir, corpusName), fmt.Sprintf("%s_%s.json", g, orderNames[order]))
}

// WriteTableFile atomically writes t as indented JSON to path, creating parent
// directories as needed.
func WriteTableFile(path string, t *ngram.Table) error {
	var buf bytes.Buffer
	if err := ngram.EncodeTable(&buf, t); err != nil {
		return fmt.Errorf("failed to encode table: %w", err)
	}
	return writeFile(path, &buf)
}

// ReadTableFile reads a JSON table of the given order from path. A missing file
// is reported as ErrTableNotFound.
func ReadTableFile(path string, order int) (*ngram.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, path)
		}
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	t, err := ngram.DecodeTable(f, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteStatsFile atomically writes corpus statistics as `sentence_stats.json`
// next to the corpus's tables.
func WriteStatsFile(dir, corpusName string, st corpus.SentenceStats) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	return writeFile(filepath.Join(TableDir(dir, corpusName), "sentence_stats.json"), bytes.NewReader(data))
}

func writeFile(path string, data io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := atomic.WriteFile(path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
