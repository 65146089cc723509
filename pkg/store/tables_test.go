package store

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/CTAG07/shannon/pkg/corpus"
	"github.com/CTAG07/shannon/pkg/ngram"
)

func TestSetupSchemaIdempotent(t *testing.T) {
	db, _ := setupTestStore(t)
	if err := SetupSchema(db); err != nil {
		t.Errorf("second SetupSchema() failed: %v", err)
	}
}

func TestSaveAndLoadTable(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	for n := 1; n <= 3; n++ {
		original := testTable(t, n)
		info, err := s.SaveTable(ctx, "seuss", ngram.Word, original)
		if err != nil {
			t.Fatalf("SaveTable() order %d failed: %v", n, err)
		}
		if info.Order != n || info.Corpus != "seuss" {
			t.Errorf("unexpected table info %+v", info)
		}

		loaded, err := s.Load(ctx, "seuss", ngram.Word, n)
		if err != nil {
			t.Fatalf("Load() order %d failed: %v", n, err)
		}
		if !reflect.DeepEqual(loaded.Entries(), original.Entries()) {
			t.Errorf("order %d: loaded entries differ from saved", n)
		}
	}

	infos, err := s.GetTableInfos(ctx)
	if err != nil {
		t.Fatalf("GetTableInfos() failed: %v", err)
	}
	if len(infos) != 3 {
		t.Errorf("expected 3 tables, got %d", len(infos))
	}
}

func TestSaveTableReplaces(t *testing.T) {
	db, s := setupTestStore(t)
	ctx := context.Background()

	first, _ := s.SaveTable(ctx, "seuss", ngram.Word, testTable(t, 2))
	replacement, _ := ngram.CalculateNgrams(strings.Fields("green eggs and ham"), 2)
	second, err := s.SaveTable(ctx, "seuss", ngram.Word, replacement)
	if err != nil {
		t.Fatalf("SaveTable() failed: %v", err)
	}
	if first.Id != second.Id {
		t.Errorf("expected the table row to be reused, got ids %d and %d", first.Id, second.Id)
	}

	var count int
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ngram_counts WHERE table_id = ?", second.Id).Scan(&count)
	if count != 3 {
		t.Errorf("expected 3 stored bigrams after replacement, got %d", count)
	}

	loaded, _ := s.LoadTable(ctx, second)
	if loaded.Count("fish", "two") != 0 || loaded.Count("eggs", "and") != 1 {
		t.Error("expected old counts to be replaced, not merged")
	}
}

func TestLoadMissingTable(t *testing.T) {
	_, s := setupTestStore(t)
	_, err := s.Load(context.Background(), "nobody", ngram.Char, 2)
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestLoadMalformedTable(t *testing.T) {
	db, s := setupTestStore(t)
	ctx := context.Background()

	info, _ := s.SaveTable(ctx, "seuss", ngram.Word, testTable(t, 2))
	if _, err := db.ExecContext(ctx, "INSERT INTO ngram_counts (table_id, ngram_key, frequency) VALUES (?, ?, ?)", info.Id, "no-separator", 4); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadTable(ctx, info); !errors.Is(err, ngram.ErrMalformedTable) {
		t.Errorf("expected ErrMalformedTable, got %v", err)
	}
}

func TestRemoveTable(t *testing.T) {
	db, s := setupTestStore(t)
	ctx := context.Background()

	gone, _ := s.SaveTable(ctx, "gone", ngram.Word, testTable(t, 1))
	kept, _ := s.SaveTable(ctx, "kept", ngram.Word, testTable(t, 1))

	if err := s.RemoveTable(ctx, gone); err != nil {
		t.Fatalf("RemoveTable() failed: %v", err)
	}
	if _, err := s.GetTableInfo(ctx, "gone", ngram.Word, 1); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("expected removed table to be gone, got %v", err)
	}

	var count int
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ngram_counts WHERE table_id = ?", gone.Id).Scan(&count)
	if count != 0 {
		t.Errorf("expected 0 counts for removed table, found %d", count)
	}
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ngram_counts WHERE table_id = ?", kept.Id).Scan(&count)
	if count == 0 {
		t.Error("expected counts for kept table to exist")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	info, _ := s.SaveTable(ctx, "seuss", ngram.Char, testTable(t, 3))

	var buf bytes.Buffer
	if err := s.ExportTable(ctx, info, &buf); err != nil {
		t.Fatalf("ExportTable() failed: %v", err)
	}

	_, s2 := setupTestStore(t)
	imported, err := s2.ImportTable(ctx, "seuss", ngram.Char, 3, &buf)
	if err != nil {
		t.Fatalf("ImportTable() failed: %v", err)
	}
	loaded, err := s2.LoadTable(ctx, imported)
	if err != nil {
		t.Fatalf("LoadTable() failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Entries(), testTable(t, 3).Entries()) {
		t.Error("imported table differs from exported one")
	}

	if _, err := s2.ImportTable(ctx, "bad", ngram.Word, 2, strings.NewReader(`{"a": 1}`)); !errors.Is(err, ngram.ErrMalformedTable) {
		t.Errorf("expected ErrMalformedTable for bad import, got %v", err)
	}
}

func TestTableStats(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()
	_, _ = s.SaveTable(ctx, "seuss", ngram.Word, testTable(t, 1))

	stats, err := s.GetTableStats(ctx)
	if err != nil {
		t.Fatalf("GetTableStats() failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 table, got %d", len(stats))
	}
	if stats[0].DistinctNgrams != 5 || stats[0].TotalFrequency != 8 {
		t.Errorf("unexpected stats %+v", stats[0])
	}
}

func TestSentenceStats(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	want := corpus.SentenceStats{TotalCharacters: 120, TotalWords: 24, TotalSentences: 3, AvgSentenceLength: 8}
	if err := s.SaveStats(ctx, "seuss", want); err != nil {
		t.Fatalf("SaveStats() failed: %v", err)
	}
	want.TotalWords = 25
	if err := s.SaveStats(ctx, "seuss", want); err != nil {
		t.Fatalf("SaveStats() update failed: %v", err)
	}
	got, err := s.LoadStats(ctx, "seuss")
	if err != nil {
		t.Fatalf("LoadStats() failed: %v", err)
	}
	if got != want {
		t.Errorf("LoadStats() = %+v, want %+v", got, want)
	}
	if _, err := s.LoadStats(ctx, "missing"); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestPruneTable(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()

	info, err := s.SaveTable(ctx, "seuss", ngram.Word, testTable(t, 1))
	if err != nil {
		t.Fatalf("SaveTable() failed: %v", err)
	}
	removed, err := s.PruneTable(ctx, info, 1)
	if err != nil {
		t.Fatalf("PruneTable() failed: %v", err)
	}
	if removed != 4 {
		t.Errorf("expected 4 n-grams removed, got %d", removed)
	}

	loaded, err := s.LoadTable(ctx, info)
	if err != nil {
		t.Fatalf("LoadTable() failed: %v", err)
	}
	if loaded.Len() != 1 || loaded.Count("fish") != 4 {
		t.Errorf("expected only 'fish' to survive, got %v", loaded.Counts())
	}
}
