package ngram

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyTable is returned when a model is built from a table with no entries.
var ErrEmptyTable = errors.New("ngram: frequency table is empty")

// Granularity selects whether tokens are whole words or single characters.
type Granularity int

const (
	// Word tokens are rendered joined by a single space.
	Word Granularity = iota
	// Char tokens are rendered concatenated with no separator.
	Char
)

// String returns "word" or "char".
func (g Granularity) String() string {
	if g == Char {
		return "char"
	}
	return "word"
}

// ParseGranularity parses "word" or "char".
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(s) {
	case "word":
		return Word, nil
	case "char":
		return Char, nil
	}
	return Word, fmt.Errorf("ngram: unknown granularity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (g Granularity) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Granularity) UnmarshalText(text []byte) error {
	parsed, err := ParseGranularity(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Candidate is a possible next token for a context together with its count.
type Candidate struct {
	Token string
	Count int
}

type ctxKey [MaxOrder - 1]string

// contextEntry is the list of continuations of one context, with their summed count.
type contextEntry struct {
	candidates []Candidate
	total      int
}

// Model holds a frequency table of a fixed order and the sampling structures
// derived from it. For order 1 it exposes a weighted distribution over the
// vocabulary; for higher orders it indexes continuations by context.
//
// A Model is safe for concurrent reads. Retrain must not run concurrently with
// generation.
type Model struct {
	granularity Granularity
	table       *Table

	// order 1
	items      []string
	weights    []float64
	cumulative []float64

	// order > 1
	index    map[ctxKey]*contextEntry
	contexts [][]string
}

// NewModel builds a model from table.
func NewModel(table *Table, granularity Granularity) (*Model, error) {
	m := &Model{granularity: granularity}
	if err := m.Retrain(table); err != nil {
		return nil, err
	}
	return m, nil
}

// Retrain replaces the underlying table in place and re-derives the weights or
// context index. If table is empty the model keeps its previous state.
func (m *Model) Retrain(table *Table) error {
	if table == nil || table.Len() == 0 {
		return ErrEmptyTable
	}

	entries := table.Entries()
	if table.Order() == 1 {
		items := make([]string, len(entries))
		weights := make([]float64, len(entries))
		cumulative := make([]float64, len(entries))
		total := float64(table.Total())
		var acc float64
		for i, e := range entries {
			items[i] = e.Key[0]
			weights[i] = float64(e.Count) / total
			acc += weights[i]
			cumulative[i] = acc
		}
		m.table = table
		m.items, m.weights, m.cumulative = items, weights, cumulative
		m.index, m.contexts = nil, nil
		return nil
	}

	n := table.Order()
	index := make(map[ctxKey]*contextEntry)
	var contexts [][]string
	for _, e := range entries {
		var c ctxKey
		copy(c[:], e.Key[:n-1])
		ce, ok := index[c]
		if !ok {
			ce = &contextEntry{}
			index[c] = ce
			contexts = append(contexts, e.Key[:n-1])
		}
		ce.candidates = append(ce.candidates, Candidate{Token: e.Key[n-1], Count: e.Count})
		ce.total += e.Count
	}
	m.table = table
	m.index, m.contexts = index, contexts
	m.items, m.weights, m.cumulative = nil, nil, nil
	return nil
}

// Snapshot returns a copy of the model that a later Retrain of m does not
// affect. Retrain only ever swaps in freshly built structures, so the copy
// shares them without copying.
func (m *Model) Snapshot() *Model {
	c := *m
	return &c
}

// Order returns the n of the loaded table.
func (m *Model) Order() int { return m.table.Order() }

// Granularity returns the token granularity the model was built for.
func (m *Model) Granularity() Granularity { return m.granularity }

// Table returns the loaded frequency table.
func (m *Model) Table() *Table { return m.table }

// Unigrams returns the vocabulary and its normalized weights. Both are nil for
// models of order greater than 1.
func (m *Model) Unigrams() ([]string, []float64) {
	return m.items, m.weights
}

// Contexts returns every distinct context observed in training.
func (m *Model) Contexts() [][]string {
	return m.contexts
}

// Candidates returns the continuations observed after ctx, or nil if ctx was
// never seen as a context.
func (m *Model) Candidates(ctx []string) []Candidate {
	ce := m.lookup(ctx)
	if ce == nil {
		return nil
	}
	return ce.candidates
}

func (m *Model) lookup(ctx []string) *contextEntry {
	if m.index == nil || len(ctx) != m.Order()-1 {
		return nil
	}
	var c ctxKey
	copy(c[:], ctx)
	return m.index[c]
}
