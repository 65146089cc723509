package ngram

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	// MinOrder is the smallest supported n-gram order.
	MinOrder = 1
	// MaxOrder is the largest supported n-gram order.
	MaxOrder = 3
	// KeySeparator joins the tokens of a multi-token key in the persisted form.
	// Tokens are expected never to contain it.
	KeySeparator = "||"
)

var (
	// ErrInvalidOrder is returned when an n-gram order outside MinOrder..MaxOrder is requested.
	ErrInvalidOrder = errors.New("ngram: order must be between 1 and 3")
	// ErrMalformedTable is returned when persisted frequency data cannot be decoded.
	ErrMalformedTable = errors.New("ngram: malformed frequency table")
)

// gram is the fixed-size map key used internally; only the first order slots are set.
type gram [MaxOrder]string

// Entry is a single n-gram and the number of times it was observed.
type Entry struct {
	Key   []string
	Count int
}

// Table is an immutable n-gram frequency table for a single order. Every stored
// count is at least 1.
type Table struct {
	order  int
	counts map[gram]int
	total  int
}

func validOrder(n int) bool {
	return n >= MinOrder && n <= MaxOrder
}

func toGram(tokens []string) gram {
	var g gram
	copy(g[:], tokens)
	return g
}

// CalculateNgrams slides a window of width n across tokens with stride 1 and
// counts every observed n-gram. A sequence shorter than n yields an empty table.
func CalculateNgrams(tokens []string, n int) (*Table, error) {
	if !validOrder(n) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, n)
	}
	t := &Table{order: n, counts: make(map[gram]int)}
	for i := 0; i+n <= len(tokens); i++ {
		t.counts[toGram(tokens[i:i+n])]++
		t.total++
	}
	return t, nil
}

// NewTable builds a table from the persisted form, where multi-token keys are
// joined with KeySeparator. Zero counts are dropped; negative counts and keys
// with the wrong number of tokens are reported as ErrMalformedTable.
func NewTable(order int, counts map[string]int) (*Table, error) {
	if !validOrder(order) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	t := &Table{order: order, counts: make(map[gram]int, len(counts))}
	for key, count := range counts {
		if count < 0 {
			return nil, fmt.Errorf("%w: negative count %d for key %q", ErrMalformedTable, count, key)
		}
		if count == 0 {
			continue
		}
		tokens, err := DecodeKey(key, order)
		if err != nil {
			return nil, err
		}
		t.counts[toGram(tokens)] += count
		t.total += count
	}
	return t, nil
}

// EncodeKey joins the tokens of an n-gram into its persisted string form.
// A unigram key is the bare token.
func EncodeKey(tokens []string) string {
	return strings.Join(tokens, KeySeparator)
}

// DecodeKey splits a persisted key back into exactly order tokens.
func DecodeKey(key string, order int) ([]string, error) {
	if order == 1 {
		return []string{key}, nil
	}
	tokens := strings.Split(key, KeySeparator)
	if len(tokens) != order {
		return nil, fmt.Errorf("%w: key %q has %d tokens, want %d", ErrMalformedTable, key, len(tokens), order)
	}
	return tokens, nil
}

// Order returns the n of the table.
func (t *Table) Order() int { return t.order }

// Len returns the number of distinct n-grams.
func (t *Table) Len() int { return len(t.counts) }

// Total returns the sum of all counts.
func (t *Table) Total() int { return t.total }

// Count returns the count for the given n-gram, or 0 if it was never observed.
func (t *Table) Count(key ...string) int {
	if len(key) != t.order {
		return 0
	}
	return t.counts[toGram(key)]
}

// Entries returns every n-gram with its count, sorted by key so iteration is
// reproducible.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.counts))
	for g, c := range t.counts {
		key := make([]string, t.order)
		copy(key, g[:t.order])
		entries = append(entries, Entry{Key: key, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Key, entries[j].Key
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return entries
}

// Prune returns a copy of the table without the n-grams observed minFreq times
// or fewer.
func (t *Table) Prune(minFreq int) *Table {
	pruned := &Table{order: t.order, counts: make(map[gram]int, len(t.counts))}
	for g, c := range t.counts {
		if c > minFreq {
			pruned.counts[g] = c
			pruned.total += c
		}
	}
	return pruned
}

// Counts returns the persisted form of the table: encoded key -> count.
func (t *Table) Counts() map[string]int {
	out := make(map[string]int, len(t.counts))
	for g, c := range t.counts {
		out[EncodeKey(g[:t.order])] = c
	}
	return out
}

// Probabilities returns each encoded key's share of the total count.
func (t *Table) Probabilities() map[string]float64 {
	probs := make(map[string]float64, len(t.counts))
	if t.total == 0 {
		return probs
	}
	for g, c := range t.counts {
		probs[EncodeKey(g[:t.order])] = float64(c) / float64(t.total)
	}
	return probs
}

// MarshalJSON writes the table as a JSON object of encoded key -> count.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Counts())
}

// UnmarshalTable decodes a JSON object of encoded key -> count.
func UnmarshalTable(data []byte, order int) (*Table, error) {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedTable)
	}
	return NewTable(order, raw)
}

// DecodeTable reads a JSON frequency table from r. The stream must hold exactly
// one JSON object.
func DecodeTable(r io.Reader, order int) (*Table, error) {
	var raw map[string]int
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedTable)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after table", ErrMalformedTable)
	}
	return NewTable(order, raw)
}

// EncodeTable writes t to w as indented JSON.
func EncodeTable(w io.Writer, t *Table) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(t.Counts())
}
