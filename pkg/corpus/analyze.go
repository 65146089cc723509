package corpus

import (
	"fmt"

	"github.com/CTAG07/shannon/pkg/ngram"
)

// SentenceStats holds aggregate counts for a cleaned corpus.
type SentenceStats struct {
	TotalCharacters   int     `json:"total_characters"`
	TotalWords        int     `json:"total_words"`
	TotalSentences    int     `json:"total_sentences"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
}

// Analysis holds the frequency tables of a corpus for both granularities and
// every supported order, along with its sentence statistics.
type Analysis struct {
	Tables map[ngram.Granularity]map[int]*ngram.Table
	Stats  SentenceStats
}

// Table returns the table for the given granularity and order, or nil.
func (a *Analysis) Table(g ngram.Granularity, order int) *ngram.Table {
	return a.Tables[g][order]
}

// Analyze cleans raw text and builds word and character tables for orders 1
// through 3.
func (p *Preprocessor) Analyze(raw string) (*Analysis, error) {
	norm := p.Normalize(p.CleanGutenberg(raw), true)

	sentences := p.Sentences(norm)
	words := p.Words(norm)
	chars := p.Chars(norm)

	lengths := p.SentenceLengths(sentences)
	var sum int
	for _, l := range lengths {
		sum += l
	}
	stats := SentenceStats{
		TotalCharacters: len(chars),
		TotalWords:      len(words),
		TotalSentences:  len(sentences),
	}
	stats.AvgSentenceLength = float64(sum) / float64(max(1, len(lengths)))

	streams := map[ngram.Granularity][]string{ngram.Word: words, ngram.Char: chars}
	analysis := &Analysis{Tables: make(map[ngram.Granularity]map[int]*ngram.Table), Stats: stats}
	for g, tokens := range streams {
		analysis.Tables[g] = make(map[int]*ngram.Table)
		for n := ngram.MinOrder; n <= ngram.MaxOrder; n++ {
			t, err := ngram.CalculateNgrams(tokens, n)
			if err != nil {
				return nil, fmt.Errorf("%s order %d: %w", g, n, err)
			}
			analysis.Tables[g][n] = t
		}
	}
	return analysis, nil
}
