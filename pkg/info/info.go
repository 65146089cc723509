// Package info computes information-theoretic measurements over n-gram
// probability tables.
package info

import (
	"math"

	"github.com/CTAG07/shannon/pkg/ngram"
)

// Entropy returns the Shannon entropy, in bits, of a probability table.
// Entries with p <= 0 contribute nothing. Probabilities are not validated.
func Entropy(probs map[string]float64) float64 {
	var h float64
	for _, p := range probs {
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h
}

// Perplexity returns 2^entropy.
func Perplexity(entropy float64) float64 {
	return math.Exp2(entropy)
}

// TableEntropy returns the entropy of the n-gram distribution of t.
func TableEntropy(t *ngram.Table) float64 {
	return Entropy(t.Probabilities())
}

// ConditionalEntropy returns H(next | context) for a table of order 2 or 3:
// the average uncertainty about the next token once the previous n-1 tokens
// are known. For unigram tables it equals TableEntropy.
func ConditionalEntropy(t *ngram.Table) float64 {
	if t.Order() == 1 || t.Total() == 0 {
		return TableEntropy(t)
	}

	type group struct {
		total  int
		counts []int
	}
	groups := make(map[string]*group)
	for _, e := range t.Entries() {
		key := ngram.EncodeKey(e.Key[:len(e.Key)-1])
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.total += e.Count
		g.counts = append(g.counts, e.Count)
	}

	total := float64(t.Total())
	var h float64
	for _, g := range groups {
		pContext := float64(g.total) / total
		for _, c := range g.counts {
			p := float64(c) / float64(g.total)
			h -= pContext * p * math.Log2(p)
		}
	}
	return h
}
