package info

import (
	"math"
	"strings"
	"testing"

	"github.com/CTAG07/shannon/pkg/ngram"
)

func TestEntropy(t *testing.T) {
	testCases := []struct {
		name  string
		probs map[string]float64
		want  float64
	}{
		{name: "fair coin", probs: map[string]float64{"h": 0.5, "t": 0.5}, want: 1.0},
		{name: "certain", probs: map[string]float64{"x": 1.0}, want: 0},
		{name: "four way", probs: map[string]float64{"a": 0.25, "b": 0.25, "c": 0.25, "d": 0.25}, want: 2.0},
		{name: "zero entries ignored", probs: map[string]float64{"a": 0.5, "b": 0.5, "c": 0}, want: 1.0},
		{name: "empty", probs: map[string]float64{}, want: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Entropy(tc.probs); got != tc.want {
				t.Errorf("Entropy() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPerplexity(t *testing.T) {
	if got := Perplexity(1.0); got != 2.0 {
		t.Errorf("Perplexity(1) = %v, want 2", got)
	}
	if got := Perplexity(0); got != 1.0 {
		t.Errorf("Perplexity(0) = %v, want 1", got)
	}
	if got := Perplexity(3); got != 8.0 {
		t.Errorf("Perplexity(3) = %v, want 8", got)
	}
}

func TestTableEntropy(t *testing.T) {
	table, _ := ngram.CalculateNgrams(strings.Fields("a b a b"), 1)
	if got := TableEntropy(table); got != 1.0 {
		t.Errorf("TableEntropy() = %v, want 1", got)
	}
}

func TestConditionalEntropy(t *testing.T) {
	// A deterministic cycle: knowing the previous token removes all uncertainty.
	cycle, _ := ngram.CalculateNgrams(strings.Fields("a b c a b c a"), 2)
	if got := ConditionalEntropy(cycle); got != 0 {
		t.Errorf("expected zero conditional entropy for a cycle, got %v", got)
	}

	// "a" is followed by b or c equally; b and c are always followed by a.
	// H = P(a-context) * 1 bit = 2/4.
	branch, _ := ngram.CalculateNgrams(strings.Fields("a b a c a"), 2)
	if got := ConditionalEntropy(branch); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("expected conditional entropy 0.5, got %v", got)
	}

	unigram, _ := ngram.CalculateNgrams(strings.Fields("x y"), 1)
	if got := ConditionalEntropy(unigram); got != 1.0 {
		t.Errorf("expected unigram conditional entropy to equal table entropy, got %v", got)
	}
}
