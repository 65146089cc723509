package ngram

import (
	"fmt"
	"math"
	"math/rand/v2"
	"reflect"
	"slices"
	"strings"
	"testing"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func TestGenerateLength(t *testing.T) {
	text := "it was the best of times it was the worst of times it was the age of wisdom"
	for _, n := range []int{1, 2, 3} {
		s := NewSampler(mustModel(t, text, n))
		for _, length := range []int{0, 1, 2, 3, 7, 50} {
			got := s.Generate(length)
			if len(got) != length {
				t.Errorf("order %d: Generate(%d) returned %d tokens", n, length, len(got))
			}
		}
		if got := s.Generate(-3); len(got) != 0 {
			t.Errorf("order %d: expected negative length to produce nothing, got %v", n, got)
		}
	}
}

func TestGenerateFollowsChain(t *testing.T) {
	// Every context has exactly one continuation, so any walk is a rotation of the cycle.
	m := mustModel(t, "a b c d a", 2)
	s := NewSampler(m)
	for i := 0; i < 20; i++ {
		out := s.Generate(12)
		for j := 1; j < len(out); j++ {
			cands := m.Candidates(out[j-1 : j])
			if len(cands) != 1 || cands[0].Token != out[j] {
				t.Fatalf("transition %q -> %q is not in the model (output %v)", out[j-1], out[j], out)
			}
		}
	}
}

func TestGenerateRestartsOnDeadEnd(t *testing.T) {
	// "y" is never a context, so the walk must restart from "x" after every "y".
	s := NewSampler(mustModel(t, "x y", 2))
	got := s.Generate(5)
	want := []string{"x", "y", "x", "y", "x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// Trigram restarts append a two-token context and may overshoot before truncation.
	s = NewSampler(mustModel(t, "p q r", 3))
	got = s.Generate(4)
	want = []string{"p", "q", "r", "p"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGenerateShortLengthTruncatesSeed(t *testing.T) {
	s := NewSampler(mustModel(t, "p q r s", 3))
	got := s.Generate(1)
	if len(got) != 1 {
		t.Fatalf("expected 1 token, got %v", got)
	}
	if got[0] != "p" && got[0] != "q" {
		t.Errorf("expected the first token of a seed context, got %q", got[0])
	}
}

func TestGenerateDeterministicWithInjectedRand(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog and the quick red fox runs past the lazy cat"
	m := mustModel(t, text, 2)

	a := NewSampler(m, WithRand(seeded(42))).Generate(30)
	b := NewSampler(m, WithRand(seeded(42))).Generate(30)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected identical output for identical seeds:\n%v\n%v", a, b)
	}
}

func TestUnigramDistributionConverges(t *testing.T) {
	m := mustModel(t, "a b b c c c c c c c", 1)
	s := NewSampler(m, WithRand(seeded(7)))

	const draws = 200000
	counts := make(map[string]int)
	for _, tok := range s.Generate(draws) {
		counts[tok]++
	}

	want := map[string]float64{"a": 0.1, "b": 0.2, "c": 0.7}
	for tok, p := range want {
		got := float64(counts[tok]) / draws
		if math.Abs(got-p) > 0.01 {
			t.Errorf("token %q: empirical frequency %.4f, want %.2f ± 0.01", tok, got, p)
		}
	}
}

func TestBigramTransitionsConverge(t *testing.T) {
	// After "a": b three times, c once.
	m := mustModel(t, "a b a b a b a c", 2)
	rng := seeded(11)
	var b, c int
	ce := m.lookup([]string{"a"})
	for i := 0; i < 40000; i++ {
		switch chooseCandidate(rng, ce) {
		case "b":
			b++
		case "c":
			c++
		}
	}
	if got := float64(b) / float64(b+c); math.Abs(got-0.75) > 0.015 {
		t.Errorf("expected P(b|a) ≈ 0.75, got %.4f", got)
	}
}

func TestGenerateText(t *testing.T) {
	word := NewSampler(mustModel(t, "x y", 2))
	if got := word.GenerateText(3); got != "x y x" {
		t.Errorf("expected %q, got %q", "x y x", got)
	}

	table, _ := CalculateNgrams(strings.Split("ab", ""), 2)
	m, err := NewModel(table, Char)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	if got := NewSampler(m).GenerateText(5); got != "ababa" {
		t.Errorf("expected %q, got %q", "ababa", got)
	}
}

func TestRender(t *testing.T) {
	tokens := []string{"h", "i", "!"}
	if got := Render(tokens, Char); got != "hi!" {
		t.Errorf("Render(Char) = %q", got)
	}
	if got := Render(tokens, Word); got != "h i !" {
		t.Errorf("Render(Word) = %q", got)
	}
	if got := Render(nil, Word); got != "" {
		t.Errorf("Render(nil) = %q", got)
	}
}

func TestGenerateWithAnchors(t *testing.T) {
	m := mustModel(t, "the cat sat on the mat while the dog sat on the rug", 2)
	s := NewSampler(m, WithRand(seeded(3)))
	anchors := []string{"dog", "mat"}

	for i := 0; i < 20; i++ {
		out := s.GenerateWithAnchors(12, anchors, 50)
		if len(out) != 12 {
			t.Fatalf("expected 12 tokens, got %d", len(out))
		}
		for _, a := range anchors {
			if !slices.Contains(out, a) {
				t.Errorf("anchor %q missing from %v", a, out)
			}
		}
	}
}

func TestGenerateWithAnchorsForcedFallback(t *testing.T) {
	// Neither anchor exists in the model, so every attempt fails and placement is forced.
	s := NewSampler(mustModel(t, "a b c a b c", 2))
	anchors := []string{"zebra", "yak", "xylophone"}

	for i := 0; i < 50; i++ {
		out := s.GenerateWithAnchors(5, anchors, 3)
		if len(out) != 5 {
			t.Fatalf("expected 5 tokens, got %d", len(out))
		}
		for _, a := range anchors {
			if !slices.Contains(out, a) {
				t.Fatalf("forced anchor %q missing from %v", a, out)
			}
		}
	}

	if out := s.GenerateWithAnchors(0, anchors, 0); len(out) != 0 {
		t.Errorf("expected empty output for length 0, got %v", out)
	}
	if out := s.GenerateWithAnchors(2, anchors, 1); len(out) != 2 || out[0] == out[1] {
		t.Errorf("expected two distinct forced anchors, got %v", out)
	}
}

func TestGenerateWithoutAnchors(t *testing.T) {
	s := NewSampler(mustModel(t, "a b c", 1))
	if out := s.GenerateWithAnchors(4, nil, 5); len(out) != 4 {
		t.Errorf("expected 4 tokens, got %v", out)
	}
}

func TestPolishSentences(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{in: "hello world. this is a test", want: "Hello world. This is a test."},
		{in: "already done.", want: "Already done."},
		{in: "mr. smith went home", want: "Mr. Smith went home."},
		{in: "  spaced .  out . ", want: "Spaced .  out ."},
		{in: "ab.cd", want: "Ab.cd."},
		{in: "3.14 is pi", want: "3.14 is pi."},
		{in: "one. . two", want: "One. Two."},
		{in: "éclair time", want: "Éclair time."},
		{in: "", want: ""},
		{in: " . . ", want: ""},
	}
	for _, tc := range testCases {
		if got := PolishSentences(tc.in); got != tc.want {
			t.Errorf("PolishSentences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func BenchmarkGenerate(b *testing.B) {
	var sb strings.Builder
	rng := seeded(1)
	vocab := strings.Fields("alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu")
	for i := 0; i < 20000; i++ {
		sb.WriteString(vocab[rng.IntN(len(vocab))])
		sb.WriteByte(' ')
	}
	corpus := sb.String()

	for _, n := range []int{1, 2, 3} {
		m := mustModel(b, corpus, n)
		s := NewSampler(m, WithRand(seeded(2)))
		b.Run(fmt.Sprintf("Order%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = s.Generate(100)
			}
		})
	}
}
