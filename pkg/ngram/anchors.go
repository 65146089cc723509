package ngram

import (
	"log/slog"
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SentenceBoundary is the substring PolishSentences splits on and rejoins with.
const SentenceBoundary = ". "

// sentenceEnd terminates polished text.
const sentenceEnd = "."

// GenerateWithAnchors generates length tokens, retrying up to maxAttempts times
// until every anchor appears as a whole token. If no attempt succeeds, the last
// attempt has anchors forcibly written over randomly chosen positions, which
// guarantees their presence at the cost of local plausibility.
func (s *Sampler) GenerateWithAnchors(length int, anchors []string, maxAttempts int) []string {
	rng := s.source()
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var output []string
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		output = s.generate(rng, length)
		if containsAll(output, anchors) {
			return output
		}
	}

	s.logger.Debug("Anchors not produced naturally, forcing placement",
		slog.Int("attempts", maxAttempts),
		slog.Int("anchors", len(anchors)),
		slog.Int("length", length),
	)
	return forceAnchors(rng, output, anchors)
}

// forceAnchors overwrites distinct random positions of output with the anchors.
// When there are more anchors than positions, only the first len(output)
// anchors are placed.
func forceAnchors(rng *rand.Rand, output []string, anchors []string) []string {
	positions := rng.Perm(len(output))
	for i, anchor := range anchors {
		if i >= len(positions) {
			break
		}
		output[positions[i]] = anchor
	}
	return output
}

func containsAll(tokens []string, anchors []string) bool {
	if len(anchors) == 0 {
		return true
	}
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		seen[t] = struct{}{}
	}
	for _, a := range anchors {
		if _, ok := seen[a]; !ok {
			return false
		}
	}
	return true
}

// PolishSentences splits text on SentenceBoundary, capitalizes the first letter
// of every non-empty segment and rejoins them with the same boundary, ending the
// result with a terminal period. Segments are otherwise left as generated, so
// a period not followed by a space (as in "3.14") is not a boundary, while
// abbreviations such as "mr. smith" are.
func PolishSentences(text string) string {
	text = strings.TrimSpace(text)
	if strings.Trim(text, sentenceEnd+" ") == "" {
		return ""
	}
	segments := strings.Split(text, SentenceBoundary)
	polished := make([]string, 0, len(segments))
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		polished = append(polished, capitalize(seg))
	}
	out := strings.Join(polished, SentenceBoundary)
	if !strings.HasSuffix(out, sentenceEnd) {
		out += sentenceEnd
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
