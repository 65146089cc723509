/*
Package corpus cleans raw text and splits it into sentence, word and character
token streams for frequency analysis.
*/
package corpus

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	gutenbergStart = "*** START OF"
	gutenbergEnd   = "*** END OF"
)

// Preprocessor is a regexp-based text cleaner and tokenizer. Its behavior can
// be customized with functional options.
type Preprocessor struct {
	wordRegex     *regexp.Regexp
	sentenceRegex *regexp.Regexp
	stripRegex    *regexp.Regexp
	keepRegex     *regexp.Regexp
	spaceRegex    *regexp.Regexp
}

// Option is a function that configures a Preprocessor.
type Option func(*Preprocessor)

// WithWordRegex sets the regex used to find words.
// Default: `[\p{L}\p{N}']+`
func WithWordRegex(expr string) Option {
	return func(p *Preprocessor) {
		p.wordRegex = regexp.MustCompile(expr)
	}
}

// WithSentenceRegex sets the regex that terminates a sentence.
// Default: `[.!?]+`
func WithSentenceRegex(expr string) Option {
	return func(p *Preprocessor) {
		p.sentenceRegex = regexp.MustCompile(expr)
	}
}

// NewPreprocessor creates a preprocessor with default settings, which can be
// overridden by providing one or more Option functions.
func NewPreprocessor(opts ...Option) *Preprocessor {
	p := &Preprocessor{
		wordRegex:     regexp.MustCompile(`[\p{L}\p{N}']+`),
		sentenceRegex: regexp.MustCompile(`[.!?]+`),
		// Everything that is not a letter, digit, apostrophe, whitespace or sentence punctuation.
		stripRegex: regexp.MustCompile(`[^\p{L}\p{N}'\s.!?]`),
		// Same, but sentence punctuation is stripped as well.
		keepRegex:  regexp.MustCompile(`[^\p{L}\p{N}'\s]`),
		spaceRegex: regexp.MustCompile(`\s+`),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CleanGutenberg removes the Project Gutenberg license header and footer when
// the standard START/END markers are present. Text without markers is
// returned trimmed.
func (p *Preprocessor) CleanGutenberg(raw string) string {
	text := raw
	if i := strings.Index(text, gutenbergStart); i >= 0 {
		text = text[i:]
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = ""
		}
	}
	if i := strings.Index(text, gutenbergEnd); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// Normalize lowercases text, removes punctuation and collapses whitespace. With
// preserveSentences, sentence-ending punctuation is kept so Sentences can still
// find boundaries.
func (p *Preprocessor) Normalize(text string, preserveSentences bool) string {
	text = strings.ToLower(text)
	if preserveSentences {
		text = p.stripRegex.ReplaceAllString(text, " ")
	} else {
		text = p.keepRegex.ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(p.spaceRegex.ReplaceAllString(text, " "))
}

// Sentences splits text on sentence-ending punctuation and returns the
// non-empty, trimmed sentences without their terminators.
func (p *Preprocessor) Sentences(text string) []string {
	parts := p.sentenceRegex.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Words returns the word tokens of text.
func (p *Preprocessor) Words(text string) []string {
	return p.wordRegex.FindAllString(text, -1)
}

// Chars returns every character of text, spaces and punctuation included, as
// single-rune tokens.
func (p *Preprocessor) Chars(text string) []string {
	chars := make([]string, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		chars = append(chars, string(r))
	}
	return chars
}

// SentenceLengths returns the number of words in each sentence.
func (p *Preprocessor) SentenceLengths(sentences []string) []int {
	lengths := make([]int, len(sentences))
	for i, s := range sentences {
		lengths[i] = len(p.Words(s))
	}
	return lengths
}
