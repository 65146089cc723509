package ngram

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
)

// Sampler draws token sequences from a Model by weighted random choice.
type Sampler struct {
	model  *Model
	rng    *rand.Rand
	logger *slog.Logger
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithRand makes the sampler draw from r instead of a freshly seeded source on
// every call. A *rand.Rand is not safe for concurrent use, so a sampler built
// with WithRand must not be shared between goroutines.
func WithRand(r *rand.Rand) SamplerOption {
	return func(s *Sampler) { s.rng = r }
}

// WithSamplerLogger sets the logger used for restart and anchor events.
// By default, all logs are discarded.
func WithSamplerLogger(logger *slog.Logger) SamplerOption {
	return func(s *Sampler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSampler returns a sampler over m.
func NewSampler(m *Model, opts ...SamplerOption) *Sampler {
	s := &Sampler{
		model:  m,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the model the sampler draws from.
func (s *Sampler) Model() *Model { return s.model }

// source returns the injected random source, or a new one seeded for this call.
func (s *Sampler) source() *rand.Rand {
	if s.rng != nil {
		return s.rng
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Generate returns exactly length tokens. Order 1 models draw tokens
// independently; higher orders walk the context index from a random starting
// context and restart from a fresh context on every dead end.
func (s *Sampler) Generate(length int) []string {
	return s.generate(s.source(), length)
}

// GenerateText generates length tokens and renders them for the model's granularity.
func (s *Sampler) GenerateText(length int) string {
	return Render(s.Generate(length), s.model.Granularity())
}

func (s *Sampler) generate(rng *rand.Rand, length int) []string {
	if length <= 0 {
		return []string{}
	}
	if s.model.Order() == 1 {
		return s.drawUnigrams(rng, length)
	}

	contexts := s.model.Contexts()
	window := s.model.Order() - 1
	output := make([]string, 0, length+window)
	output = append(output, contexts[rng.IntN(len(contexts))]...)

	restarts := 0
	for len(output) < length {
		ce := s.model.lookup(output[len(output)-window:])
		if ce == nil {
			output = s.restart(rng, output)
			restarts++
			continue
		}
		output = append(output, chooseCandidate(rng, ce))
	}

	if restarts > 0 {
		s.logger.Debug("Generation restarted on dead ends",
			slog.Int("order", s.model.Order()),
			slog.Int("length", length),
			slog.Int("restarts", restarts),
		)
	}
	return output[:length]
}

// restart appends a fresh random context wholesale when the current window has
// no continuations. The buffer may overshoot the target length; callers truncate.
func (s *Sampler) restart(rng *rand.Rand, output []string) []string {
	contexts := s.model.Contexts()
	return append(output, contexts[rng.IntN(len(contexts))]...)
}

func (s *Sampler) drawUnigrams(rng *rand.Rand, length int) []string {
	output := make([]string, length)
	cumulative := s.model.cumulative
	last := len(cumulative) - 1
	for i := range output {
		r := rng.Float64() * cumulative[last]
		j := sort.SearchFloat64s(cumulative, r)
		// SearchFloat64s finds the first cumulative >= r; an exact hit belongs to the next bucket.
		for j < last && cumulative[j] <= r {
			j++
		}
		output[i] = s.model.items[j]
	}
	return output
}

// chooseCandidate picks a continuation with probability proportional to its count.
func chooseCandidate(rng *rand.Rand, ce *contextEntry) string {
	randChoice := rng.IntN(ce.total)
	for _, c := range ce.candidates {
		randChoice -= c.Count
		if randChoice < 0 {
			return c.Token
		}
	}
	return ce.candidates[len(ce.candidates)-1].Token
}

// Render joins tokens with a single space for word granularity and with no
// separator for character granularity.
func Render(tokens []string, granularity Granularity) string {
	if granularity == Char {
		return strings.Join(tokens, "")
	}
	return strings.Join(tokens, " ")
}
