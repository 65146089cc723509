/*
Package style composes n-gram models keyed by style (an author or a source
corpus) to produce prompt-prefixed creative text, and blends two samplers into
a single token stream.
*/
package style

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/CTAG07/shannon/pkg/ngram"
)

// DefaultAnchorAttempts is the number of generation attempts made before
// anchors are forced into the output.
const DefaultAnchorAttempts = 10

// Result is the structured output of creative generation.
type Result struct {
	Text string `json:"text"`
}

// Generator owns one ngram.Model per style name. Training is an exclusive
// writer; generation calls may run concurrently with each other and with
// samplers handed out by Sampler.
type Generator struct {
	mu             sync.RWMutex
	models         map[string]*ngram.Model
	granularity    ngram.Granularity
	anchorAttempts int
	rng            *rand.Rand
	logger         *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithGranularity sets the granularity models are trained with. Default: ngram.Word.
func WithGranularity(g ngram.Granularity) Option {
	return func(s *Generator) { s.granularity = g }
}

// WithAnchorAttempts sets how many attempts are made before anchors are forced.
// Default: DefaultAnchorAttempts.
func WithAnchorAttempts(n int) Option {
	return func(s *Generator) {
		if n > 0 {
			s.anchorAttempts = n
		}
	}
}

// WithRand injects a deterministic random source. The resulting Generator must
// not generate from multiple goroutines at once.
func WithRand(r *rand.Rand) Option {
	return func(s *Generator) { s.rng = r }
}

// NewGenerator returns a Generator with no styles.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		models:         make(map[string]*ngram.Model),
		granularity:    ngram.Word,
		anchorAttempts: DefaultAnchorAttempts,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetLogger sets the logger for the Generator. By default, all logs are discarded.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// TrainStyleModels builds one model per style from its frequency table. A style
// that already has a model is retrained in place; its previous table is
// replaced entirely. Every table is validated before any model changes, so an
// empty table leaves all styles untouched.
func (g *Generator) TrainStyleModels(frequencyData map[string]*ngram.Table) error {
	for name, table := range frequencyData {
		if table == nil || table.Len() == 0 {
			return fmt.Errorf("style %q: %w", name, ngram.ErrEmptyTable)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for name, table := range frequencyData {
		if m, ok := g.models[name]; ok {
			if err := m.Retrain(table); err != nil {
				return fmt.Errorf("style %q: %w", name, err)
			}
		} else {
			m, err := ngram.NewModel(table, g.granularity)
			if err != nil {
				return fmt.Errorf("style %q: %w", name, err)
			}
			g.models[name] = m
		}
		g.logger.Info("Style model trained",
			slog.String("style", name),
			slog.Int("order", table.Order()),
			slog.Int("ngrams", table.Len()),
		)
	}
	return nil
}

// Styles returns the trained style names in sorted order.
func (g *Generator) Styles() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.models))
	for name := range g.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasStyle reports whether a model exists for style.
func (g *Generator) HasStyle(style string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.models[style]
	return ok
}

// Sampler returns a sampler over a snapshot of the named style's model. The
// sampler keeps drawing from the model as it was when Sampler was called, even
// if the style is retrained afterwards.
func (g *Generator) Sampler(style string) (*ngram.Sampler, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.models[style]
	if !ok {
		return nil, false
	}
	return g.newSampler(m.Snapshot()), true
}

func (g *Generator) newSampler(m *ngram.Model) *ngram.Sampler {
	opts := []ngram.SamplerOption{ngram.WithSamplerLogger(g.logger)}
	if g.rng != nil {
		opts = append(opts, ngram.WithRand(g.rng))
	}
	return ngram.NewSampler(m, opts...)
}

// GenerateCreativeText generates length tokens in the given style, making sure
// every anchor appears, polishes the sentences and prefixes the prompt. An
// unknown style is not an error: the prompt is returned unchanged, so callers
// that need strict validation should check HasStyle first.
func (g *Generator) GenerateCreativeText(style, prompt string, length int, anchors []string) Result {
	g.mu.RLock()
	defer g.mu.RUnlock()

	m, ok := g.models[style]
	if !ok {
		return g.unknownStyle(style, prompt)
	}

	tokens := g.newSampler(m).GenerateWithAnchors(length, anchors, g.anchorAttempts)
	polished := ngram.PolishSentences(ngram.Render(tokens, m.Granularity()))
	return Result{Text: strings.TrimSpace(prompt + " " + polished)}
}

// unknownStyle is the fallback for a style with no model: the bare prompt.
func (g *Generator) unknownStyle(style, prompt string) Result {
	g.logger.Debug("Unknown style, returning prompt", slog.String("style", style))
	return Result{Text: prompt}
}
