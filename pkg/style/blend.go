package style

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/CTAG07/shannon/pkg/ngram"
)

// ErrInvalidRatio is returned when a blend ratio lies outside [0, 1].
var ErrInvalidRatio = errors.New("style: blend ratio must be within [0, 1]")

// Blender interleaves two samplers. Every output position is drawn
// independently, from the first sampler with probability Ratio and from the
// second otherwise. Each draw is a full one-token generation, so samplers of
// order 2 or 3 do not carry context from one position to the next.
type Blender struct {
	samplers [2]*ngram.Sampler
	ratio    float64
	rng      *rand.Rand
}

// BlendOption configures a Blender.
type BlendOption func(*Blender)

// WithBlendRand injects the random source used to choose between samplers.
func WithBlendRand(r *rand.Rand) BlendOption {
	return func(b *Blender) { b.rng = r }
}

// NewBlender returns a Blender over first and second with the given ratio.
func NewBlender(first, second *ngram.Sampler, ratio float64, opts ...BlendOption) (*Blender, error) {
	if ratio < 0 || ratio > 1 || math.IsNaN(ratio) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRatio, ratio)
	}
	if first == nil || second == nil {
		return nil, errors.New("style: blender needs two samplers")
	}
	b := &Blender{samplers: [2]*ngram.Sampler{first, second}, ratio: ratio}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Ratio returns the probability of drawing from the first sampler.
func (b *Blender) Ratio() float64 { return b.ratio }

// Generate returns length tokens joined by single spaces.
func (b *Blender) Generate(length int) string {
	rng := b.rng
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	tokens := make([]string, 0, max(length, 0))
	for i := 0; i < length; i++ {
		s := b.samplers[1]
		if rng.Float64() < b.ratio {
			s = b.samplers[0]
		}
		tokens = append(tokens, s.Generate(1)...)
	}
	return strings.Join(tokens, " ")
}
