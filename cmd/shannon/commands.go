package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"

	"github.com/CTAG07/shannon/pkg/corpus"
	"github.com/CTAG07/shannon/pkg/info"
	"github.com/CTAG07/shannon/pkg/ngram"
	"github.com/CTAG07/shannon/pkg/style"
)

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// manifest loads the corpus manifest named by the config.
func (a *app) manifest() (*Manifest, error) {
	return LoadManifest(a.config.CorporaManifest)
}

// corpusPath resolves a manifest entry relative to the manifest's directory.
func (a *app) corpusPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(a.config.CorporaManifest), path)
}

func runAnalyze(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "analyze")
	only := fs.String("corpus", "", "analyze only this corpus from the manifest")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := a.manifest()
	if err != nil {
		return err
	}
	src, err := openTables(a.config, a.logger)
	if err != nil {
		return err
	}
	defer func(src tableSource) {
		_ = src.Close()
	}(src)

	p := corpus.NewPreprocessor()
	for _, name := range m.Names() {
		if *only != "" && name != *only {
			continue
		}
		raw, err := os.ReadFile(a.corpusPath(m.Corpora[name]))
		if err != nil {
			return fmt.Errorf("failed to read corpus %s: %w", name, err)
		}
		analysis, err := p.Analyze(string(raw))
		if err != nil {
			return fmt.Errorf("failed to analyze %s: %w", name, err)
		}
		for g, byOrder := range analysis.Tables {
			for _, t := range byOrder {
				if err = src.Save(ctx, name, g, t); err != nil {
					return fmt.Errorf("failed to save %s %s table: %w", name, g, err)
				}
			}
		}
		if err = src.SaveStats(ctx, name, analysis.Stats); err != nil {
			return err
		}

		st := analysis.Stats
		a.logger.Info("Corpus analyzed",
			slog.String("corpus", name),
			slog.String("characters", humanize.Comma(int64(st.TotalCharacters))),
			slog.String("words", humanize.Comma(int64(st.TotalWords))),
			slog.String("sentences", humanize.Comma(int64(st.TotalSentences))),
			slog.Float64("avg_sentence_length", st.AvgSentenceLength),
		)
	}
	return nil
}

// tableFlags registers the flags shared by commands that work on one table.
func tableFlags(fs *flag.FlagSet) (granularity *string, order *int) {
	granularity = fs.String("type", "word", "model type: word or char")
	order = fs.Int("order", 2, "n-gram order: 1, 2 or 3")
	return granularity, order
}

func (a *app) loadModel(ctx context.Context, src tableSource, author, granularity string, order int) (*ngram.Model, error) {
	g, err := ngram.ParseGranularity(granularity)
	if err != nil {
		return nil, err
	}
	t, err := src.Load(ctx, author, g, order)
	if err != nil {
		return nil, err
	}
	return ngram.NewModel(t, g)
}

func runGenerate(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "generate")
	author := fs.String("author", "", "corpus to generate from (required)")
	granularity, order := tableFlags(fs)
	length := fs.Int("length", a.config.DefaultLength, "number of words or characters to generate")
	outfile := fs.String("outfile", "", "also write the text to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *author == "" {
		return fmt.Errorf("generate: -author is required")
	}

	src, err := openTables(a.config, a.logger)
	if err != nil {
		return err
	}
	defer func(src tableSource) {
		_ = src.Close()
	}(src)

	model, err := a.loadModel(ctx, src, *author, *granularity, *order)
	if err != nil {
		return err
	}
	sample := ngram.NewSampler(model, ngram.WithSamplerLogger(a.logger)).GenerateText(*length)

	_, _ = fmt.Fprintf(a.out, "\n=== Generated Text (%s, %s-%d) ===\n\n", *author, model.Granularity(), *order)
	_, _ = fmt.Fprintln(a.out, sample)

	if *outfile != "" {
		if err = atomic.WriteFile(*outfile, strings.NewReader(sample)); err != nil {
			return fmt.Errorf("failed to write %s: %w", *outfile, err)
		}
		_, _ = fmt.Fprintf(a.out, "\nOutput saved to %s\n", *outfile)
	}
	return nil
}

// styleGenerator trains a style.Generator on the configured tables of every
// corpus in the manifest.
func (a *app) styleGenerator(ctx context.Context) (*style.Generator, error) {
	g, err := ngram.ParseGranularity(a.config.StyleGranularity)
	if err != nil {
		return nil, err
	}
	m, err := a.manifest()
	if err != nil {
		return nil, err
	}
	src, err := openTables(a.config, a.logger)
	if err != nil {
		return nil, err
	}
	defer func(src tableSource) {
		_ = src.Close()
	}(src)

	tables, err := loadStyleTables(ctx, src, m.Names(), g, a.config.StyleOrder)
	if err != nil {
		return nil, err
	}
	gen := style.NewGenerator(style.WithGranularity(g), style.WithAnchorAttempts(a.config.AnchorAttempts))
	gen.SetLogger(a.logger)
	if err = gen.TrainStyleModels(tables); err != nil {
		return nil, err
	}
	return gen, nil
}

func runCreative(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "creative")
	author := fs.String("author", "", "style to write in (required)")
	prompt := fs.String("prompt", "", "text to start with")
	length := fs.Int("length", a.config.DefaultLength, "number of tokens to generate")
	anchors := fs.String("anchors", "", "comma separated words the text must contain")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *author == "" {
		return fmt.Errorf("creative: -author is required")
	}

	gen, err := a.styleGenerator(ctx)
	if err != nil {
		return err
	}
	if !gen.HasStyle(*author) {
		a.logger.Warn("Unknown style, output is the prompt only", "style", *author, "styles", gen.Styles())
	}
	result := gen.GenerateCreativeText(*author, *prompt, *length, normalizeAnchors(splitList(*anchors)))

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runBlend(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "blend")
	first := fs.String("a", "", "first author (required)")
	second := fs.String("b", "", "second author (required)")
	ratio := fs.Float64("ratio", 0.5, "share of tokens drawn from the first author")
	granularity, order := tableFlags(fs)
	length := fs.Int("length", a.config.DefaultLength, "number of tokens to generate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *first == "" || *second == "" {
		return fmt.Errorf("blend: -a and -b are required")
	}

	src, err := openTables(a.config, a.logger)
	if err != nil {
		return err
	}
	defer func(src tableSource) {
		_ = src.Close()
	}(src)

	samplers := make([]*ngram.Sampler, 0, 2)
	for _, author := range []string{*first, *second} {
		model, err := a.loadModel(ctx, src, author, *granularity, *order)
		if err != nil {
			return err
		}
		samplers = append(samplers, ngram.NewSampler(model, ngram.WithSamplerLogger(a.logger)))
	}
	blender, err := style.NewBlender(samplers[0], samplers[1], *ratio)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(a.out, "\n=== Blended Text (%s %.2f, %s %.2f) ===\n\n", *first, *ratio, *second, 1-*ratio)
	_, _ = fmt.Fprintln(a.out, blender.Generate(*length))
	return nil
}

func runInfo(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "info")
	author := fs.String("author", "", "corpus to describe (required)")
	granularity := fs.String("type", "word", "model type: word or char")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *author == "" {
		return fmt.Errorf("info: -author is required")
	}
	g, err := ngram.ParseGranularity(*granularity)
	if err != nil {
		return err
	}

	src, err := openTables(a.config, a.logger)
	if err != nil {
		return err
	}
	defer func(src tableSource) {
		_ = src.Close()
	}(src)

	_, _ = fmt.Fprintf(a.out, "%s (%s)\n", *author, g)
	for n := ngram.MinOrder; n <= ngram.MaxOrder; n++ {
		t, err := src.Load(ctx, *author, g, n)
		if err != nil {
			return err
		}
		h := info.TableEntropy(t)
		_, _ = fmt.Fprintf(a.out, "  order %d: %s distinct, %s total, entropy %.4f bits, perplexity %.2f",
			n, humanize.Comma(int64(t.Len())), humanize.Comma(int64(t.Total())), h, info.Perplexity(h))
		if n > 1 {
			_, _ = fmt.Fprintf(a.out, ", conditional entropy %.4f bits", info.ConditionalEntropy(t))
		}
		_, _ = fmt.Fprintln(a.out)
	}
	return nil
}

func runTables(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "tables")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var names []string
	if m, err := a.manifest(); err == nil {
		names = m.Names()
	} else if a.config.Storage == storageFiles {
		return err
	}

	src, err := openTables(a.config, a.logger)
	if err != nil {
		return err
	}
	defer func(src tableSource) {
		_ = src.Close()
	}(src)

	stats, err := src.List(ctx, names)
	if err != nil {
		return err
	}
	for _, st := range stats {
		_, _ = fmt.Fprintf(a.out, "%-12s %-4s %d  %10s distinct  %12s total\n",
			st.Info.Corpus, st.Info.Granularity, st.Info.Order,
			humanize.Comma(int64(st.DistinctNgrams)), humanize.Comma(int64(st.TotalFrequency)))
	}
	return nil
}

func runPrune(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "prune")
	author := fs.String("author", "", "corpus whose table is pruned (required)")
	granularity, order := tableFlags(fs)
	minFreq := fs.Int("min", 1, "remove n-grams seen this many times or fewer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *author == "" {
		return fmt.Errorf("prune: -author is required")
	}
	g, err := ngram.ParseGranularity(*granularity)
	if err != nil {
		return err
	}

	src, err := openTables(a.config, a.logger)
	if err != nil {
		return err
	}
	defer func(src tableSource) {
		_ = src.Close()
	}(src)

	removed, err := src.Prune(ctx, *author, g, *order, *minFreq)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "removed %s n-grams from %s %s-%d\n", humanize.Comma(int64(removed)), *author, g, *order)
	return nil
}

func runVersion(_ context.Context, a *app, _ []string) error {
	_, err := fmt.Fprintf(a.out, "shannon %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	return err
}
