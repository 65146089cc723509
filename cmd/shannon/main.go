// Command shannon analyzes text corpora into n-gram frequency tables and
// generates text from them, on the command line or over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// app carries what every command needs.
type app struct {
	config *Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"analyze":  {"build frequency tables for every corpus in the manifest", runAnalyze},
	"generate": {"generate text from one frequency table", runGenerate},
	"creative": {"generate styled text around a prompt and anchor words", runCreative},
	"blend":    {"interleave two authors' styles", runBlend},
	"info":     {"print entropy and perplexity of an author's tables", runInfo},
	"tables":   {"list stored frequency tables", runTables},
	"prune":    {"drop rare n-grams from a stored table", runPrune},
	"serve":    {"serve the generation HTTP API", runServe},
	"version":  {"print version information", runVersion},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("shannon", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "shannon.json", "path to the JSON config file")
	fs.Usage = func() { usage(fs, stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: config.logLevel()}))

	a := &app{config: config, logger: logger, out: stdout, errOut: stderr}
	if err = cmd.run(context.Background(), a, fs.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		logger.Error("Command failed", "command", fs.Arg(0), "error", err)
		return 1
	}
	return 0
}

func usage(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: shannon [-config path] <command> [flags]")
	_, _ = fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].usage)
	}
	_, _ = fmt.Fprintln(w, "\nflags:")
	fs.PrintDefaults()
}

// splitList parses a comma separated flag value, dropping empty items.
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// normalizeAnchors lowercases anchors to match the lowercased corpus tokens.
func normalizeAnchors(anchors []string) []string {
	normalized := make([]string, 0, len(anchors))
	for _, a := range anchors {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			normalized = append(normalized, a)
		}
	}
	return normalized
}
