// Command infill is a terminal host for the trigger controller. It treats a
// file as the edited document: saving the file is an edit, and confirmed
// replacements are written back to it.
//
//	infill watch notes.md          debounce edits and prompt on each trigger
//	infill run notes.md            run one cycle now
//	infill config set model gpt-4o change a setting
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rickchristie/infill/settings"
	"github.com/spf13/pflag"
)

type options struct {
	settingsPath  string
	logLevel      string
	logFormat     string
	metricsAddr   string
	failurePolicy string
	line          int
	yes           bool
	trace         bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%sError: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options

	flagSet := pflag.NewFlagSet("infill", pflag.ContinueOnError)
	flagSet.StringVar(&opts.settingsPath, "settings", "", "settings file (default: user config dir)")
	flagSet.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flagSet.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flagSet.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (watch only)")
	flagSet.StringVar(&opts.failurePolicy, "failure-policy", "offer", "offer failures as candidates, or report them")
	flagSet.IntVar(&opts.line, "line", 0, "cursor line for line-scoped triggers")
	flagSet.BoolVarP(&opts.yes, "yes", "y", false, "accept every trigger and replacement without asking")
	flagSet.BoolVar(&opts.trace, "trace", false, "print every controller event to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(os.Stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(os.Stderr, flagSet)
		return nil
	}

	logger, err := newLogger(os.Stderr, opts.logLevel, opts.logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	path := opts.settingsPath
	if path == "" {
		if path, err = settings.DefaultPath(); err != nil {
			return err
		}
	}
	store := settings.NewStore(path, settings.WithLogger(logger))

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(os.Stderr, flagSet)
		return errors.New("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch rest[0] {
	case "watch":
		if len(rest) != 2 {
			return errors.New("usage: infill watch FILE")
		}
		return runWatch(ctx, &opts, store, rest[1], logger)
	case "run":
		if len(rest) != 2 {
			return errors.New("usage: infill run FILE")
		}
		return runOnce(ctx, &opts, store, rest[1], logger)
	case "config":
		return runConfig(store, rest[1:], os.Stdout)
	default:
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

// newLogger builds the process logger. Logs go to w so they never mix with
// the dialog on stdout.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q (want text or json)", format)
	}
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `infill replaces trigger tokens in a file with generated text.

Write a trigger such as @[summarize the paragraph above] into the file and
save it. After the debounce period infill asks whether to generate, shows
the proposed replacement as a diff, and writes it back when you accept.

Usage:
  infill [flags] watch FILE
  infill [flags] run FILE
  infill [flags] config path|list|get KEY|set KEY VALUE

Flags:
%s`, flagSet.FlagUsages())
}
