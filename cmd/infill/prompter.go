package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/rickchristie/infill"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// terminalPrompter asks both confirmation questions on the terminal.
type terminalPrompter struct {
	rl  *readline.Instance
	out io.Writer
	doc infill.Document
	// name labels the diff preview.
	name string

	mu sync.Mutex
}

func newTerminalPrompter(doc *fileDocument) (*terminalPrompter, error) {
	rl, err := readline.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &terminalPrompter{
		rl:   rl,
		out:  rl.Stdout(),
		doc:  doc,
		name: filepath.Base(doc.path),
	}, nil
}

func (p *terminalPrompter) Close() error {
	return p.rl.Close()
}

func (p *terminalPrompter) ConfirmTrigger(ctx context.Context, match infill.Match) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n%s%sTrigger found:%s %s\n", colorBold, colorYellow, colorReset, match.Payload)
	return p.ask(ctx, "Generate a replacement? [y/N]: ")
}

func (p *terminalPrompter) ConfirmReplacement(ctx context.Context, match infill.Match, candidate string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n%s%sProposed replacement:%s\n", colorBold, colorGreen, colorReset)
	fmt.Fprintln(p.out, candidate)

	before := p.doc.GetValue()
	if after, _, _, err := infill.ApplyMatch(before, match, candidate); err == nil {
		fmt.Fprintln(p.out)
		fmt.Fprint(p.out, colorizeDiff(unifiedDiff(p.name, before, after)))
	} else {
		fmt.Fprintf(p.out, "%sThe trigger is no longer in the document.%s\n", colorYellow, colorReset)
	}
	return p.ask(ctx, "Apply? [y/N]: ")
}

func (p *terminalPrompter) ReportFailure(_ context.Context, match infill.Match, result infill.GenerationResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n%sGeneration failed for %q: %s%s\n", colorRed, match.Payload, result.Message, colorReset)
}

// ask reads a yes/no answer. Closing the controller cancels ctx, which
// closes readline and unblocks the read.
func (p *terminalPrompter) ask(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	stop := context.AfterFunc(ctx, func() { p.rl.Close() })
	defer stop()

	p.rl.SetPrompt(colorCyan + prompt + colorReset)
	line, err := p.rl.Readline()
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return parseYes(line), nil
}

func parseYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// autoPrompter accepts every trigger and replacement. It backs --yes.
type autoPrompter struct {
	out io.Writer
}

func (p autoPrompter) ConfirmTrigger(_ context.Context, match infill.Match) (bool, error) {
	fmt.Fprintf(p.out, "%sTrigger:%s %s\n", colorDim, colorReset, match.Payload)
	return true, nil
}

func (p autoPrompter) ConfirmReplacement(_ context.Context, _ infill.Match, candidate string) (bool, error) {
	fmt.Fprintf(p.out, "%sReplacement:%s %s\n", colorDim, colorReset, candidate)
	return true, nil
}

func (p autoPrompter) ReportFailure(_ context.Context, match infill.Match, result infill.GenerationResult) {
	fmt.Fprintf(p.out, "%sGeneration failed for %q: %s%s\n", colorRed, match.Payload, result.Message, colorReset)
}

// unifiedDiff renders the substitution as a unified diff with two lines of
// context.
func unifiedDiff(name, before, after string) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: name,
		ToFile:   name + " (proposed)",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return text
}

func colorizeDiff(diff string) string {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			sb.WriteString(colorBold + strings.TrimSuffix(line, "\n") + colorReset + "\n")
		case strings.HasPrefix(line, "+"):
			sb.WriteString(colorGreen + strings.TrimSuffix(line, "\n") + colorReset + "\n")
		case strings.HasPrefix(line, "-"):
			sb.WriteString(colorRed + strings.TrimSuffix(line, "\n") + colorReset + "\n")
		case strings.HasPrefix(line, "@@"):
			sb.WriteString(colorCyan + strings.TrimSuffix(line, "\n") + colorReset + "\n")
		default:
			sb.WriteString(line)
		}
	}
	return sb.String()
}
