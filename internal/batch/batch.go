// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch drives every config entry through conversion, one file at
// a time, in config order. A PDF whose conversion fails for lack of page
// geometry is patched once and retried; every other failure is terminal
// for that entry only. Each entry yields exactly one outcome.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pdiddy/docmark/internal/manifest"
	"github.com/pdiddy/docmark/pkg/types"
)

// Converter turns one document into Markdown. *convert.Adapter implements
// it; failures are *convert.ConversionError values.
type Converter interface {
	Convert(ctx context.Context, path string) (*types.ConversionResult, error)
}

// Patcher fills missing page geometry. mediabox.Patch implements it.
type Patcher func(path string, box types.Box) (*types.PatchedDocument, error)

// Manifest remembers successful conversions for incremental runs.
// *manifest.Store implements it.
type Manifest interface {
	Unchanged(ctx context.Context, source, digest string) (bool, error)
	Put(ctx context.Context, r manifest.Record) error
}

// Options configures an Orchestrator.
type Options struct {
	// OutputDir receives all artifacts. Created on demand.
	OutputDir string

	// PageBox is injected into pages without geometry. Zero means A4.
	PageBox types.Box

	// Frontmatter prepends a YAML header to each Markdown file.
	Frontmatter bool

	// Manifest enables incremental mode when non-nil.
	Manifest Manifest

	// Now stamps frontmatter and manifest records. Defaults to time.Now.
	Now func() time.Time
}

// FilesystemError reports a failed output write.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Summary holds the outcome of a batch run.
type Summary struct {
	Outcomes  []types.BatchOutcome
	Succeeded int
	Patched   int
	Skipped   int
	Failed    int
}

// Total returns the number of entries processed.
func (s Summary) Total() int {
	return s.Succeeded + s.Patched + s.Skipped + s.Failed
}

// HasFailures reports whether any entry failed.
func (s Summary) HasFailures() bool {
	for _, o := range s.Outcomes {
		if !o.OK() {
			return true
		}
	}
	return false
}

func (s *Summary) add(o types.BatchOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case types.StatusSucceeded:
		s.Succeeded++
	case types.StatusPatched:
		s.Patched++
	case types.StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// Orchestrator runs the per-entry pipeline.
type Orchestrator struct {
	conv   Converter
	patch  Patcher
	opts   Options
	out    io.Writer
	logger *slog.Logger
}

// New returns an Orchestrator. Status lines go to out; diagnostics go to
// logger, which may be nil.
func New(conv Converter, patch Patcher, opts Options, out io.Writer, logger *slog.Logger) *Orchestrator {
	if opts.PageBox == (types.Box{}) {
		opts.PageBox = types.A4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{conv: conv, patch: patch, opts: opts, out: out, logger: logger}
}

// Run processes entries sequentially, printing one status line per entry
// and a final summary line. Once ctx is done the remaining entries are
// recorded as failed with the context error.
func (o *Orchestrator) Run(ctx context.Context, entries []types.Entry) Summary {
	var s Summary
	for _, e := range entries {
		var outcome types.BatchOutcome
		if err := ctx.Err(); err != nil {
			outcome = types.BatchOutcome{Entry: e, Status: types.StatusFailed, Err: err}
		} else {
			outcome = o.Process(ctx, e)
		}
		o.report(outcome)
		s.add(outcome)
	}
	fmt.Fprintf(o.out, "\nBatch summary: %d succeeded, %d patched, %d skipped, %d failed (total: %d)\n",
		s.Succeeded, s.Patched, s.Skipped, s.Failed, s.Total())
	return s
}

func (o *Orchestrator) report(r types.BatchOutcome) {
	switch r.Status {
	case types.StatusSucceeded:
		fmt.Fprintf(o.out, "[OK] %s\n", r.Entry.Raw)
	case types.StatusPatched:
		fmt.Fprintf(o.out, "[PATCHED] %s\n", r.Entry.Raw)
	case types.StatusSkipped:
		fmt.Fprintf(o.out, "[SKIPPED] %s\n", r.Entry.Raw)
	default:
		fmt.Fprintf(o.out, "[FAILED] %s: %v\n", r.Entry.Raw, r.Err)
	}
}
