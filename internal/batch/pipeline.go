// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/docmark/internal/convert"
	"github.com/pdiddy/docmark/internal/manifest"
	"github.com/pdiddy/docmark/pkg/types"
)

// state is a step of one entry's pipeline.
type state int

const (
	statePending state = iota
	stateConverting
	stateNeedsPatch
	statePatching
	stateRetrying
	stateSucceeded
	stateSkipped
	stateFailed
)

var stateNames = [...]string{
	statePending:    "pending",
	stateConverting: "converting",
	stateNeedsPatch: "needs-patch",
	statePatching:   "patching",
	stateRetrying:   "retrying",
	stateSucceeded:  "succeeded",
	stateSkipped:    "skipped",
	stateFailed:     "failed",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// errUnexpectedState marks a transition the pipeline does not define.
var errUnexpectedState = errors.New("unexpected pipeline state")

// errPanicked wraps a panic recovered while processing an entry.
var errPanicked = errors.New("panic during conversion")

// job carries one entry through the state machine.
type job struct {
	entry  types.Entry
	format types.Format
	state  state

	// source is the file handed to the converter: the original, then the
	// patched copy on retry.
	source  string
	patched *types.PatchedDocument
	result  *types.ConversionResult
	digest  string
	mdPath  string
	images  int
	err     error
}

func (s state) terminal() bool {
	return s == stateSucceeded || s == stateSkipped || s == stateFailed
}

func (j *job) to(next state) {
	j.state = next
}

func (j *job) fail(err error) {
	j.err = err
	j.to(stateFailed)
}

// Process runs one entry to a terminal state and returns its outcome. A
// panic in a converter or patcher fails this entry only.
func (o *Orchestrator) Process(ctx context.Context, e types.Entry) (outcome types.BatchOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("entry panicked", "path", e.Path, "panic", rec)
			outcome = types.BatchOutcome{Entry: e, Status: types.StatusFailed, Err: fmt.Errorf("%w: %v", errPanicked, rec)}
		}
	}()

	format, _ := types.FormatOf(e.Path)
	j := &job{entry: e, format: format, source: e.Path, state: statePending}

	for !j.state.terminal() {
		prev := j.state
		switch j.state {
		case statePending:
			o.pending(ctx, j)
		case stateConverting, stateRetrying:
			o.converting(ctx, j)
		case stateNeedsPatch:
			j.to(statePatching)
		case statePatching:
			o.patching(j)
		default:
			j.fail(fmt.Errorf("%w: %s", errUnexpectedState, j.state))
		}
		o.logger.Debug("transition", "path", e.Path, "from", prev, "to", j.state)
	}

	switch j.state {
	case stateFailed:
		return types.BatchOutcome{Entry: e, Status: types.StatusFailed, Err: j.err}
	case stateSkipped:
		return types.BatchOutcome{Entry: e, Status: types.StatusSkipped, MarkdownPath: o.markdownPath(e)}
	}

	outcome = types.BatchOutcome{
		Entry:        e,
		Status:       types.StatusSucceeded,
		MarkdownPath: j.mdPath,
		Images:       j.images,
	}
	if j.patched != nil {
		outcome.Status = types.StatusPatched
		outcome.PatchedPages = j.patched.PatchedPages
	}
	return outcome
}

// pending consults the manifest. An unchanged source is skipped without
// conversion.
func (o *Orchestrator) pending(ctx context.Context, j *job) {
	j.to(stateConverting)
	if o.opts.Manifest == nil {
		return
	}
	digest, err := manifest.Digest(j.entry.Path)
	if err != nil {
		// The converter reports missing or unreadable sources.
		return
	}
	j.digest = digest
	unchanged, err := o.opts.Manifest.Unchanged(ctx, j.entry.Path, digest)
	if err != nil {
		o.logger.Warn("manifest lookup failed, converting", "path", j.entry.Path, "error", err)
		return
	}
	if unchanged {
		j.to(stateSkipped)
	}
}

// converting invokes the converter on j.source. Only the first attempt on a
// PDF may move to NeedsPatch.
func (o *Orchestrator) converting(ctx context.Context, j *job) {
	retry := j.state == stateRetrying
	res, err := o.conv.Convert(ctx, j.source)
	if err != nil {
		if !retry && j.format == types.FormatPDF && convert.NeedsPatch(err) {
			o.logger.Info("page geometry missing, patching", "path", j.entry.Path)
			j.err = err
			j.to(stateNeedsPatch)
			return
		}
		if retry {
			err = fmt.Errorf("after patching: %w", err)
		}
		j.fail(err)
		return
	}

	j.result = res
	if err := o.writeOutputs(j); err != nil {
		j.fail(err)
		return
	}
	o.remember(ctx, j)
	j.to(stateSucceeded)
}

// patching repairs the original file and writes the patched copy, which the
// retry then converts.
func (o *Orchestrator) patching(j *job) {
	if o.patch == nil {
		j.fail(fmt.Errorf("no patcher configured: %w", j.err))
		return
	}
	doc, err := o.patch(j.entry.Path, o.opts.PageBox)
	if err != nil {
		j.fail(err)
		return
	}

	dst := filepath.Join(o.opts.OutputDir, j.entry.DocName()+"_patched.pdf")
	if err := os.MkdirAll(o.opts.OutputDir, 0o755); err != nil {
		j.fail(&FilesystemError{Op: "create directory", Path: o.opts.OutputDir, Err: err})
		return
	}
	if err := os.WriteFile(dst, doc.Data, 0o644); err != nil {
		j.fail(&FilesystemError{Op: "write", Path: dst, Err: err})
		return
	}
	o.logger.Info("patched", "path", j.entry.Path, "output", dst, "pages", doc.PatchedPages)

	j.patched = doc
	j.source = dst
	j.err = nil
	j.to(stateRetrying)
}

// remember records a success in the manifest. Manifest failures only cost
// a reconversion next time.
func (o *Orchestrator) remember(ctx context.Context, j *job) {
	if o.opts.Manifest == nil {
		return
	}
	digest := j.digest
	if digest == "" {
		var err error
		if digest, err = manifest.Digest(j.entry.Path); err != nil {
			o.logger.Warn("hashing source failed", "path", j.entry.Path, "error", err)
			return
		}
	}
	err := o.opts.Manifest.Put(ctx, manifest.Record{
		Source:       j.entry.Path,
		Digest:       digest,
		Engine:       j.result.Engine,
		MarkdownPath: j.mdPath,
		ConvertedAt:  o.opts.Now(),
	})
	if err != nil {
		o.logger.Warn("recording conversion failed", "path", j.entry.Path, "error", err)
	}
}
