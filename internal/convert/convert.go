// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert wraps a document conversion engine behind a single call
// per file and normalizes its failures. An engine failure on a PDF is
// classified by inspecting the page tree: when pages lack a MediaBox the
// error carries ReasonMissingGeometry so the batch stage can patch and
// retry. The package never writes to the filesystem.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/pdiddy/docmark/internal/mediabox"
	"github.com/pdiddy/docmark/pkg/types"
)

// ErrMissingPageGeometry is returned by engines that cannot lay out a page
// because it has no MediaBox.
var ErrMissingPageGeometry = errors.New("could not find the page dimensions")

// ErrUnsupportedFormat is returned for inputs that are neither PDF nor DOCX.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Engine transforms one document into Markdown plus extracted images.
// Backends (native, markitdown, gemini) implement this interface.
type Engine interface {
	// Name identifies the backend in logs and frontmatter.
	Name() string

	// Convert reads the document at path and returns its rendering.
	Convert(ctx context.Context, path string, format types.Format) (*types.ConversionResult, error)
}

// Reason classifies a conversion failure.
type Reason string

const (
	// ReasonMissingGeometry means the input is a PDF with at least one page
	// lacking a usable MediaBox. Patching may fix it.
	ReasonMissingGeometry Reason = "missing-page-geometry"

	// ReasonOther covers every other failure.
	ReasonOther Reason = "other"
)

// ConversionError reports a failed conversion of one file.
type ConversionError struct {
	Path   string
	Reason Reason

	// MissingPages lists the pages without geometry when Reason is
	// ReasonMissingGeometry.
	MissingPages []int

	// Err is the underlying engine or filesystem error.
	Err error
}

func (e *ConversionError) Error() string {
	if e.Reason == ReasonMissingGeometry {
		return fmt.Sprintf("converting %s: pages %v have no MediaBox: %v", e.Path, e.MissingPages, e.Err)
	}
	return fmt.Sprintf("converting %s: %v", e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// NeedsPatch reports whether err is a conversion failure caused by missing
// page geometry.
func NeedsPatch(err error) bool {
	var ce *ConversionError
	return errors.As(err, &ce) && ce.Reason == ReasonMissingGeometry
}

// inspector reports the page geometry of a PDF.
type inspector func(path string) (*mediabox.Report, error)

// Adapter runs an Engine on single files and classifies its failures.
type Adapter struct {
	engine  Engine
	inspect inspector
	logger  *slog.Logger
}

// NewAdapter returns an Adapter over engine. A nil logger discards output.
func NewAdapter(engine Engine, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{engine: engine, inspect: mediabox.Inspect, logger: logger}
}

// EngineName returns the name of the wrapped engine.
func (a *Adapter) EngineName() string {
	return a.engine.Name()
}

// Convert converts the document at path. On failure it returns a
// *ConversionError.
func (a *Adapter) Convert(ctx context.Context, path string) (*types.ConversionResult, error) {
	format, ok := types.FormatOf(path)
	if !ok {
		return nil, &ConversionError{Path: path, Reason: ReasonOther, Err: ErrUnsupportedFormat}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("file not found: %w", err)
		}
		return nil, &ConversionError{Path: path, Reason: ReasonOther, Err: err}
	}
	if info.IsDir() {
		return nil, &ConversionError{Path: path, Reason: ReasonOther, Err: fmt.Errorf("%s is a directory", path)}
	}

	a.logger.Debug("converting", "path", path, "format", format, "engine", a.engine.Name())
	res, err := a.engine.Convert(ctx, path, format)
	if err != nil {
		return nil, a.classify(ctx, path, format, err)
	}
	if res.Engine == "" {
		res.Engine = a.engine.Name()
	}
	return res, nil
}

// classify decides from the document structure, not the engine message,
// whether a failure is caused by missing page geometry.
func (a *Adapter) classify(ctx context.Context, path string, format types.Format, err error) *ConversionError {
	ce := &ConversionError{Path: path, Reason: ReasonOther, Err: err}
	if format != types.FormatPDF || ctx.Err() != nil {
		return ce
	}

	report, ierr := a.inspect(path)
	if ierr != nil {
		a.logger.Debug("page inspection failed", "path", path, "error", ierr)
		return ce
	}
	if missing := report.Missing(); len(missing) > 0 {
		ce.Reason = ReasonMissingGeometry
		ce.MissingPages = missing
	} else if errors.Is(err, ErrMissingPageGeometry) {
		a.logger.Warn("engine reported missing page geometry but every page has a MediaBox", "path", path)
	}
	return ce
}
