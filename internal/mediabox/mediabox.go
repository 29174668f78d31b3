// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mediabox inspects and repairs PDF page geometry. Some producers
// emit pages without a MediaBox, which leaves conversion engines unable to
// lay the page out. Patch fills those pages with a default box and leaves
// every other page untouched.
package mediabox

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/pdiddy/docmark/pkg/types"
)

// maxTreeDepth bounds the walk up the page tree when resolving an inherited
// MediaBox. Malformed files can contain Parent cycles.
const maxTreeDepth = 64

func init() {
	api.DisableConfigDir()
}

// PatchError reports a PDF that could not be patched at all, typically
// because it cannot be parsed.
type PatchError struct {
	Path string
	Err  error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patching %s: %v", e.Path, e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }

// PageGeometry is the effective MediaBox of one page.
type PageGeometry struct {
	// Page is the 1-based page number.
	Page int

	// Box is the effective MediaBox. Zero when Present is false.
	Box types.Box

	// Present reports whether the page has a usable MediaBox.
	Present bool

	// Inherited reports whether Box comes from an ancestor page tree node.
	Inherited bool
}

// Report lists the geometry of every page in a document.
type Report struct {
	Pages []PageGeometry
}

// Missing returns the page numbers without a usable MediaBox.
func (r *Report) Missing() []int {
	var out []int
	for _, p := range r.Pages {
		if !p.Present {
			out = append(out, p.Page)
		}
	}
	return out
}

// Complete reports whether every page has a usable MediaBox.
func (r *Report) Complete() bool {
	return len(r.Missing()) == 0
}

// Inspect reads the PDF at path and reports the geometry of each page.
func Inspect(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ctx, err := ReadContext(f)
	if err != nil {
		return nil, fmt.Errorf("reading PDF %s: %w", path, err)
	}
	return inspect(ctx)
}

// Patch reads the PDF at path and assigns box to every page that lacks a
// usable MediaBox. Pages with geometry keep it bit for bit. The returned
// document is always serialized, even when no page needed patching.
func Patch(path string, box types.Box) (*types.PatchedDocument, error) {
	if !box.Valid() {
		return nil, &PatchError{Path: path, Err: fmt.Errorf("default box %v has no area", box)}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &PatchError{Path: path, Err: err}
	}
	defer f.Close()

	ctx, err := ReadContext(f)
	if err != nil {
		return nil, &PatchError{Path: path, Err: err}
	}

	report, err := inspect(ctx)
	if err != nil {
		return nil, &PatchError{Path: path, Err: err}
	}

	var patched []int
	for _, pg := range report.Pages {
		if pg.Present {
			continue
		}
		d, _, _, err := ctx.PageDict(pg.Page, false)
		if err != nil {
			return nil, &PatchError{Path: path, Err: fmt.Errorf("page %d: %w", pg.Page, err)}
		}
		d["MediaBox"] = pdftypes.NewNumberArray(box.X0, box.Y0, box.X1, box.Y1)
		patched = append(patched, pg.Page)
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, &PatchError{Path: path, Err: fmt.Errorf("writing PDF: %w", err)}
	}

	return &types.PatchedDocument{
		Data:         buf.Bytes(),
		PatchedPages: patched,
		PageCount:    ctx.PageCount,
	}, nil
}

// ReadContext parses a PDF without validating it. Validation would reject
// the very documents this package exists to repair.
func ReadContext(rs io.ReadSeeker) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("counting pages: %w", err)
	}
	if ctx.PageCount == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	return ctx, nil
}

func inspect(ctx *model.Context) (*Report, error) {
	report := &Report{Pages: make([]PageGeometry, 0, ctx.PageCount)}
	for nr := 1; nr <= ctx.PageCount; nr++ {
		d, _, _, err := ctx.PageDict(nr, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", nr, err)
		}
		if d == nil {
			return nil, fmt.Errorf("page %d: missing page dictionary", nr)
		}
		pg := PageGeometry{Page: nr}
		if box, inherited, ok := effectiveBox(ctx, d); ok {
			pg.Box, pg.Inherited, pg.Present = box, inherited, true
		}
		report.Pages = append(report.Pages, pg)
	}
	return report, nil
}

// effectiveBox resolves the MediaBox that applies to page dictionary d: its
// own entry if present, otherwise the nearest ancestor's. The first entry
// found decides; an unusable entry is not masked by a valid ancestor.
func effectiveBox(ctx *model.Context, d pdftypes.Dict) (types.Box, bool, bool) {
	node := d
	for depth := 0; depth < maxTreeDepth && node != nil; depth++ {
		if o, found := node.Find("MediaBox"); found && o != nil {
			box, ok := toBox(ctx, o)
			return box, depth > 0, ok && box.Valid()
		}
		parent, found := node.Find("Parent")
		if !found || parent == nil {
			break
		}
		next, err := ctx.DereferenceDict(parent)
		if err != nil {
			break
		}
		node = next
	}
	return types.Box{}, false, false
}

func toBox(ctx *model.Context, o pdftypes.Object) (types.Box, bool) {
	arr, err := ctx.DereferenceArray(o)
	if err != nil || len(arr) != 4 {
		return types.Box{}, false
	}
	var v [4]float64
	for i, el := range arr {
		f, ok := number(ctx, el)
		if !ok {
			return types.Box{}, false
		}
		v[i] = f
	}
	return types.Box{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}, true
}

func number(ctx *model.Context, o pdftypes.Object) (float64, bool) {
	o, err := ctx.Dereference(o)
	if err != nil {
		return 0, false
	}
	switch n := o.(type) {
	case pdftypes.Integer:
		return float64(n.Value()), true
	case pdftypes.Float:
		return n.Value(), true
	}
	return 0, false
}
