// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Image is one image extracted from a document.
type Image struct {
	// ID identifies the image inside the engine's Markdown output. The batch
	// stage rewrites Markdown links pointing at ID to the written file.
	ID string

	// Data holds the raw encoded image bytes.
	Data []byte
}

// ConversionResult is the normalized output of a conversion engine for a
// single input file.
type ConversionResult struct {
	// Markdown is the rendered document text.
	Markdown string

	// Images lists extracted images in extraction order.
	Images []Image

	// Engine names the backend that produced the result.
	Engine string
}

// Box is a PDF rectangle in default user space units (points).
type Box struct {
	X0, Y0, X1, Y1 float64
}

// A4 is the page geometry injected into pages missing a MediaBox.
var A4 = Box{X0: 0, Y0: 0, X1: 595, Y1: 842}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b.X1 - b.X0 }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b.Y1 - b.Y0 }

// Valid reports whether the box encloses a non-empty area.
func (b Box) Valid() bool {
	return b.Width() != 0 && b.Height() != 0
}

// PatchedDocument is a PDF rewritten with default geometry on the pages that
// lacked it.
type PatchedDocument struct {
	// Data is the complete serialized PDF.
	Data []byte

	// PatchedPages lists the 1-based page numbers that received a MediaBox,
	// in ascending order. Empty when no page needed patching.
	PatchedPages []int

	// PageCount is the number of pages in the document.
	PageCount int
}
