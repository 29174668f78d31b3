// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fixture builds small, well-formed PDF and DOCX files for tests.
// PDF pages can be emitted with or without a MediaBox so that geometry
// repair can be exercised without binary fixtures.
package fixture

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Box is a MediaBox as four numbers: llx lly urx ury.
type Box [4]float64

// Page describes one page of a generated document.
type Page struct {
	// MediaBox is written on the page dictionary when non-nil.
	MediaBox *Box

	// Lines are drawn top to bottom at 12pt, one per line.
	Lines []string

	// Heading is drawn above Lines at 20pt when non-empty.
	Heading string
}

// Doc describes a generated document.
type Doc struct {
	// RootMediaBox is written on the page tree root and inherited by pages
	// that do not carry their own.
	RootMediaBox *Box

	// Version is the header version, "1.4" when empty.
	Version string

	// HexXRefStream replaces the classic xref table with a cross-reference
	// stream encoded with /ASCIIHexDecode.
	HexXRefStream bool

	Pages []Page
}

// Letter is a convenient explicit page box.
var Letter = Box{0, 0, 612, 792}

// BoxPtr returns a pointer to b.
func BoxPtr(b Box) *Box { return &b }

// Build serializes d into a PDF with a classic cross-reference table, or a
// cross-reference stream when d.HexXRefStream is set.
func Build(d Doc) []byte {
	// Object numbering: 1 catalog, 2 page tree, 3 font, then a page and its
	// content stream per page.
	n := len(d.Pages)
	objs := make([]string, 3+2*n)

	kids := make([]string, n)
	for i := range d.Pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	objs[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	root := fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d", strings.Join(kids, " "), n)
	if d.RootMediaBox != nil {
		root += " /MediaBox " + boxString(*d.RootMediaBox)
	}
	objs[1] = root + " >>"
	objs[2] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding" +
		" /FirstChar 32 /LastChar 126 /Widths [" + strings.TrimSpace(strings.Repeat("500 ", 95)) + "] >>"

	for i, p := range d.Pages {
		pageObj := 4 + 2*i
		contentObj := pageObj + 1
		page := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R", contentObj)
		if p.MediaBox != nil {
			page += " /MediaBox " + boxString(*p.MediaBox)
		}
		objs[pageObj-1] = page + " >>"

		stream := contentStream(p)
		objs[contentObj-1] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream)
	}

	version := d.Version
	if version == "" {
		version = "1.4"
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n", version)
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	if d.HexXRefStream {
		writeHexXRefStream(&buf, offsets, xref)
		return buf.Bytes()
	}
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// writeHexXRefStream appends a cross-reference stream object numbered after
// the last body object. Rows are [type offset generation] with widths 1 4 2.
func writeHexXRefStream(buf *bytes.Buffer, offsets []int, at int) {
	size := len(offsets) + 2
	var rows strings.Builder
	rows.WriteString("0000000000ffff")
	for _, off := range offsets {
		fmt.Fprintf(&rows, "01%08x0000", off)
	}
	fmt.Fprintf(&rows, "01%08x0000>", at)
	data := rows.String()

	fmt.Fprintf(buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 2] /Root 1 0 R /Filter /ASCIIHexDecode /Length %d >>\nstream\n%s\nendstream\nendobj\n",
		size-1, size, len(data), data)
	fmt.Fprintf(buf, "startxref\n%d\n%%%%EOF\n", at)
}

// WritePDF builds d and writes it to dir/name, returning the full path.
func WritePDF(t testing.TB, dir, name string, d Doc) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(d), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func boxString(b Box) string {
	return fmt.Sprintf("[%s %s %s %s]", num(b[0]), num(b[1]), num(b[2]), num(b[3]))
}

func num(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.2f", f)
}

func contentStream(p Page) string {
	var b strings.Builder
	y := 760
	if p.Heading != "" {
		fmt.Fprintf(&b, "BT /F1 20 Tf 72 %d Td (%s) Tj ET\n", y, escape(p.Heading))
		y -= 36
	}
	for _, line := range p.Lines {
		fmt.Fprintf(&b, "BT /F1 12 Tf 72 %d Td (%s) Tj ET\n", y, escape(line))
		y -= 16
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
