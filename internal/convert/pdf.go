// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	rpdf "rsc.io/pdf"

	"github.com/pdiddy/docmark/internal/mediabox"
	"github.com/pdiddy/docmark/pkg/types"
)

// Heading thresholds relative to the dominant body font size.
const (
	h1Ratio = 1.6
	h2Ratio = 1.25
)

// textLine is a run of glyphs sharing a baseline.
type textLine struct {
	y    float64
	size float64
	text string
}

// convertPDF renders the text layer of a PDF page by page. Page geometry is
// required: glyphs outside the MediaBox are clipped, as a viewer would.
func (e *NativeEngine) convertPDF(path string) (*types.ConversionResult, error) {
	report, err := mediabox.Inspect(path)
	if err != nil {
		return nil, fmt.Errorf("reading page tree: %w", err)
	}
	if missing := report.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w for pages %v", ErrMissingPageGeometry, missing)
	}

	pages, err := e.pageLines(path, report)
	if err != nil {
		return nil, err
	}

	images, byPage, err := extractPDFImages(path)
	if err != nil {
		e.logger.Warn("image extraction failed, keeping text only", "path", path, "error", err)
		images, byPage = nil, nil
	}

	body := bodyFontSize(pages)
	var b strings.Builder
	for i, lines := range pages {
		writeLines(&b, lines, body)
		for _, id := range byPage[i+1] {
			fmt.Fprintf(&b, "![](%s)\n\n", id)
		}
	}

	md := strings.TrimSpace(b.String())
	if md != "" {
		md += "\n"
	}
	return &types.ConversionResult{Markdown: md, Images: images, Engine: engineNative}, nil
}

// pageLines lays out the text of every page. Glyph positions from the text
// layer are preferred; files the glyph reader rejects fall back to the raw
// content streams.
func (e *NativeEngine) pageLines(path string, report *mediabox.Report) ([][]textLine, error) {
	glyphs, err := readTextLayer(path)
	if err == nil {
		pages := make([][]textLine, len(glyphs))
		for i, g := range glyphs {
			if i < len(report.Pages) {
				g = clip(g, report.Pages[i].Box)
			}
			pages[i] = layoutLines(g)
		}
		return pages, nil
	}

	e.logger.Warn("text layer unreadable, using content streams", "path", path, "error", err)
	pages, ferr := readContentStreams(path)
	if ferr != nil {
		return nil, fmt.Errorf("reading text: %w", errors.Join(err, ferr))
	}
	return pages, nil
}

// readTextLayer returns the positioned glyphs of every page. The reader
// panics on filters and content it does not support, including while
// parsing the cross-reference section, so panics become errors.
func readTextLayer(path string) (pages [][]rpdf.Text, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("reading text layer: %v", rec)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	r, err := rpdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}

	n := r.NumPage()
	pages = make([][]rpdf.Text, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pages[i-1] = p.Content().Text
	}
	return pages, nil
}

func clip(glyphs []rpdf.Text, box types.Box) []rpdf.Text {
	x0, x1 := math.Min(box.X0, box.X1), math.Max(box.X0, box.X1)
	y0, y1 := math.Min(box.Y0, box.Y1), math.Max(box.Y0, box.Y1)
	out := glyphs[:0:0]
	for _, g := range glyphs {
		if g.X < x0 || g.X > x1 || g.Y < y0 || g.Y > y1 {
			continue
		}
		out = append(out, g)
	}
	return out
}

// layoutLines groups glyphs into lines by baseline, inserting spaces where
// the horizontal gap suggests one, and orders lines top to bottom.
func layoutLines(glyphs []rpdf.Text) []textLine {
	var lines []textLine
	var (
		cur     strings.Builder
		curY    float64
		curSize float64
		endX    float64
		open    bool
	)
	flush := func() {
		if open {
			lines = append(lines, textLine{y: curY, size: curSize, text: cur.String()})
		}
		cur.Reset()
		open = false
	}

	for _, g := range glyphs {
		if !open || math.Abs(g.Y-curY) > 0.5*math.Max(curSize, g.FontSize) {
			flush()
			curY, curSize, open = g.Y, g.FontSize, true
		} else if g.X-endX > 0.15*g.FontSize {
			cur.WriteByte(' ')
		}
		cur.WriteString(g.S)
		endX = g.X + g.W
		curSize = math.Max(curSize, g.FontSize)
	}
	flush()

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })
	return lines
}

// bodyFontSize returns the font size covering the most characters.
func bodyFontSize(pages [][]textLine) float64 {
	counts := make(map[float64]int)
	for _, lines := range pages {
		for _, l := range lines {
			counts[math.Round(l.size*2)/2] += utf8.RuneCountInString(strings.ReplaceAll(l.text, " ", ""))
		}
	}
	var best float64
	bestN := -1
	for size, n := range counts {
		if n > bestN || (n == bestN && size < best) {
			best, bestN = size, n
		}
	}
	return best
}

func headingLevel(size, body float64) int {
	if body <= 0 {
		return 0
	}
	switch {
	case size >= h1Ratio*body:
		return 1
	case size >= h2Ratio*body:
		return 2
	}
	return 0
}

// writeLines emits headings and paragraphs. Lines further apart than 1.6
// line heights start a new paragraph.
func writeLines(b *strings.Builder, lines []textLine, body float64) {
	inPara := false
	prevY := 0.0
	for _, l := range lines {
		text := strings.TrimSpace(l.text)
		if text == "" {
			continue
		}
		if lvl := headingLevel(l.size, body); lvl > 0 {
			if inPara {
				b.WriteString("\n\n")
				inPara = false
			}
			b.WriteString(strings.Repeat("#", lvl) + " " + text + "\n\n")
			prevY = l.y
			continue
		}
		if inPara {
			if prevY-l.y > 1.6*l.size {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		b.WriteString(text)
		inPara = true
		prevY = l.y
	}
	if inPara {
		b.WriteString("\n\n")
	}
}

// extractPDFImages returns the image XObjects of a PDF in page order and,
// per page, the IDs referenced there. An image shared by several pages is
// extracted once.
func extractPDFImages(path string) ([]types.Image, map[int][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	var images []types.Image
	byPage := make(map[int][]string)
	seen := make(map[int]string)
	for nr := 1; nr <= ctx.PageCount; nr++ {
		imgs, err := pdfcpu.ExtractPageImages(ctx, nr, false)
		if err != nil {
			return nil, nil, fmt.Errorf("page %d: %w", nr, err)
		}
		objNrs := make([]int, 0, len(imgs))
		for objNr := range imgs {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		for _, objNr := range objNrs {
			if id, ok := seen[objNr]; ok {
				byPage[nr] = append(byPage[nr], id)
				continue
			}
			img := imgs[objNr]
			if img.Reader == nil {
				continue
			}
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, nil, fmt.Errorf("reading image %d on page %d: %w", objNr, nr, err)
			}
			ext := strings.ToLower(img.FileType)
			if ext == "" {
				ext = "bin"
			}
			id := fmt.Sprintf("page%d_obj%d.%s", nr, objNr, ext)
			seen[objNr] = id
			images = append(images, types.Image{ID: id, Data: data})
			byPage[nr] = append(byPage[nr], id)
		}
	}
	return images, byPage, nil
}
