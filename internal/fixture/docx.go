// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fixture

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Para is one paragraph of a generated DOCX body.
type Para struct {
	// Style is the paragraph style id, e.g. "Heading1" or "ListParagraph".
	Style string

	// Text is the paragraph text. Empty for image-only paragraphs.
	Text string

	Bold bool

	// LinkURL wraps Text in an external hyperlink when set.
	LinkURL string

	// Image embeds the media file with this name (see Docx.Media).
	Image string
}

// Docx describes a generated Word document.
type Docx struct {
	Paras []Para

	// Table is appended after the paragraphs when non-empty. The first row
	// is the header.
	Table [][]string

	// Media maps file names under word/media to their contents.
	Media map[string][]byte
}

// PNG is a 1x1 transparent PNG.
var PNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

const (
	nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"

	relImage     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
)

// BuildDocx serializes d into a minimal .docx archive.
func BuildDocx(d Docx) ([]byte, error) {
	var rels []string
	relID := func(typ, target string, external bool) string {
		id := fmt.Sprintf("rId%d", len(rels)+1)
		mode := ""
		if external {
			mode = ` TargetMode="External"`
		}
		rels = append(rels, fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="%s"%s/>`, id, typ, html.EscapeString(target), mode))
		return id
	}

	var body strings.Builder
	for _, p := range d.Paras {
		body.WriteString("<w:p>")
		if p.Style != "" {
			fmt.Fprintf(&body, `<w:pPr><w:pStyle w:val="%s"/></w:pPr>`, p.Style)
		}
		if p.Text != "" {
			run := "<w:r>"
			if p.Bold {
				run += "<w:rPr><w:b/></w:rPr>"
			}
			run += fmt.Sprintf(`<w:t xml:space="preserve">%s</w:t></w:r>`, html.EscapeString(p.Text))
			if p.LinkURL != "" {
				id := relID(relHyperlink, p.LinkURL, true)
				run = fmt.Sprintf(`<w:hyperlink r:id="%s">%s</w:hyperlink>`, id, run)
			}
			body.WriteString(run)
		}
		if p.Image != "" {
			id := relID(relImage, "media/"+p.Image, false)
			fmt.Fprintf(&body, `<w:r><w:drawing><a:graphic><a:graphicData><a:blip r:embed="%s"/></a:graphicData></a:graphic></w:drawing></w:r>`, id)
		}
		body.WriteString("</w:p>")
	}
	if len(d.Table) > 0 {
		body.WriteString("<w:tbl>")
		for _, row := range d.Table {
			body.WriteString("<w:tr>")
			for _, cell := range row {
				fmt.Fprintf(&body, "<w:tc><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:tc>", html.EscapeString(cell))
			}
			body.WriteString("</w:tr>")
		}
		body.WriteString("</w:tbl>")
	}

	document := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="%s" xmlns:r="%s" xmlns:a="%s"><w:body>%s</w:body></w:document>`, nsW, nsR, nsA, body.String())
	relsXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + strings.Join(rels, "") + `</Relationships>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`)},
		{"word/document.xml", []byte(document)},
		{"word/_rels/document.xml.rels", []byte(relsXML)},
	}
	for name, data := range d.Media {
		files = append(files, struct {
			name string
			data []byte
		}{"word/media/" + name, data})
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(f.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDocx builds d and writes it to dir/name, returning the full path.
func WriteDocx(t testing.TB, dir, name string, d Docx) string {
	t.Helper()
	data, err := BuildDocx(d)
	if err != nil {
		t.Fatalf("building %s: %v", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
