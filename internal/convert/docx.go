// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"path"
	"strings"

	"github.com/pdiddy/docmark/pkg/types"
)

const (
	docxBody = "word/document.xml"
	docxRels = "word/_rels/document.xml.rels"
)

// relationship is one entry of document.xml.rels.
type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type relationships struct {
	Items []relationship `xml:"Relationship"`
}

// convertDOCX renders word/document.xml to HTML, sanitizes it and converts
// the result to Markdown. Images are taken from word/media in the order the
// body first references them.
func (e *NativeEngine) convertDOCX(p string) (*types.ConversionResult, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	body, ok := files[docxBody]
	if !ok {
		return nil, fmt.Errorf("%s not found in archive", docxBody)
	}

	rels := map[string]relationship{}
	if rf, ok := files[docxRels]; ok {
		if rels, err = readRelationships(rf); err != nil {
			return nil, err
		}
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", docxBody, err)
	}
	defer rc.Close()

	r := newDocxRenderer(rels)
	if err := r.render(rc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", docxBody, err)
	}

	images := make([]types.Image, 0, len(r.media))
	for _, target := range r.media {
		zf, ok := files[path.Join("word", target)]
		if !ok {
			e.logger.Warn("referenced image missing from archive", "path", p, "target", target)
			continue
		}
		data, err := readZipFile(zf)
		if err != nil {
			return nil, err
		}
		images = append(images, types.Image{ID: target, Data: data})
	}

	clean := e.sanitize.Sanitize(r.html.String())
	md, err := e.md.ConvertString(clean)
	if err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	md = strings.TrimSpace(md)
	if md != "" {
		md += "\n"
	}
	return &types.ConversionResult{Markdown: md, Images: images, Engine: engineNative}, nil
}

func readRelationships(f *zip.File) (map[string]relationship, error) {
	data, err := readZipFile(f)
	if err != nil {
		return nil, err
	}
	var rs relationships
	if err := xml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", docxRels, err)
	}
	out := make(map[string]relationship, len(rs.Items))
	for _, r := range rs.Items {
		out[r.ID] = r
	}
	return out, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

// docxRenderer turns WordprocessingML into simple HTML. Tables are
// flattened to one level; nested tables contribute their text to the
// enclosing cell.
type docxRenderer struct {
	rels map[string]relationship
	html strings.Builder

	// media lists image targets in first-reference order.
	media []string
	seen  map[string]bool

	para      strings.Builder
	style     string
	listItem  bool
	inPara    bool
	inText    bool
	run       strings.Builder
	bold      bool
	italic    bool
	links     []linkMark
	inList    bool
	tableRows [][]string
	row       []string
	cell      []string
	tblDepth  int
}

type linkMark struct {
	start int
	href  string
}

func newDocxRenderer(rels map[string]relationship) *docxRenderer {
	return &docxRenderer{rels: rels, seen: map[string]bool{}}
}

func (r *docxRenderer) render(rd io.Reader) error {
	dec := xml.NewDecoder(rd)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			r.start(t)
		case xml.EndElement:
			r.end(t)
		case xml.CharData:
			if r.inText {
				r.run.Write(t)
			}
		}
	}
	r.closeList()
	return nil
}

func (r *docxRenderer) start(t xml.StartElement) {
	switch t.Name.Local {
	case "p":
		r.inPara = true
		r.para.Reset()
		r.style = ""
		r.listItem = false
	case "pStyle":
		r.style = attr(t, "val")
		if strings.HasPrefix(strings.ToLower(r.style), "list") {
			r.listItem = true
		}
	case "numPr":
		r.listItem = true
	case "r":
		r.run.Reset()
		r.bold, r.italic = false, false
	case "b":
		r.bold = attr(t, "val") != "0" && attr(t, "val") != "false"
	case "i":
		r.italic = attr(t, "val") != "0" && attr(t, "val") != "false"
	case "t":
		r.inText = true
	case "tab":
		r.run.WriteString(" ")
	case "br":
		r.flushRun()
		r.para.WriteString("<br>")
	case "hyperlink":
		r.flushRun()
		href := ""
		if rel, ok := r.rels[attr(t, "id")]; ok {
			href = rel.Target
		}
		r.links = append(r.links, linkMark{start: r.para.Len(), href: href})
	case "blip":
		r.image(attr(t, "embed"))
	case "imagedata":
		r.image(attr(t, "id"))
	case "tbl":
		r.tblDepth++
		if r.tblDepth == 1 {
			r.closeList()
			r.tableRows = nil
		}
	case "tr":
		if r.tblDepth == 1 {
			r.row = nil
		}
	case "tc":
		if r.tblDepth == 1 {
			r.cell = nil
		}
	}
}

func (r *docxRenderer) end(t xml.EndElement) {
	switch t.Name.Local {
	case "t":
		r.inText = false
	case "r":
		r.flushRun()
	case "hyperlink":
		r.flushRun()
		if n := len(r.links); n > 0 {
			mark := r.links[n-1]
			r.links = r.links[:n-1]
			inner := r.para.String()[mark.start:]
			if mark.href != "" && inner != "" {
				r.truncatePara(mark.start)
				fmt.Fprintf(&r.para, `<a href="%s">%s</a>`, html.EscapeString(mark.href), inner)
			}
		}
	case "p":
		r.endParagraph()
	case "tc":
		if r.tblDepth == 1 {
			r.row = append(r.row, strings.Join(r.cell, " "))
		}
	case "tr":
		if r.tblDepth == 1 {
			r.tableRows = append(r.tableRows, r.row)
		}
	case "tbl":
		r.tblDepth--
		if r.tblDepth == 0 {
			r.writeTable()
		}
	}
}

func (r *docxRenderer) flushRun() {
	if r.run.Len() == 0 {
		return
	}
	text := html.EscapeString(r.run.String())
	r.run.Reset()
	if strings.TrimSpace(text) != "" {
		if r.italic {
			text = "<em>" + text + "</em>"
		}
		if r.bold {
			text = "<strong>" + text + "</strong>"
		}
	}
	r.para.WriteString(text)
}

func (r *docxRenderer) truncatePara(n int) {
	s := r.para.String()[:n]
	r.para.Reset()
	r.para.WriteString(s)
}

func (r *docxRenderer) image(relID string) {
	rel, ok := r.rels[relID]
	if !ok || rel.TargetMode == "External" {
		return
	}
	target := strings.TrimPrefix(path.Clean(rel.Target), "/word/")
	if !r.seen[target] {
		r.seen[target] = true
		r.media = append(r.media, target)
	}
	r.flushRun()
	fmt.Fprintf(&r.para, `<img src="%s" alt="">`, html.EscapeString(target))
}

func (r *docxRenderer) endParagraph() {
	r.flushRun()
	r.inPara = false
	content := strings.TrimSpace(r.para.String())
	r.para.Reset()
	if content == "" {
		return
	}

	if r.tblDepth > 0 {
		r.cell = append(r.cell, content)
		return
	}

	if r.listItem {
		if !r.inList {
			r.html.WriteString("<ul>\n")
			r.inList = true
		}
		fmt.Fprintf(&r.html, "<li>%s</li>\n", content)
		return
	}
	r.closeList()

	if lvl := docxHeadingLevel(r.style); lvl > 0 {
		fmt.Fprintf(&r.html, "<h%d>%s</h%d>\n", lvl, content, lvl)
		return
	}
	fmt.Fprintf(&r.html, "<p>%s</p>\n", content)
}

func (r *docxRenderer) closeList() {
	if r.inList {
		r.html.WriteString("</ul>\n")
		r.inList = false
	}
}

func (r *docxRenderer) writeTable() {
	if len(r.tableRows) == 0 {
		return
	}
	r.html.WriteString("<table>\n")
	for i, row := range r.tableRows {
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		r.html.WriteString("<tr>")
		for _, c := range row {
			fmt.Fprintf(&r.html, "<%s>%s</%s>", tag, c, tag)
		}
		r.html.WriteString("</tr>\n")
	}
	r.html.WriteString("</table>\n")
	r.tableRows = nil
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// docxHeadingLevel maps a paragraph style id to a heading level.
// "Heading1" → 1, "Title" → 1, "Subtitle" → 2.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if rest, ok := strings.CutPrefix(lower, prefix); ok {
			rest = strings.TrimSpace(rest)
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}
