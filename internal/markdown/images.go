// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markdown post-processes engine output before it is written:
// image references are located with a CommonMark parser and pointed at the
// extracted files, and an optional YAML frontmatter block is prepended.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var parser = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ImageRefs returns the destination of every image in src, in document
// order. Links, code spans and fenced code are ignored.
func ImageRefs(src []byte) []string {
	root := parser.Parser().Parse(text.NewReader(src))
	var refs []string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			refs = append(refs, string(img.Destination))
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// RewriteImages replaces image destinations in src according to targets
// (old destination to new). Each destination is located at the source
// position of its image node, so links, code spans and fenced code that
// happen to contain the same text are left alone. A target containing
// whitespace is written in angle brackets.
func RewriteImages(src []byte, targets map[string]string) []byte {
	if len(targets) == 0 {
		return src
	}
	var out bytes.Buffer
	last := 0
	for _, d := range locateImages(src) {
		to, ok := targets[d.dest]
		if !ok {
			continue
		}
		if strings.ContainsAny(to, " \t") && (d.start == 0 || src[d.start-1] != '<') {
			to = "<" + to + ">"
		}
		out.Write(src[last:d.start])
		out.WriteString(to)
		last = d.stop
	}
	if last == 0 {
		return src
	}
	out.Write(src[last:])
	return out.Bytes()
}

// imageDest is the byte range of one image destination in the source.
type imageDest struct {
	start, stop int
	dest        string
}

// locateImages walks the document in order, keeping a cursor at the end of
// the last text it has seen. An image's destination is the first "](" after
// its alt text; a link's destination is skipped the same way so that an
// identical link target is never mistaken for an image.
func locateImages(src []byte) []imageDest {
	root := parser.Parser().Parse(text.NewReader(src))
	var (
		found  []imageDest
		cursor int
	)
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch n := n.(type) {
			case *ast.Text:
				cursor = max(cursor, n.Segment.Stop)
			case *ast.RawHTML:
				if l := n.Segments.Len(); l > 0 {
					cursor = max(cursor, n.Segments.At(l-1).Stop)
				}
			case *ast.CodeBlock, *ast.FencedCodeBlock:
				return ast.WalkSkipChildren, nil
			default:
				if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
					cursor = max(cursor, n.Lines().At(0).Start)
				}
			}
			return ast.WalkContinue, nil
		}

		switch n := n.(type) {
		case *ast.Image:
			if start, stop, ok := destinationAt(src, cursor, n.Destination); ok {
				found = append(found, imageDest{start: start, stop: stop, dest: string(n.Destination)})
				cursor = pastParen(src, stop)
			}
		case *ast.Link:
			if _, stop, ok := destinationAt(src, cursor, n.Destination); ok {
				cursor = pastParen(src, stop)
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// destinationAt finds dest in the inline "](dest" that closes the label
// ending at from. Only label punctuation may sit between from and "](".
func destinationAt(src []byte, from int, dest []byte) (int, int, bool) {
	if from > len(src) {
		return 0, 0, false
	}
	j := bytes.Index(src[from:], []byte("]("))
	if j < 0 || len(bytes.Trim(src[from:from+j], "![*_~` \t\r\n")) > 0 {
		return 0, 0, false
	}
	k := from + j + 2
	for k < len(src) && (src[k] == ' ' || src[k] == '\t' || src[k] == '\n' || src[k] == '\r') {
		k++
	}
	if k < len(src) && src[k] == '<' {
		k++
	}
	if !bytes.HasPrefix(src[k:], dest) {
		return 0, 0, false
	}
	return k, k + len(dest), true
}

func pastParen(src []byte, from int) int {
	if i := bytes.IndexByte(src[from:], ')'); i >= 0 {
		return from + i + 1
	}
	return from
}
