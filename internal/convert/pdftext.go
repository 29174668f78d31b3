// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/pdiddy/docmark/internal/mediabox"
)

// readContentStreams recovers text from the decoded page content streams
// when the glyph reader rejects a file (PDF 2.0 headers, xref stream
// filters it does not know). Positions come from the text operators only,
// so the result has no clipping and approximate spacing.
func readContentStreams(path string) ([][]textLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ctx, err := mediabox.ReadContext(f)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := make([][]textLine, ctx.PageCount)
	for nr := 1; nr <= ctx.PageCount; nr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, nr)
		if err != nil {
			return nil, fmt.Errorf("page %d content: %w", nr, err)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("page %d content: %w", nr, err)
		}
		pages[nr-1] = contentLines(data)
	}
	return pages, nil
}

// contentLines interprets the text operators of one content stream.
func contentLines(stream []byte) []textLine {
	var (
		lines    []textLine
		size     = 12.0
		scale    = 1.0
		leading  float64
		lineY    float64
		moved    bool
		operands []csToken
	)
	nextLine := func() {
		l := leading
		if l == 0 {
			l = 1.2 * size * scale
		}
		lineY -= l
		moved = true
	}
	show := func(s string) {
		if s == "" {
			return
		}
		eff := size * scale
		last := len(lines) - 1
		if last < 0 || math.Abs(lines[last].y-lineY) > 0.5*math.Max(lines[last].size, eff) {
			lines = append(lines, textLine{y: lineY, size: eff})
			last++
		} else if moved && !strings.HasSuffix(lines[last].text, " ") {
			lines[last].text += " "
		}
		lines[last].text += s
		lines[last].size = math.Max(lines[last].size, eff)
		moved = false
	}
	num := func(i int) float64 {
		if i < 0 || i >= len(operands) || operands[i].kind != tokNumber {
			return 0
		}
		return operands[i].num
	}
	str := func(i int) string {
		if i < 0 || i >= len(operands) || operands[i].kind != tokString {
			return ""
		}
		return operands[i].str
	}

	lx := &csLexer{b: stream}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.kind != tokOp {
			operands = append(operands, tok)
			continue
		}
		n := len(operands)
		switch tok.str {
		case "BT":
			lineY, scale, moved = 0, 1, true
		case "Tf":
			size = math.Abs(num(n - 1))
		case "TL":
			leading = num(n - 1)
		case "Td", "TD":
			lineY += num(n - 1)
			if tok.str == "TD" {
				leading = -num(n - 1)
			}
			moved = true
		case "Tm":
			if d := math.Abs(num(n - 3)); d > 0 {
				scale = d
			}
			lineY = num(n - 1)
			moved = true
		case "T*":
			nextLine()
		case "Tj":
			show(str(n - 1))
		case "'":
			nextLine()
			show(str(n - 1))
		case "\"":
			nextLine()
			show(str(n - 1))
		case "TJ":
			if n > 0 && operands[n-1].kind == tokArray {
				var b strings.Builder
				for _, it := range operands[n-1].items {
					switch it.kind {
					case tokString:
						b.WriteString(it.str)
					case tokNumber:
						if it.num <= -250 {
							b.WriteByte(' ')
						}
					}
				}
				show(b.String())
			}
		case "ID":
			lx.skipInlineImage()
		}
		operands = operands[:0]
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })
	return lines
}

type csKind int

const (
	tokNumber csKind = iota
	tokName
	tokString
	tokArray
	tokOp
	tokOther
)

type csToken struct {
	kind  csKind
	num   float64
	str   string
	items []csToken
}

// csLexer splits a content stream into operands and operators.
type csLexer struct {
	b []byte
	i int
}

func (l *csLexer) peek(off int) byte {
	if l.i+off < len(l.b) {
		return l.b[l.i+off]
	}
	return 0
}

func (l *csLexer) skipSpace() {
	for l.i < len(l.b) {
		c := l.b[l.i]
		if c == '%' {
			for l.i < len(l.b) && l.b[l.i] != '\n' && l.b[l.i] != '\r' {
				l.i++
			}
			continue
		}
		if !isPDFSpace(c) {
			return
		}
		l.i++
	}
}

func (l *csLexer) next() (csToken, bool) {
	l.skipSpace()
	if l.i >= len(l.b) {
		return csToken{}, false
	}
	switch c := l.b[l.i]; {
	case c == '(':
		return csToken{kind: tokString, str: l.literal()}, true
	case c == '<' && l.peek(1) == '<', c == '>' && l.peek(1) == '>':
		l.i += 2
		return csToken{kind: tokOther}, true
	case c == '<':
		return csToken{kind: tokString, str: l.hexString()}, true
	case c == '[':
		l.i++
		var items []csToken
		for {
			l.skipSpace()
			if l.i >= len(l.b) {
				break
			}
			if l.b[l.i] == ']' {
				l.i++
				break
			}
			t, ok := l.next()
			if !ok {
				break
			}
			items = append(items, t)
		}
		return csToken{kind: tokArray, items: items}, true
	case c == '/':
		l.i++
		start := l.i
		for l.i < len(l.b) && !isPDFSpace(l.b[l.i]) && !isPDFDelim(l.b[l.i]) {
			l.i++
		}
		return csToken{kind: tokName, str: string(l.b[start:l.i])}, true
	case isPDFDelim(c):
		l.i++
		return csToken{kind: tokOther}, true
	}

	start := l.i
	for l.i < len(l.b) && !isPDFSpace(l.b[l.i]) && !isPDFDelim(l.b[l.i]) {
		l.i++
	}
	word := string(l.b[start:l.i])
	if f, err := strconv.ParseFloat(word, 64); err == nil && isNumeric(word) {
		return csToken{kind: tokNumber, num: f}, true
	}
	return csToken{kind: tokOp, str: word}, true
}

// literal reads a parenthesized string, handling nesting and escapes.
func (l *csLexer) literal() string {
	l.i++
	depth := 1
	var out []byte
	for l.i < len(l.b) {
		c := l.b[l.i]
		l.i++
		switch c {
		case '\\':
			if l.i >= len(l.b) {
				return decodeTextBytes(out)
			}
			e := l.b[l.i]
			l.i++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.i < len(l.b) && l.b[l.i] == '\n' {
					l.i++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && l.i < len(l.b) && l.b[l.i] >= '0' && l.b[l.i] <= '7'; k++ {
						v = v*8 + int(l.b[l.i]-'0')
						l.i++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return decodeTextBytes(out)
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return decodeTextBytes(out)
}

func (l *csLexer) hexString() string {
	l.i++
	var out []byte
	var hi byte
	half := false
	for l.i < len(l.b) {
		c := l.b[l.i]
		l.i++
		if c == '>' {
			break
		}
		v, ok := hexNibble(c)
		if !ok {
			continue
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return decodeTextBytes(out)
}

// skipInlineImage advances past binary inline image data up to EI.
func (l *csLexer) skipInlineImage() {
	for l.i+1 < len(l.b) {
		if l.b[l.i] == 'E' && l.b[l.i+1] == 'I' && l.i > 0 && isPDFSpace(l.b[l.i-1]) &&
			(l.i+2 >= len(l.b) || isPDFSpace(l.b[l.i+2])) {
			l.i += 2
			return
		}
		l.i++
	}
	l.i = len(l.b)
}

// decodeTextBytes maps string bytes to text: UTF-16BE with a byte order
// mark, otherwise one rune per byte.
func decodeTextBytes(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isNumeric(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' {
			return false
		}
	}
	return true
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isPDFDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
