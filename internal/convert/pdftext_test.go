// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docmark/internal/fixture"
	"github.com/pdiddy/docmark/pkg/types"
)

func reportDoc() fixture.Doc {
	return fixture.Doc{Pages: []fixture.Page{{
		MediaBox: fixture.BoxPtr(fixture.Letter),
		Heading:  "Quarterly Report",
		Lines: []string{
			"Revenue grew in every region this quarter.",
			"Costs stayed flat against the prior year.",
		},
	}}}
}

func TestReadTextLayer_HexXRefStreamIsAnError(t *testing.T) {
	d := reportDoc()
	d.Version = "1.5"
	d.HexXRefStream = true
	path := fixture.WritePDF(t, t.TempDir(), "hex.pdf", d)

	var err error
	require.NotPanics(t, func() { _, err = readTextLayer(path) })
	assert.Error(t, err)
}

func TestNativePDF_HexXRefStreamUsesContentStreams(t *testing.T) {
	d := reportDoc()
	d.Version = "1.5"
	d.HexXRefStream = true
	path := fixture.WritePDF(t, t.TempDir(), "hex.pdf", d)

	res, err := NewNativeEngine(nil).Convert(context.Background(), path, types.FormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Markdown, "# Quarterly Report\n\n"), "got %q", res.Markdown)
	assert.Contains(t, res.Markdown, "Revenue grew in every region this quarter.\nCosts stayed flat against the prior year.")
}

func TestNativePDF_Version20UsesContentStreams(t *testing.T) {
	d := reportDoc()
	d.Version = "2.0"
	path := fixture.WritePDF(t, t.TempDir(), "modern.pdf", d)

	_, err := readTextLayer(path)
	require.Error(t, err, "glyph reader only accepts 1.x headers")

	res, err := NewNativeEngine(nil).Convert(context.Background(), path, types.FormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Markdown, "# Quarterly Report\n\n"), "got %q", res.Markdown)
	assert.Contains(t, res.Markdown, "Costs stayed flat against the prior year.")
}

func TestContentLines(t *testing.T) {
	stream := strings.Join([]string{
		`BT /F1 18 Tf 72 700 Td (Title \(draft\)) Tj ET`,
		`BT /F1 10 Tf 14 TL 72 650 Td [(Hel) -20 (lo) -400 (world)] TJ T* (second\040line) Tj (next) ' ET`,
		`q BI /W 1 /H 1 /BPC 8 /CS /G ID xEI EI Q`,
		`% comment (not text) Tj`,
		`BT /F1 10 Tf 72 600 Td <48692021> Tj ET`,
		`BT /F1 10 Tf 72 580 Td <FEFF00E9> Tj ET`,
	}, "\n")

	lines := contentLines([]byte(stream))

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.text
	}
	assert.Equal(t, []string{"Title (draft)", "Hello world", "second line", "next", "Hi !", "é"}, texts)
	require.NotEmpty(t, lines)
	assert.Equal(t, 18.0, lines[0].size)
	assert.Equal(t, 636.0, lines[2].y, "T* moves down by the text leading")
}

func TestContentLines_TextMatrixScalesSize(t *testing.T) {
	lines := contentLines([]byte(`BT /F1 1 Tf 24 0 0 24 72 500 Tm (Big) Tj ET`))
	require.Len(t, lines, 1)
	assert.Equal(t, 24.0, lines[0].size)
	assert.Equal(t, 500.0, lines[0].y)
}
