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

func TestNativePDF_TextAndHeadings(t *testing.T) {
	dir := t.TempDir()
	path := fixture.WritePDF(t, dir, "report.pdf", fixture.Doc{Pages: []fixture.Page{{
		MediaBox: fixture.BoxPtr(fixture.Letter),
		Heading:  "Quarterly Report",
		Lines: []string{
			"Revenue grew in every region this quarter.",
			"Costs stayed flat against the prior year.",
		},
	}}})

	res, err := NewNativeEngine(nil).Convert(context.Background(), path, types.FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "native", res.Engine)
	assert.True(t, strings.HasPrefix(res.Markdown, "# Quarterly Report\n\n"), "got %q", res.Markdown)
	assert.Contains(t, res.Markdown, "Revenue grew in every region this quarter.")
	assert.Contains(t, res.Markdown, "Costs stayed flat against the prior year.")
	assert.Less(t,
		strings.Index(res.Markdown, "Revenue"),
		strings.Index(res.Markdown, "Costs"),
		"lines keep reading order")
	assert.Empty(t, res.Images)
}

func TestNativePDF_InheritedBox(t *testing.T) {
	dir := t.TempDir()
	path := fixture.WritePDF(t, dir, "tree.pdf", fixture.Doc{
		RootMediaBox: fixture.BoxPtr(fixture.Letter),
		Pages:        []fixture.Page{{Lines: []string{"inherited geometry works"}}},
	})

	res, err := NewNativeEngine(nil).Convert(context.Background(), path, types.FormatPDF)
	require.NoError(t, err)
	assert.Contains(t, res.Markdown, "inherited geometry works")
}

func TestNativePDF_MissingGeometry(t *testing.T) {
	dir := t.TempDir()
	path := fixture.WritePDF(t, dir, "c.pdf", fixture.Doc{Pages: []fixture.Page{
		{MediaBox: fixture.BoxPtr(fixture.Letter), Lines: []string{"one"}},
		{Lines: []string{"two"}},
	}})

	_, err := NewNativeEngine(nil).Convert(context.Background(), path, types.FormatPDF)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingPageGeometry)
}

func TestNativePDF_ThroughAdapterNeedsPatch(t *testing.T) {
	dir := t.TempDir()
	path := fixture.WritePDF(t, dir, "c.pdf", fixture.Doc{Pages: []fixture.Page{
		{MediaBox: fixture.BoxPtr(fixture.Letter), Lines: []string{"one"}},
		{Lines: []string{"two"}},
		{MediaBox: fixture.BoxPtr(fixture.Letter), Lines: []string{"three"}},
	}})

	_, err := NewAdapter(NewNativeEngine(nil), nil).Convert(context.Background(), path)
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ReasonMissingGeometry, ce.Reason)
	assert.Equal(t, []int{2}, ce.MissingPages)
}

func TestNativeDOCX(t *testing.T) {
	dir := t.TempDir()
	path := fixture.WriteDocx(t, dir, "plan.docx", fixture.Docx{
		Paras: []fixture.Para{
			{Style: "Heading1", Text: "Project Plan"},
			{Text: "Important", Bold: true},
			{Text: "read the docs", LinkURL: "https://example.com/docs"},
			{Text: "do not click", LinkURL: "javascript:alert(1)"},
			{Image: "image1.png"},
			{Style: "ListParagraph", Text: "first item"},
			{Style: "ListParagraph", Text: "second item"},
		},
		Table: [][]string{{"Name", "Role"}, {"Ada", "Lead"}},
		Media: map[string][]byte{"image1.png": fixture.PNG},
	})

	res, err := NewNativeEngine(nil).Convert(context.Background(), path, types.FormatDOCX)
	require.NoError(t, err)
	md := res.Markdown

	assert.Contains(t, md, "# Project Plan")
	assert.Contains(t, md, "**Important**")
	assert.Contains(t, md, "[read the docs](https://example.com/docs)")
	assert.Contains(t, md, "do not click")
	assert.NotContains(t, md, "javascript:")
	assert.Contains(t, md, "](media/image1.png)")
	assert.Contains(t, md, "first item")
	assert.Contains(t, md, "second item")
	assert.Contains(t, md, "Name")
	assert.Contains(t, md, "Ada")
	assert.Contains(t, md, "|")

	require.Len(t, res.Images, 1)
	assert.Equal(t, "media/image1.png", res.Images[0].ID)
	assert.Equal(t, fixture.PNG, res.Images[0].Data)
}

func TestNativeDOCX_NotAnArchive(t *testing.T) {
	dir := t.TempDir()
	path := fixture.WritePDF(t, dir, "fake.docx", fixture.Doc{Pages: []fixture.Page{{MediaBox: fixture.BoxPtr(fixture.Letter)}}})

	_, err := NewNativeEngine(nil).Convert(context.Background(), path, types.FormatDOCX)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open zip")
}

func TestNativeEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewNativeEngine(nil).Convert(ctx, "whatever.pdf", types.FormatPDF)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocxHeadingLevel(t *testing.T) {
	tests := []struct {
		style string
		want  int
	}{
		{"Heading1", 1},
		{"heading 2", 2},
		{"Title", 1},
		{"Subtitle", 2},
		{"Heading7", 0},
		{"Normal", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			assert.Equal(t, tt.want, docxHeadingLevel(tt.style))
		})
	}
}

func TestHeadingLevel(t *testing.T) {
	assert.Equal(t, 1, headingLevel(20, 12))
	assert.Equal(t, 2, headingLevel(16, 12))
	assert.Equal(t, 0, headingLevel(12, 12))
	assert.Equal(t, 0, headingLevel(20, 0))
}
