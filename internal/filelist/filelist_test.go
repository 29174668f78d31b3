// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filelist

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantRaw  []string
		wantLine []int
	}{
		{
			name:     "plain list skips comments and blanks",
			input:    "a.docx\n# b.docx\n\nc.pdf\n",
			wantRaw:  []string{"a.docx", "c.pdf"},
			wantLine: []int{1, 4},
		},
		{
			name:     "comment after leading whitespace",
			input:    "   # hidden.pdf\n\tvisible.pdf  \n",
			wantRaw:  []string{"visible.pdf"},
			wantLine: []int{2},
		},
		{
			name:     "ini section with quoted values",
			input:    "[FILES]\nfile1 = \"report.docx\"\nfile2 = # old.pdf\n; note\nfile3 = 'scan.pdf'\n",
			wantRaw:  []string{"report.docx", "scan.pdf"},
			wantLine: []int{2, 5},
		},
		{
			name:     "empty ini value is skipped",
			input:    "file1 =\nfile2 = x.pdf\n",
			wantRaw:  []string{"x.pdf"},
			wantLine: []int{2},
		},
		{
			name:     "paths with directories are kept",
			input:    "docs/2024/q1 report.pdf\n",
			wantRaw:  []string{"docs/2024/q1 report.pdf"},
			wantLine: []int{1},
		},
		{
			name:     "byte order mark and CRLF",
			input:    "\xef\xbb\xbfa.docx\r\n#b.docx\r\nc.pdf\r\n",
			wantRaw:  []string{"a.docx", "c.pdf"},
			wantLine: []int{1, 3},
		},
		{
			name:  "only comments",
			input: "# one\n#two\n\n",
		},
		{
			name:     "unknown extensions are not rejected",
			input:    "notes.txt\n",
			wantRaw:  []string{"notes.txt"},
			wantLine: []int{1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := Parse([]byte(tt.input), "input")
			require.NoError(t, err)
			require.Len(t, entries, len(tt.wantRaw))
			for i, e := range entries {
				assert.Equal(t, tt.wantRaw[i], e.Raw)
				assert.Equal(t, filepath.Join("input", tt.wantRaw[i]), e.Path)
				assert.Equal(t, tt.wantLine[i], e.Line)
			}
		})
	}
}

func TestParse_AbsolutePathKept(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "doc.pdf")
	entries, err := Parse([]byte(abs+"\n"), "input")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, abs, entries[0].Path)
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.ini")
	content := "a.docx\n# b.docx\nc.pdf\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o644))

	entries, err := Read(cfg, dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].DocName())
	assert.Equal(t, "c", entries[1].DocName())

	after, err := os.ReadFile(cfg)
	require.NoError(t, err)
	assert.Equal(t, content, string(after), "config file must not be modified")
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.ini"), "")
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "nope.ini")
}
