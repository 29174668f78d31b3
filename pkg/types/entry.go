// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"path/filepath"
	"strings"
)

// Entry is one active line of the batch configuration file.
type Entry struct {
	// Raw is the path exactly as written in the config file, unquoted.
	Raw string `json:"raw" yaml:"raw"`

	// Path is Raw resolved against the input root when it is relative.
	Path string `json:"path" yaml:"path"`

	// Line is the 1-based line number in the config file.
	Line int `json:"line" yaml:"line"`
}

// DocName returns the base name of the entry without its extension. All
// output artifacts for the entry are named after it.
func (e Entry) DocName() string {
	base := filepath.Base(e.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Format identifies a supported input document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// FormatOf returns the format implied by the file extension of path, or
// false when the extension is not supported.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, true
	case ".docx":
		return FormatDOCX, true
	default:
		return "", false
	}
}
