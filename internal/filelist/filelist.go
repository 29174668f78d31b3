// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filelist reads the batch configuration file: an ordered list of
// document paths, one per line. Blank lines, '#' and ';' comments and INI
// section headers are ignored. Lines of the form "name = value" contribute
// their value, which keeps config.ini files with a [FILES] section working.
package filelist

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/docmark/pkg/types"
)

// CommentMarker starts a comment line.
const CommentMarker = "#"

// iniKeyRe matches the key part of an INI assignment. Keys are bare
// identifiers so that a path containing '=' after a slash is not split.
var iniKeyRe = regexp.MustCompile(`^[A-Za-z0-9_.\-]+\s*=`)

// ConfigError reports a configuration file that cannot be read. It is fatal
// for the run.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("reading config file %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Read parses the config file at path and returns its active entries in file
// order. Relative entries are resolved against inputRoot.
func Read(path, inputRoot string) ([]types.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	entries, err := Parse(data, inputRoot)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return entries, nil
}

// Parse extracts entries from config file contents.
func Parse(data []byte, inputRoot string) ([]types.Entry, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var entries []types.Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNr := 0
	for sc.Scan() {
		lineNr++
		raw, ok := activeValue(sc.Text())
		if !ok {
			continue
		}
		entries = append(entries, types.Entry{
			Raw:  raw,
			Path: resolve(raw, inputRoot),
			Line: lineNr,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning line %d: %w", lineNr+1, err)
	}
	return entries, nil
}

// activeValue returns the path carried by a config line, or false when the
// line is blank, a comment or a section header.
func activeValue(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if s == "" || isComment(s) {
		return "", false
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return "", false
	}
	if loc := iniKeyRe.FindStringIndex(s); loc != nil {
		s = strings.TrimSpace(s[loc[1]:])
		if s == "" || isComment(s) {
			return "", false
		}
	}
	s = unquote(s)
	if s == "" {
		return "", false
	}
	return s, true
}

func isComment(s string) bool {
	return strings.HasPrefix(s, CommentMarker) || strings.HasPrefix(s, ";")
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

func resolve(p, inputRoot string) string {
	if filepath.IsAbs(p) || inputRoot == "" {
		return p
	}
	return filepath.Join(inputRoot, p)
}
