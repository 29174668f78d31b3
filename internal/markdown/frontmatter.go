// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markdown

import (
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

const fence = "---"

// Frontmatter is the YAML header written above converted Markdown.
type Frontmatter struct {
	Source       string `yaml:"source"`
	Format       string `yaml:"format"`
	Engine       string `yaml:"engine"`
	ConvertedAt  string `yaml:"converted_at"`
	PatchedPages []int  `yaml:"patched_pages,omitempty,flow"`
	Images       int    `yaml:"images,omitempty"`
}

// WithFrontmatter prepends fm as a YAML block to body.
func WithFrontmatter(fm Frontmatter, body string) (string, error) {
	data, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString(fence + "\n")
	b.Write(data)
	b.WriteString(fence + "\n\n")
	b.WriteString(body)
	return b.String(), nil
}
