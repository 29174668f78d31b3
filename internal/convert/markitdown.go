// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/pdiddy/docmark/internal/container"
	"github.com/pdiddy/docmark/pkg/types"
)

const (
	engineMarkitdown = "markitdown"

	// DefaultMarkitdownImage is the container image run by MarkitdownEngine.
	DefaultMarkitdownImage = "markitdown:latest"
)

// MarkitdownEngine converts documents by piping them through the markitdown
// container image. It depends on a container.Runtime (docker or podman)
// injected at construction time. markitdown emits Markdown only, so results
// carry no images.
type MarkitdownEngine struct {
	runtime container.Runtime
	image   string
}

// NewMarkitdownEngine creates an engine that uses the given container
// runtime to run image. It verifies that the image exists locally before
// returning.
func NewMarkitdownEngine(rt container.Runtime, image string) (*MarkitdownEngine, error) {
	if image == "" {
		image = DefaultMarkitdownImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownEngine{runtime: rt, image: image}, nil
}

// Name implements Engine.
func (m *MarkitdownEngine) Name() string { return engineMarkitdown }

// Convert reads the document at path, pipes it through the markitdown
// container, and returns the resulting Markdown text. The extension hint
// lets markitdown pick the right parser for stdin input.
func (m *MarkitdownEngine) Convert(ctx context.Context, path string, format types.Format) (*types.ConversionResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := m.runtime.Run(ctx, m.image, []string{"-x", string(format)}, f, &out); err != nil {
		return nil, fmt.Errorf("converting %s with markitdown: %w", path, err)
	}

	if out.Len() == 0 {
		return nil, fmt.Errorf("markitdown produced empty output for %s", path)
	}

	return &types.ConversionResult{Markdown: out.String(), Engine: engineMarkitdown}, nil
}
