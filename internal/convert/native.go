// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"log/slog"

	htmlconv "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/pdiddy/docmark/pkg/types"
)

const engineNative = "native"

// NativeEngine converts documents in-process. PDFs are read from their text
// layer; DOCX bodies are rendered through HTML. It performs no OCR.
type NativeEngine struct {
	md       *htmlconv.Converter
	sanitize *bluemonday.Policy
	logger   *slog.Logger
}

// NewNativeEngine returns the in-process engine. A nil logger discards
// output.
func NewNativeEngine(logger *slog.Logger) *NativeEngine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NativeEngine{
		md: htmlconv.NewConverter(
			htmlconv.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		sanitize: bluemonday.UGCPolicy(),
		logger:   logger,
	}
}

// Name implements Engine.
func (e *NativeEngine) Name() string { return engineNative }

// Convert implements Engine.
func (e *NativeEngine) Convert(ctx context.Context, path string, format types.Format) (*types.ConversionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch format {
	case types.FormatPDF:
		return e.convertPDF(path)
	case types.FormatDOCX:
		return e.convertDOCX(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
