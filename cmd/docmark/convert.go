// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docmark/internal/batch"
	"github.com/pdiddy/docmark/internal/container"
	"github.com/pdiddy/docmark/internal/convert"
	"github.com/pdiddy/docmark/internal/filelist"
	"github.com/pdiddy/docmark/internal/manifest"
	"github.com/pdiddy/docmark/internal/mediabox"
	"github.com/pdiddy/docmark/internal/secrets"
	"github.com/pdiddy/docmark/pkg/types"
)

func runConvert(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runBatch(ctx, s, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return errFailures
	}
	return nil
}

// loadSettings resolves flags, environment, the settings file and
// .secrets/ into one Settings value.
func loadSettings() (types.Settings, error) {
	var s types.Settings
	if err := viper.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decoding settings: %w", err)
	}
	s.PageBox = types.Box{
		X1: viper.GetFloat64("page_width"),
		Y1: viper.GetFloat64("page_height"),
	}
	s.Gemini.APIKey = secrets.Resolve(s.Gemini.APIKey, loadedSecrets, secrets.GeminiAPIKey)
	return normalize(s)
}

// normalize fills defaults and validates s.
func normalize(s types.Settings) (types.Settings, error) {
	if s.InputDir == "" {
		s.InputDir = "input"
	}
	if s.OutputDir == "" {
		s.OutputDir = "output"
	}
	if s.ConfigFile == "" {
		s.ConfigFile = filepath.Join(s.InputDir, "config.ini")
	}
	if s.Engine == "" {
		s.Engine = types.EngineNative
	}
	if s.PageBox == (types.Box{}) {
		s.PageBox = types.A4
	}
	if s.PageBox.Width() <= 0 || s.PageBox.Height() <= 0 {
		return s, fmt.Errorf("page size must be positive, got %gx%g", s.PageBox.Width(), s.PageBox.Height())
	}
	return s, nil
}

// newEngine builds the conversion engine named in s.
func newEngine(ctx context.Context, s types.Settings, logger *slog.Logger) (convert.Engine, error) {
	native := convert.NewNativeEngine(logger)
	switch s.Engine {
	case types.EngineNative:
		return native, nil
	case types.EngineMarkitdown:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		return convert.NewMarkitdownEngine(rt, s.MarkitdownImage)
	case types.EngineGemini:
		return convert.NewGeminiEngine(ctx, s.Gemini, nil, native)
	default:
		return nil, fmt.Errorf("unknown engine %q (want native, markitdown, or gemini)", s.Engine)
	}
}

// runBatch reads the document list and converts every entry. A config
// error aborts before any document is touched.
func runBatch(ctx context.Context, s types.Settings, out io.Writer, logger *slog.Logger) (batch.Summary, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	entries, err := filelist.Read(s.ConfigFile, s.InputDir)
	if err != nil {
		return batch.Summary{}, err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No files to process")
		return batch.Summary{}, nil
	}
	raw := make([]string, len(entries))
	for i, e := range entries {
		raw[i] = e.Raw
	}
	logger.Info("documents to process", "count", len(entries), "entries", raw)

	engine, err := newEngine(ctx, s, logger)
	if err != nil {
		return batch.Summary{}, err
	}
	logger.Debug("starting batch", "entries", len(entries), "engine", engine.Name(), "output", s.OutputDir)

	opts := batch.Options{
		OutputDir:   s.OutputDir,
		PageBox:     s.PageBox,
		Frontmatter: s.Frontmatter,
	}
	if s.Incremental {
		store, err := manifest.Open(s.OutputDir)
		if err != nil {
			return batch.Summary{}, err
		}
		defer store.Close()
		opts.Manifest = store
	}

	orch := batch.New(convert.NewAdapter(engine, logger), mediabox.Patch, opts, out, logger)
	return orch.Run(ctx, entries), nil
}
