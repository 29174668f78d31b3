// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docmark/internal/mediabox"
	"github.com/pdiddy/docmark/pkg/types"
)

var patchCmd = &cobra.Command{
	Use:   "patch <pdf>",
	Short: "Write a copy of a PDF with missing MediaBoxes filled in",
	Long: `Patch sets the default page size on every page lacking a MediaBox and writes
the result to <output-dir>/<name>_patched.pdf. Pages that already have a box
are left untouched and the source file is never modified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := normalize(types.Settings{
			OutputDir: viper.GetString("output_dir"),
			PageBox: types.Box{
				X1: viper.GetFloat64("page_width"),
				Y1: viper.GetFloat64("page_height"),
			},
		})
		if err != nil {
			return err
		}

		src := args[0]
		doc, err := mediabox.Patch(src, s.PageBox)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		dst := filepath.Join(s.OutputDir, base+"_patched.pdf")
		if err := os.WriteFile(dst, doc.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dst, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "[PATCHED] %s -> %s (%d of %d pages)\n", src, dst, len(doc.PatchedPages), doc.PageCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(patchCmd)
}
