// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docmark/internal/mediabox"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <pdf>",
	Short: "Report the MediaBox of every page of a PDF",
	Long: `Inspect prints the effective MediaBox of each page, noting boxes inherited
from the page tree and pages with no usable box.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := mediabox.Inspect(args[0])
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), args[0], report)
		return nil
	},
}

func printReport(w io.Writer, path string, r *mediabox.Report) {
	for _, p := range r.Pages {
		switch {
		case !p.Present:
			fmt.Fprintf(w, "page %d: missing\n", p.Page)
		case p.Inherited:
			fmt.Fprintf(w, "page %d: [%g %g %g %g] (inherited)\n", p.Page, p.Box.X0, p.Box.Y0, p.Box.X1, p.Box.Y1)
		default:
			fmt.Fprintf(w, "page %d: [%g %g %g %g]\n", p.Page, p.Box.X0, p.Box.Y0, p.Box.X1, p.Box.Y1)
		}
	}
	fmt.Fprintf(w, "%s: %d of %d pages missing a MediaBox\n", path, len(r.Missing()), len(r.Pages))
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
