// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docmark CLI. The root command
// converts every document listed in the batch config file; inspect and
// patch expose the page geometry repair on single PDFs.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docmark/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger receives diagnostics on stderr. Status lines go to stdout.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

// errFailures signals that the batch finished with failed entries.
var errFailures = errors.New("one or more documents failed to convert")

// rootCmd converts the documents listed in the config file.
var rootCmd = &cobra.Command{
	Use:   "docmark",
	Short: "Batch-convert DOCX and PDF documents to Markdown",
	Long: `docmark reads a list of document paths from a config file (one per line,
# for comments) and converts each DOCX or PDF into Markdown under the output
directory, extracting embedded images into <name>_images/.

PDFs whose pages lack a MediaBox are patched with a default page size, written
as <name>_patched.pdf, and converted once more. The exit code is non-zero when
any document failed.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if viper.GetBool("verbose") {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
	RunE: runConvert,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "settings file (default: ./docmark.yaml or ~/.config/docmark/docmark.yaml)")
	pf.String("input-dir", "input", "root that relative config entries resolve against")
	pf.String("output-dir", "output", "directory receiving Markdown, images and patched PDFs")
	pf.Float64("page-width", 595, "width in points of the MediaBox injected into pages without one")
	pf.Float64("page-height", 842, "height in points of the MediaBox injected into pages without one")
	pf.BoolP("verbose", "v", false, "log diagnostics to stderr")

	f := rootCmd.Flags()
	f.String("config-file", "", "document list (default: <input-dir>/config.ini)")
	f.String("engine", "native", "conversion engine: native, markitdown, or gemini")
	f.Bool("frontmatter", true, "prepend YAML frontmatter to each Markdown file")
	f.Bool("incremental", false, "skip sources unchanged since their last successful conversion")
	f.String("markitdown-image", "", "container image for the markitdown engine")
	f.String("gemini-model", "", "Gemini model for the gemini engine (default gemini-2.5-flash)")

	bind := map[string]string{
		"input_dir":        "input-dir",
		"output_dir":       "output-dir",
		"page_width":       "page-width",
		"page_height":      "page-height",
		"verbose":          "verbose",
		"config_file":      "config-file",
		"engine":           "engine",
		"frontmatter":      "frontmatter",
		"incremental":      "incremental",
		"markitdown_image": "markitdown-image",
		"gemini.model":     "gemini-model",
	}
	for key, name := range bind {
		flag := pf.Lookup(name)
		if flag == nil {
			flag = f.Lookup(name)
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docmark")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docmark"))
		}
	}

	viper.SetEnvPrefix("DOCMARK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Unmarshal only sees keys viper already knows; nested keys without a
	// flag need an explicit environment binding.
	for _, key := range []string{"gemini.api_key", "gemini.max_retries", "gemini.base_url"} {
		if err := viper.BindEnv(key); err != nil {
			fmt.Fprintln(os.Stderr, "Error binding", key+":", err)
		}
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailures) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
