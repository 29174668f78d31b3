//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the CLI and converts every document listed in
// input/config.ini into output/.
func Convert() error {
	mg.Deps(Build)
	return sh.RunV("./bin/docmark", "--input-dir", inputDir, "--output-dir", outputDir)
}
