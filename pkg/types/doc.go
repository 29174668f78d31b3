// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared by the docmark stages:
// config entries, conversion results, patched documents, per-file batch
// outcomes, and the resolved CLI settings.
package types
