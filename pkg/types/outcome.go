// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Status is the terminal state of one entry's pipeline.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusPatched   Status = "patched-and-succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// BatchOutcome records what happened to one config entry.
type BatchOutcome struct {
	Entry  Entry  `json:"entry" yaml:"entry"`
	Status Status `json:"status" yaml:"status"`

	// PatchedPages is set when Status is StatusPatched.
	PatchedPages []int `json:"patched_pages,omitempty" yaml:"patched_pages,omitempty"`

	// MarkdownPath is the written Markdown file on success.
	MarkdownPath string `json:"markdown_path,omitempty" yaml:"markdown_path,omitempty"`

	// Images is the number of images written on success.
	Images int `json:"images,omitempty" yaml:"images,omitempty"`

	// Err holds the failure cause when Status is StatusFailed.
	Err error `json:"-" yaml:"-"`
}

// OK reports whether the entry finished without failure.
func (o BatchOutcome) OK() bool {
	return o.Status != StatusFailed
}
