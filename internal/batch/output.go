// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/docmark/internal/markdown"
	"github.com/pdiddy/docmark/pkg/types"
)

const (
	imagesSuffix = "_images"
	mdExt        = ".md"
)

func (o *Orchestrator) markdownPath(e types.Entry) string {
	return filepath.Join(o.opts.OutputDir, e.DocName()+mdExt)
}

// writeOutputs writes the images of j.result to <doc>_images/<n>.<ext>,
// points the Markdown at them and writes <doc>.md. Images go first so that
// a written Markdown file never links to a missing image.
func (o *Orchestrator) writeOutputs(j *job) error {
	res := j.result
	doc := j.entry.DocName()
	imgDir := filepath.Join(o.opts.OutputDir, doc+imagesSuffix)

	if err := os.MkdirAll(o.opts.OutputDir, 0o755); err != nil {
		return &FilesystemError{Op: "create directory", Path: o.opts.OutputDir, Err: err}
	}
	if err := os.RemoveAll(imgDir); err != nil {
		return &FilesystemError{Op: "remove stale images", Path: imgDir, Err: err}
	}

	targets := make(map[string]string, len(res.Images))
	if len(res.Images) > 0 {
		if err := os.MkdirAll(imgDir, 0o755); err != nil {
			return &FilesystemError{Op: "create directory", Path: imgDir, Err: err}
		}
	}
	for i, img := range res.Images {
		name := fmt.Sprintf("%d.%s", i+1, imageExt(img))
		dst := filepath.Join(imgDir, name)
		if err := os.WriteFile(dst, img.Data, 0o644); err != nil {
			return &FilesystemError{Op: "write", Path: dst, Err: err}
		}
		if img.ID != "" {
			targets[img.ID] = "./" + path.Join(doc+imagesSuffix, name)
		}
	}

	body := string(markdown.RewriteImages([]byte(res.Markdown), targets))
	if o.opts.Frontmatter {
		fm := markdown.Frontmatter{
			Source:      j.entry.Path,
			Format:      string(j.format),
			Engine:      res.Engine,
			ConvertedAt: o.opts.Now().UTC().Format(time.RFC3339),
			Images:      len(res.Images),
		}
		if j.patched != nil {
			fm.PatchedPages = j.patched.PatchedPages
		}
		var err error
		if body, err = markdown.WithFrontmatter(fm, body); err != nil {
			return err
		}
	}

	mdPath := o.markdownPath(j.entry)
	if err := os.WriteFile(mdPath, []byte(body), 0o644); err != nil {
		return &FilesystemError{Op: "write", Path: mdPath, Err: err}
	}
	j.mdPath = mdPath
	j.images = len(res.Images)
	return nil
}

var sniffedExt = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
}

// imageExt takes the extension from the image ID when it has a plausible
// one, otherwise sniffs the bytes.
func imageExt(img types.Image) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(img.ID), "."))
	if ext != "" && len(ext) <= 5 && isAlnum(ext) {
		if ext == "jpeg" {
			return "jpg"
		}
		return ext
	}
	if ext, ok := sniffedExt[http.DetectContentType(img.Data)]; ok {
		return ext
	}
	return "bin"
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
