// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/pdiddy/docmark/internal/httputil"
	"github.com/pdiddy/docmark/pkg/types"
)

const (
	engineGemini = "gemini"

	// DefaultGeminiModel is used when no model is configured.
	DefaultGeminiModel = "gemini-2.5-flash"
)

const geminiPrompt = `Convert this document to GitHub-flavored Markdown.
Preserve the heading hierarchy, paragraphs, lists and tables in reading order.
Return ONLY the Markdown content - no explanations, and do not wrap the answer in code fences.`

// GeminiEngine sends PDFs inline to Gemini and returns its Markdown
// rendering. Gemini does not accept Word documents, so DOCX inputs go to
// the fallback engine.
type GeminiEngine struct {
	client   *genai.Client
	model    string
	fallback Engine
}

// NewGeminiEngine creates a Gemini-backed engine. httpClient may be nil, in
// which case a client retrying HTTP 429 responses is used.
func NewGeminiEngine(ctx context.Context, cfg types.GeminiConfig, httpClient *http.Client, fallback Engine) (*GeminiEngine, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing Gemini API key: set DOCMARK_GEMINI_API_KEY or .secrets/gemini-api-key")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	if httpClient == nil {
		httpClient = httputil.NewRetryClient(0, cfg.MaxRetries)
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiEngine{client: c, model: model, fallback: fallback}, nil
}

// Name implements Engine.
func (g *GeminiEngine) Name() string { return engineGemini }

// Convert implements Engine.
func (g *GeminiEngine) Convert(ctx context.Context, path string, format types.Format) (*types.ConversionResult, error) {
	if format != types.FormatPDF {
		if g.fallback == nil {
			return nil, fmt.Errorf("%w for gemini: %q", ErrUnsupportedFormat, format)
		}
		return g.fallback.Convert(ctx, path, format)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	prompt := &genai.Content{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: geminiPrompt},
			{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: data}},
		},
	}
	res, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{prompt}, nil)
	if err != nil {
		return nil, fmt.Errorf("converting %s with %s: %w", path, g.model, err)
	}

	md := stripFences(res.Text())
	if md == "" {
		return nil, fmt.Errorf("%s returned no text for %s", g.model, path)
	}
	return &types.ConversionResult{Markdown: md + "\n", Engine: engineGemini}, nil
}

// stripFences removes a ```markdown wrapper the model may add despite the
// prompt.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return ""
	}
	s = s[nl+1:]
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
