package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"fall-monitor/internal/platform/config"
)

const (
	// DefaultGeminiEndpoint is the Generative Language API base URL.
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultGeminiPrompt asks for a short safety assessment of the snapshot.
	DefaultGeminiPrompt = "In under 50 words, briefly assess the safety of the person's posture in this photo: 1. posture 2. fall risk 3. advice"
)

// Gemini describes a snapshot in natural language.
type Gemini struct {
	apiKey   string
	model    string
	endpoint string
	prompt   string
	client   *http.Client
}

// NewGemini returns an analyzer for model. An empty endpoint selects the
// public API.
func NewGemini(apiKey, model, endpoint string, client *http.Client) *Gemini {
	if endpoint == "" {
		endpoint = DefaultGeminiEndpoint
	}
	return &Gemini{
		apiKey:   apiKey,
		model:    model,
		endpoint: strings.TrimRight(endpoint, "/"),
		prompt:   DefaultGeminiPrompt,
		client:   orDefault(client),
	}
}

// Configured reports whether an API key is set.
func (c *Gemini) Configured() bool {
	return !config.IsPlaceholder(c.apiKey)
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Analyze sends image (JPEG bytes) with the assessment prompt and returns the
// first candidate's text.
func (c *Gemini) Analyze(ctx context.Context, image []byte) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	body := geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{
		{Text: c.prompt},
		{InlineData: &geminiInlineData{MimeType: "image/jpeg", Data: base64.StdEncoding.EncodeToString(image)}},
	}}}}

	req, err := newJSONRequest(ctx, u, body)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	var out geminiResponse
	if err := doJSON(c.client, req, "gemini", http.StatusOK, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: no candidates")
	}
	text := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", errors.New("gemini: empty answer")
	}
	return text, nil
}
