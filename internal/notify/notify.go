// Package notify holds the outbound collaborators of the alert pipeline: an
// image host (ImgBB), an image analyzer (Gemini) and caregiver notifiers
// (LINE push, MQTT). Every client reports ErrNotConfigured when its
// credentials are missing so callers can degrade instead of failing.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNotConfigured is returned by a collaborator whose credentials are
// missing or still hold a sample value.
var ErrNotConfigured = errors.New("collaborator not configured")

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 512

// Part is one element of a notification: either an image URL or text.
type Part struct {
	ImageURL string `json:"image_url,omitempty"`
	Text     string `json:"text,omitempty"`
}

// ImagePart returns a Part referencing a hosted image.
func ImagePart(url string) Part { return Part{ImageURL: url} }

// TextPart returns a text Part.
func TextPart(text string) Part { return Part{Text: text} }

// StatusError is returned when a collaborator answers with an unexpected
// HTTP status.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.Code, e.Body)
}

// doJSON sends req and decodes a JSON response into out when the status
// matches want. Any other status becomes a *StatusError.
func doJSON(client *http.Client, req *http.Request, service string, want int, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Service: service, Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", service, err)
	}
	return nil
}

// newJSONRequest builds a POST request with a JSON body.
func newJSONRequest(ctx context.Context, url string, body any) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// orDefault returns c, or http.DefaultClient when c is nil.
func orDefault(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
