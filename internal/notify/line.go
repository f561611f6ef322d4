package notify

import (
	"context"
	"fmt"
	"net/http"

	"fall-monitor/internal/platform/config"
)

// DefaultLineEndpoint is the LINE Messaging API push endpoint.
const DefaultLineEndpoint = "https://api.line.me/v2/bot/message/push"

// Line pushes messages to a LINE user through a bot channel.
type Line struct {
	token    string
	endpoint string
	client   *http.Client
}

// NewLine returns a push notifier authenticated with the channel token.
func NewLine(token, endpoint string, client *http.Client) *Line {
	if endpoint == "" {
		endpoint = DefaultLineEndpoint
	}
	return &Line{token: token, endpoint: endpoint, client: orDefault(client)}
}

// Name identifies the notifier in logs and metrics.
func (c *Line) Name() string { return "line" }

// Configured reports whether a channel token is set.
func (c *Line) Configured() bool {
	return !config.IsPlaceholder(c.token)
}

// Ready reports whether a push to recipient can be attempted: a token is set
// and the recipient is not empty or a sample value.
func (c *Line) Ready(recipient string) bool {
	return c.Configured() && !config.IsPlaceholder(recipient)
}

type lineMessage struct {
	Type               string `json:"type"`
	Text               string `json:"text,omitempty"`
	OriginalContentURL string `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string `json:"previewImageUrl,omitempty"`
}

type linePush struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

// lineMessages maps parts onto LINE message objects. Images use the same URL
// for the original and the preview.
func lineMessages(parts []Part) []lineMessage {
	msgs := make([]lineMessage, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.ImageURL != "":
			msgs = append(msgs, lineMessage{Type: "image", OriginalContentURL: p.ImageURL, PreviewImageURL: p.ImageURL})
		case p.Text != "":
			msgs = append(msgs, lineMessage{Type: "text", Text: p.Text})
		}
	}
	return msgs
}

// Send pushes parts to recipient. Only HTTP 200 counts as delivered.
func (c *Line) Send(ctx context.Context, recipient string, parts []Part) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if config.IsPlaceholder(recipient) {
		return fmt.Errorf("line: %w: no recipient", ErrNotConfigured)
	}

	req, err := newJSONRequest(ctx, c.endpoint, linePush{To: recipient, Messages: lineMessages(parts)})
	if err != nil {
		return fmt.Errorf("line: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return doJSON(c.client, req, "line", http.StatusOK, nil)
}
