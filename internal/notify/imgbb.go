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

// DefaultImgBBEndpoint is the ImgBB upload API.
const DefaultImgBBEndpoint = "https://api.imgbb.com/1/upload"

// ImgBB uploads JPEG snapshots and returns a public URL.
type ImgBB struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewImgBB returns an uploader. An empty endpoint selects the public API.
func NewImgBB(apiKey, endpoint string, client *http.Client) *ImgBB {
	if endpoint == "" {
		endpoint = DefaultImgBBEndpoint
	}
	return &ImgBB{apiKey: apiKey, endpoint: endpoint, client: orDefault(client)}
}

// Configured reports whether an API key is set.
func (c *ImgBB) Configured() bool {
	return !config.IsPlaceholder(c.apiKey)
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Upload posts image (JPEG bytes) and returns its hosted URL.
func (c *ImgBB) Upload(ctx context.Context, image []byte) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("imgbb: endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	form := url.Values{"image": {base64.StdEncoding.EncodeToString(image)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out imgbbResponse
	if err := doJSON(c.client, req, "imgbb", http.StatusOK, &out); err != nil {
		return "", err
	}
	if !out.Success || out.Data.URL == "" {
		return "", errors.New("imgbb: upload rejected")
	}
	return out.Data.URL, nil
}
