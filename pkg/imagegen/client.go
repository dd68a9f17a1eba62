// Package imagegen provides a client for a prompt-to-image generation API.
// Generated images are hosted by the provider and referenced by URL.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.imagegen.dev/v1"

// Client performs image generation operations.
type Client interface {
	// Generate renders one image for a prompt and returns its hosted URL.
	Generate(ctx context.Context, req GenerateRequest) (*Image, error)
}

// GenerateRequest describes the image to render.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Image is a generated, hosted image.
type Image struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an image generation client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Generate(ctx context.Context, genReq GenerateRequest) (*Image, error) {
	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, eris.Wrap(err, "imagegen: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "imagegen: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "imagegen: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "imagegen: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("imagegen: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var img Image
	if err := json.Unmarshal(respBody, &img); err != nil {
		return nil, eris.Wrap(err, "imagegen: unmarshal response")
	}
	return &img, nil
}
