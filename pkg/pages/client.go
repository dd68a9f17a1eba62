// Package pages provides a client for a static-site hosting API in the
// Cloudflare Pages style: upload a file bundle under a project name, get
// back a public demo URL.
package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.pages.dev/v1"

// Client performs site deployment operations.
type Client interface {
	// Deploy uploads a bundle of files for a project and returns the live
	// deployment. Deploying the same project again replaces its content.
	Deploy(ctx context.Context, project string, files map[string][]byte) (*Deployment, error)
}

// Deployment describes a live deployed site.
type Deployment struct {
	ID        string    `json:"id"`
	Project   string    `json:"project"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
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
	apiToken string
	baseURL  string
	http     *http.Client
}

// NewClient creates a site hosting client.
func NewClient(apiToken string, opts ...Option) Client {
	c := &httpClient{
		apiToken: apiToken,
		baseURL:  defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Deploy(ctx context.Context, project string, files map[string][]byte) (*Deployment, error) {
	if len(files) == 0 {
		return nil, eris.New("pages: no files to deploy")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		part, err := w.CreateFormFile("files", name)
		if err != nil {
			return nil, eris.Wrapf(err, "pages: form file %s", name)
		}
		if _, err := part.Write(files[name]); err != nil {
			return nil, eris.Wrapf(err, "pages: write file %s", name)
		}
	}
	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "pages: close multipart writer")
	}

	url := c.baseURL + "/projects/" + project + "/deployments"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, eris.Wrap(err, "pages: create request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pages: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "pages: read response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, eris.Errorf("pages: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var dep Deployment
	if err := json.Unmarshal(respBody, &dep); err != nil {
		return nil, eris.Wrap(err, "pages: unmarshal response")
	}
	return &dep, nil
}
