// Package voice provides a client for an AI outbound-calling API in the Vapi
// style: create a call with an assistant prompt, poll or receive webhooks for
// the outcome.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.vapi.ai"

// Client performs outbound call operations.
type Client interface {
	// CreateCall starts an outbound call and returns immediately; the call
	// outcome arrives later via webhook.
	CreateCall(ctx context.Context, req CallRequest) (*Call, error)
	// GetCall fetches the current state of a call.
	GetCall(ctx context.Context, id string) (*Call, error)
}

// CallRequest describes an outbound call to place.
type CallRequest struct {
	PhoneNumber string            `json:"phoneNumber"`
	Assistant   Assistant         `json:"assistant"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Assistant configures the AI agent for the call.
type Assistant struct {
	FirstMessage string `json:"firstMessage,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	VoiceID      string `json:"voiceId,omitempty"`
}

// Call is the provider's view of a placed call.
type Call struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Transcript  string            `json:"transcript,omitempty"`
	EndedReason string            `json:"endedReason,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
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

// NewClient creates an outbound-calling client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) CreateCall(ctx context.Context, callReq CallRequest) (*Call, error) {
	body, err := json.Marshal(callReq)
	if err != nil {
		return nil, eris.Wrap(err, "voice: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "voice: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, http.StatusCreated)
}

func (c *httpClient) GetCall(ctx context.Context, id string) (*Call, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/call/"+id, nil)
	if err != nil {
		return nil, eris.Wrap(err, "voice: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req, http.StatusOK)
}

func (c *httpClient) do(req *http.Request, wantStatus int) (*Call, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "voice: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "voice: read response")
	}

	if resp.StatusCode != wantStatus {
		return nil, eris.Errorf("voice: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var call Call
	if err := json.Unmarshal(respBody, &call); err != nil {
		return nil, eris.Wrap(err, "voice: unmarshal response")
	}
	return &call, nil
}
