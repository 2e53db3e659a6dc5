package respond

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultBackendTimeout is a client-level backstop; the webhook handler's
// context carries the effective per-turn deadline.
const defaultBackendTimeout = 10 * time.Second

// Backend produces a reply from an external conversational service.
type Backend interface {
	// Reply returns the reply text for a caller utterance. An error means
	// the caller of this interface should answer from rules instead.
	Reply(ctx context.Context, caller, input string) (string, error)
}

// HTTPBackend relays utterances to a conversational gateway over HTTP JSON.
type HTTPBackend struct {
	url    string
	client *http.Client
}

// HTTPBackendOption configures an HTTPBackend.
type HTTPBackendOption func(*HTTPBackend)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPBackendOption {
	return func(b *HTTPBackend) {
		b.client = client
	}
}

// NewHTTPBackend creates a backend relay targeting url.
func NewHTTPBackend(url string, opts ...HTTPBackendOption) *HTTPBackend {
	b := &HTTPBackend{
		url:    url,
		client: &http.Client{Timeout: defaultBackendTimeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type backendRequest struct {
	Caller string `json:"caller"`
	Input  string `json:"input"`
}

type backendResponse struct {
	Reply string `json:"reply"`
}

// Reply posts the utterance and returns the backend's reply text.
func (b *HTTPBackend) Reply(ctx context.Context, caller, input string) (string, error) {
	body, err := json.Marshal(backendRequest{Caller: caller, Input: input})
	if err != nil {
		return "", fmt.Errorf("marshaling backend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating backend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	var decoded backendResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding backend response: %w", err)
	}
	if decoded.Reply == "" {
		return "", fmt.Errorf("backend returned empty reply")
	}
	return decoded.Reply, nil
}
