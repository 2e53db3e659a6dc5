package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

	// Client-level timeout is a backstop; the fallback chain applies the real
	// per-attempt deadline through the request context.
	defaultElevenLabsTimeout = 30 * time.Second

	// HTTP status code threshold for server errors.
	elevenLabsServerErrorThreshold = 500

	// Request rate toward the provider, shared by all concurrent turns.
	defaultRequestsPerSecond = 10
	defaultRequestBurst      = 5
)

// ElevenLabs implements Service using the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// ElevenLabsOption configures the ElevenLabs service.
type ElevenLabsOption func(*ElevenLabs)

// WithElevenLabsBaseURL sets a custom base URL.
func WithElevenLabsBaseURL(url string) ElevenLabsOption {
	return func(s *ElevenLabs) {
		s.baseURL = url
	}
}

// WithElevenLabsClient sets a custom HTTP client.
func WithElevenLabsClient(client *http.Client) ElevenLabsOption {
	return func(s *ElevenLabs) {
		s.client = client
	}
}

// WithElevenLabsRateLimit caps outbound request rate across concurrent turns.
func WithElevenLabsRateLimit(rps float64, burst int) ElevenLabsOption {
	return func(s *ElevenLabs) {
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewElevenLabs creates an ElevenLabs synthesis service.
func NewElevenLabs(apiKey string, opts ...ElevenLabsOption) *ElevenLabs {
	s := &ElevenLabs{
		apiKey:  apiKey,
		baseURL: elevenLabsBaseURL,
		client:  &http.Client{Timeout: defaultElevenLabsTimeout},
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultRequestBurst),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the provider identifier.
func (s *ElevenLabs) Name() string {
	return "elevenlabs"
}

// elevenLabsRequest is the request body for the ElevenLabs TTS API.
type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id,omitempty"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

// elevenLabsVoiceSettings configures voice parameters.
type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text to audio using the ElevenLabs TTS API.
// The full payload is read before returning so that the caller can store an
// immutable artifact; streaming is deliberately not used on this path.
func (s *ElevenLabs) Synthesize(ctx context.Context, text string, spec VoiceSpec) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	voice := spec.VoiceID
	if voice == "" {
		voice = DefaultVoiceID
	}
	model := spec.Model
	if model == "" {
		model = DefaultModel
	}
	format := spec.Format
	if format == "" {
		format = DefaultFormat
	}

	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: model,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       spec.Stability,
			SimilarityBoost: spec.Similarity,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", s.baseURL, voice, format)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewSynthesisError("elevenlabs", "", "request failed", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewSynthesisError("elevenlabs", "", "reading audio payload", err, true)
	}
	if len(audio) == 0 {
		return nil, NewSynthesisError("elevenlabs", "", "empty audio payload", ErrSynthesisFailed, true)
	}

	return audio, nil
}

// elevenLabsErrorResponse represents an error response from ElevenLabs.
type elevenLabsErrorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// handleError processes a non-2xx response from ElevenLabs.
func (s *ElevenLabs) handleError(resp *http.Response) error {
	var errResp elevenLabsErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return NewSynthesisError(
			"elevenlabs",
			fmt.Sprintf("%d", resp.StatusCode),
			"unknown error",
			err,
			resp.StatusCode >= elevenLabsServerErrorThreshold,
		)
	}

	retryable := resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= elevenLabsServerErrorThreshold

	var cause error
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		cause = ErrRateLimited
	case http.StatusUnauthorized:
		cause = fmt.Errorf("invalid API key")
	case http.StatusBadRequest:
		cause = fmt.Errorf("bad request")
	case http.StatusNotFound:
		cause = ErrInvalidVoice
	}

	return NewSynthesisError(
		"elevenlabs",
		errResp.Detail.Status,
		errResp.Detail.Message,
		cause,
		retryable,
	)
}
