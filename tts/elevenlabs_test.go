package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewElevenLabs(t *testing.T) {
	service := NewElevenLabs("test-key")
	if service == nil {
		t.Fatal("NewElevenLabs() returned nil")
	}
	if service.apiKey != "test-key" {
		t.Errorf("apiKey = %v, want test-key", service.apiKey)
	}
	if service.baseURL != elevenLabsBaseURL {
		t.Errorf("baseURL = %v, want %v", service.baseURL, elevenLabsBaseURL)
	}
}

func TestNewElevenLabs_WithOptions(t *testing.T) {
	customClient := &http.Client{}
	service := NewElevenLabs("test-key",
		WithElevenLabsBaseURL("https://custom.api.com"),
		WithElevenLabsClient(customClient),
	)

	if service.baseURL != "https://custom.api.com" {
		t.Errorf("baseURL = %v, want https://custom.api.com", service.baseURL)
	}
	if service.client != customClient {
		t.Error("client was not set correctly")
	}
}

func TestElevenLabs_Name(t *testing.T) {
	if got := NewElevenLabs("test-key").Name(); got != "elevenlabs" {
		t.Errorf("Name() = %v, want elevenlabs", got)
	}
}

func TestElevenLabs_Synthesize_EmptyText(t *testing.T) {
	service := NewElevenLabs("test-key")
	_, err := service.Synthesize(context.Background(), "", DefaultVoiceSpec())
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("Synthesize() error = %v, want ErrEmptyText", err)
	}
}

func TestElevenLabs_Synthesize_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %v, want POST", r.Method)
		}
		if !strings.Contains(r.URL.Path, "/text-to-speech/voice-1") {
			t.Errorf("Path = %v, should contain /text-to-speech/voice-1", r.URL.Path)
		}
		if got := r.URL.Query().Get("output_format"); got != DefaultFormat {
			t.Errorf("output_format = %v, want %v", got, DefaultFormat)
		}
		if auth := r.Header.Get("xi-api-key"); auth != "test-key" {
			t.Errorf("xi-api-key = %v, want test-key", auth)
		}

		var req elevenLabsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Text != "Hello world" {
			t.Errorf("Text = %v, want Hello world", req.Text)
		}
		if req.VoiceSettings == nil {
			t.Fatal("VoiceSettings missing")
		}
		if req.VoiceSettings.Stability != 0.4 || req.VoiceSettings.SimilarityBoost != 0.9 {
			t.Errorf("VoiceSettings = %+v, want stability 0.4 similarity 0.9", req.VoiceSettings)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mock audio data"))
	}))
	defer server.Close()

	service := NewElevenLabs("test-key", WithElevenLabsBaseURL(server.URL))
	spec := VoiceSpec{VoiceID: "voice-1", Stability: 0.4, Similarity: 0.9}

	audio, err := service.Synthesize(context.Background(), "Hello world", spec)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "mock audio data" {
		t.Errorf("audio = %q, want mock audio data", audio)
	}
}

func TestElevenLabs_Synthesize_DefaultsApplied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, DefaultVoiceID) {
			t.Errorf("Path = %v, should use default voice", r.URL.Path)
		}
		var req elevenLabsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.ModelID != DefaultModel {
			t.Errorf("ModelID = %v, want %v", req.ModelID, DefaultModel)
		}
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	service := NewElevenLabs("test-key", WithElevenLabsBaseURL(server.URL))
	if _, err := service.Synthesize(context.Background(), "hi", VoiceSpec{}); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
}

func TestElevenLabs_Synthesize_ErrorResponses(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		body          string
		wantRetryable bool
		wantSentinel  error
	}{
		{
			name:          "rate limited",
			statusCode:    http.StatusTooManyRequests,
			body:          `{"detail":{"status":"rate_limit","message":"too many requests"}}`,
			wantRetryable: true,
			wantSentinel:  ErrRateLimited,
		},
		{
			name:          "unauthorized",
			statusCode:    http.StatusUnauthorized,
			body:          `{"detail":{"status":"invalid_api_key","message":"bad key"}}`,
			wantRetryable: false,
		},
		{
			name:          "unknown voice",
			statusCode:    http.StatusNotFound,
			body:          `{"detail":{"status":"voice_not_found","message":"no such voice"}}`,
			wantRetryable: false,
			wantSentinel:  ErrInvalidVoice,
		},
		{
			name:          "server error",
			statusCode:    http.StatusInternalServerError,
			body:          `{"detail":{"status":"internal","message":"boom"}}`,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			service := NewElevenLabs("test-key", WithElevenLabsBaseURL(server.URL))
			_, err := service.Synthesize(context.Background(), "hello", DefaultVoiceSpec())
			if err == nil {
				t.Fatal("Synthesize() expected error, got nil")
			}

			var synthErr *SynthesisError
			if !errors.As(err, &synthErr) {
				t.Fatalf("error %v is not a *SynthesisError", err)
			}
			if synthErr.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", synthErr.Retryable, tt.wantRetryable)
			}
			if tt.wantSentinel != nil && !errors.Is(err, tt.wantSentinel) {
				t.Errorf("error %v does not wrap %v", err, tt.wantSentinel)
			}
		})
	}
}

func TestElevenLabs_Synthesize_EmptyPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewElevenLabs("test-key", WithElevenLabsBaseURL(server.URL))
	_, err := service.Synthesize(context.Background(), "hello", DefaultVoiceSpec())
	if err == nil {
		t.Fatal("expected error for empty payload")
	}
	if !errors.Is(err, ErrSynthesisFailed) {
		t.Errorf("error %v does not wrap ErrSynthesisFailed", err)
	}
}

func TestElevenLabs_Synthesize_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	service := NewElevenLabs("test-key", WithElevenLabsBaseURL(server.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := service.Synthesize(ctx, "hello", DefaultVoiceSpec())
	if err == nil {
		t.Fatal("expected error for exceeded deadline")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Synthesize took %v, should abort promptly on deadline", elapsed)
	}
}
