package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/openclaw/voicebridge/audiocache"
	"github.com/openclaw/voicebridge/resolver"
	"github.com/openclaw/voicebridge/session"
	"github.com/openclaw/voicebridge/tts"
)

type stubSynthesizer struct {
	audio []byte
	err   error
	calls int
}

func (s *stubSynthesizer) Name() string { return "stub" }

func (s *stubSynthesizer) Synthesize(ctx context.Context, text string, spec tts.VoiceSpec) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.audio, nil
}

type stubBackend struct {
	reply string
	err   error
}

func (b *stubBackend) Reply(ctx context.Context, caller, input string) (string, error) {
	return b.reply, b.err
}

type fixture struct {
	server   *Server
	handler  http.Handler
	cache    *audiocache.Cache
	sessions *session.MemoryStore
	synth    *stubSynthesizer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	synth := &stubSynthesizer{audio: []byte("fake-mp3-bytes")}
	cache := audiocache.New(audiocache.Config{})
	chain := tts.NewChain(synth)
	res := resolver.New(cache, chain, tts.DefaultVoiceSpec(), "")
	sessions := session.NewMemoryStore()

	srv := NewServer(res, cache, sessions, opts...)
	return &fixture{
		server:   srv,
		handler:  srv.Handler(),
		cache:    cache,
		sessions: sessions,
		synth:    synth,
	}
}

func (f *fixture) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func callForm() url.Values {
	return url.Values{
		"CallSid": {"CA123"},
		"From":    {"+15550100"},
	}
}

func TestVoiceWebhook_Greeting(t *testing.T) {
	f := newFixture(t)

	w := f.post(t, "/voice", callForm())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/xml" {
		t.Errorf("content type = %s", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, `<Gather input="speech" action="/voice/respond"`) {
		t.Errorf("missing gather:\n%s", body)
	}
	if !strings.Contains(body, "<Play>/audio/v1_") {
		t.Errorf("greeting should play cached audio:\n%s", body)
	}

	if _, err := f.sessions.Load(context.Background(), "CA123"); err != nil {
		t.Errorf("session not created: %v", err)
	}
}

func TestRespondWebhook_RuleReply(t *testing.T) {
	f := newFixture(t)

	form := callForm()
	form.Set("SpeechResult", "hello there")
	w := f.post(t, "/voice/respond", form)

	body := w.Body.String()
	if !strings.Contains(body, "<Play>/audio/v1_") {
		t.Errorf("reply should play cached audio:\n%s", body)
	}
	if !strings.Contains(body, "<Gather") {
		t.Errorf("conversation should continue with a gather:\n%s", body)
	}

	sess, err := f.sessions.Load(context.Background(), "CA123")
	if err != nil {
		t.Fatalf("session load: %v", err)
	}
	if len(sess.Turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(sess.Turns))
	}
	if sess.Turns[0].Input != "hello there" {
		t.Errorf("turn input = %q", sess.Turns[0].Input)
	}
}

func TestRespondWebhook_FarewellHangsUp(t *testing.T) {
	f := newFixture(t)

	form := callForm()
	form.Set("SpeechResult", "okay goodbye")
	w := f.post(t, "/voice/respond", form)

	body := w.Body.String()
	if !strings.Contains(body, "<Hangup") {
		t.Errorf("farewell should hang up:\n%s", body)
	}
	if strings.Contains(body, "<Gather") {
		t.Errorf("farewell must not gather again:\n%s", body)
	}

	if _, err := f.sessions.Load(context.Background(), "CA123"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("session should be deleted after farewell, got %v", err)
	}
}

func TestRespondWebhook_NoSpeech(t *testing.T) {
	f := newFixture(t)

	w := f.post(t, "/voice/respond", callForm())

	body := w.Body.String()
	if !strings.Contains(body, "<Hangup") {
		t.Errorf("silence should end the call:\n%s", body)
	}
	if strings.Contains(body, "<Gather") {
		t.Errorf("silence must not gather again:\n%s", body)
	}
}

func TestRespondWebhook_NativeFallback(t *testing.T) {
	f := newFixture(t)
	f.synth.err = errors.New("provider down")

	form := callForm()
	form.Set("SpeechResult", "hello")
	w := f.post(t, "/voice/respond", form)

	body := w.Body.String()
	if strings.Contains(body, "<Play>") {
		t.Errorf("failed synthesis must not reference audio:\n%s", body)
	}
	if !strings.Contains(body, `<Say voice="Polly.Nicole" language="en-AU">Hello! How can I help you today?</Say>`) {
		t.Errorf("expected native say fallback:\n%s", body)
	}
}

func TestRespondWebhook_BackendReply(t *testing.T) {
	f := newFixture(t, WithBackend(&stubBackend{reply: "Your package arrives Tuesday."}))

	form := callForm()
	form.Set("SpeechResult", "where is my package")
	w := f.post(t, "/voice/respond", form)

	sess, err := f.sessions.Load(context.Background(), "CA123")
	if err != nil {
		t.Fatalf("session load: %v", err)
	}
	if sess.Turns[0].Reply != "Your package arrives Tuesday." {
		t.Errorf("reply = %q, want backend reply", sess.Turns[0].Reply)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestRespondWebhook_BackendFailureUsesRules(t *testing.T) {
	f := newFixture(t, WithBackend(&stubBackend{err: errors.New("gateway down")}))

	form := callForm()
	form.Set("SpeechResult", "hello")
	f.post(t, "/voice/respond", form)

	sess, err := f.sessions.Load(context.Background(), "CA123")
	if err != nil {
		t.Fatalf("session load: %v", err)
	}
	if sess.Turns[0].Reply != "Hello! How can I help you today?" {
		t.Errorf("reply = %q, want rule reply", sess.Turns[0].Reply)
	}
}

func TestSMSWebhook(t *testing.T) {
	f := newFixture(t)

	w := f.post(t, "/sms", url.Values{
		"From": {"+15550100"},
		"Body": {"what time is it"},
	})

	body := w.Body.String()
	if !strings.Contains(body, "<Message>The current time is ") {
		t.Errorf("unexpected sms reply:\n%s", body)
	}
}

func TestAudioEndpoint(t *testing.T) {
	f := newFixture(t)

	// Populate the cache through a real turn.
	form := callForm()
	form.Set("SpeechResult", "hello")
	w := f.post(t, "/voice/respond", form)

	m := regexp.MustCompile(`<Play>(/audio/[^<]+)</Play>`).FindStringSubmatch(w.Body.String())
	if m == nil {
		t.Fatalf("no audio URL in response:\n%s", w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, m[1], nil)
	got := httptest.NewRecorder()
	f.handler.ServeHTTP(got, req)

	if got.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", got.Code)
	}
	if ct := got.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("content type = %s", ct)
	}
	if got.Body.String() != "fake-mp3-bytes" {
		t.Errorf("body = %q", got.Body.String())
	}
}

func TestAudioEndpoint_MissingKey(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/audio/v1_deadbeef", nil)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t, WithVersion("1.2.3"))

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var status map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status["status"] != "ok" {
		t.Errorf("status = %v", status["status"])
	}
	if status["version"] != "1.2.3" {
		t.Errorf("version = %v", status["version"])
	}
}

func TestRequestIDPropagation(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want propagated value", got)
	}

	// Absent inbound ID, one is generated.
	w2 := httptest.NewRecorder()
	f.handler.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w2.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated X-Request-ID")
	}
}
