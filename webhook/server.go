// Package webhook is the HTTP surface of the service: telephony webhook
// endpoints that answer in TwiML, the audio endpoint that serves cached
// synthesis artifacts, and operational endpoints for health and metrics.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/openclaw/voicebridge/audiocache"
	"github.com/openclaw/voicebridge/logger"
	"github.com/openclaw/voicebridge/metrics/prometheus"
	"github.com/openclaw/voicebridge/resolver"
	"github.com/openclaw/voicebridge/respond"
	"github.com/openclaw/voicebridge/session"
	"github.com/openclaw/voicebridge/twiml"
)

const (
	greetingText   = "Hello! Ask me about the weather or the time, or say help to hear what I can do."
	repromptText   = "Is there anything else I can help with?"
	noInputText    = "Sorry, I didn't catch that. Goodbye!"
	gatherTimeout  = 5
	defaultVersion = "dev"
)

// Server handles inbound telephony webhooks.
type Server struct {
	resolver  *resolver.Resolver
	cache     *audiocache.Cache
	sessions  session.Store
	responder *respond.Responder
	backend   respond.Backend

	voice     string
	language  string
	audioMIME string
	version   string
	metricsH  http.Handler
	startedAt time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithVoice sets the native telephony voice for fallback speech.
func WithVoice(voice string) Option {
	return func(s *Server) { s.voice = voice }
}

// WithLanguage sets the speech language for prompts and recognition.
func WithLanguage(language string) Option {
	return func(s *Server) { s.language = language }
}

// WithResponder sets the rule responder.
func WithResponder(r *respond.Responder) Option {
	return func(s *Server) { s.responder = r }
}

// WithBackend sets an optional conversational backend. Backend failures fall
// back to the rule responder.
func WithBackend(b respond.Backend) Option {
	return func(s *Server) { s.backend = b }
}

// WithAudioContentType sets the content type for served audio.
func WithAudioContentType(mime string) Option {
	return func(s *Server) { s.audioMIME = mime }
}

// WithMetricsHandler mounts a metrics endpoint at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsH = h }
}

// WithVersion sets the version reported by /status.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a webhook server.
func NewServer(res *resolver.Resolver, cache *audiocache.Cache, sessions session.Store, opts ...Option) *Server {
	s := &Server{
		resolver:  res,
		cache:     cache,
		sessions:  sessions,
		responder: respond.NewResponder(nil),
		voice:     "Polly.Nicole",
		language:  "en-AU",
		audioMIME: "audio/mpeg",
		version:   defaultVersion,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler with tracing and metrics
// middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /voice", s.route("/voice", s.handleVoice))
	mux.Handle("POST /voice/respond", s.route("/voice/respond", s.handleRespond))
	mux.Handle("POST /sms", s.route("/sms", s.handleSMS))
	mux.Handle("GET /audio/{key}", s.route("/audio", s.handleAudio))
	mux.Handle("GET /status", s.route("/status", s.handleStatus))
	if s.metricsH != nil {
		mux.Handle("GET /metrics", s.metricsH)
	}
	return otelhttp.NewHandler(mux, "webhook")
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// route applies per-request middleware: request ID, duration metrics and
// access logging.
func (s *Server) route(name string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logger.WithRequestID(r.Context(), requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r.WithContext(ctx))

		elapsed := time.Since(start)
		prometheus.RecordWebhook(name, fmt.Sprintf("%d", rec.status), elapsed.Seconds())
		logger.DebugContext(ctx, "request handled",
			"route", name, "status", rec.status, "elapsed_ms", elapsed.Milliseconds())
	})
}

// handleVoice answers a new inbound call with a greeting and opens a speech
// gather for the first turn.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	ctx, callSID, caller := s.callContext(r)

	sess := session.NewSession(callSID, caller)
	if err := s.sessions.Save(ctx, sess); err != nil {
		logger.WarnContext(ctx, "session save failed", "error", err)
	}
	logger.InfoContext(ctx, "incoming call")

	doc := twiml.New()
	gather := twiml.Gather{
		Input:         "speech",
		Action:        "/voice/respond",
		Timeout:       gatherTimeout,
		SpeechTimeout: "auto",
		Language:      s.language,
	}
	gather.Verbs = append(gather.Verbs, s.speechVerb(s.resolver.Resolve(ctx, greetingText)))
	doc.Gather(gather)
	s.appendSpeech(ctx, doc, noInputText)
	doc.Hangup()

	s.writeTwiML(ctx, w, doc)
}

// handleRespond processes one caller utterance: produce the reply text,
// record the turn, resolve reply audio and gather the next utterance.
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	ctx, callSID, caller := s.callContext(r)
	input := r.FormValue("SpeechResult")

	if input == "" {
		doc := twiml.New()
		s.appendSpeech(ctx, doc, noInputText)
		doc.Hangup()
		s.writeTwiML(ctx, w, doc)
		return
	}

	reply := s.replyText(ctx, caller, input)
	s.recordTurn(ctx, callSID, caller, input, reply)
	logger.InfoContext(ctx, "turn handled", "chars_in", len(input), "chars_out", len(reply))

	doc := twiml.New()
	s.appendSpeech(ctx, doc, reply)

	if respond.Farewell(input) {
		doc.Hangup()
		if err := s.sessions.Delete(ctx, callSID); err != nil {
			logger.WarnContext(ctx, "session delete failed", "error", err)
		}
		s.writeTwiML(ctx, w, doc)
		return
	}

	gather := twiml.Gather{
		Input:         "speech",
		Action:        "/voice/respond",
		Timeout:       gatherTimeout,
		SpeechTimeout: "auto",
		Language:      s.language,
	}
	gather.Verbs = append(gather.Verbs, s.speechVerb(s.resolver.Resolve(ctx, repromptText)))
	doc.Gather(gather)
	s.appendSpeech(ctx, doc, noInputText)
	doc.Hangup()

	s.writeTwiML(ctx, w, doc)
}

// handleSMS answers an inbound text message from the rule responder.
func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithCaller(r.Context(), r.FormValue("From"))
	body := r.FormValue("Body")

	reply := s.responder.Reply(body)
	logger.InfoContext(ctx, "sms handled", "chars_in", len(body), "chars_out", len(reply))

	s.writeTwiML(ctx, w, twiml.New().Message(reply))
}

// handleAudio serves a cached synthesis artifact. A miss is a plain 404:
// entries are evicted on their own schedule and the telephony platform
// simply re-requests through a fresh TwiML document next turn.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	key := audiocache.Key(r.PathValue("key"))

	entry, ok := s.cache.Get(key)
	if !ok {
		logger.DebugContext(r.Context(), "audio not in cache", "key", key.String())
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", s.audioMIME)
	http.ServeContent(w, r, "", entry.CreatedAt, bytes.NewReader(entry.Audio))
}

// handleStatus reports liveness and basic runtime numbers.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"service":        "voicebridge",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"cache_entries":  s.cache.Len(),
	})
}

// replyText asks the backend first when one is configured; any backend
// failure silently falls back to the rule responder so the caller always
// gets an answer.
func (s *Server) replyText(ctx context.Context, caller, input string) string {
	if s.backend != nil {
		reply, err := s.backend.Reply(ctx, caller, input)
		if err == nil {
			return reply
		}
		logger.WarnContext(ctx, "backend reply failed, using rules", "error", err)
	}
	return s.responder.Reply(input)
}

// recordTurn appends the exchange to the call's session. Session loss never
// affects the reply already produced.
func (s *Server) recordTurn(ctx context.Context, callSID, caller, input, reply string) {
	sess, err := s.sessions.Load(ctx, callSID)
	if err != nil {
		sess = session.NewSession(callSID, caller)
	}
	sess.AddTurn(input, reply)
	if err := s.sessions.Save(ctx, sess); err != nil {
		logger.WarnContext(ctx, "session save failed", "error", err)
	}
}

// speechVerb maps an audio reference to its TwiML verb.
func (s *Server) speechVerb(ref resolver.AudioReference) any {
	if ref.Cached() {
		return twiml.Play{URL: ref.URL}
	}
	return twiml.Say{Voice: s.voice, Language: s.language, Text: ref.Text}
}

// appendSpeech resolves text and appends the resulting verb to the document.
func (s *Server) appendSpeech(ctx context.Context, doc *twiml.Response, text string) {
	ref := s.resolver.Resolve(ctx, text)
	doc.Verbs = append(doc.Verbs, s.speechVerb(ref))
}

// callContext extracts call identifiers from the webhook form and threads
// them through the request context for logging.
func (s *Server) callContext(r *http.Request) (context.Context, string, string) {
	callSID := r.FormValue("CallSid")
	caller := r.FormValue("From")

	ctx := r.Context()
	if callSID != "" {
		ctx = logger.WithCallSID(ctx, callSID)
	}
	if caller != "" {
		ctx = logger.WithCaller(ctx, caller)
	}
	return ctx, callSID, caller
}

func (s *Server) writeTwiML(ctx context.Context, w http.ResponseWriter, doc *twiml.Response) {
	body, err := doc.Encode()
	if err != nil {
		logger.ErrorContext(ctx, "twiml encoding failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", twiml.ContentType)
	w.Write(body)
}
