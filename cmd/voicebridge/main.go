// Command voicebridge runs the voice webhook service: it answers telephony
// webhooks with TwiML, serves premium synthesized audio from a bounded cache
// and falls back to the platform's native voice when synthesis cannot
// deliver in time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openclaw/voicebridge/audiocache"
	"github.com/openclaw/voicebridge/config"
	"github.com/openclaw/voicebridge/logger"
	"github.com/openclaw/voicebridge/metrics/prometheus"
	"github.com/openclaw/voicebridge/resolver"
	"github.com/openclaw/voicebridge/respond"
	"github.com/openclaw/voicebridge/session"
	"github.com/openclaw/voicebridge/telemetry"
	"github.com/openclaw/voicebridge/tts"
	"github.com/openclaw/voicebridge/webhook"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting voicebridge", "version", version, "port", cfg.Port)

	shutdownTracing, err := telemetry.Init(ctx, cfg.TelemetryEndpoint, "voicebridge")
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("trace flush failed", "error", err)
		}
	}()

	cache := audiocache.New(audiocache.Config{
		MaxEntries:    cfg.Cache.MaxEntries,
		TTL:           cfg.Cache.TTL.Std(),
		SweepInterval: cfg.Cache.SweepInterval.Std(),
	})

	var premium tts.Service
	if cfg.Synthesis.APIKey != "" {
		premium = tts.NewElevenLabs(cfg.Synthesis.APIKey)
		logger.Info("premium synthesis enabled", "voice_id", cfg.Synthesis.VoiceID)
	} else {
		logger.Info("premium synthesis disabled, native voice only")
	}

	chain := tts.NewChain(premium, tts.WithAttemptTimeout(cfg.Synthesis.Timeout.Std()))
	spec := tts.VoiceSpec{
		VoiceID:    cfg.Synthesis.VoiceID,
		Model:      cfg.Synthesis.Model,
		Stability:  cfg.Synthesis.Stability,
		Similarity: cfg.Synthesis.Similarity,
		Format:     cfg.Synthesis.Format,
	}
	res := resolver.New(cache, chain, spec, cfg.BaseURL)

	var rules []respond.Rule
	if cfg.RulesFile != "" {
		rules, err = respond.LoadRules(cfg.RulesFile)
		if err != nil {
			return fmt.Errorf("loading reply rules: %w", err)
		}
		logger.Info("loaded reply rules", "file", cfg.RulesFile, "count", len(rules))
	}

	var sessions session.Store
	if cfg.RedisAddr != "" {
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("initializing session store: %w", err)
		}
		defer redisStore.Close()
		sessions = redisStore
		logger.Info("using redis session store", "addr", cfg.RedisAddr)
	} else {
		sessions = session.NewMemoryStore()
	}

	var backend respond.Backend
	if cfg.BackendURL != "" {
		backend = respond.NewHTTPBackend(cfg.BackendURL)
		logger.Info("using conversational backend", "url", cfg.BackendURL)
	}

	reg := prometheus.NewRegistry()

	srv := webhook.NewServer(res, cache, sessions,
		webhook.WithVoice(cfg.Voice),
		webhook.WithLanguage(cfg.Language),
		webhook.WithResponder(respond.NewResponder(rules)),
		webhook.WithBackend(backend),
		webhook.WithAudioContentType(spec.MIMEType()),
		webhook.WithMetricsHandler(prometheus.Handler(reg)),
		webhook.WithVersion(version),
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cache.RunSweeper(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
