package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestTracer_NilProvider(t *testing.T) {
	tr := Tracer(nil)
	if tr == nil {
		t.Fatal("Tracer(nil) returned nil")
	}

	_, span := tr.Start(context.Background(), "test-span")
	span.End()
}

func TestNewTracerProvider(t *testing.T) {
	ctx := context.Background()

	tp, err := NewTracerProvider(ctx, "http://localhost:4318/v1/traces", "voicebridge-test")
	if err != nil {
		t.Fatalf("NewTracerProvider() error = %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_ = tp.Shutdown(shutdownCtx)
}

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "", "voicebridge-test")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown error = %v", err)
	}
}
