// Command proxy runs the translating reverse proxy: it classifies inbound
// chat-completion requests by wire family, resolves the client's channel,
// translates through the neutral model, dispatches upstream, and translates
// the response back.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/digitallysavvy/llm-gateway-proxy/pkg/channel"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/config"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/dispatch"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/family"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/ingress"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/telemetry"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/translate/anthropic"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/translate/gemini"
	"github.com/digitallysavvy/llm-gateway-proxy/pkg/translate/openai"
)

func main() {
	cfg := config.Load()

	channels, err := config.LoadChannels(cfg.ChannelsFile)
	if err != nil {
		log.Fatalf("proxy: failed to load channels: %v", err)
	}
	log.Printf("proxy: loaded %d channel(s) from %s", len(channels), cfg.ChannelsFile)

	store, err := channel.NewMemoryStore(channels)
	if err != nil {
		log.Fatalf("proxy: invalid channel configuration: %v", err)
	}
	resolver := channel.NewResolver(store)
	dispatcher := dispatch.New()

	translators := ingress.Registry{
		family.OpenAI:    openai.NewWithReasoningMaxTokens(cfg.OpenAIReasoningMaxTokens),
		family.Anthropic: anthropic.NewWithMaxTokens(cfg.AnthropicMaxTokens),
		family.Gemini:    gemini.New(),
	}

	telemetrySettings := telemetry.DefaultSettings().WithEnabled(cfg.TelemetryEnabled).WithFunctionID("llm-gateway-proxy")
	if cfg.TelemetryEnabled {
		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()
		telemetrySettings = telemetrySettings.WithTracer(tp.Tracer(telemetry.TracerName))
	}

	router := ingress.New(resolver, dispatcher, translators, cfg.ThinkingThresholds, telemetrySettings)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	router.Mount(r)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses can run far longer than a fixed write timeout allows
	}

	go func() {
		log.Printf("proxy: listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("proxy: server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("proxy: graceful shutdown failed: %v", err)
	}
}
