package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/interviewlab/voice-interviewer/internal/config"
	"github.com/interviewlab/voice-interviewer/internal/gateway"
	"github.com/interviewlab/voice-interviewer/internal/observability"
	"github.com/interviewlab/voice-interviewer/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.InitLogger("info", false)
		fallbackLogger := observability.GetLogger()
		fallbackLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	registry := session.NewRegistry(cfg.SessionTTL(), logger)
	defer registry.Close()

	mux := http.NewServeMux()
	gateway.New(cfg, registry, logger).Routes(mux)

	keys := observability.CollaboratorKeys{
		Deepgram:   cfg.DeepgramAPIKey != "",
		Groq:       cfg.GroqAPIKey != "",
		ElevenLabs: cfg.ElevenLabsAPIKey != "",
	}
	mux.HandleFunc("GET /health", observability.HealthCheckHandler(keys))
	mux.HandleFunc("GET /ready", observability.ReadinessHandler(keys))
	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// No ReadTimeout or WriteTimeout: interview websockets are
		// long-lived connections
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Interview gateway listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logger.Info().Msg("Shutdown complete")
}
