package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tidelake/chatrelay/internal/config"
	"github.com/tidelake/chatrelay/internal/handler"
	"github.com/tidelake/chatrelay/internal/hub"
	"github.com/tidelake/chatrelay/internal/service"
	"github.com/tidelake/chatrelay/internal/transcript"
	"github.com/tidelake/chatrelay/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	logger := log.L()
	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting chatrelay")

	// Transcript logger: one append-only file per room.
	transcripts, err := transcript.NewLogger(cfg.Transcript)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize transcript logger")
	}
	logger.Info().Str("dir", cfg.Transcript.Dir).Msg("transcript logger ready")

	// Room registry and relay service.
	registry := hub.NewRegistry(cfg.Hub, transcripts)
	relaySvc := service.NewRelayService(registry)

	// WebSocket handler.
	wsHandler := handler.NewWSHandler(registry, relaySvc, cfg.WebSocket)

	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     log.HTTPMiddleware(logger)(mux),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("chatrelay listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chatrelay")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server forced to shutdown")
	}

	// Flush transcripts after message intake has stopped.
	if err := transcripts.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close transcript logger")
	}

	logger.Info().Msg("chatrelay stopped")
}
