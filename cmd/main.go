package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"live-speech-translator/internal/app"
	"live-speech-translator/internal/config"
	"live-speech-translator/internal/events"
	httpapi "live-speech-translator/internal/http"
	"live-speech-translator/internal/observability"
	"live-speech-translator/internal/observability/logging"
)

func main() {
	// Optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})

	// Create Kafka publisher with separate topics for transcript and
	// translation events
	publisher := events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicPartial:     cfg.Kafka.TopicPartial,
		TopicFinal:       cfg.Kafka.TopicFinal,
		TopicTranslation: cfg.Kafka.TopicTranslation,
		Principal:        cfg.Service.Principal,
	})
	defer publisher.Close()

	application, err := app.New(cfg, publisher)
	if err != nil {
		log.Fatal().Err(err).Msg("application setup failed")
	}
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("application start failed")
	}

	obsServer := observability.NewServer(cfg.Service.MetricsAddr, application.Readiness)
	obsServer.Start()

	apiServer := &http.Server{
		Addr:    cfg.Service.HTTPAddr,
		Handler: httpapi.NewRouter(application.Session),
	}
	go func() {
		log.Info().Str("addr", cfg.Service.HTTPAddr).Msg("control API listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown failed")
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("observability shutdown failed")
	}
	application.Shutdown()
}
