package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mertyk/kpss-arena/go/internal/arena"
	"github.com/mertyk/kpss-arena/go/internal/events"
	"github.com/mertyk/kpss-arena/go/internal/gateway"
	"github.com/mertyk/kpss-arena/go/internal/question"
	"github.com/mertyk/kpss-arena/go/internal/relay"
	"github.com/mertyk/kpss-arena/go/internal/reports"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store := question.Load(cfg.Data.Questions)
	recorder := reports.NewRecorder(cfg.Data.Reports)

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())

	var broadcaster events.Broadcaster = cm
	var publisher *relay.Publisher
	if cfg.NATS.Enabled {
		publisher, err = relay.Connect(cfg.NATS.URL, cfg.NATS.Prefix)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer publisher.Close()
		broadcaster = relay.Tee{Primary: cm, Relay: publisher}
		log.Info().Str("url", cfg.NATS.URL).Msg("event relay enabled")
	}

	policy := arena.Policy{
		HostOnlyStart: cfg.Game.HostOnlyStart,
		AllowLateJoin: cfg.Game.AllowLateJoin,
		AdvanceGrace:  time.Duration(cfg.Game.AdvanceGraceMs) * time.Millisecond,
	}
	coordinator := arena.New(store, broadcaster, clockwork.NewRealClock(), policy)

	svc := gateway.NewService(cm, coordinator, store, recorder)
	server := setupServer(cfg, svc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cm.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
