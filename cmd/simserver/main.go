package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rot226/lorasim/internal/api"
	"github.com/rot226/lorasim/internal/bus"
	"github.com/rot226/lorasim/internal/config"
	"github.com/rot226/lorasim/internal/storage"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "config/simserver.yml", "configuration file path")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Str("summary", cfg.PrintSummary()).Msg("configuration loaded")

	store, err := storage.NewPostgresStore(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()
	log.Info().Msg("connected to database")

	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL,
			nats.Name("lorasim-simserver"),
			nats.ReconnectWait(cfg.NATS.ReconnectInterval),
			nats.MaxReconnects(cfg.NATS.MaxReconnects),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				log.Warn().Err(err).Msg("disconnected from NATS")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Msg("reconnected to NATS")
			}),
		)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to NATS, continuing without it")
		} else {
			defer nc.Close()
			log.Info().Msg("connected to NATS")
		}
	} else {
		log.Info().Msg("NATS not configured, running without live event mirroring")
	}

	apiServer := api.NewRESTServer(cfg, store, bus.NewPublisher(nc, "control"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		log.Info().Str("addr", addr).Msg("starting REST API server")
		if err := apiServer.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("REST API server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")

	cancel()
	if err := apiServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("failed to shutdown API server gracefully")
	}

	log.Info().Msg("simserver stopped")
}
