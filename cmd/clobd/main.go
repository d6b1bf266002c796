// Command clobd runs the CLOB engine service: the engine loop, its bbolt
// journal, and the gin HTTP edge.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"clobd/internal/config"
	"clobd/internal/engine"
	"clobd/internal/httpapi"
	"clobd/internal/journal"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	dbPath := flag.String("db", "", "journal database path (overrides engine.db_path)")
	listenAddr := flag.String("http", "", "HTTP listen address (overrides http.listen_addr)")
	channelCapacity := flag.Int("channel-capacity", 0, "request channel capacity (overrides engine.channel_capacity)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load config")
	}
	if *dbPath != "" {
		cfg.Engine.DBPath = *dbPath
	}
	if *listenAddr != "" {
		cfg.HTTP.ListenAddr = *listenAddr
	}
	if *channelCapacity > 0 {
		cfg.Engine.ChannelCapacity = *channelCapacity
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setupLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	store, err := journal.Open(cfg.Engine.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to open journal")
	}
	defer store.Close()

	eng, err := engine.New(store, cfg.Engine.ChannelCapacity)
	if err != nil {
		log.Fatal().Err(err).Msg("engine recovery failed")
	}

	go func() {
		if err := eng.Run(ctx); err != nil {
			log.Error().Err(err).Msg("engine loop stopped")
		}
	}()

	srv := &http.Server{
		Addr:    cfg.HTTP.ListenAddr,
		Handler: httpapi.NewRouter(eng),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTP.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
