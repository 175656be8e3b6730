package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/liliumshare/liliumshare/internal/adapters/http"
	wssignal "github.com/liliumshare/liliumshare/internal/adapters/signal"
	"github.com/liliumshare/liliumshare/internal/app"
	"github.com/liliumshare/liliumshare/internal/config"
	"github.com/liliumshare/liliumshare/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var directory store.Directory
	switch cfg.Store {
	case "memory":
		directory = store.NewMemory()
		log.Warn().Msg("using in-memory directory store, nothing will survive a restart")
	default:
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open directory store")
		}
		defer pg.Close()
		directory = pg
	}

	registry := app.NewRegistry()
	auth := &app.Authorizer{Store: directory, Registry: registry}
	issuer := app.NewKeyIssuer(directory)

	sig := &wssignal.Controller{
		Registry:   registry,
		Auth:       auth,
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	}

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Store:    directory,
		Registry: registry,
		Issuer:   issuer,
		Signal:   sig,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("LiliumShare relay started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
