package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestione-tecnici/backend/internal/config"
	"github.com/gestione-tecnici/backend/internal/db"
	"github.com/gestione-tecnici/backend/internal/geocode"
	httpapi "github.com/gestione-tecnici/backend/internal/http"
	"github.com/gestione-tecnici/backend/internal/models"
	"github.com/gestione-tecnici/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "gestione-tecnici").Logger()

	loc, err := time.LoadLocation(cfg.ScheduleTZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.ScheduleTZ).Msg("invalid schedule time zone")
	}

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	geocoder := &geocode.NominatimGeocoder{
		BaseURL:     cfg.NominatimURL,
		UserAgent:   cfg.GeocodeUserAgent,
		CountryCode: cfg.GeocodeCountry,
		MinInterval: cfg.GeocodeMinInterval,
	}

	proposer := &service.ProposalService{
		Store:             store,
		Geocoder:          geocoder,
		Logger:            logger,
		Config:            service.DefaultProposalConfig(),
		Location:          loc,
		DefaultCoordinate: models.Coordinate{Lat: cfg.DefaultLat, Lon: cfg.DefaultLon},
	}

	router := httpapi.Router(cfg, store, proposer, geocoder, loc, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
