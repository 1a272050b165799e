package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bondusy/spa-booking/backend/internal/adapters/database"
	"github.com/bondusy/spa-booking/backend/internal/adapters/search"
	"github.com/bondusy/spa-booking/backend/internal/application/services"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/postgres"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/typesense"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
	"github.com/bondusy/spa-booking/backend/pkg/config"
)

func main() {
	var reset, seed bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete the Typesense collection before reindexing")
	flag.BoolVar(&seed, "seed", false, "insert the sample catalog when no procedure exists")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-indexer", cfg.Environment)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset, seed); err != nil {
			log.Error().Err(err).Msg("reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset, seed = false, false
		log.Info().Dur("next_run_in", interval).Msg("reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("indexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset, seed bool) error {
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	procedureRepo := database.NewProcedureAdapter(pgClient)

	if cfg.Typesense.URL == "" {
		if !seed {
			return fmt.Errorf("TYPESENSE_URL is not set")
		}
		inserted, err := services.NewProcedureService(procedureRepo, nil, nil).SeedSamples(ctx)
		if err != nil {
			return err
		}
		log.Info().Int("inserted", inserted).Msg("sample catalog seeded without search indexing")
		return nil
	}

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		err = tsClient.ResetSchema(ctx)
	} else {
		err = tsClient.InitSchema(ctx)
	}
	if err != nil {
		return err
	}

	procedureService := services.NewProcedureService(procedureRepo, search.NewTypesenseAdapter(tsClient), nil)

	if seed {
		inserted, err := procedureService.SeedSamples(ctx)
		if err != nil {
			return err
		}
		log.Info().Int("inserted", inserted).Msg("sample catalog seeded")
	}

	indexed, err := procedureService.Reindex(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("indexed", indexed).Msg("procedures indexed")
	return nil
}
