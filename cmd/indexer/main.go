package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mondokter/mondokter-backend/internal/adapters/database"
	"github.com/mondokter/mondokter-backend/internal/adapters/search"
	"github.com/mondokter/mondokter-backend/internal/application/services"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/clients/postgres"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/clients/typesense"
	"github.com/mondokter/mondokter-backend/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete the directory collections before indexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	var err error
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatalf("Invalid interval %q: %v", intervalValue, err)
		}
		if interval <= 0 {
			log.Fatalf("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, reset); err != nil {
			log.Printf("Reindex failed: %v", err)
		}
		// Only drop collections on the first pass of a long-running indexer
		reset = false

		if interval <= 0 {
			break
		}

		log.Printf("Reindex complete. Next run in %s.", interval)

		select {
		case <-ctx.Done():
			log.Println("Indexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Println("Reset requested, deleting directory collections")
		for _, name := range []string{typesense.ClinicsCollection, typesense.DoctorsCollection} {
			if _, err := typesenseClient.Client().Collection(name).Delete(ctx); err != nil {
				log.Printf("Warning: failed to delete collection %s: %v", name, err)
			}
		}
	}

	directoryService := services.NewDirectoryService(
		database.NewClinicAdapter(pgClient),
		database.NewProviderAdapter(pgClient),
		search.NewTypesenseAdapter(typesenseClient),
		nil,
	)

	indexed, err := directoryService.Reindex(ctx)
	if err != nil {
		return err
	}

	log.Printf("Indexed %d documents", indexed)
	return nil
}
