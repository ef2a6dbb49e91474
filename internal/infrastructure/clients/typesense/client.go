package typesense

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mondokter/mondokter-backend/pkg/config"
	"github.com/mondokter/mondokter-backend/pkg/retry"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const (
	ClinicsCollection = "clinics"
	DoctorsCollection = "doctors"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	// Test connection with retry
	retryConfig := retry.DefaultConfig()
	retryConfig.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		log.Printf("Typesense connection attempt %d failed: %v. Retrying in %v...", attempt, err, nextDelay)
	}
	err := retry.Do(context.Background(), retryConfig, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := client.Health(ctx, 2*time.Second)
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Println("Successfully connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema ensures the directory collections exist
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	existing := make(map[string]bool, len(collections))
	for _, col := range collections {
		existing[col.Name] = true
	}

	if !existing[ClinicsCollection] {
		schema := &api.CollectionSchema{
			Name: ClinicsCollection,
			Fields: []api.Field{
				{Name: "id", Type: "string"},
				{Name: "name", Type: "string"},
				{Name: "description", Type: "string", Optional: pointer.True()},
				{Name: "address", Type: "string", Optional: pointer.True()},
				{Name: "island", Type: "string", Facet: pointer.True()},
				{Name: "created_at", Type: "int64"},
			},
			DefaultSortingField: pointer.String("created_at"),
		}
		if _, err := c.client.Collections().Create(ctx, schema); err != nil {
			return fmt.Errorf("failed to create clinics collection: %w", err)
		}
		log.Println("Created Typesense collection 'clinics'")
	}

	if !existing[DoctorsCollection] {
		schema := &api.CollectionSchema{
			Name: DoctorsCollection,
			Fields: []api.Field{
				{Name: "id", Type: "string"},
				{Name: "name", Type: "string"},
				{Name: "specialty", Type: "string", Facet: pointer.True()},
				{Name: "clinic_id", Type: "string"},
				{Name: "bio", Type: "string", Optional: pointer.True()},
				{Name: "created_at", Type: "int64"},
			},
			DefaultSortingField: pointer.String("created_at"),
		}
		if _, err := c.client.Collections().Create(ctx, schema); err != nil {
			return fmt.Errorf("failed to create doctors collection: %w", err)
		}
		log.Println("Created Typesense collection 'doctors'")
	}

	return nil
}
