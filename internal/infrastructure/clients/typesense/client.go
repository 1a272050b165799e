package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/bondusy/spa-booking/backend/pkg/config"
	"github.com/bondusy/spa-booking/backend/pkg/retry"
)

// ProceduresCollection holds one document per catalog procedure
const ProceduresCollection = "procedures"

// catalogLocale drives tokenization of the Spanish treatment texts
const catalogLocale = "es"

// Client wraps the Typesense client used for procedure search
type Client struct {
	client *typesense.Client
}

// NewClient waits for the search node to report healthy before returning
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryConfig := retry.DefaultConfig()
	retryConfig.MaxTotalTimeout = 20 * time.Second
	err := retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Str("url", cfg.URL).Msg("search node not healthy yet")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("search node at %s unhealthy: %w", cfg.URL, err)
	}

	log.Info().Str("url", cfg.URL).Msg("connected to search node")
	return &Client{client: client}, nil
}

func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema creates the procedures collection when it is missing
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}
	for _, col := range collections {
		if col.Name == ProceduresCollection {
			return nil
		}
	}

	if _, err := c.client.Collections().Create(ctx, proceduresSchema()); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", ProceduresCollection, err)
	}
	log.Info().Str("collection", ProceduresCollection).Msg("created search collection")
	return nil
}

// ResetSchema drops the procedures collection and recreates it empty. A
// missing collection is not an error.
func (c *Client) ResetSchema(ctx context.Context) error {
	log.Info().Str("collection", ProceduresCollection).Msg("dropping search collection")
	if _, err := c.client.Collection(ProceduresCollection).Delete(ctx); err != nil {
		log.Warn().Err(err).Str("collection", ProceduresCollection).Msg("failed to drop collection")
	}
	return c.InitSchema(ctx)
}

func proceduresSchema() *api.CollectionSchema {
	text := func(name string, optional bool) api.Field {
		f := api.Field{Name: name, Type: "string", Locale: pointer.String(catalogLocale)}
		if optional {
			f.Optional = pointer.True()
		}
		return f
	}

	return &api.CollectionSchema{
		Name: ProceduresCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			text("name", false),
			text("description", true),
			text("benefits", true),
			{Name: "price", Type: "float", Optional: pointer.True(), Facet: pointer.True()},
			{Name: "duration_minutes", Type: "int32"},
			{Name: "is_active", Type: "bool", Facet: pointer.True()},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}
