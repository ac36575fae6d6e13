// Package store persists normalized property records so repeated
// lookups can be exported or served without burning quota on re-fetches.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/propdata-cli/internal/model"
)

// Filter specifies criteria for listing saved records.
type Filter struct {
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for property records. Saving
// the same property ID twice inserts two independent rows: records are
// never merged, deduplication belongs to consumers.
type Store interface {
	SaveProperties(ctx context.Context, records []model.PropertyRecord) (int, error)
	ListProperties(ctx context.Context, filter Filter) ([]model.PropertyRecord, error)
	CountProperties(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
