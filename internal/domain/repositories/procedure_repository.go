package repositories

import (
	"context"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
)

// ProcedureRepository defines the interface for procedure data operations
type ProcedureRepository interface {
	// Create creates a new procedure
	Create(ctx context.Context, procedure *entities.Procedure) error

	// GetByID retrieves a procedure by ID
	GetByID(ctx context.Context, id string) (*entities.Procedure, error)

	// GetByIDs retrieves multiple procedures by their IDs
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Procedure, error)

	// Update updates a procedure
	Update(ctx context.Context, procedure *entities.Procedure) error

	// SetActive toggles the soft-delete flag
	SetActive(ctx context.Context, id string, active bool) error

	// List retrieves procedures with filters, ordered by name
	List(ctx context.Context, filter ProcedureFilter) ([]*entities.Procedure, error)

	// Count returns the total number of procedures
	Count(ctx context.Context) (int, error)

	// ListImages returns a procedure's gallery ordered by position
	ListImages(ctx context.Context, procedureID string) ([]*entities.ProcedureImage, error)
}

// ProcedureFilter defines filters for listing procedures
type ProcedureFilter struct {
	IsActive *bool
	Query    string
	Limit    int
	Offset   int
}

// ProcedureSearchRepository defines full-text search over procedures
type ProcedureSearchRepository interface {
	// Index upserts a procedure document
	Index(ctx context.Context, procedure *entities.Procedure) error

	// Search returns matching procedure IDs ordered by relevance
	Search(ctx context.Context, query string, limit int) ([]string, error)
}
