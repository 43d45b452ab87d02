package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/upb/vehicle-valuation/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an insert violates a unique constraint
	ErrDuplicateKey = errors.New("duplicate key")
)

// ValuationRepository handles valuation data operations
type ValuationRepository interface {
	// GetByVRM retrieves a valuation by registration mark. Returns ErrNotFound on a miss.
	GetByVRM(ctx context.Context, vrm string) (*models.Valuation, error)

	// Insert stores a new valuation. Returns ErrDuplicateKey when the VRM already exists.
	Insert(ctx context.Context, valuation *models.Valuation) error
}

// ProviderLogRepository handles provider call audit records. Entries are append-only.
type ProviderLogRepository interface {
	// Append inserts a provider log entry
	Append(ctx context.Context, log *models.ProviderLog) error

	// ListByVRM retrieves provider logs for a VRM, newest first, with pagination
	ListByVRM(ctx context.Context, vrm string, limit, offset int) ([]*models.ProviderLog, error)

	// Summarize aggregates provider logs per provider since the given time
	Summarize(ctx context.Context, since time.Time) ([]*models.ProviderSummary, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Valuations   ValuationRepository
	ProviderLogs ProviderLogRepository
}
