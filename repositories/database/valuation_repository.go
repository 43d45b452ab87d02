package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/vehicle-valuation/models"
	"github.com/upb/vehicle-valuation/repositories"
	"go.uber.org/zap"
)

// ValuationRepository implements the repositories.ValuationRepository interface
type ValuationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewValuationRepository creates a new valuation repository
func NewValuationRepository(db *DB, logger *zap.Logger) repositories.ValuationRepository {
	return &ValuationRepository{
		db:     db,
		logger: logger,
	}
}

// GetByVRM retrieves a valuation by registration mark
func (r *ValuationRepository) GetByVRM(ctx context.Context, vrm string) (*models.Valuation, error) {
	query := `
		SELECT vrm, lowest_value, highest_value, provider, created_at
		FROM vehicle_valuations
		WHERE vrm = $1
	`

	v := &models.Valuation{}
	err := r.db.QueryRowContext(ctx, query, vrm).Scan(
		&v.VRM,
		&v.LowestValue,
		&v.HighestValue,
		&v.Provider,
		&v.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get valuation: %w", err)
	}

	return v, nil
}

// Insert stores a new valuation
func (r *ValuationRepository) Insert(ctx context.Context, v *models.Valuation) error {
	query := `
		INSERT INTO vehicle_valuations (vrm, lowest_value, highest_value, provider, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		v.VRM,
		v.LowestValue,
		v.HighestValue,
		v.Provider,
		v.CreatedAt,
	)

	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("valuation %s: %w", v.VRM, repositories.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to insert valuation: %w", err)
	}

	r.logger.Debug("valuation inserted", zap.String("vrm", v.VRM), zap.String("provider", v.Provider))
	return nil
}
