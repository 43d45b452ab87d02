package database

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/vehicle-valuation/models"
	"github.com/upb/vehicle-valuation/repositories"
	"go.uber.org/zap"
)

// ProviderLogRepository implements the repositories.ProviderLogRepository interface
type ProviderLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewProviderLogRepository creates a new provider log repository
func NewProviderLogRepository(db *DB, logger *zap.Logger) repositories.ProviderLogRepository {
	return &ProviderLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a new provider log entry
func (r *ProviderLogRepository) Append(ctx context.Context, log *models.ProviderLog) error {
	query := `
		INSERT INTO provider_logs (
			id, vrm, provider, request_url, request_time,
			request_duration_ms, response_code, error_message
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.VRM,
		log.Provider,
		log.RequestURL,
		log.RequestTime,
		log.RequestDuration,
		log.ResponseCode,
		log.ErrorMessage,
	)

	if err != nil {
		return fmt.Errorf("failed to insert provider log: %w", err)
	}

	r.logger.Debug("provider log inserted",
		zap.String("id", log.ID),
		zap.String("provider", log.Provider),
		zap.Int("response_code", log.ResponseCode))
	return nil
}

// ListByVRM retrieves provider logs for a VRM with pagination
func (r *ProviderLogRepository) ListByVRM(ctx context.Context, vrm string, limit, offset int) ([]*models.ProviderLog, error) {
	query := `
		SELECT id, vrm, provider, request_url, request_time,
		       request_duration_ms, response_code, error_message
		FROM provider_logs
		WHERE vrm = $1
		ORDER BY request_time DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, vrm, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.ProviderLog
	for rows.Next() {
		log := &models.ProviderLog{}
		err := rows.Scan(
			&log.ID,
			&log.VRM,
			&log.Provider,
			&log.RequestURL,
			&log.RequestTime,
			&log.RequestDuration,
			&log.ResponseCode,
			&log.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating provider logs: %w", err)
	}

	return logs, nil
}

// Summarize aggregates provider logs per provider since the given time
func (r *ProviderLogRepository) Summarize(ctx context.Context, since time.Time) ([]*models.ProviderSummary, error) {
	query := `
		SELECT provider,
		       COUNT(*),
		       SUM(CASE WHEN response_code BETWEEN 200 AND 299 THEN 0 ELSE 1 END),
		       COALESCE(AVG(request_duration_ms), 0)
		FROM provider_logs
		WHERE request_time >= $1
		GROUP BY provider
		ORDER BY provider
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize provider logs: %w", err)
	}
	defer rows.Close()

	var summaries []*models.ProviderSummary
	for rows.Next() {
		s := &models.ProviderSummary{}
		if err := rows.Scan(&s.Provider, &s.TotalRequests, &s.FailedRequests, &s.AvgDurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan provider summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating provider summaries: %w", err)
	}

	return summaries, nil
}
