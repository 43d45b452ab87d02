package valuation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/upb/vehicle-valuation/models"
	"github.com/upb/vehicle-valuation/repositories"
	"github.com/upb/vehicle-valuation/services"
	"github.com/upb/vehicle-valuation/services/events"
	"github.com/upb/vehicle-valuation/services/failover"
	"github.com/upb/vehicle-valuation/services/providers"
	"go.uber.org/zap"
)

const (
	// DefaultLogLimit is the page size used when a caller does not ask for one
	DefaultLogLimit = 50

	// MaxLogLimit caps provider log pages
	MaxLogLimit = 500
)

// ValuationService resolves vehicle valuations from the store or, on a miss,
// from the primary/secondary provider pair guarded by a failover tracker.
type ValuationService struct {
	providers    providers.Pair
	tracker      *failover.Tracker
	valuations   repositories.ValuationRepository
	providerLogs repositories.ProviderLogRepository
	cache        *Cache
	publisher    events.Publisher
	clock        failover.Clock
	logger       *zap.Logger
}

// NewValuationService creates a new valuation service. cache may be nil to
// disable caching and publisher may be nil to disable events.
func NewValuationService(
	pair providers.Pair,
	tracker *failover.Tracker,
	repos *repositories.Repositories,
	cache *Cache,
	publisher events.Publisher,
	clock failover.Clock,
	logger *zap.Logger,
) *ValuationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if clock == nil {
		clock = failover.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ValuationService{
		providers:    pair,
		tracker:      tracker,
		valuations:   repos.Valuations,
		providerLogs: repos.ProviderLogs,
		cache:        cache,
		publisher:    publisher,
		clock:        clock,
		logger:       logger,
	}
}

// fetchOutcome describes which provider produced (or failed to produce) a valuation
type fetchOutcome struct {
	valuation    *models.Valuation
	provider     string
	responseCode int
	errMessage   string
}

// GetValuation returns a stored valuation without contacting any provider
func (s *ValuationService) GetValuation(ctx context.Context, vrm string) (*models.Valuation, error) {
	if err := validateVRM(vrm); err != nil {
		return nil, err
	}

	valuation, err := s.lookup(ctx, vrm)
	if err != nil {
		return nil, err
	}
	if valuation == nil {
		return nil, services.ErrValuationNotFound.
			Derive(fmt.Sprintf("Valuation for VRM %s not found", vrm), nil).
			WithDetail("vrm", vrm)
	}

	return valuation, nil
}

// ResolveValuation returns the stored valuation for vrm or fetches, persists
// and audits a new one.
func (s *ValuationService) ResolveValuation(ctx context.Context, vrm string, mileage int) (*models.Valuation, error) {
	if err := validateVRM(vrm); err != nil {
		return nil, err
	}
	if mileage <= 0 {
		return nil, services.ErrInvalidMileage.Derive("", nil)
	}

	existing, err := s.lookup(ctx, vrm)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Debug("valuation already stored", zap.String("vrm", vrm))
		return existing, nil
	}

	startTime := s.clock.Now()
	outcome, fetchErr := s.fetch(ctx, providers.ValuationRequest{VRM: vrm, Mileage: mileage})
	endTime := s.clock.Now()

	if fetchErr != nil {
		s.recordFailure(ctx, vrm, outcome, startTime, endTime, fetchErr)
		return nil, fetchErr
	}

	valuation := outcome.valuation
	if err := s.valuations.Insert(ctx, valuation); err != nil {
		if !errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, err
		}
		s.logger.Info("valuation stored concurrently, keeping existing row", zap.String("vrm", vrm))
	} else if s.cache != nil {
		s.cache.Set(valuation)
	}

	providerLog := models.NewProviderLog(vrm, outcome.provider, startTime, endTime, outcome.responseCode).
		WithError(outcome.errMessage)
	if err := s.providerLogs.Append(ctx, providerLog); err != nil {
		return nil, fmt.Errorf("failed to append provider log: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.TypeValuationCreated, vrm, outcome.provider).
		WithData("lowest_value", valuation.LowestValue.String()).
		WithData("highest_value", valuation.HighestValue.String()).
		WithData("response_code", outcome.responseCode))

	s.logger.Info("valuation resolved",
		zap.String("vrm", vrm),
		zap.String("provider", outcome.provider),
		zap.Int("response_code", outcome.responseCode),
		zap.Duration("duration", endTime.Sub(startTime)))

	return valuation, nil
}

// lookup returns the cached or stored valuation, or nil when none exists
func (s *ValuationService) lookup(ctx context.Context, vrm string) (*models.Valuation, error) {
	if s.cache != nil {
		if cached := s.cache.Get(vrm); cached != nil {
			return cached, nil
		}
	}

	valuation, err := s.valuations.GetByVRM(ctx, vrm)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, services.ErrDatabaseError.Derive("failed to get valuation", err)
	}

	if s.cache != nil {
		s.cache.Set(valuation)
	}
	return valuation, nil
}

// fetch runs the provider selection. The primary is never retried and the
// secondary is called at most once per request.
func (s *ValuationService) fetch(ctx context.Context, req providers.ValuationRequest) (*fetchOutcome, error) {
	primary, secondary := s.providers.Primary, s.providers.Secondary

	if s.tracker.ShouldFailover() {
		s.logger.Debug("failover active, using secondary provider",
			zap.String("vrm", req.VRM),
			zap.String("provider", secondary.Name()))

		valuation, err := callProvider(ctx, secondary, req)
		if err != nil {
			return &fetchOutcome{provider: secondary.Name(), errMessage: err.Error()},
				services.ErrServiceUnavailable.Derive("", err)
		}
		return &fetchOutcome{valuation: valuation, provider: secondary.Name(), responseCode: http.StatusOK}, nil
	}

	valuation, primaryErr := callProvider(ctx, primary, req)
	if primaryErr == nil {
		s.tracker.Record(true)
		return &fetchOutcome{valuation: valuation, provider: primary.Name(), responseCode: http.StatusOK}, nil
	}

	s.logger.Warn("primary valuation provider failed",
		zap.String("vrm", req.VRM),
		zap.String("provider", primary.Name()),
		zap.Error(primaryErr))

	wasActive := s.tracker.Snapshot().Active
	s.tracker.Record(false)
	if snap := s.tracker.Snapshot(); !wasActive && snap.Active {
		s.publish(ctx, events.NewEvent(events.TypeFailoverActivated, req.VRM, primary.Name()).
			WithData("failure_rate", snap.FailureRate).
			WithData("threshold", snap.Threshold).
			WithData("duration_ms", snap.DurationMs))
	}

	if !s.tracker.ShouldFailover() {
		return &fetchOutcome{provider: primary.Name(), errMessage: primaryErr.Error()},
			services.ErrServiceUnavailable.Derive("", primaryErr)
	}

	valuation, secondaryErr := callProvider(ctx, secondary, req)
	if secondaryErr != nil {
		s.logger.Error("secondary valuation provider failed",
			zap.String("vrm", req.VRM),
			zap.String("provider", secondary.Name()),
			zap.Error(secondaryErr))
		// the audit row names the provider that failed last but keeps both causes
		message := fmt.Sprintf("%s: %v; %s: %v", primary.Name(), primaryErr, secondary.Name(), secondaryErr)
		return &fetchOutcome{provider: secondary.Name(), errMessage: message},
			services.ErrAllProvidersFailed.Derive("", errors.Join(primaryErr, secondaryErr))
	}

	// success via fallback is audited with the primary's failure
	return &fetchOutcome{
		valuation:    valuation,
		provider:     secondary.Name(),
		responseCode: http.StatusServiceUnavailable,
		errMessage:   primaryErr.Error(),
	}, nil
}

func callProvider(ctx context.Context, p providers.Provider, req providers.ValuationRequest) (*models.Valuation, error) {
	valuation, err := p.FetchValuation(ctx, req)
	if err != nil {
		return nil, err
	}
	if valuation == nil {
		return nil, providers.NewProviderError(p.Name(), providers.CodeMissingData, "provider returned no valuation", 0, nil)
	}
	return valuation, nil
}

// recordFailure audits a request that no provider could serve. Failures here
// are logged and never replace the original error.
func (s *ValuationService) recordFailure(ctx context.Context, vrm string, outcome *fetchOutcome, startTime, endTime time.Time, cause error) {
	providerName := s.providers.Primary.Name()
	message := cause.Error()
	if outcome != nil {
		providerName = outcome.provider
		if outcome.errMessage != "" {
			message = outcome.errMessage
		}
	}

	providerLog := models.NewProviderLog(vrm, providerName, startTime, endTime, http.StatusServiceUnavailable).
		WithError(message)
	if err := s.providerLogs.Append(ctx, providerLog); err != nil {
		s.logger.Error("failed to append provider log for failed valuation",
			zap.String("vrm", vrm),
			zap.Error(err))
	}

	s.publish(ctx, events.NewEvent(events.TypeValuationFailed, vrm, providerName).
		WithData("error", message))

	s.logger.Error("valuation unavailable",
		zap.String("vrm", vrm),
		zap.String("provider", providerName),
		zap.Error(cause))
}

func (s *ValuationService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("type", event.Type),
			zap.String("vrm", event.VRM),
			zap.Error(err))
	}
}

// FailoverStatus is the operator view of the failover state
type FailoverStatus struct {
	Tracker   failover.Snapshot `json:"tracker"`
	Providers map[string]string `json:"providers"`
	Cache     *CacheStats       `json:"cache,omitempty"`
}

// FailoverStatus returns the tracker state. It does not evaluate expiry.
func (s *ValuationService) FailoverStatus() FailoverStatus {
	status := FailoverStatus{
		Tracker:   s.tracker.Snapshot(),
		Providers: s.providers.Names(),
	}
	if s.cache != nil {
		stats := s.cache.Stats()
		status.Cache = &stats
	}
	return status
}

// ResetFailover clears the tracker and routes traffic back to the primary
func (s *ValuationService) ResetFailover(ctx context.Context) FailoverStatus {
	before := s.tracker.Snapshot()
	s.tracker.Reset()

	s.logger.Info("failover tracker reset",
		zap.Bool("was_active", before.Active),
		zap.Uint64("total_requests", before.TotalRequests),
		zap.Uint64("failed_requests", before.FailedRequests))

	s.publish(ctx, events.NewEvent(events.TypeFailoverReset, "", s.providers.Primary.Name()).
		WithData("was_active", before.Active))

	return s.FailoverStatus()
}

// ListProviderLogs returns the provider call history for a VRM, newest first
func (s *ValuationService) ListProviderLogs(ctx context.Context, vrm string, limit, offset int) ([]*models.ProviderLog, error) {
	if err := validateVRM(vrm); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}
	if offset < 0 {
		return nil, services.ErrInvalidInput.Derive("offset cannot be negative", nil)
	}

	logs, err := s.providerLogs.ListByVRM(ctx, vrm, limit, offset)
	if err != nil {
		return nil, services.ErrDatabaseError.Derive("failed to list provider logs", err)
	}
	return logs, nil
}

// SummarizeProviderLogs aggregates provider calls made within the given window
func (s *ValuationService) SummarizeProviderLogs(ctx context.Context, window time.Duration) ([]*models.ProviderSummary, error) {
	if window <= 0 {
		return nil, services.ErrInvalidInput.Derive("summary window must be positive", nil)
	}

	summaries, err := s.providerLogs.Summarize(ctx, s.clock.Now().Add(-window))
	if err != nil {
		return nil, services.ErrDatabaseError.Derive("failed to summarize provider logs", err)
	}
	return summaries, nil
}

func validateVRM(vrm string) error {
	if vrm == "" {
		return services.ErrMissingVRM.Derive("", nil)
	}
	if utf8.RuneCountInString(vrm) > models.MaxVRMLength {
		return services.ErrInvalidVRM.Derive("", nil).WithDetail("vrm", vrm)
	}
	return nil
}
