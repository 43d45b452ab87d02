package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/vehicle-valuation/config"
	"github.com/upb/vehicle-valuation/repositories"
	"github.com/upb/vehicle-valuation/repositories/database"
	"github.com/upb/vehicle-valuation/services/events"
	"github.com/upb/vehicle-valuation/services/failover"
	"github.com/upb/vehicle-valuation/services/providers"
	"github.com/upb/vehicle-valuation/services/providers/premiumcar"
	"github.com/upb/vehicle-valuation/services/providers/supercar"
	"github.com/upb/vehicle-valuation/services/valuation"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *database.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *database.RepositoryFactory

	// Repositories
	Repositories *repositories.Repositories

	// Providers and failover
	Providers providers.Pair
	Tracker   *failover.Tracker

	Cache     *valuation.Cache
	Publisher events.Publisher

	ValuationService *valuation.ValuationService

	stopCleanup chan struct{}
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize the valuation store
	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initProviders(cfg); err != nil {
		deps.closeQuietly(ctx)
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	deps.initFailover(cfg)
	deps.initCache(cfg)

	if err := deps.initEvents(cfg); err != nil {
		deps.closeQuietly(ctx)
		return nil, fmt.Errorf("failed to initialize events: %w", err)
	}

	deps.initValuationService()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase opens the connection pool and applies the schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := database.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.InitSchema(ctx); err != nil {
		_ = factory.Close()
		d.RepoFactory = nil
		d.DB = nil
		return err
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.Repositories = d.RepoFactory.NewRepositories()
	d.Logger.Info("repositories initialized")
}

// initProviders builds the primary/secondary provider pair
func (d *Dependencies) initProviders(cfg *config.Config) error {
	primary := supercar.NewClient(providerConfig(cfg.Providers.SuperCar))
	secondary := premiumcar.NewClient(providerConfig(cfg.Providers.PremiumCar))

	pair, err := providers.NewPair(primary, secondary)
	if err != nil {
		return err
	}
	d.Providers = pair

	d.Logger.Info("valuation providers configured",
		zap.String("primary", primary.Name()),
		zap.String("secondary", secondary.Name()))
	return nil
}

func providerConfig(endpoint config.ProviderEndpoint) providers.ProviderConfig {
	pc := providers.DefaultProviderConfig()
	pc.BaseURL = endpoint.BaseURL
	if endpoint.Timeout > 0 {
		pc.Timeout = endpoint.Timeout
	}
	return pc
}

// initFailover creates the single tracker guarding the provider pair
func (d *Dependencies) initFailover(cfg *config.Config) {
	d.Tracker = failover.NewTracker(failover.Config{
		Threshold: cfg.Failover.Threshold,
		Duration:  cfg.Failover.Duration(),
	}, failover.SystemClock{}, d.Logger)

	d.Logger.Info("failover tracker initialized",
		zap.Float64("threshold", cfg.Failover.Threshold),
		zap.Duration("duration", cfg.Failover.Duration()))
}

// initCache sets up the read-through valuation cache and its expiry worker
func (d *Dependencies) initCache(cfg *config.Config) {
	if !cfg.Cache.Enabled() {
		d.Logger.Info("valuation cache disabled")
		return
	}

	d.Cache = valuation.NewCache(cfg.Cache.Size, cfg.Cache.TTL)
	d.stopCleanup = make(chan struct{})
	go d.Cache.StartCleanupWorker(cfg.Cache.TTL, d.stopCleanup)

	d.Logger.Info("valuation cache initialized",
		zap.Int("size", cfg.Cache.Size),
		zap.Duration("ttl", cfg.Cache.TTL))
}

// initEvents connects to NATS when configured
func (d *Dependencies) initEvents(cfg *config.Config) error {
	if cfg.Events.NATSURL == "" {
		d.Publisher = events.NopPublisher{}
		d.Logger.Info("event publishing disabled")
		return nil
	}

	publisher, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, d.Logger)
	if err != nil {
		return err
	}
	d.Publisher = publisher
	return nil
}

func (d *Dependencies) initValuationService() {
	d.ValuationService = valuation.NewValuationService(
		d.Providers,
		d.Tracker,
		d.Repositories,
		d.Cache,
		d.Publisher,
		failover.SystemClock{},
		d.Logger,
	)
}

func (d *Dependencies) closeQuietly(ctx context.Context) {
	if err := d.Close(ctx); err != nil {
		d.Logger.Warn("cleanup after failed initialization", zap.Error(err))
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.stopCleanup != nil {
		close(d.stopCleanup)
		d.stopCleanup = nil
	}

	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event publisher: %w", err))
		}
		d.Publisher = nil
	}

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	// Sync logger
	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %w", errors.Join(errs...))
	}

	return nil
}
