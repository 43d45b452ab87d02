package failover

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultThreshold is the failure rate above which traffic moves to the secondary provider
	DefaultThreshold = 0.5

	// DefaultDuration is how long failover stays active once tripped
	DefaultDuration = 5 * time.Minute
)

// Config holds the immutable tracker settings
type Config struct {
	// Threshold is a failure rate in [0,1]. Failover trips when the rate is strictly greater.
	Threshold float64

	// Duration is the cooldown during which failover stays active regardless of outcomes
	Duration time.Duration
}

// DefaultConfig returns the default tracker configuration
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Duration:  DefaultDuration,
	}
}

// Tracker decides whether requests should bypass the primary provider.
//
// Counters are cumulative since the last reset. Once the failure rate exceeds
// the threshold the tracker latches into failover for Duration, after which the
// next ShouldFailover call resets it. Expiry is evaluated lazily on read; there
// is no background timer.
type Tracker struct {
	mu sync.Mutex

	totalRequests  uint64
	failedRequests uint64
	active         bool
	startedAt      *time.Time

	threshold float64
	duration  time.Duration

	clock  Clock
	logger *zap.Logger
}

// NewTracker creates a tracker for one primary/secondary provider pair
func NewTracker(cfg Config, clock Clock, logger *zap.Logger) *Tracker {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Duration < 0 {
		cfg.Duration = 0
	}
	// NaN compares false against any rate and would never trip
	if math.IsNaN(cfg.Threshold) {
		cfg.Threshold = DefaultThreshold
	}

	return &Tracker{
		threshold: cfg.Threshold,
		duration:  cfg.Duration,
		clock:     clock,
		logger:    logger,
	}
}

// Record registers the outcome of a primary provider call
func (t *Tracker) Record(success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalRequests++
	if !success {
		t.failedRequests++
	}

	if !t.active && t.thresholdExceeded() {
		now := t.clock.Now()
		t.active = true
		t.startedAt = &now

		t.logger.Warn("failover activated, routing to secondary provider",
			zap.Uint64("total_requests", t.totalRequests),
			zap.Uint64("failed_requests", t.failedRequests),
			zap.Float64("threshold", t.threshold),
			zap.Duration("duration", t.duration))
	}
}

// ShouldFailover reports whether the next request should use the secondary provider
func (t *Tracker) ShouldFailover() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		var elapsed time.Duration
		if t.startedAt != nil {
			elapsed = t.clock.Now().Sub(*t.startedAt)
		}
		if elapsed > t.duration {
			t.logger.Info("failover period expired, resetting failure tracker",
				zap.Duration("elapsed", elapsed))
			t.reset()
			return false
		}
		return true
	}

	return t.thresholdExceeded()
}

// Reset clears counters and any active failover
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reset()
}

// Snapshot returns a copy of the current tracker state. It does not evaluate expiry.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		TotalRequests:  t.totalRequests,
		FailedRequests: t.failedRequests,
		Active:         t.active,
		Threshold:      t.threshold,
		Duration:       t.duration,
		DurationMs:     t.duration.Milliseconds(),
		FailureRate:    t.failureRate(),
	}
	if t.startedAt != nil {
		started := *t.startedAt
		expires := started.Add(t.duration)
		s.StartedAt = &started
		s.ExpiresAt = &expires
	}
	return s
}

func (t *Tracker) reset() {
	t.totalRequests = 0
	t.failedRequests = 0
	t.active = false
	t.startedAt = nil
}

// thresholdExceeded must be called with mu held
func (t *Tracker) thresholdExceeded() bool {
	return t.totalRequests > 0 && t.failureRate() > t.threshold
}

func (t *Tracker) failureRate() float64 {
	if t.totalRequests == 0 {
		return 0
	}
	return float64(t.failedRequests) / float64(t.totalRequests)
}

// Snapshot is a point-in-time view of a Tracker
type Snapshot struct {
	TotalRequests  uint64        `json:"total_requests"`
	FailedRequests uint64        `json:"failed_requests"`
	FailureRate    float64       `json:"failure_rate"`
	Active         bool          `json:"active"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	ExpiresAt      *time.Time    `json:"expires_at,omitempty"`
	Threshold      float64       `json:"threshold"`
	DurationMs     int64         `json:"duration_ms"`
	Duration       time.Duration `json:"-"`
}
