package models

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// ProviderLog is an append-only audit record of one valuation provider call
type ProviderLog struct {
	ID              string    `json:"id" db:"id"` // ULID, sorts by creation time
	VRM             string    `json:"vrm" db:"vrm"`
	Provider        string    `json:"provider" db:"provider"`
	RequestURL      string    `json:"request_url" db:"request_url"`
	RequestTime     time.Time `json:"request_time" db:"request_time"`
	RequestDuration int64     `json:"request_duration_ms" db:"request_duration_ms"`
	ResponseCode    int       `json:"response_code" db:"response_code"`
	ErrorMessage    *string   `json:"error_message,omitempty" db:"error_message"`
}

// TableName returns the table name for the ProviderLog model
func (ProviderLog) TableName() string {
	return "provider_logs"
}

// NewProviderLog creates a log entry for a call that started at requestTime and
// finished at endTime
func NewProviderLog(vrm, provider string, requestTime, endTime time.Time, responseCode int) *ProviderLog {
	return &ProviderLog{
		ID:              ulid.Make().String(),
		VRM:             vrm,
		Provider:        provider,
		RequestURL:      "/valuations/" + vrm,
		RequestTime:     requestTime,
		RequestDuration: endTime.Sub(requestTime).Milliseconds(),
		ResponseCode:    responseCode,
	}
}

// WithError sets the error message. Empty messages are ignored.
func (l *ProviderLog) WithError(message string) *ProviderLog {
	if message != "" {
		l.ErrorMessage = &message
	}
	return l
}

// Duration returns the request duration
func (l *ProviderLog) Duration() time.Duration {
	return time.Duration(l.RequestDuration) * time.Millisecond
}

// Failed reports whether the call did not end in a 2xx response
func (l *ProviderLog) Failed() bool {
	return l.ResponseCode < 200 || l.ResponseCode > 299
}

// ProviderSummary aggregates provider logs for one provider
type ProviderSummary struct {
	Provider       string  `json:"provider"`
	TotalRequests  int64   `json:"total_requests"`
	FailedRequests int64   `json:"failed_requests"`
	AvgDurationMs  float64 `json:"avg_duration_ms"`
}

// FailureRate returns failed/total, or 0 when there were no requests
func (s ProviderSummary) FailureRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.FailedRequests) / float64(s.TotalRequests)
}
