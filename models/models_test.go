package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Valuation tests
func TestNewValuation(t *testing.T) {
	v := NewValuation("AB12CDE", decimal.NewFromInt(10000), decimal.NewFromInt(12000), "SuperCar Valuations")

	assert.Equal(t, "AB12CDE", v.VRM)
	assert.True(t, v.LowestValue.Equal(decimal.NewFromInt(10000)))
	assert.True(t, v.HighestValue.Equal(decimal.NewFromInt(12000)))
	assert.Equal(t, "SuperCar Valuations", v.Provider)
	assert.False(t, v.CreatedAt.IsZero())
}

func TestValuation_TableName(t *testing.T) {
	assert.Equal(t, "vehicle_valuations", Valuation{}.TableName())
}

func TestValuation_MidpointValue(t *testing.T) {
	tests := []struct {
		name    string
		lowest  string
		highest string
		want    string
	}{
		{"whole numbers", "10000", "12000", "11000"},
		{"odd sum keeps fraction", "22350", "24750", "23550"},
		{"pennies", "100.25", "200.50", "150.375"},
		{"zero range", "0", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Valuation{
				LowestValue:  decimal.RequireFromString(tt.lowest),
				HighestValue: decimal.RequireFromString(tt.highest),
			}
			assert.True(t, v.MidpointValue().Equal(decimal.RequireFromString(tt.want)),
				"got %s", v.MidpointValue())
		})
	}
}

func TestValuation_ToResponse(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	v := &Valuation{
		VRM:          "ABC123",
		LowestValue:  decimal.NewFromInt(1000),
		HighestValue: decimal.NewFromInt(3000),
		Provider:     "Premium Car Valuations",
		CreatedAt:    created,
	}

	data, err := json.Marshal(v.ToResponse())
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "ABC123", decoded["vrm"])
	assert.Equal(t, "1000", decoded["lowest_value"])
	assert.Equal(t, "3000", decoded["highest_value"])
	assert.Equal(t, "2000", decoded["midpoint_value"])
	assert.Equal(t, "Premium Car Valuations", decoded["provider"])
}

// ProviderLog tests
func TestNewProviderLog(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)

	log := NewProviderLog("AB12CDE", "SuperCar Valuations", start, end, 200)

	_, err := ulid.Parse(log.ID)
	require.NoError(t, err)
	assert.Equal(t, "AB12CDE", log.VRM)
	assert.Equal(t, "SuperCar Valuations", log.Provider)
	assert.Equal(t, "/valuations/AB12CDE", log.RequestURL)
	assert.Equal(t, start, log.RequestTime)
	assert.Equal(t, int64(1500), log.RequestDuration)
	assert.Equal(t, 1500*time.Millisecond, log.Duration())
	assert.Equal(t, 200, log.ResponseCode)
	assert.Nil(t, log.ErrorMessage)
	assert.False(t, log.Failed())
}

func TestProviderLog_IDsAreUnique(t *testing.T) {
	now := time.Now()
	a := NewProviderLog("A", "p", now, now, 200)
	b := NewProviderLog("A", "p", now, now, 200)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestProviderLog_WithError(t *testing.T) {
	now := time.Now()

	log := NewProviderLog("AB12CDE", "Premium Car Valuations", now, now, 503).WithError("connection refused")
	require.NotNil(t, log.ErrorMessage)
	assert.Equal(t, "connection refused", *log.ErrorMessage)
	assert.True(t, log.Failed())

	empty := NewProviderLog("AB12CDE", "Premium Car Valuations", now, now, 200).WithError("")
	assert.Nil(t, empty.ErrorMessage)
}

func TestProviderLog_TableName(t *testing.T) {
	assert.Equal(t, "provider_logs", ProviderLog{}.TableName())
}

func TestProviderLog_JSONOmitsEmptyError(t *testing.T) {
	now := time.Now()
	data, err := json.Marshal(NewProviderLog("AB12CDE", "p", now, now, 200))
	require.NoError(t, err)

	assert.NotContains(t, string(data), "error_message")
	assert.Contains(t, string(data), `"request_duration_ms":0`)
}

func TestProviderSummary_FailureRate(t *testing.T) {
	assert.Zero(t, ProviderSummary{}.FailureRate())
	assert.InDelta(t, 0.25, ProviderSummary{TotalRequests: 8, FailedRequests: 2}.FailureRate(), 1e-9)
}
