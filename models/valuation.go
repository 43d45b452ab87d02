package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxVRMLength is the longest registration mark the service accepts
const MaxVRMLength = 7

var two = decimal.NewFromInt(2)

// Valuation represents the price range a provider returned for a vehicle
type Valuation struct {
	VRM          string          `json:"vrm" db:"vrm"`
	LowestValue  decimal.Decimal `json:"lowest_value" db:"lowest_value"`
	HighestValue decimal.Decimal `json:"highest_value" db:"highest_value"`
	Provider     string          `json:"provider" db:"provider"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Valuation model
func (Valuation) TableName() string {
	return "vehicle_valuations"
}

// NewValuation creates a new Valuation instance
func NewValuation(vrm string, lowest, highest decimal.Decimal, provider string) *Valuation {
	return &Valuation{
		VRM:          vrm,
		LowestValue:  lowest,
		HighestValue: highest,
		Provider:     provider,
		CreatedAt:    time.Now().UTC(),
	}
}

// MidpointValue is the average of the lowest and highest values
func (v *Valuation) MidpointValue() decimal.Decimal {
	return v.LowestValue.Add(v.HighestValue).Div(two)
}

// ValuationResponse is the API representation of a valuation
type ValuationResponse struct {
	VRM           string          `json:"vrm"`
	LowestValue   decimal.Decimal `json:"lowest_value"`
	HighestValue  decimal.Decimal `json:"highest_value"`
	MidpointValue decimal.Decimal `json:"midpoint_value"`
	Provider      string          `json:"provider"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToResponse converts the valuation to its API representation
func (v *Valuation) ToResponse() ValuationResponse {
	return ValuationResponse{
		VRM:           v.VRM,
		LowestValue:   v.LowestValue,
		HighestValue:  v.HighestValue,
		MidpointValue: v.MidpointValue(),
		Provider:      v.Provider,
		CreatedAt:     v.CreatedAt,
	}
}
