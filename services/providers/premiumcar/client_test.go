package premiumcar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/upb/vehicle-valuation/services/providers"
)

const sampleResponse = `<?xml version="1.0" encoding="UTF-8"?>
<root>
	<RegistrationDate>2012-06-14T00:00:00.0000000</RegistrationDate>
	<RegistrationYear>2012</RegistrationYear>
	<RegistrationMonth>08</RegistrationMonth>
	<ValuationPrivateSaleMinimum>11500</ValuationPrivateSaleMinimum>
	<ValuationPrivateSaleMaximum>12750.25</ValuationPrivateSaleMaximum>
	<ValuationDealershipMinimum>9500</ValuationDealershipMinimum>
	<ValuationDealershipMaximum>10275</ValuationDealershipMaximum>
</root>`

func TestNewClient(t *testing.T) {
	client := NewClient(providers.ProviderConfig{BaseURL: "http://premium.test"})

	if client.Name() != "Premium Car Valuations" {
		t.Errorf("Name() = %s, want Premium Car Valuations", client.Name())
	}
}

func TestClient_FetchValuation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/valueCar" {
			t.Errorf("Expected path /valueCar, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("vrm"); got != "AB12CDE" {
			t.Errorf("vrm = %s, want AB12CDE", got)
		}
		if r.URL.Query().Has("mileage") {
			t.Error("mileage should not be sent")
		}
		if r.Header.Get("Accept") != "application/xml" {
			t.Errorf("Accept = %s, want application/xml", r.Header.Get("Accept"))
		}

		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := NewClient(providers.ProviderConfig{BaseURL: server.URL})
	v, err := client.FetchValuation(context.Background(), providers.ValuationRequest{VRM: "AB12CDE", Mileage: 45000})
	if err != nil {
		t.Fatalf("FetchValuation() error = %v", err)
	}

	if !v.LowestValue.Equal(decimal.NewFromInt(11500)) {
		t.Errorf("LowestValue = %s, want 11500", v.LowestValue)
	}
	if !v.HighestValue.Equal(decimal.RequireFromString("12750.25")) {
		t.Errorf("HighestValue = %s, want 12750.25", v.HighestValue)
	}
	if v.Provider != ProviderName {
		t.Errorf("Provider = %s, want %s", v.Provider, ProviderName)
	}
}

func TestClient_FetchValuation_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{
			name:     "service unavailable",
			status:   http.StatusServiceUnavailable,
			body:     "",
			wantCode: providers.CodeUpstreamStatus,
		},
		{
			name:     "not xml",
			status:   http.StatusOK,
			body:     `{"json":"instead"}`,
			wantCode: providers.CodeDecodeError,
		},
		{
			name:     "missing minimum",
			status:   http.StatusOK,
			body:     `<root><ValuationPrivateSaleMaximum>100</ValuationPrivateSaleMaximum></root>`,
			wantCode: providers.CodeMissingData,
		},
		{
			name:     "negative maximum",
			status:   http.StatusOK,
			body:     `<root><ValuationPrivateSaleMinimum>-10</ValuationPrivateSaleMinimum><ValuationPrivateSaleMaximum>-5</ValuationPrivateSaleMaximum></root>`,
			wantCode: providers.CodeMissingData,
		},
		{
			name:     "minimum above maximum",
			status:   http.StatusOK,
			body:     `<root><ValuationPrivateSaleMinimum>12750</ValuationPrivateSaleMinimum><ValuationPrivateSaleMaximum>11500</ValuationPrivateSaleMaximum></root>`,
			wantCode: providers.CodeMissingData,
		},
		{
			name:     "non numeric maximum",
			status:   http.StatusOK,
			body:     `<root><ValuationPrivateSaleMinimum>100</ValuationPrivateSaleMinimum><ValuationPrivateSaleMaximum>lots</ValuationPrivateSaleMaximum></root>`,
			wantCode: providers.CodeMissingData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(providers.ProviderConfig{BaseURL: server.URL})
			_, err := client.FetchValuation(context.Background(), providers.ValuationRequest{VRM: "AB12CDE"})

			provErr, ok := providers.AsProviderError(err)
			if !ok {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if provErr.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", provErr.Code, tt.wantCode)
			}
		})
	}
}
