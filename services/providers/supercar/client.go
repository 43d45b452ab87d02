package supercar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/upb/vehicle-valuation/models"
	"github.com/upb/vehicle-valuation/services/providers"
)

// ProviderName is recorded on every valuation this client returns
const ProviderName = "SuperCar Valuations"

// Client implements the Provider interface for the SuperCar Valuations JSON API
type Client struct {
	config     providers.ProviderConfig
	httpClient *http.Client
}

// NewClient creates a new SuperCar client
func NewClient(config providers.ProviderConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = providers.DefaultProviderConfig().Timeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (c *Client) Name() string {
	return ProviderName
}

// FetchValuation calls GET {base}/valuations/{vrm}?mileage=N
func (c *Client) FetchValuation(ctx context.Context, req providers.ValuationRequest) (*models.Valuation, error) {
	endpoint := fmt.Sprintf("%s/valuations/%s?%s",
		c.config.BaseURL,
		url.PathEscape(req.VRM),
		url.Values{"mileage": []string{strconv.Itoa(req.Mileage)}}.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, c.fail(req.VRM, providers.CodeRequestError, "failed to create request", 0, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.fail(req.VRM, providers.CodeHTTPError, "HTTP request failed", 0, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.fail(req.VRM, providers.CodeReadError, "failed to read response", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, c.fail(req.VRM, providers.CodeUpstreamStatus,
			fmt.Sprintf("unexpected status %d", httpResp.StatusCode), httpResp.StatusCode, nil)
	}

	var resp ValuationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, c.fail(req.VRM, providers.CodeDecodeError, "failed to unmarshal response", httpResp.StatusCode, err)
	}
	if resp.Valuation == nil {
		return nil, c.fail(req.VRM, providers.CodeMissingData, "valuation data missing from response", httpResp.StatusCode, nil)
	}
	if err := providers.CheckRange(resp.Valuation.LowerValue, resp.Valuation.UpperValue); err != nil {
		return nil, c.fail(req.VRM, providers.CodeMissingData, "invalid valuation range", httpResp.StatusCode, err)
	}

	return &models.Valuation{
		VRM:          req.VRM,
		LowestValue:  resp.Valuation.LowerValue,
		HighestValue: resp.Valuation.UpperValue,
		Provider:     ProviderName,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (c *Client) fail(vrm, code, message string, status int, cause error) error {
	return providers.NewProviderError(ProviderName, code,
		fmt.Sprintf("failed to fetch valuation from SuperCar API for VRM %s: %s", vrm, message),
		status, cause)
}

// ValuationResponse is the SuperCar API response body
type ValuationResponse struct {
	VIN              string          `json:"vin"`
	RegistrationDate string          `json:"registrationDate"`
	Plate            *Plate          `json:"plate,omitempty"`
	Valuation        *ValuationRange `json:"valuation"`
}

// Plate describes the registration plate period
type Plate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// ValuationRange is the value band the API returns
type ValuationRange struct {
	LowerValue decimal.Decimal `json:"lowerValue"`
	UpperValue decimal.Decimal `json:"upperValue"`
}
