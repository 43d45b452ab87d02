package premiumcar

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/upb/vehicle-valuation/models"
	"github.com/upb/vehicle-valuation/services/providers"
)

// ProviderName is recorded on every valuation this client returns
const ProviderName = "Premium Car Valuations"

// Client implements the Provider interface for the Premium Car Valuations XML API.
// The API prices on registration alone, so mileage is not sent.
type Client struct {
	config     providers.ProviderConfig
	httpClient *http.Client
}

// NewClient creates a new Premium Car client
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

// FetchValuation calls GET {base}/valueCar?vrm=X
func (c *Client) FetchValuation(ctx context.Context, req providers.ValuationRequest) (*models.Valuation, error) {
	endpoint := c.config.BaseURL + "/valueCar?" + url.Values{"vrm": []string{req.VRM}}.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, c.fail(req.VRM, providers.CodeRequestError, "failed to create request", 0, err)
	}
	httpReq.Header.Set("Accept", "application/xml")
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
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, c.fail(req.VRM, providers.CodeDecodeError, "failed to unmarshal response", httpResp.StatusCode, err)
	}

	lowest, err := parseAmount(resp.PrivateSaleMinimum)
	if err != nil {
		return nil, c.fail(req.VRM, providers.CodeMissingData, "invalid ValuationPrivateSaleMinimum", httpResp.StatusCode, err)
	}
	highest, err := parseAmount(resp.PrivateSaleMaximum)
	if err != nil {
		return nil, c.fail(req.VRM, providers.CodeMissingData, "invalid ValuationPrivateSaleMaximum", httpResp.StatusCode, err)
	}
	if err := providers.CheckRange(lowest, highest); err != nil {
		return nil, c.fail(req.VRM, providers.CodeMissingData, "invalid private sale range", httpResp.StatusCode, err)
	}

	return &models.Valuation{
		VRM:          req.VRM,
		LowestValue:  lowest,
		HighestValue: highest,
		Provider:     ProviderName,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (c *Client) fail(vrm, code, message string, status int, cause error) error {
	return providers.NewProviderError(ProviderName, code,
		fmt.Sprintf("failed to fetch valuation from Premium Car Valuations API for VRM %s: %s", vrm, message),
		status, cause)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	return decimal.NewFromString(raw)
}

// ValuationResponse is the Premium Car API response body
type ValuationResponse struct {
	XMLName            xml.Name `xml:"root"`
	RegistrationDate   string   `xml:"RegistrationDate"`
	RegistrationYear   string   `xml:"RegistrationYear"`
	RegistrationMonth  string   `xml:"RegistrationMonth"`
	PrivateSaleMinimum string   `xml:"ValuationPrivateSaleMinimum"`
	PrivateSaleMaximum string   `xml:"ValuationPrivateSaleMaximum"`
	DealershipMinimum  string   `xml:"ValuationDealershipMinimum"`
	DealershipMaximum  string   `xml:"ValuationDealershipMaximum"`
}
