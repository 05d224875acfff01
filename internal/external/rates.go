package external

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/pricing"
)

// RatesClient reads EUR-based exchange rates from a Frankfurter-compatible API.
type RatesClient struct {
	t       transport
	baseURL string
}

// NewRatesClient creates a client for baseURL. If httpClient is nil a client
// with the given timeout is used.
func NewRatesClient(baseURL string, httpClient *http.Client, timeout time.Duration) *RatesClient {
	return &RatesClient{t: newTransport(httpClient, timeout), baseURL: strings.TrimRight(baseURL, "/")}
}

type latestResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// Latest returns the current USD and CHF rates relative to EUR. Any failure,
// including a missing or non-positive rate, is an upstream error.
func (c *RatesClient) Latest(ctx context.Context) (pricing.Rates, error) {
	var body latestResponse
	err := c.t.do(ctx, request{
		Method:     http.MethodGet,
		Endpoint:   c.baseURL + "/latest?symbols=USD,CHF",
		Idempotent: true,
	}, &body)
	if err != nil {
		return nil, apperr.Upstream(apperr.ReasonRateFetchFailed, "failed to fetch exchange rates", err)
	}

	rates := pricing.Rates{}
	for _, c := range pricing.Currencies {
		if c == pricing.EUR {
			continue
		}
		r, ok := body.Rates[string(c)]
		if !ok || r <= 0 {
			return nil, apperr.Upstream(apperr.ReasonRateFetchFailed, "failed to fetch exchange rates",
				fmt.Errorf("rate for %s missing or invalid: %v", c, r))
		}
		rates[c] = r
	}
	return rates, nil
}
