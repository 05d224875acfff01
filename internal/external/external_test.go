package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/pricing"
)

func fastRetries(t *transport) {
	t.retryBase = time.Millisecond
	t.retryCap = 2 * time.Millisecond
}

func TestRatesLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "USD,CHF", r.URL.Query().Get("symbols"))
		_, _ = w.Write([]byte(`{"base":"EUR","date":"2030-05-10","rates":{"USD":1.08,"CHF":0.94}}`))
	}))
	defer srv.Close()

	rates, err := NewRatesClient(srv.URL+"/", srv.Client(), time.Second).Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.08, rates[pricing.USD])
	assert.Equal(t, 0.94, rates[pricing.CHF])
}

func TestRatesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad status", http.StatusBadRequest, `{}`},
		{"missing rate", http.StatusOK, `{"rates":{"USD":1.1}}`},
		{"zero rate", http.StatusOK, `{"rates":{"USD":0,"CHF":0.9}}`},
		{"garbage", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRatesClient(srv.URL, srv.Client(), time.Second).Latest(context.Background())
			require.Error(t, err)
			assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
			assert.Equal(t, apperr.ReasonRateFetchFailed, apperr.ReasonOf(err))
		})
	}
}

func TestRatesRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"rates":{"USD":1.1,"CHF":0.9}}`))
	}))
	defer srv.Close()

	c := NewRatesClient(srv.URL, srv.Client(), time.Second)
	fastRetries(&c.t)
	_, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

type countingSource struct {
	calls int
	rates pricing.Rates
}

func (s *countingSource) Latest(context.Context) (pricing.Rates, error) {
	s.calls++
	return s.rates, nil
}

func TestCachedRatesWithoutRedisPassesThrough(t *testing.T) {
	src := &countingSource{rates: pricing.Rates{pricing.USD: 1, pricing.CHF: 1}}
	c := NewCachedRates(src, nil, time.Minute)

	_, _ = c.Latest(context.Background())
	_, _ = c.Latest(context.Background())
	assert.Equal(t, 2, src.calls)
}

func paypalStub(t *testing.T, captureStatus int, captureBody string) (*httptest.Server, *int32) {
	t.Helper()
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Paypal-Request-Id"))
		var body createOrderBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CAPTURE", body.Intent)
		require.Len(t, body.PurchaseUnits, 1)
		assert.Equal(t, "CHF", body.PurchaseUnits[0].Amount.CurrencyCode)
		assert.Equal(t, "7.50", body.PurchaseUnits[0].Amount.Value)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"CREATED","links":[{"rel":"self","href":"x"},{"rel":"approve","href":"https://pay/approve"}]}`))
	})
	mux.HandleFunc("/v2/checkout/orders/ORDER-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"APPROVED","purchase_units":[{"reference_id":"screening-4-user-2","amount":{"currency_code":"CHF","value":"7.50"}}]}`))
	})
	mux.HandleFunc("/v2/checkout/orders/ORDER-2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"name":"RESOURCE_NOT_FOUND"}`))
	})
	mux.HandleFunc("/v2/checkout/orders/ORDER-1/capture", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(captureStatus)
		_, _ = w.Write([]byte(captureBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokenCalls
}

func TestPaymentCreateAndCapture(t *testing.T) {
	srv, tokenCalls := paypalStub(t, http.StatusCreated, `{"id":"ORDER-1","status":"COMPLETED"}`)
	c := NewPaymentClient(srv.URL, "id", "secret", srv.Client(), time.Second)

	ref, err := c.CreateOrder(context.Background(), Order{Currency: "CHF", Amount: 7.5, ReturnURL: "https://app/return"})
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", ref.ID)
	assert.Equal(t, "https://pay/approve", ref.ApproveURL)

	status, err := c.Capture(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status)
	assert.EqualValues(t, 1, atomic.LoadInt32(tokenCalls), "token is cached")
}

func TestPaymentCaptureNotApproved(t *testing.T) {
	srv, _ := paypalStub(t, http.StatusUnprocessableEntity, `{"name":"UNPROCESSABLE_ENTITY"}`)
	c := NewPaymentClient(srv.URL, "id", "secret", srv.Client(), time.Second)

	status, err := c.Capture(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.NotEqual(t, StatusCompleted, status)
}

func TestPaymentGetOrder(t *testing.T) {
	srv, _ := paypalStub(t, http.StatusCreated, `{}`)
	c := NewPaymentClient(srv.URL, "id", "secret", srv.Client(), time.Second)

	o, err := c.GetOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, OrderDetails{
		ID: "ORDER-1", Status: "APPROVED", Reference: "screening-4-user-2", Currency: "CHF", Amount: 7.5,
	}, o)

	_, err = c.GetOrder(context.Background(), "ORDER-2")
	assert.Equal(t, apperr.ReasonInvalidInput, apperr.ReasonOf(err))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPaymentProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewPaymentClient(srv.URL, "id", "secret", srv.Client(), time.Second)
	fastRetries(&c.t)
	_, err := c.CreateOrder(context.Background(), Order{Currency: "EUR", Amount: 1})
	assert.Equal(t, apperr.ReasonPaymentFailed, apperr.ReasonOf(err))
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
}
