package external

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-booking/internal/apperr"
)

// StatusCompleted is the capture status of a paid order.
const StatusCompleted = "COMPLETED"

// statusNotApproved is reported when the buyer has not approved the order yet.
const statusNotApproved = "NOT_APPROVED"

// Order is a request to charge one ticket.
type Order struct {
	Currency  string
	Amount    float64
	ReturnURL string
	CancelURL string
	Reference string
}

// OrderDetails is what the provider holds for an existing order.
type OrderDetails struct {
	ID        string
	Status    string
	Reference string
	Currency  string
	Amount    float64
}

// OrderRef identifies an order awaiting buyer approval.
type OrderRef struct {
	ID         string
	Status     string
	ApproveURL string
}

// PaymentClient talks to a PayPal-compatible checkout API.
type PaymentClient struct {
	t        transport
	baseURL  string
	clientID string
	secret   string

	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

func NewPaymentClient(baseURL, clientID, secret string, httpClient *http.Client, timeout time.Duration) *PaymentClient {
	return &PaymentClient{
		t:        newTransport(httpClient, timeout),
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		secret:   secret,
		now:      time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached bearer token, fetching a new one a minute
// before expiry.
func (c *PaymentClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	creds := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.secret))
	var body tokenResponse
	err := c.t.do(ctx, request{
		Method:     http.MethodPost,
		Endpoint:   c.baseURL + "/v1/oauth2/token",
		Header:     http.Header{"Authorization": {"Basic " + creds}},
		Form:       url.Values{"grant_type": {"client_credentials"}}.Encode(),
		Idempotent: true,
	}, &body)
	if err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}
	c.token = body.AccessToken
	c.expires = c.now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	ReferenceID string `json:"reference_id,omitempty"`
	Amount      amount `json:"amount"`
}

type createOrderBody struct {
	Intent             string         `json:"intent"`
	PurchaseUnits      []purchaseUnit `json:"purchase_units"`
	ApplicationContext struct {
		ReturnURL string `json:"return_url,omitempty"`
		CancelURL string `json:"cancel_url,omitempty"`
	} `json:"application_context"`
}

type orderResponse struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
	Links         []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (c *PaymentClient) authHeader(ctx context.Context, requestID string) (http.Header, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	return http.Header{
		"Authorization":     {"Bearer " + tok},
		"Paypal-Request-Id": {requestID},
	}, nil
}

// CreateOrder opens a CAPTURE order and returns its approval link.
func (c *PaymentClient) CreateOrder(ctx context.Context, o Order) (OrderRef, error) {
	h, err := c.authHeader(ctx, uuid.NewString())
	if err != nil {
		return OrderRef{}, paymentErr(err)
	}

	var body createOrderBody
	body.Intent = "CAPTURE"
	body.PurchaseUnits = []purchaseUnit{{
		ReferenceID: o.Reference,
		Amount:      amount{CurrencyCode: o.Currency, Value: strconv.FormatFloat(o.Amount, 'f', 2, 64)},
	}}
	body.ApplicationContext.ReturnURL = o.ReturnURL
	body.ApplicationContext.CancelURL = o.CancelURL

	var res orderResponse
	err = c.t.do(ctx, request{
		Method:     http.MethodPost,
		Endpoint:   c.baseURL + "/v2/checkout/orders",
		Header:     h,
		Body:       body,
		Idempotent: true,
	}, &res)
	if err != nil {
		return OrderRef{}, paymentErr(err)
	}

	ref := OrderRef{ID: res.ID, Status: res.Status}
	for _, l := range res.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			ref.ApproveURL = l.Href
			break
		}
	}
	if ref.ID == "" || ref.ApproveURL == "" {
		return OrderRef{}, paymentErr(fmt.Errorf("order response without id or approve link"))
	}
	return ref, nil
}

// GetOrder reads an order with its first purchase unit. An unknown order
// is a validation failure.
func (c *PaymentClient) GetOrder(ctx context.Context, orderID string) (OrderDetails, error) {
	h, err := c.authHeader(ctx, uuid.NewString())
	if err != nil {
		return OrderDetails{}, paymentErr(err)
	}
	var res orderResponse
	err = c.t.do(ctx, request{
		Method:     http.MethodGet,
		Endpoint:   c.baseURL + "/v2/checkout/orders/" + url.PathEscape(orderID),
		Header:     h,
		Idempotent: true,
	}, &res)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return OrderDetails{}, apperr.Validation(apperr.ReasonInvalidInput, "unknown payment order")
	}
	if err != nil {
		return OrderDetails{}, paymentErr(err)
	}
	if len(res.PurchaseUnits) == 0 {
		return OrderDetails{}, paymentErr(fmt.Errorf("order %s has no purchase unit", orderID))
	}
	pu := res.PurchaseUnits[0]
	value, err := strconv.ParseFloat(pu.Amount.Value, 64)
	if err != nil {
		return OrderDetails{}, paymentErr(fmt.Errorf("order %s amount %q: %w", orderID, pu.Amount.Value, err))
	}
	return OrderDetails{
		ID:        res.ID,
		Status:    res.Status,
		Reference: pu.ReferenceID,
		Currency:  pu.Amount.CurrencyCode,
		Amount:    value,
	}, nil
}

// Capture captures an approved order and returns the provider status.
func (c *PaymentClient) Capture(ctx context.Context, orderID string) (string, error) {
	h, err := c.authHeader(ctx, "capture-"+orderID)
	if err != nil {
		return "", paymentErr(err)
	}
	var res orderResponse
	err = c.t.do(ctx, request{
		Method:     http.MethodPost,
		Endpoint:   c.baseURL + "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture",
		Header:     h,
		Body:       struct{}{},
		Idempotent: true,
	}, &res)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
		return statusNotApproved, nil
	}
	if err != nil {
		return "", paymentErr(err)
	}
	return res.Status, nil
}

func paymentErr(err error) error {
	return apperr.Upstream(apperr.ReasonPaymentFailed, "payment provider request failed", err)
}
