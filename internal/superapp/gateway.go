// Package superapp is the client for the SuperApp merchant payment API.
//
// Every request is signed: the gateway builds the JSON body, has the
// signature engine produce the Authorization header over the exact body
// bytes, and posts them unmodified. There is no unsigned-request path - if
// signing fails the call fails.
package superapp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/khomabhena/h5-airtime/internal/faults"
	"github.com/khomabhena/h5-airtime/internal/signature"
)

const (
	placeOrderPath  = "/v1/pay/pre-transaction/order/place"
	queryResultPath = "/v1/pay/transaction/result"

	paymentProduct = "InAppH5"
)

// SupportedCurrencies is the allow-list for order placement.
var SupportedCurrencies = []string{"USD", "EUR", "GBP", "ZWL"}

// Config holds the gateway settings.
type Config struct {
	BaseURL     string
	NotifyURL   string
	RedirectURL string
	OrderExpiry time.Duration
	HTTPTimeout time.Duration
}

// Gateway orchestrates order placement and status queries against the
// merchant payment backend.
//
// A Gateway owns the session's order history and "active order" slot.
// Construct one per session; concurrent payment attempts on the same Gateway
// each get their own order, but the active slot is last-writer-wins (the slot
// answers "what did this session most recently pay for", not "what is attempt
// N doing").
type Gateway struct {
	engine *signature.Engine
	client *resty.Client
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	history []Order
	active  *Order
}

// OrderRequest is the caller's order intent.
type OrderRequest struct {
	// OutBizID is optional; a fresh idempotency key is generated when empty.
	OutBizID string `json:"outBizId,omitempty"`

	// Amount in integer minor units; must be positive.
	Amount int64 `json:"amount"`

	Currency     string `json:"currency"`
	Description  string `json:"description"`
	CallbackInfo string `json:"callbackInfo,omitempty"`

	// TimeExpire is optional epoch milliseconds; defaults to now+OrderExpiry.
	TimeExpire int64 `json:"timeExpire,omitempty"`

	NotifyURL   string `json:"notifyUrl,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// PlaceOrderBody is the wire body for the order placement endpoint.
type PlaceOrderBody struct {
	MchID          string `json:"mchId"`
	AppID          string `json:"appId"`
	OutBizID       string `json:"outBizId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`
	TimeExpire     int64  `json:"timeExpire"`
	CallbackInfo   string `json:"callbackInfo"`
	PaymentProduct string `json:"paymentProduct"`
	NotifyURL      string `json:"notifyUrl,omitempty"`
	RedirectURL    string `json:"redirectUrl,omitempty"`
}

// placeOrderResponse is the decoded order placement response.
type placeOrderResponse struct {
	PrepayID string `json:"prepayId"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// PrepareResult is returned by PreparePayment: everything the cashier step
// needs.
type PrepareResult struct {
	PrepayID      string                  `json:"prepayId"`
	OutBizID      string                  `json:"outBizId"`
	PaymentParams signature.PaymentParams `json:"paymentParams"`
	OrderData     PlaceOrderBody          `json:"orderData"`
}

// NewGateway creates a Gateway signing with the given engine.
func NewGateway(engine *signature.Engine, cfg Config, logger *slog.Logger) *Gateway {
	if cfg.OrderExpiry <= 0 {
		cfg.OrderExpiry = 30 * time.Minute
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json")
	if cfg.HTTPTimeout > 0 {
		client.SetTimeout(cfg.HTTPTimeout)
	}

	return &Gateway{
		engine: engine,
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// validateOrderRequest enforces the order placement preconditions.
func validateOrderRequest(req OrderRequest) error {
	if req.Amount <= 0 {
		return faults.NewValidationError("Valid amount is required")
	}
	if req.Currency == "" {
		return faults.NewValidationError("Currency is required")
	}
	supported := false
	for _, c := range SupportedCurrencies {
		if req.Currency == c {
			supported = true
			break
		}
	}
	if !supported {
		return faults.NewValidationError(
			fmt.Sprintf("Invalid currency. Supported: %s", strings.Join(SupportedCurrencies, ", ")))
	}
	if req.Description == "" {
		return faults.NewValidationError("Description is required")
	}
	return nil
}

// PreparePayment validates the order intent, places the order with the
// backend and derives the signed cashier parameters for the returned
// prepayId. The new order is recorded in the session history and as the
// active order.
func (g *Gateway) PreparePayment(ctx context.Context, req OrderRequest) (*PrepareResult, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	if req.OutBizID == "" {
		req.OutBizID = GenerateOrderID("ORDER-")
	}
	if req.TimeExpire == 0 {
		req.TimeExpire = ExpiryTime(g.cfg.OrderExpiry)
	}

	creds := g.engine.Credentials()
	body := PlaceOrderBody{
		MchID:          creds.MerchantID,
		AppID:          creds.AppID,
		OutBizID:       req.OutBizID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Description:    req.Description,
		TimeExpire:     req.TimeExpire,
		CallbackInfo:   req.CallbackInfo,
		PaymentProduct: paymentProduct,
	}
	if req.NotifyURL != "" {
		body.NotifyURL = req.NotifyURL
	} else if g.cfg.NotifyURL != "" {
		body.NotifyURL = g.cfg.NotifyURL
	}
	if req.RedirectURL != "" {
		body.RedirectURL = req.RedirectURL
	} else if g.cfg.RedirectURL != "" {
		body.RedirectURL = g.cfg.RedirectURL
	}

	var decoded placeOrderResponse
	raw, err := g.post(ctx, placeOrderPath, body, &decoded)
	if err != nil {
		return nil, err
	}

	if decoded.PrepayID == "" {
		return nil, faults.NewAPIError(fmt.Sprintf("order placement rejected: %s", raw))
	}

	paymentParams, err := g.engine.GeneratePaymentSignature(decoded.PrepayID)
	if err != nil {
		return nil, err
	}

	order := Order{
		OutBizID:    body.OutBizID,
		PrepayID:    decoded.PrepayID,
		Amount:      body.Amount,
		Currency:    body.Currency,
		Description: body.Description,
		TimeExpire:  body.TimeExpire,
		Status:      StatusPrepared,
		CreatedAt:   time.Now(),
	}

	g.mu.Lock()
	g.history = append(g.history, order)
	g.active = &order
	g.mu.Unlock()

	g.logger.Info("order prepared",
		slog.String("outBizId", order.OutBizID),
		slog.String("prepayId", order.PrepayID),
		slog.Int64("amount", order.Amount),
		slog.String("currency", order.Currency),
	)

	return &PrepareResult{
		PrepayID:      decoded.PrepayID,
		OutBizID:      body.OutBizID,
		PaymentParams: paymentParams,
		OrderData:     body,
	}, nil
}

// QueryPaymentResult signs and posts a status query for outBizId and returns
// the decoded status payload. If the active order matches, its cached status
// snapshot is updated.
func (g *Gateway) QueryPaymentResult(ctx context.Context, outBizID string) (QueryResult, error) {
	if outBizID == "" {
		return nil, faults.NewValidationError("outBizId is required")
	}

	var result QueryResult
	if _, err := g.post(ctx, queryResultPath, map[string]string{"outBizId": outBizID}, &result); err != nil {
		return nil, err
	}

	g.mu.Lock()
	if g.active != nil && g.active.OutBizID == outBizID {
		g.active.LastQuery = result
		g.active.QueriedAt = time.Now()
	}
	g.mu.Unlock()

	return result, nil
}

// post signs body with the engine, sends it, and decodes a 2xx response into
// out. Returns the raw response text alongside.
func (g *Gateway) post(ctx context.Context, path string, body any, out any) (string, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", faults.WrapInternalError(err, "failed to encode request body")
	}

	// sign the exact bytes that go on the wire
	authHeader, err := g.engine.BuildAuthorizationHeader(http.MethodPost, g.cfg.BaseURL+path, string(bodyBytes))
	if err != nil {
		return "", err
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Authorization", authHeader).
		SetBody(bodyBytes).
		Post(path)
	if err != nil {
		return "", faults.WrapNetworkError(err, fmt.Sprintf("request to %s failed", path))
	}

	raw := string(resp.Body())
	if resp.IsError() {
		return raw, faults.NewAPIError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), raw))
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return raw, faults.WrapAPIError(err, fmt.Sprintf("failed to decode response from %s", path))
		}
	}
	return raw, nil
}

// TransitionOrder moves the order identified by outBizId to the given status,
// enforcing Prepared -> Processing -> {Completed | Failed}.
func (g *Gateway) TransitionOrder(outBizID string, to OrderStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	order := g.findLocked(outBizID)
	if order == nil {
		return faults.NewValidationError(fmt.Sprintf("unknown order %s", outBizID))
	}
	if !order.Status.canTransitionTo(to) {
		return faults.NewValidationError(
			fmt.Sprintf("invalid order transition %s -> %s for %s", order.Status, to, outBizID))
	}

	order.Status = to
	if g.active != nil && g.active.OutBizID == outBizID {
		g.active.Status = to
	}
	return nil
}

func (g *Gateway) findLocked(outBizID string) *Order {
	for i := range g.history {
		if g.history[i].OutBizID == outBizID {
			return &g.history[i]
		}
	}
	return nil
}

// History returns a copy of the session's order history.
func (g *Gateway) History() []Order {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Order, len(g.history))
	copy(out, g.history)
	return out
}

// ActiveOrder returns a copy of the active order, if any.
func (g *Gateway) ActiveOrder() (Order, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		return Order{}, false
	}
	return *g.active, true
}

// ClearActiveOrder empties the active order slot (history is untouched).
func (g *Gateway) ClearActiveOrder() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = nil
}

// Configuration is a diagnostic snapshot of the gateway settings.
type Configuration struct {
	MerchantID  string `json:"merchantId"`
	AppID       string `json:"appId"`
	BaseURL     string `json:"baseUrl"`
	NotifyURL   string `json:"notifyUrl,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// Configuration returns the gateway's non-secret settings.
func (g *Gateway) Configuration() Configuration {
	creds := g.engine.Credentials()
	return Configuration{
		MerchantID:  creds.MerchantID,
		AppID:       creds.AppID,
		BaseURL:     g.cfg.BaseURL,
		NotifyURL:   g.cfg.NotifyURL,
		RedirectURL: g.cfg.RedirectURL,
	}
}
