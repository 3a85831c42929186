// Package appletree is the client for the AppleTree VAS aggregator.
//
// Unlike the merchant payment API there is no request signing - every call
// carries the merchant ID header and speaks JSON. The aggregator wraps
// responses in an envelope whose Status field is authoritative: an HTTP 200
// with Status ERROR or NOTFOUND is a failure.
package appletree

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/khomabhena/h5-airtime/internal/faults"
)

// Config holds the gateway settings.
type Config struct {
	BaseURL     string
	APIVersion  string
	MerchantID  string
	HTTPTimeout time.Duration
	CacheTTL    time.Duration
}

// Gateway is the VAS aggregator client. Construct one per session.
type Gateway struct {
	client *resty.Client
	cfg    Config
	logger *slog.Logger
	cache  *catalogCache

	mu        sync.Mutex
	validated map[string]time.Time
}

// NewGateway creates an aggregator client.
func NewGateway(cfg Config, logger *slog.Logger) *Gateway {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "V2"
	}

	client := resty.New().
		SetBaseURL(fmt.Sprintf("%s/vas/%s", cfg.BaseURL, cfg.APIVersion)).
		SetHeader("MerchantId", cfg.MerchantID).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.HTTPTimeout > 0 {
		client.SetTimeout(cfg.HTTPTimeout)
	}

	return &Gateway{
		client:    client,
		cfg:       cfg,
		logger:    logger,
		cache:     newCatalogCache(cfg.CacheTTL),
		validated: make(map[string]time.Time),
	}
}

// GenerateRequestID returns a fresh RequestId for a payment.
func GenerateRequestID() string {
	return uuid.NewString()
}

// request performs one aggregator call and decodes a successful response into
// out.
//
// Failure has two layers, both enforced here: a non-2xx HTTP status (reported
// with the decoded ResultMessage when the error body is parseable, else
// "HTTP <status>"), and an envelope Status of ERROR/NOTFOUND on an otherwise
// successful response.
func (g *Gateway) request(ctx context.Context, method, endpoint string, data any, out any) error {
	req := g.client.R().SetContext(ctx)
	if data != nil && method != http.MethodGet {
		req.SetBody(data)
	}

	resp, err := req.Execute(method, endpoint)
	if err != nil {
		return faults.WrapNetworkError(err, fmt.Sprintf("request to %s failed", endpoint))
	}

	if resp.IsError() {
		var env envelope
		if jsonErr := json.Unmarshal(resp.Body(), &env); jsonErr == nil && env.ResultMessage != "" {
			return faults.NewAPIError(env.ResultMessage)
		}
		return faults.NewAPIError(fmt.Sprintf("HTTP %d", resp.StatusCode()))
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return faults.WrapAPIError(err, fmt.Sprintf("failed to decode response from %s", endpoint))
	}
	if env.Status == statusError || env.Status == statusNotFound {
		msg := env.ResultMessage
		if msg == "" {
			msg = "API request failed"
		}
		return faults.NewAPIError(msg)
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return faults.WrapAPIError(err, fmt.Sprintf("failed to decode response from %s", endpoint))
		}
	}
	return nil
}

// GetCountries returns the available countries (cached).
func (g *Gateway) GetCountries(ctx context.Context) ([]Country, error) {
	if v, ok := g.cache.get(countriesKey()); ok {
		return v.([]Country), nil
	}

	var resp struct {
		envelope
		Countries []Country `json:"Countries"`
	}
	if err := g.request(ctx, http.MethodGet, "Countries", nil, &resp); err != nil {
		return nil, err
	}

	g.cache.put(countriesKey(), resp.Countries)
	return resp.Countries, nil
}

// GetServices returns the available service categories (cached).
func (g *Gateway) GetServices(ctx context.Context) ([]Service, error) {
	if v, ok := g.cache.get(servicesKey()); ok {
		return v.([]Service), nil
	}

	var resp struct {
		envelope
		Services []Service `json:"Services"`
	}
	if err := g.request(ctx, http.MethodGet, "Services", nil, &resp); err != nil {
		return nil, err
	}

	g.cache.put(servicesKey(), resp.Services)
	return resp.Services, nil
}

// GetServiceProviders returns providers matching the filter (cached).
func (g *Gateway) GetServiceProviders(ctx context.Context, filter ProviderFilter) ([]ServiceProvider, error) {
	if v, ok := g.cache.get(providersKey(filter)); ok {
		return v.([]ServiceProvider), nil
	}

	params := url.Values{}
	if filter.CountryCode != "" {
		params.Set("countryCode", filter.CountryCode)
	}
	if filter.ServiceID != 0 {
		params.Set("service", fmt.Sprintf("%d", filter.ServiceID))
	}
	endpoint := "ServiceProviders"
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var resp struct {
		envelope
		ServiceProviders []ServiceProvider `json:"ServiceProviders"`
	}
	if err := g.request(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	g.cache.put(providersKey(filter), resp.ServiceProviders)
	return resp.ServiceProviders, nil
}

// GetProducts returns products for a country and service (cached).
// CountryCode and ServiceID are required.
func (g *Gateway) GetProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	if filter.CountryCode == "" || filter.ServiceID == 0 {
		return nil, faults.NewValidationError("countryCode and serviceId are required")
	}

	if v, ok := g.cache.get(productsKey(filter)); ok {
		return v.([]Product), nil
	}

	params := url.Values{}
	params.Set("countryCode", filter.CountryCode)
	params.Set("service", fmt.Sprintf("%d", filter.ServiceID))
	if filter.ServiceProviderID != 0 {
		params.Set("serviceProviderId", fmt.Sprintf("%d", filter.ServiceProviderID))
	}

	var resp struct {
		envelope
		Products []Product `json:"Products"`
	}
	if err := g.request(ctx, http.MethodGet, "Products?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	g.cache.put(productsKey(filter), resp.Products)
	return resp.Products, nil
}

// GetProductByID returns a single product (not cached - direct lookups are
// rare and cheap).
func (g *Gateway) GetProductByID(ctx context.Context, productID int) (*Product, error) {
	if productID == 0 {
		return nil, faults.NewValidationError("productId is required")
	}

	var resp struct {
		envelope
		ServiceProduct *Product `json:"ServiceProduct"`
	}
	if err := g.request(ctx, http.MethodGet, fmt.Sprintf("Product?id=%d", productID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.ServiceProduct, nil
}

// validatePaymentRequest checks the payload fields required by the
// aggregator. Amount is checked for presence only.
func validatePaymentRequest(req PaymentRequest) error {
	if req.RequestID == "" {
		return faults.NewValidationError("RequestId is required")
	}
	if req.ProductID == 0 {
		return faults.NewValidationError("ProductId is required")
	}
	if req.Currency == "" {
		return faults.NewValidationError("Currency is required")
	}
	if req.CustomerDetails == nil {
		return faults.NewValidationError("CustomerDetails is required")
	}
	if req.Amount == nil {
		return faults.NewValidationError("Amount is required")
	}
	return nil
}

// ValidatePayment asks the aggregator to validate a payment payload. A
// successful validation is recorded so PostPayment can enforce the
// validate-before-post protocol.
func (g *Gateway) ValidatePayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	if err := validatePaymentRequest(req); err != nil {
		return nil, err
	}

	var result PaymentResult
	if err := g.request(ctx, http.MethodPost, "ValidatePayment", req, &result); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.validated[req.RequestID] = time.Now()
	g.mu.Unlock()

	return &result, nil
}

// PostPayment posts a previously validated payment. Posting a RequestId that
// has not passed ValidatePayment is a protocol violation and fails locally.
func (g *Gateway) PostPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	if err := validatePaymentRequest(req); err != nil {
		return nil, err
	}

	g.mu.Lock()
	_, ok := g.validated[req.RequestID]
	g.mu.Unlock()
	if !ok {
		return nil, faults.NewValidationError(
			fmt.Sprintf("payment %s must pass ValidatePayment before PostPayment", req.RequestID))
	}

	var result PaymentResult
	if err := g.request(ctx, http.MethodPost, "PostPayment", req, &result); err != nil {
		return nil, err
	}

	g.logger.Info("payment posted",
		slog.String("requestId", req.RequestID),
		slog.Int("productId", req.ProductID),
	)
	return &result, nil
}

// GetPaymentStatus queries the status of a posted payment.
func (g *Gateway) GetPaymentStatus(ctx context.Context, requestID string) (*PaymentResult, error) {
	if requestID == "" {
		return nil, faults.NewValidationError("requestId is required")
	}
	var result PaymentResult
	if err := g.request(ctx, http.MethodGet, "PaymentStatus?requestId="+url.QueryEscape(requestID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReversePayment requests a reversal of a posted payment.
func (g *Gateway) ReversePayment(ctx context.Context, requestID string) (*PaymentResult, error) {
	if requestID == "" {
		return nil, faults.NewValidationError("requestId is required")
	}
	var result PaymentResult
	if err := g.request(ctx, http.MethodGet, "ReversePayment?requestId="+url.QueryEscape(requestID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetLastToken re-fetches the last delivered token for a product and
// recipient (e.g. a prepaid electricity token).
func (g *Gateway) GetLastToken(ctx context.Context, req TokenRequest) (*PaymentResult, error) {
	if req.ProductID == 0 || len(req.CreditPartyIdentifiers) == 0 {
		return nil, faults.NewValidationError("ProductId and CreditPartyIdentifiers are required")
	}
	var result PaymentResult
	if err := g.request(ctx, http.MethodPost, "GetLastToken", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping checks connectivity to the aggregator.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.request(ctx, http.MethodGet, "Connect", nil, nil)
}

// GetProductCatalog fetches the service list and product list concurrently
// and combines them for one country/service pair.
func (g *Gateway) GetProductCatalog(ctx context.Context, countryCode string, serviceID int) (*ProductCatalog, error) {
	var (
		services []Service
		products []Product
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		services, err = g.GetServices(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		products, err = g.GetProducts(groupCtx, ProductFilter{CountryCode: countryCode, ServiceID: serviceID})
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	catalog := &ProductCatalog{
		CountryCode:   countryCode,
		Products:      products,
		TotalProducts: len(products),
	}
	for i := range services {
		if services[i].ID == serviceID {
			catalog.Service = &services[i]
			break
		}
	}
	return catalog, nil
}

// ClearCache drops every cached catalog entry.
func (g *Gateway) ClearCache() {
	g.cache.clear()
}
