package sandbox

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khomabhena/h5-airtime/internal/appletree"
	"github.com/khomabhena/h5-airtime/internal/logger"
)

// vasState holds the aggregator mock's fixture catalog and the payment
// requests it has seen. Fixtures cover enough of the catalog to exercise every
// client code path.
type vasState struct {
	countries []appletree.Country
	services  []appletree.Service
	providers []appletree.ServiceProvider
	products  []appletree.Product

	mu        sync.Mutex
	validated map[string]time.Time
	posted    map[string]appletree.PaymentResult
}

func newVASState() *vasState {
	return &vasState{
		countries: []appletree.Country{
			{CountryCode: "ZW", Name: "Zimbabwe", CurrencyCode: "USD"},
			{CountryCode: "ZM", Name: "Zambia", CurrencyCode: "ZMW"},
		},
		services: []appletree.Service{
			{ID: appletree.ServiceMobileAirtime, Name: "Mobile Airtime"},
			{ID: appletree.ServiceMobileData, Name: "Mobile Data"},
			{ID: appletree.ServiceElectricity, Name: "Electricity"},
		},
		providers: []appletree.ServiceProvider{
			{ID: 101, Name: "Econet", CountryCode: "ZW", ServiceID: appletree.ServiceMobileAirtime},
			{ID: 102, Name: "NetOne", CountryCode: "ZW", ServiceID: appletree.ServiceMobileAirtime},
			{ID: 103, Name: "ZESA", CountryCode: "ZW", ServiceID: appletree.ServiceElectricity},
		},
		products: []appletree.Product{
			{ID: 1001, Name: "Econet Airtime", Currency: "USD", MinimumAmount: 0.5, MaximumAmount: 100, ServiceID: appletree.ServiceMobileAirtime, ServiceProviderID: 101},
			{ID: 1002, Name: "NetOne Airtime", Currency: "USD", MinimumAmount: 0.5, MaximumAmount: 100, ServiceID: appletree.ServiceMobileAirtime, ServiceProviderID: 102},
			{ID: 1003, Name: "ZESA Prepaid", Currency: "USD", MinimumAmount: 1, MaximumAmount: 500, ServiceID: appletree.ServiceElectricity, ServiceProviderID: 103},
		},
		validated: make(map[string]time.Time),
		posted:    make(map[string]appletree.PaymentResult),
	}
}

// requireVASMerchant enforces the static MerchantId header auth.
func (s *Server) requireVASMerchant(w http.ResponseWriter, r *http.Request) bool {
	merchantID := r.Header.Get("MerchantId")
	if merchantID == "" {
		respondVASError(w, r, http.StatusUnauthorized, "MerchantId header is required")
		return false
	}
	if merchantID != s.cfg.VASMerchantID {
		respondVASError(w, r, http.StatusUnauthorized, "unknown merchant")
		return false
	}
	return true
}

func (s *Server) handleVASConnect(w http.ResponseWriter, r *http.Request) {
	if !s.requireVASMerchant(w, r) {
		return
	}
	respondJSON(w, r, http.StatusOK, vasEnvelope{Status: "SUCCESS", ResultMessage: "Connected"})
}

func (s *Server) handleVASCountries(w http.ResponseWriter, r *http.Request) {
	if !s.requireVASMerchant(w, r) {
		return
	}
	respondJSON(w, r, http.StatusOK, struct {
		vasEnvelope
		Countries []appletree.Country `json:"Countries"`
	}{vasEnvelope{Status: "SUCCESS"}, s.vas.countries})
}

func (s *Server) handleVASServices(w http.ResponseWriter, r *http.Request) {
	if !s.requireVASMerchant(w, r) {
		return
	}
	respondJSON(w, r, http.StatusOK, struct {
		vasEnvelope
		Services []appletree.Service `json:"Services"`
	}{vasEnvelope{Status: "SUCCESS"}, s.vas.services})
}

func (s *Server) handleVASServiceProviders(w http.ResponseWriter, r *http.Request) {
	if !s.requireVASMerchant(w, r) {
		return
	}

	countryCode := r.URL.Query().Get("countryCode")
	serviceID, _ := strconv.Atoi(r.URL.Query().Get("service"))

	var matched []appletree.ServiceProvider
	for _, p := range s.vas.providers {
		if countryCode != "" && p.CountryCode != countryCode {
			continue
		}
		if serviceID != 0 && p.ServiceID != serviceID {
			continue
		}
		matched = append(matched, p)
	}

	respondJSON(w, r, http.StatusOK, struct {
		vasEnvelope
		ServiceProviders []appletree.ServiceProvider `json:"ServiceProviders"`
	}{vasEnvelope{Status: "SUCCESS"}, matched})
}

func (s *Server) handleVASProducts(w http.ResponseWriter, r *http.Request) {
	if !s.requireVASMerchant(w, r) {
		return
	}

	countryCode := r.URL.Query().Get("countryCode")
	serviceID, _ := strconv.Atoi(r.URL.Query().Get("service"))
	if countryCode == "" || serviceID == 0 {
		respondVASError(w, r, http.StatusOK, "countryCode and service are required")
		return
	}
	providerID, _ := strconv.Atoi(r.URL.Query().Get("serviceProviderId"))

	var matched []appletree.Product
	for _, p := range s.vas.products {
		if p.ServiceID != serviceID {
			continue
		}
		if providerID != 0 && p.ServiceProviderID != providerID {
			continue
		}
		matched = append(matched, p)
	}

	respondJSON(w, r, http.StatusOK, struct {
		vasEnvelope
		Products []appletree.Product `json:"Products"`
	}{vasEnvelope{Status: "SUCCESS"}, matched})
}

func (s *Server) handleVASProduct(w http.ResponseWriter, r *http.Request) {
	if !s.requireVASMerchant(w, r) {
		return
	}

	id, _ := strconv.Atoi(r.URL.Query().Get("id"))
	for _, p := range s.vas.products {
		if p.ID == id {
			respondJSON(w, r, http.StatusOK, struct {
				vasEnvelope
				ServiceProduct appletree.Product `json:"ServiceProduct"`
			}{vasEnvelope{Status: "SUCCESS"}, p})
			return
		}
	}
	respondJSON(w, r, http.StatusOK, vasEnvelope{Status: "NOTFOUND", ResultMessage: "product not found"})
}

// decodeVASPayment decodes and field-checks a payment payload.
func decodeVASPayment(w http.ResponseWriter, r *http.Request) (appletree.PaymentRequest, bool) {
	var req appletree.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondVASError(w, r, http.StatusOK, "invalid JSON body")
		return req, false
	}
	switch {
	case req.RequestID == "":
		respondVASError(w, r, http.StatusOK, "RequestId is required")
		return req, false
	case req.ProductID == 0:
		respondVASError(w, r, http.StatusOK, "ProductId is required")
		return req, false
	case req.Amount == nil:
		respondVASError(w, r, http.StatusOK, "Amount is required")
		return req, false
	}
	return req, true
}

func (s *Server) handleVASValidatePayment(w http.ResponseWriter, r *http.Request) {
	if !s.requireVASMerchant(w, r) {
		return
	}

	req, ok := decodeVASPayment(w, r)
	if !ok {
		return
	}

	s.vas.mu.Lock()
	s.vas.validated[req.RequestID] = time.Now()
	s.vas.mu.Unlock()

	result := appletree.PaymentResult{
		RequestID:     req.RequestID,
		PaymentStatus: "VALIDATED",
	}
	result.Status = "SUCCESS"
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleVASPostPayment(w http.ResponseWriter, r *http.Request) {
	if !s.requireVASMerchant(w, r) {
		return
	}

	req, ok := decodeVASPayment(w, r)
	if !ok {
		return
	}

	s.vas.mu.Lock()
	defer s.vas.mu.Unlock()

	if _, validated := s.vas.validated[req.RequestID]; !validated {
		respondVASError(w, r, http.StatusOK, "payment has not been validated")
		return
	}

	result := appletree.PaymentResult{
		RequestID:     req.RequestID,
		TransactionID: uuid.NewString(),
		PaymentStatus: "COMPLETED",
		ReceiptNumber: "RCPT-" + strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	result.Status = "SUCCESS"
	s.vas.posted[req.RequestID] = result

	logger.ContextRequestLogger(r.Context()).Info("vas payment posted",
		slog.String("requestId", req.RequestID),
		slog.Int("productId", req.ProductID),
	)

	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleVASPaymentStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireVASMerchant(w, r) {
		return
	}

	requestID := r.URL.Query().Get("requestId")
	s.vas.mu.Lock()
	result, ok := s.vas.posted[requestID]
	s.vas.mu.Unlock()

	if !ok {
		respondJSON(w, r, http.StatusOK, vasEnvelope{Status: "NOTFOUND", ResultMessage: "no payment with requestId " + requestID})
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleVASReversePayment(w http.ResponseWriter, r *http.Request) {
	if !s.requireVASMerchant(w, r) {
		return
	}

	requestID := r.URL.Query().Get("requestId")
	s.vas.mu.Lock()
	result, ok := s.vas.posted[requestID]
	if ok {
		result.PaymentStatus = "REVERSED"
		s.vas.posted[requestID] = result
	}
	s.vas.mu.Unlock()

	if !ok {
		respondJSON(w, r, http.StatusOK, vasEnvelope{Status: "NOTFOUND", ResultMessage: "no payment with requestId " + requestID})
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleVASGetLastToken(w http.ResponseWriter, r *http.Request) {
	if !s.requireVASMerchant(w, r) {
		return
	}

	var req appletree.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == 0 {
		respondVASError(w, r, http.StatusOK, "ProductId is required")
		return
	}

	result := appletree.PaymentResult{
		PaymentStatus:  "COMPLETED",
		DeliveredToken: "0123-4567-8901-2345-6789",
	}
	result.Status = "SUCCESS"
	respondJSON(w, r, http.StatusOK, result)
}
