package sandbox

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khomabhena/h5-airtime/internal/logger"
	"github.com/khomabhena/h5-airtime/internal/signature"
	"github.com/khomabhena/h5-airtime/internal/superapp"
)

// paymentOrder is one order accepted by the merchant payment mock. State is
// in-memory only and lost on restart.
type paymentOrder struct {
	OutBizID    string
	PrepayID    string
	Amount      int64
	Currency    string
	Description string
	Status      string
	CreatedAt   time.Time
}

type paymentStore struct {
	mu     sync.Mutex
	orders map[string]*paymentOrder
}

func newPaymentStore() *paymentStore {
	return &paymentStore{orders: make(map[string]*paymentOrder)}
}

// verifySignedRequest checks the Authorization header against the merchant
// public key, rebuilding the canonical message from the request line and the
// raw body bytes. Verification is skipped when no public key is configured.
func (s *Server) verifySignedRequest(r *http.Request, body []byte) (int, string) {
	if s.publicKey == nil {
		return 0, ""
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return http.StatusUnauthorized, "Authorization header is required"
	}

	fields, err := signature.ParseAuthorizationHeader(header)
	if err != nil {
		return http.StatusUnauthorized, err.Error()
	}
	if fields.MerchantID != s.cfg.MerchantID {
		return http.StatusUnauthorized, "unknown merchant"
	}
	if fields.SerialNo != s.cfg.KeySerialNo {
		return http.StatusUnauthorized, "unknown key serial number"
	}

	if err := signature.VerifyRequest(s.publicKey, r.Method, r.URL.RequestURI(), fields, string(body)); err != nil {
		logger.ContextRequestLogger(r.Context()).Warn("signature verification failed",
			slog.String("mchid", fields.MerchantID),
			slog.String("error", err.Error()),
		)
		return http.StatusUnauthorized, "signature verification failed"
	}
	return 0, ""
}

// handlePlaceOrder godoc
//
//	@Summary		Place a pre-transaction order
//	@Description	Accepts a signed order placement request and returns a prepayId. Placing the same outBizId twice returns the original prepayId.
//	@Tags			Payment
//	@Accept			json
//	@Produce		json
//	@Param			Authorization	header		string	true	"SHA256withRSA signature header"
//	@Success		200				{object}	map[string]string	"prepayId assigned"
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Router			/v1/pay/pre-transaction/order/place [post]
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "failed to read request body")
		return
	}

	if status, msg := s.verifySignedRequest(r, body); status != 0 {
		respondError(w, r, status, "UNAUTHORIZED", msg)
		return
	}

	var order superapp.PlaceOrderBody
	if err := json.Unmarshal(body, &order); err != nil {
		respondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}

	switch {
	case order.OutBizID == "":
		respondError(w, r, http.StatusBadRequest, "INVALID_PARAM", "outBizId is required")
		return
	case order.Amount <= 0:
		respondError(w, r, http.StatusBadRequest, "INVALID_PARAM", "amount must be positive")
		return
	case order.Currency == "":
		respondError(w, r, http.StatusBadRequest, "INVALID_PARAM", "currency is required")
		return
	}

	s.payments.mu.Lock()
	existing, ok := s.payments.orders[order.OutBizID]
	if ok {
		// idempotent: same outBizId returns the original prepayId
		s.payments.mu.Unlock()
		respondJSON(w, r, http.StatusOK, map[string]string{
			"prepayId": existing.PrepayID,
			"code":     "SUCCESS",
			"message":  "duplicate outBizId",
		})
		return
	}

	stored := &paymentOrder{
		OutBizID:    order.OutBizID,
		PrepayID:    "SANDBOX-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Amount:      order.Amount,
		Currency:    order.Currency,
		Description: order.Description,
		Status:      "CREATED",
		CreatedAt:   time.Now(),
	}
	s.payments.orders[order.OutBizID] = stored
	s.payments.mu.Unlock()

	logger.ContextRequestLogger(r.Context()).Info("order placed",
		slog.String("outBizId", stored.OutBizID),
		slog.String("prepayId", stored.PrepayID),
		slog.Int64("amount", stored.Amount),
	)

	respondJSON(w, r, http.StatusOK, map[string]string{
		"prepayId": stored.PrepayID,
		"code":     "SUCCESS",
		"message":  "OK",
	})
}

// handleQueryResult godoc
//
//	@Summary		Query a transaction result
//	@Description	Returns the status payload for a previously placed order. Placed orders report SUCCESS (the sandbox has no real cashier).
//	@Tags			Payment
//	@Accept			json
//	@Produce		json
//	@Param			Authorization	header		string	true	"SHA256withRSA signature header"
//	@Success		200				{object}	map[string]any	"status payload"
//	@Failure		404				{object}	ErrorResponse
//	@Router			/v1/pay/transaction/result [post]
func (s *Server) handleQueryResult(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "failed to read request body")
		return
	}

	if status, msg := s.verifySignedRequest(r, body); status != 0 {
		respondError(w, r, status, "UNAUTHORIZED", msg)
		return
	}

	var query struct {
		OutBizID string `json:"outBizId"`
	}
	if err := json.Unmarshal(body, &query); err != nil || query.OutBizID == "" {
		respondError(w, r, http.StatusBadRequest, "INVALID_PARAM", "outBizId is required")
		return
	}

	s.payments.mu.Lock()
	order, ok := s.payments.orders[query.OutBizID]
	s.payments.mu.Unlock()

	if !ok {
		respondError(w, r, http.StatusNotFound, "ORDER_NOT_FOUND", "no order with outBizId "+query.OutBizID)
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"outBizId": order.OutBizID,
		"prepayId": order.PrepayID,
		"status":   "SUCCESS",
		"amount":   order.Amount,
		"currency": order.Currency,
	})
}
