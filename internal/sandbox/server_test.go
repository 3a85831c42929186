package sandbox

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/khomabhena/h5-airtime/internal/config"
	"github.com/khomabhena/h5-airtime/internal/signature"
)

func testConfig() *config.Environment {
	return &config.Environment{
		Environment:     "test",
		MerchantID:      "MG-TEST",
		AppID:           "AX-TEST",
		KeySerialNo:     "serial-1",
		VASAPIVersion:   "V2",
		VASMerchantID:   "vas-merchant-1",
		MaxRequestBytes: 1 << 20,
	}
}

func testServer(t *testing.T, cfg *config.Environment) *Server {
	t.Helper()
	server, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestHealthAndVersion(t *testing.T) {
	server := testServer(t, testConfig())

	rec, _ := doJSON(t, server.Router(), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}

	rec, body := doJSON(t, server.Router(), http.MethodGet, "/version", "", nil)
	if rec.Code != http.StatusOK || body["version"] == "" {
		t.Errorf("version = %d %v", rec.Code, body)
	}
}

func TestPlaceOrderIdempotent(t *testing.T) {
	server := testServer(t, testConfig())

	order := `{"outBizId":"ORD-1","amount":1100,"currency":"USD","description":"top-up"}`

	rec, body := doJSON(t, server.Router(), http.MethodPost, "/v1/pay/pre-transaction/order/place", order, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	first, _ := body["prepayId"].(string)
	if !strings.HasPrefix(first, "SANDBOX-") {
		t.Fatalf("prepayId = %q", first)
	}

	// placing the same outBizId again returns the original prepayId
	rec, body = doJSON(t, server.Router(), http.MethodPost, "/v1/pay/pre-transaction/order/place", order, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
	if body["prepayId"] != first {
		t.Errorf("duplicate prepayId = %v, want %q", body["prepayId"], first)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	server := testServer(t, testConfig())

	tests := []struct {
		name string
		body string
	}{
		{name: "missing outBizId", body: `{"amount":100,"currency":"USD"}`},
		{name: "zero amount", body: `{"outBizId":"X","amount":0,"currency":"USD"}`},
		{name: "missing currency", body: `{"outBizId":"X","amount":100}`},
		{name: "invalid json", body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doJSON(t, server.Router(), http.MethodPost, "/v1/pay/pre-transaction/order/place", tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestQueryResult(t *testing.T) {
	server := testServer(t, testConfig())

	doJSON(t, server.Router(), http.MethodPost, "/v1/pay/pre-transaction/order/place",
		`{"outBizId":"ORD-Q","amount":500,"currency":"USD"}`, nil)

	rec, body := doJSON(t, server.Router(), http.MethodPost, "/v1/pay/transaction/result",
		`{"outBizId":"ORD-Q"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "SUCCESS" || body["outBizId"] != "ORD-Q" {
		t.Errorf("unexpected payload: %v", body)
	}

	rec, _ = doJSON(t, server.Router(), http.MethodPost, "/v1/pay/transaction/result",
		`{"outBizId":"NOPE"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown order status = %d, want 404", rec.Code)
	}
}

func TestSignatureVerification(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	keyDir := t.TempDir()
	if err := signature.SavePublicKeyToPEMFile(&privateKey.PublicKey, keyDir, "merchant.public.pem"); err != nil {
		t.Fatalf("failed to save public key: %v", err)
	}

	cfg := testConfig()
	cfg.MerchantPublicKeyPath = filepath.Join(keyDir, "merchant.public.pem")
	server := testServer(t, cfg)

	engine, err := signature.NewEngine(signature.Credentials{
		MerchantID: cfg.MerchantID,
		AppID:      cfg.AppID,
		SerialNo:   cfg.KeySerialNo,
	}, privateKey)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	path := "/v1/pay/pre-transaction/order/place"
	body := `{"outBizId":"ORD-SIG","amount":700,"currency":"USD"}`

	t.Run("missing header rejected", func(t *testing.T) {
		rec, _ := doJSON(t, server.Router(), http.MethodPost, path, body, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid signature accepted", func(t *testing.T) {
		header, err := engine.BuildAuthorizationHeader(http.MethodPost, path, body)
		if err != nil {
			t.Fatalf("failed to sign: %v", err)
		}
		rec, resp := doJSON(t, server.Router(), http.MethodPost, path, body, map[string]string{"Authorization": header})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		if resp["prepayId"] == "" {
			t.Error("no prepayId returned")
		}
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		header, err := engine.BuildAuthorizationHeader(http.MethodPost, path, body)
		if err != nil {
			t.Fatalf("failed to sign: %v", err)
		}
		tampered := strings.Replace(body, "700", "999900", 1)
		rec, _ := doJSON(t, server.Router(), http.MethodPost, path, tampered, map[string]string{"Authorization": header})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong merchant rejected", func(t *testing.T) {
		other, err := signature.NewEngine(signature.Credentials{
			MerchantID: "MG-OTHER",
			AppID:      cfg.AppID,
			SerialNo:   cfg.KeySerialNo,
		}, privateKey)
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}
		header, err := other.BuildAuthorizationHeader(http.MethodPost, path, body)
		if err != nil {
			t.Fatalf("failed to sign: %v", err)
		}
		rec, _ := doJSON(t, server.Router(), http.MethodPost, path, body, map[string]string{"Authorization": header})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func vasHeaders(merchantID string) map[string]string {
	return map[string]string{"MerchantId": merchantID}
}

func TestVASMerchantAuth(t *testing.T) {
	server := testServer(t, testConfig())

	rec, body := doJSON(t, server.Router(), http.MethodGet, "/vas/V2/Countries", "", nil)
	if rec.Code != http.StatusUnauthorized || body["Status"] != "ERROR" {
		t.Errorf("missing header: %d %v", rec.Code, body)
	}

	rec, _ = doJSON(t, server.Router(), http.MethodGet, "/vas/V2/Countries", "", vasHeaders("wrong"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong merchant status = %d, want 401", rec.Code)
	}

	rec, body = doJSON(t, server.Router(), http.MethodGet, "/vas/V2/Countries", "", vasHeaders("vas-merchant-1"))
	if rec.Code != http.StatusOK || body["Status"] != "SUCCESS" {
		t.Errorf("valid merchant: %d %v", rec.Code, body)
	}
	if countries, ok := body["Countries"].([]any); !ok || len(countries) == 0 {
		t.Error("no countries in catalog")
	}
}

// the aggregator reports catalog errors inside a 200 envelope
func TestVASProductsRequireFilter(t *testing.T) {
	server := testServer(t, testConfig())
	auth := vasHeaders("vas-merchant-1")

	rec, body := doJSON(t, server.Router(), http.MethodGet, "/vas/V2/Products", "", auth)
	if rec.Code != http.StatusOK || body["Status"] != "ERROR" {
		t.Errorf("unfiltered products: %d %v", rec.Code, body)
	}

	rec, body = doJSON(t, server.Router(), http.MethodGet, "/vas/V2/Products?countryCode=ZW&service=1", "", auth)
	if rec.Code != http.StatusOK || body["Status"] != "SUCCESS" {
		t.Fatalf("filtered products: %d %v", rec.Code, body)
	}
	if products, ok := body["Products"].([]any); !ok || len(products) != 2 {
		t.Errorf("airtime products = %v, want 2", body["Products"])
	}

	_, body = doJSON(t, server.Router(), http.MethodGet, "/vas/V2/Products?countryCode=ZW&service=1&serviceProviderId=101", "", auth)
	if products, ok := body["Products"].([]any); !ok || len(products) != 1 {
		t.Errorf("provider-filtered products = %v, want 1", body["Products"])
	}
}

func TestVASProductLookup(t *testing.T) {
	server := testServer(t, testConfig())
	auth := vasHeaders("vas-merchant-1")

	rec, body := doJSON(t, server.Router(), http.MethodGet, "/vas/V2/Product?id=1001", "", auth)
	if rec.Code != http.StatusOK || body["Status"] != "SUCCESS" {
		t.Fatalf("product lookup: %d %v", rec.Code, body)
	}

	_, body = doJSON(t, server.Router(), http.MethodGet, "/vas/V2/Product?id=9999", "", auth)
	if body["Status"] != "NOTFOUND" {
		t.Errorf("unknown product status = %v, want NOTFOUND", body["Status"])
	}
}

func TestVASValidateThenPost(t *testing.T) {
	server := testServer(t, testConfig())
	auth := vasHeaders("vas-merchant-1")

	payment := `{"RequestId":"REQ-1","ProductId":1001,"Currency":"USD","Amount":5,"CreditPartyIdentifiers":{"MobileNumber":"263771234567"}}`

	// posting before validating is rejected in a 200 envelope
	rec, body := doJSON(t, server.Router(), http.MethodPost, "/vas/V2/PostPayment", payment, auth)
	if rec.Code != http.StatusOK || body["Status"] != "ERROR" {
		t.Fatalf("unvalidated post: %d %v", rec.Code, body)
	}

	rec, body = doJSON(t, server.Router(), http.MethodPost, "/vas/V2/ValidatePayment", payment, auth)
	if rec.Code != http.StatusOK || body["Status"] != "SUCCESS" {
		t.Fatalf("validate: %d %v", rec.Code, body)
	}

	rec, body = doJSON(t, server.Router(), http.MethodPost, "/vas/V2/PostPayment", payment, auth)
	if rec.Code != http.StatusOK || body["Status"] != "SUCCESS" {
		t.Fatalf("post: %d %v", rec.Code, body)
	}
	if body["PaymentStatus"] != "COMPLETED" || body["TransactionId"] == "" {
		t.Errorf("post payload: %v", body)
	}

	_, body = doJSON(t, server.Router(), http.MethodGet, "/vas/V2/PaymentStatus?requestId=REQ-1", "", auth)
	if body["PaymentStatus"] != "COMPLETED" {
		t.Errorf("status payload: %v", body)
	}

	_, body = doJSON(t, server.Router(), http.MethodGet, "/vas/V2/ReversePayment?requestId=REQ-1", "", auth)
	if body["PaymentStatus"] != "REVERSED" {
		t.Errorf("reverse payload: %v", body)
	}
}

func TestVASValidatePaymentFieldChecks(t *testing.T) {
	server := testServer(t, testConfig())
	auth := vasHeaders("vas-merchant-1")

	tests := []struct {
		name string
		body string
	}{
		{name: "missing RequestId", body: `{"ProductId":1001,"Amount":5}`},
		{name: "missing ProductId", body: `{"RequestId":"R","Amount":5}`},
		{name: "missing Amount", body: `{"RequestId":"R","ProductId":1001}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doJSON(t, server.Router(), http.MethodPost, "/vas/V2/ValidatePayment", tt.body, auth)
			if rec.Code != http.StatusOK || body["Status"] != "ERROR" {
				t.Errorf("status = %d %v, want 200 ERROR envelope", rec.Code, body)
			}
		})
	}

	// zero is a present amount and passes the presence check
	rec, body := doJSON(t, server.Router(), http.MethodPost, "/vas/V2/ValidatePayment",
		`{"RequestId":"R0","ProductId":1001,"Amount":0}`, auth)
	if rec.Code != http.StatusOK || body["Status"] != "SUCCESS" {
		t.Errorf("zero amount: %d %v", rec.Code, body)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	cfg := testConfig()
	cfg.Environment = "prod"
	server := testServer(t, cfg)

	rec, _ := doJSON(t, server.Router(), http.MethodGet, "/health", "", nil)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("nosniff header missing")
	}
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS header missing in prod")
	}
}

func TestRequestSizeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestBytes = 1024
	server := testServer(t, cfg)

	oversized := `{"outBizId":"BIG","currency":"USD","description":"` + strings.Repeat("x", 4096) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/pay/pre-transaction/order/place", strings.NewReader(oversized))
	req.ContentLength = int64(len(oversized))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 2
	server := testServer(t, cfg)

	var limited bool
	for i := 0; i < 10; i++ {
		rec, _ := doJSON(t, server.Router(), http.MethodGet, "/health", "", nil)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("burst of requests was never rate limited")
	}
}
