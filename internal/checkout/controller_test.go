package checkout

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/khomabhena/h5-airtime/internal/bridge"
	"github.com/khomabhena/h5-airtime/internal/faults"
	"github.com/khomabhena/h5-airtime/internal/signature"
	"github.com/khomabhena/h5-airtime/internal/superapp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// paymentObject is a scriptable standard payment bridge.
type paymentObject struct {
	payCalls  int
	payResult any
	payErr    error
}

func (o *paymentObject) Methods() []string { return []string{"payOrder", "getAuthToken"} }

func (o *paymentObject) Invoke(ctx context.Context, method string, params any) (any, error) {
	switch method {
	case "payOrder":
		o.payCalls++
		return o.payResult, o.payErr
	case "getAuthToken":
		return map[string]string{"token": "tok-1"}, nil
	}
	return nil, nil
}

// webHost simulates a browser with an optionally injected payment object.
type webHost struct {
	payment *paymentObject
}

func (h *webHost) UserAgent() string { return "Mozilla/5.0 (iPhone) SuperApp/2.1" }

func (h *webHost) PaymentObject() (bridge.Object, bool) {
	if h.payment == nil {
		return nil, false
	}
	return h.payment, true
}

func (h *webHost) MessageHandlerNames() []string                      { return nil }
func (h *webHost) MessageHandler(string) (bridge.MessagePoster, bool) { return nil, false }
func (h *webHost) AndroidObject(string) (bridge.Object, bool)         { return nil, false }
func (h *webHost) ReactNativeWebView() (bridge.MessagePoster, bool)   { return nil, false }
func (h *webHost) FlutterInAppWebView() (bridge.Object, bool)         { return nil, false }

// backend is a minimal merchant API stub.
func backend(t *testing.T, queryStatus string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/pay/pre-transaction/order/place":
			_, _ = w.Write([]byte(`{"prepayId":"PREPAY-123"}`))
		case "/v1/pay/transaction/result":
			if queryStatus == "" {
				http.Error(w, "query exploded", http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"status":"` + queryStatus + `"}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
}

func testController(t *testing.T, baseURL string, host bridge.Host) (*Controller, *superapp.Gateway, *faults.Handler) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	engine, err := signature.NewEngine(signature.Credentials{
		MerchantID: "MG-TEST",
		AppID:      "AX-TEST",
		SerialNo:   "serial-1",
	}, privateKey)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	logger := testLogger()
	gateway := superapp.NewGateway(engine, superapp.Config{BaseURL: baseURL, HTTPTimeout: 5 * time.Second}, logger)
	handler := faults.NewHandler(logger)
	controller := NewController(gateway, bridge.NewRegistry(host), bridge.NewInvoker(host, time.Second, logger), handler, logger)
	return controller, gateway, handler
}

func TestProcessPaymentSuccess(t *testing.T) {
	server := backend(t, "SUCCESS")
	defer server.Close()

	payObj := &paymentObject{payResult: map[string]string{"cashier": "shown"}}
	controller, gateway, _ := testController(t, server.URL, &webHost{payment: payObj})

	result, err := controller.ProcessPayment(context.Background(), superapp.OrderRequest{
		Amount:      1100,
		Currency:    "USD",
		Description: "Medium Top-up",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.State != StateSucceeded {
		t.Errorf("state = %q, want %q", result.State, StateSucceeded)
	}
	if result.OutBizID == "" {
		t.Error("result missing outBizId")
	}
	if result.Status != "SUCCESS" {
		t.Errorf("status = %q, want SUCCESS", result.Status)
	}
	if payObj.payCalls != 1 {
		t.Errorf("payOrder called %d times, want 1", payObj.payCalls)
	}
	if controller.State() != StateSucceeded {
		t.Errorf("controller state = %q, want %q", controller.State(), StateSucceeded)
	}

	active, ok := gateway.ActiveOrder()
	if !ok {
		t.Fatal("no active order")
	}
	if active.Status != superapp.StatusCompleted {
		t.Errorf("order status = %q, want %q", active.Status, superapp.StatusCompleted)
	}
}

// no bridge at all: the attempt fails with an auth error and the generic user
// message, not the raw technical string
func TestProcessPaymentNoBridge(t *testing.T) {
	server := backend(t, "SUCCESS")
	defer server.Close()

	controller, gateway, handler := testController(t, server.URL, &webHost{})

	result, err := controller.ProcessPayment(context.Background(), superapp.OrderRequest{
		Amount:      1100,
		Currency:    "USD",
		Description: "Medium Top-up",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if result.State != StateFailed {
		t.Errorf("state = %q, want %q", result.State, StateFailed)
	}
	if result.Err == nil {
		t.Fatal("result missing classified error")
	}
	if result.Err.Kind != faults.KindAuth {
		t.Errorf("kind = %q, want %q", result.Err.Kind, faults.KindAuth)
	}
	if result.Err.UserMessage == result.Err.TechnicalMessage {
		t.Error("raw technical message leaked into the user message")
	}

	// the cashier never ran, so the order is still abandonable
	active, ok := gateway.ActiveOrder()
	if !ok {
		t.Fatal("no active order")
	}
	if active.Status != superapp.StatusPrepared {
		t.Errorf("order status = %q, want %q", active.Status, superapp.StatusPrepared)
	}

	if len(handler.ErrorLog(0)) == 0 {
		t.Error("fault was not recorded in the error log")
	}
}

func TestProcessPaymentValidationFailureStopsEarly(t *testing.T) {
	server := backend(t, "SUCCESS")
	defer server.Close()

	payObj := &paymentObject{}
	controller, _, _ := testController(t, server.URL, &webHost{payment: payObj})

	result, err := controller.ProcessPayment(context.Background(), superapp.OrderRequest{
		Amount:      0,
		Currency:    "USD",
		Description: "x",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if result.State != StateFailed {
		t.Errorf("state = %q, want %q", result.State, StateFailed)
	}
	if result.Err.Kind != faults.KindValidation {
		t.Errorf("kind = %q, want %q", result.Err.Kind, faults.KindValidation)
	}
	// validation messages surface verbatim
	if result.Err.UserMessage != "Valid amount is required" {
		t.Errorf("user message = %q, want the validation message", result.Err.UserMessage)
	}
	if payObj.payCalls != 0 {
		t.Error("cashier was invoked after a failed prepare")
	}
}

// the cashier's return value is not authoritative: a cashier error with a
// successful status query still succeeds
func TestProcessPaymentCashierErrorQueryDecides(t *testing.T) {
	server := backend(t, "SUCCESS")
	defer server.Close()

	payObj := &paymentObject{payErr: bridge.NewTransportError("user closed cashier")}
	controller, _, handler := testController(t, server.URL, &webHost{payment: payObj})

	result, err := controller.ProcessPayment(context.Background(), superapp.OrderRequest{
		Amount:      1100,
		Currency:    "USD",
		Description: "Medium Top-up",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != StateSucceeded {
		t.Errorf("state = %q, want %q", result.State, StateSucceeded)
	}

	// the cashier fault is still recorded for diagnostics
	if len(handler.ErrorLog(0)) != 1 {
		t.Errorf("error log entries = %d, want 1", len(handler.ErrorLog(0)))
	}
}

func TestProcessPaymentQueryFailure(t *testing.T) {
	server := backend(t, "")
	defer server.Close()

	payObj := &paymentObject{}
	controller, gateway, _ := testController(t, server.URL, &webHost{payment: payObj})

	result, err := controller.ProcessPayment(context.Background(), superapp.OrderRequest{
		Amount:      1100,
		Currency:    "USD",
		Description: "Medium Top-up",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if result.State != StateFailed {
		t.Errorf("state = %q, want %q", result.State, StateFailed)
	}

	active, _ := gateway.ActiveOrder()
	if active.Status != superapp.StatusFailed {
		t.Errorf("order status = %q, want %q", active.Status, superapp.StatusFailed)
	}
}

func TestGetAuthToken(t *testing.T) {
	server := backend(t, "SUCCESS")
	defer server.Close()

	controller, _, _ := testController(t, server.URL, &webHost{payment: &paymentObject{}})

	token, err := controller.GetAuthToken(context.Background(), "AX-TEST")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.(map[string]string)["token"] != "tok-1" {
		t.Errorf("unexpected token payload: %v", token)
	}
}

func TestGetAuthTokenNoBridge(t *testing.T) {
	server := backend(t, "SUCCESS")
	defer server.Close()

	controller, _, _ := testController(t, server.URL, &webHost{})

	_, err := controller.GetAuthToken(context.Background(), "AX-TEST")
	if faults.Classify(err) != faults.KindAuth {
		t.Errorf("kind = %v, want %q", faults.Classify(err), faults.KindAuth)
	}
}
