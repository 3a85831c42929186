package signature

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	engine, err := NewEngine(Credentials{
		MerchantID: "MG-TEST",
		AppID:      "AX-TEST",
		SerialNo:   "serial-1",
	}, privateKey)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return engine
}

func TestNewEngineValidation(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	if _, err := NewEngine(Credentials{MerchantID: "m", AppID: "a", SerialNo: "s"}, nil); err == nil {
		t.Error("expected error for nil private key, got nil")
	}
	if _, err := NewEngine(Credentials{MerchantID: "m"}, privateKey); err == nil {
		t.Error("expected error for incomplete credentials, got nil")
	}
}

func TestCanonicalRequestMessage(t *testing.T) {
	tests := []struct {
		name   string
		method string
		rawURL string
		want   string
	}{
		{
			name:   "absolute URL keeps only path",
			method: "POST",
			rawURL: "https://api.example.com/v1/pay/pre-transaction/order/place",
			want:   "POST\n/v1/pay/pre-transaction/order/place\n1700000000\nnonce123\n{\"a\":1}\n",
		},
		{
			name:   "query string is part of the canonical path",
			method: "GET",
			rawURL: "https://api.example.com/v1/result?outBizId=x&y=2",
			want:   "GET\n/v1/result?outBizId=x&y=2\n1700000000\nnonce123\n{\"a\":1}\n",
		},
		{
			name:   "relative path accepted",
			method: "POST",
			rawURL: "/v1/pay/transaction/result",
			want:   "POST\n/v1/pay/transaction/result\n1700000000\nnonce123\n{\"a\":1}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalRequestMessage(tt.method, tt.rawURL, 1700000000, "nonce123", `{"a":1}`)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("canonical message = %q, want %q", got, tt.want)
			}
		})
	}
}

// the wire contract: five newline-separated segments plus a trailing newline
func TestCanonicalRequestMessageShape(t *testing.T) {
	msg, err := CanonicalRequestMessage("POST", "/v1/x", 1700000000, "n", "body")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasSuffix(msg, "\n") {
		t.Error("canonical message must end with a newline")
	}
	segments := strings.Split(strings.TrimSuffix(msg, "\n"), "\n")
	if len(segments) != 5 {
		t.Errorf("canonical message has %d segments, want 5", len(segments))
	}
}

func TestCanonicalRequestMessageRejectsEmptyMethod(t *testing.T) {
	if _, err := CanonicalRequestMessage("", "/v1/x", 1, "n", ""); err == nil {
		t.Error("expected error for empty method, got nil")
	}
}

// RSASSA-PKCS1-v1_5 is deterministic: signing the same message twice with the
// same key yields the same signature
func TestSignDeterminism(t *testing.T) {
	engine := testEngine(t)

	first, err := engine.Sign("message")
	if err != nil {
		t.Fatalf("first sign failed: %v", err)
	}
	second, err := engine.Sign("message")
	if err != nil {
		t.Fatalf("second sign failed: %v", err)
	}

	if first != second {
		t.Error("signatures over the same message differ")
	}

	other, err := engine.Sign("another message")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if other == first {
		t.Error("different messages produced the same signature")
	}
}

func TestSignRequestProducesFreshNonce(t *testing.T) {
	engine := testEngine(t)

	first, err := engine.SignRequest("POST", "/v1/x", "body")
	if err != nil {
		t.Fatalf("sign request failed: %v", err)
	}
	second, err := engine.SignRequest("POST", "/v1/x", "body")
	if err != nil {
		t.Fatalf("sign request failed: %v", err)
	}

	if first.Nonce == second.Nonce {
		t.Error("nonce reused across requests")
	}
	if first.CanonicalPath != "/v1/x" {
		t.Errorf("canonical path = %q, want /v1/x", first.CanonicalPath)
	}
}

func TestAuthorizationHeaderFormat(t *testing.T) {
	engine := testEngine(t)
	engine.now = func() time.Time { return time.Unix(1700000000, 0) }

	req, err := engine.SignRequest("POST", "/v1/pay/transaction/result", `{"outBizId":"x"}`)
	if err != nil {
		t.Fatalf("sign request failed: %v", err)
	}

	header := engine.AuthorizationHeader(req)

	want := fmt.Sprintf(
		`SHA256withRSA mchid="MG-TEST",serial_no="serial-1",nonce_str="%s",timestamp="1700000000",signature="%s"`,
		req.Nonce, req.Signature,
	)
	if header != want {
		t.Errorf("authorization header = %q, want %q", header, want)
	}
}

func TestGeneratePaymentSignature(t *testing.T) {
	engine := testEngine(t)

	params, err := engine.GeneratePaymentSignature("PREPAY-1")
	if err != nil {
		t.Fatalf("generate payment signature failed: %v", err)
	}

	if params.SignType != "SHA256withRSA" {
		t.Errorf("signType = %q, want SHA256withRSA", params.SignType)
	}
	if params.PaySign == "" {
		t.Error("paySign is empty")
	}

	// rawData is the urlencoded canonical message
	decoded, err := url.QueryUnescape(params.RawData)
	if err != nil {
		t.Fatalf("rawData is not urlencoded: %v", err)
	}
	segments := strings.Split(strings.TrimSuffix(decoded, "\n"), "\n")
	if len(segments) != 6 {
		t.Fatalf("payment message has %d segments, want 6", len(segments))
	}
	if segments[0] != "MG-TEST" || segments[1] != "AX-TEST" || segments[4] != "serial-1" || segments[5] != "PREPAY-1" {
		t.Errorf("unexpected payment message fields: %v", segments)
	}

	// the signature covers the decoded message
	if err := Verify(&engine.privateKey.PublicKey, decoded, params.PaySign); err != nil {
		t.Errorf("payment signature does not verify: %v", err)
	}
}

func TestGeneratePaymentSignatureRequiresPrepayID(t *testing.T) {
	engine := testEngine(t)
	if _, err := engine.GeneratePaymentSignature(""); err == nil {
		t.Error("expected error for empty prepayId, got nil")
	}
}
