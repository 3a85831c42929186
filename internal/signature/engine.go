// Package signature builds the canonical message strings for the merchant
// payment API and signs them with the merchant's RSA key.
//
// Two distinct canonical strings are produced by the engine:
//
//  1. the HTTP request message (method, path+query, timestamp, nonce, body)
//     signed to build the Authorization header for every API call, and
//  2. the payment-authorization message (mchid, appId, nonce, timestamp,
//     serialNo, prepayId) signed to produce the parameters handed to the
//     native cashier UI.
//
// Both use RSASSA-PKCS1-v1_5 with SHA-256 over the UTF-8 bytes of the
// canonical string, but the strings and their consumers differ. The exact
// field order and the trailing newline after the final field are part of the
// wire contract - the server rebuilds the same byte string to verify.
package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"
)

// SignedRequest captures everything that went into signing one outbound call.
// It is created once per request, used to build the Authorization header, and
// discarded after the call completes.
type SignedRequest struct {
	Method        string
	CanonicalPath string
	Timestamp     int64
	Nonce         string
	Body          string
	Signature     string
}

// Credentials identifies the merchant to the payment API.
type Credentials struct {
	MerchantID string
	AppID      string
	SerialNo   string
}

// PaymentParams is the signed payload handed to the cashier UI to authorize a
// prepared order.
type PaymentParams struct {
	RawData  string `json:"rawData"`
	PaySign  string `json:"paySign"`
	SignType string `json:"signType"`
}

// Engine signs canonical messages with the merchant private key.
type Engine struct {
	credentials Credentials
	privateKey  *rsa.PrivateKey

	// now is swappable for deterministic tests
	now func() time.Time
}

// NewEngine creates a signing engine for the given merchant credentials.
func NewEngine(credentials Credentials, privateKey *rsa.PrivateKey) (*Engine, error) {
	if privateKey == nil {
		return nil, NewKeyManagementError("private key is required")
	}
	if credentials.MerchantID == "" || credentials.AppID == "" || credentials.SerialNo == "" {
		return nil, NewValidationError("merchantID, appID and serialNo are required")
	}
	return &Engine{
		credentials: credentials,
		privateKey:  privateKey,
		now:         time.Now,
	}, nil
}

// CanonicalRequestMessage builds the byte string signed for an HTTP request:
//
//	METHOD \n path+query \n timestamp \n nonce \n body \n
//
// Five newline-terminated fields; the trailing newline after the body is
// mandatory - the server-side verification rebuilds exactly this string.
// rawURL may be absolute or just a path; only path+query are canonical.
func CanonicalRequestMessage(method, rawURL string, timestamp int64, nonce, body string) (string, error) {
	if method == "" {
		return "", NewValidationError("method is required")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", NewValidationError(fmt.Sprintf("invalid request URL %q: %v", rawURL, err))
	}

	canonical := u.Path
	if u.RawQuery != "" {
		canonical += "?" + u.RawQuery
	}

	return fmt.Sprintf("%s\n%s\n%d\n%s\n%s\n", method, canonical, timestamp, nonce, body), nil
}

// Sign produces the base64 RSASSA-PKCS1-v1_5/SHA-256 signature of message.
func (e *Engine) Sign(message string) (string, error) {
	digest := sha256.Sum256([]byte(message))

	sig, err := rsa.SignPKCS1v15(rand.Reader, e.privateKey, crypto.SHA256, digest[:])
	if err != nil {
		return "", WrapSigningError(err, "failed to sign message")
	}

	return base64.StdEncoding.EncodeToString(sig), nil
}

// SignRequest signs one outbound HTTP call with a fresh nonce and the current
// Unix timestamp and returns the full SignedRequest.
func (e *Engine) SignRequest(method, rawURL, body string) (SignedRequest, error) {
	nonce, err := NewNonce(NonceLength)
	if err != nil {
		return SignedRequest{}, err
	}
	timestamp := e.now().Unix()

	message, err := CanonicalRequestMessage(method, rawURL, timestamp, nonce, body)
	if err != nil {
		return SignedRequest{}, err
	}

	sig, err := e.Sign(message)
	if err != nil {
		return SignedRequest{}, err
	}

	u, _ := url.Parse(rawURL)
	canonical := u.Path
	if u.RawQuery != "" {
		canonical += "?" + u.RawQuery
	}

	return SignedRequest{
		Method:        method,
		CanonicalPath: canonical,
		Timestamp:     timestamp,
		Nonce:         nonce,
		Body:          body,
		Signature:     sig,
	}, nil
}

// AuthorizationHeader formats a signed request as the Authorization header
// value expected by the merchant API. Field order and quoting are fixed:
//
//	SHA256withRSA mchid="...",serial_no="...",nonce_str="...",timestamp="...",signature="..."
func (e *Engine) AuthorizationHeader(req SignedRequest) string {
	return fmt.Sprintf(
		`SHA256withRSA mchid="%s",serial_no="%s",nonce_str="%s",timestamp="%d",signature="%s"`,
		e.credentials.MerchantID,
		e.credentials.SerialNo,
		req.Nonce,
		req.Timestamp,
		req.Signature,
	)
}

// BuildAuthorizationHeader signs the request and returns the Authorization
// header value in one step.
func (e *Engine) BuildAuthorizationHeader(method, rawURL, body string) (string, error) {
	req, err := e.SignRequest(method, rawURL, body)
	if err != nil {
		return "", err
	}
	return e.AuthorizationHeader(req), nil
}

// GeneratePaymentSignature signs the payment-authorization message for a
// prepared order. The resulting parameters are handed to the cashier UI via
// the payment bridge (not sent as an HTTP header).
//
// Canonical form, newline-joined with a trailing newline:
//
//	merchantId \n appId \n nonce \n timestamp \n serialNo \n prepayId \n
func (e *Engine) GeneratePaymentSignature(prepayID string) (PaymentParams, error) {
	if prepayID == "" {
		return PaymentParams{}, NewValidationError("prepayId is required")
	}

	nonce, err := NewNonce(NonceLength)
	if err != nil {
		return PaymentParams{}, err
	}
	timestamp := e.now().Unix()

	message := fmt.Sprintf("%s\n%s\n%s\n%d\n%s\n%s\n",
		e.credentials.MerchantID,
		e.credentials.AppID,
		nonce,
		timestamp,
		e.credentials.SerialNo,
		prepayID,
	)

	sig, err := e.Sign(message)
	if err != nil {
		return PaymentParams{}, err
	}

	return PaymentParams{
		RawData:  url.QueryEscape(message),
		PaySign:  sig,
		SignType: "SHA256withRSA",
	}, nil
}

// Credentials returns the engine's merchant identity (used by the gateway to
// build request bodies).
func (e *Engine) Credentials() Credentials {
	return e.credentials
}
