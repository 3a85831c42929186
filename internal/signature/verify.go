package signature

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// authScheme is the Authorization scheme prefix on signed merchant requests.
const authScheme = "SHA256withRSA "

// AuthorizationFields are the parameters carried in a signed request's
// Authorization header.
type AuthorizationFields struct {
	MerchantID string
	SerialNo   string
	Nonce      string
	Timestamp  int64
	Signature  string
}

// ParseAuthorizationHeader decodes an Authorization header of the form
//
//	SHA256withRSA mchid="...",serial_no="...",nonce_str="...",timestamp="...",signature="..."
//
// All five fields are required.
func ParseAuthorizationHeader(header string) (AuthorizationFields, error) {
	if !strings.HasPrefix(header, authScheme) {
		return AuthorizationFields{}, NewValidationError("unsupported authorization scheme")
	}

	fields := AuthorizationFields{}
	for _, part := range strings.Split(strings.TrimPrefix(header, authScheme), ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return AuthorizationFields{}, NewValidationError(fmt.Sprintf("malformed authorization parameter %q", part))
		}
		value = strings.Trim(value, `"`)

		switch key {
		case "mchid":
			fields.MerchantID = value
		case "serial_no":
			fields.SerialNo = value
		case "nonce_str":
			fields.Nonce = value
		case "timestamp":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return AuthorizationFields{}, NewValidationError(fmt.Sprintf("invalid timestamp %q", value))
			}
			fields.Timestamp = ts
		case "signature":
			fields.Signature = value
		default:
			return AuthorizationFields{}, NewValidationError(fmt.Sprintf("unknown authorization parameter %q", key))
		}
	}

	if fields.MerchantID == "" || fields.SerialNo == "" || fields.Nonce == "" ||
		fields.Timestamp == 0 || fields.Signature == "" {
		return AuthorizationFields{}, NewValidationError("authorization header is missing required parameters")
	}
	return fields, nil
}

// Verify checks a base64 RSASSA-PKCS1-v1_5/SHA-256 signature over message.
func Verify(publicKey *rsa.PublicKey, message, signatureB64 string) error {
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return WrapValidationError(err, "signature is not valid base64")
	}

	digest := sha256.Sum256([]byte(message))
	if err := rsa.VerifyPKCS1v15(publicKey, crypto.SHA256, digest[:], sig); err != nil {
		return WrapValidationError(err, "signature verification failed")
	}
	return nil
}

// VerifyRequest rebuilds the canonical message for an inbound HTTP request
// from the parsed Authorization fields and verifies its signature.
func VerifyRequest(publicKey *rsa.PublicKey, method, rawURL string, fields AuthorizationFields, body string) error {
	message, err := CanonicalRequestMessage(method, rawURL, fields.Timestamp, fields.Nonce, body)
	if err != nil {
		return err
	}
	return Verify(publicKey, message, fields.Signature)
}
