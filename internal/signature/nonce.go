package signature

import (
	"crypto/rand"
)

// NonceLength is the default length of generated nonces.
const NonceLength = 32

const nonceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewNonce returns a fresh random alphanumeric string of the given length.
//
// A nonce is generated once per signed request and never reused - replay
// protection on the merchant API depends on this. Uses crypto/rand; an
// exhausted entropy source is a fatal signing condition.
func NewNonce(length int) (string, error) {
	if length <= 0 {
		length = NonceLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", WrapSigningError(err, "failed to read random bytes for nonce")
	}

	for i, b := range buf {
		buf[i] = nonceCharset[int(b)%len(nonceCharset)]
	}
	return string(buf), nil
}
