package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks a hex HMAC-SHA256 of payload against the header
// value. A "sha256=" prefix on the header is accepted. Malformed headers
// are a mismatch, not an error; only an empty secret is an error.
func VerifySignature(payload []byte, signatureHeader, secret string) (bool, error) {
	if secret == "" {
		return false, ErrSecretNotConfigured
	}

	sig := strings.TrimSpace(signatureHeader)
	if len(sig) >= len(signaturePrefix) && strings.EqualFold(sig[:len(signaturePrefix)], signaturePrefix) {
		sig = sig[len(signaturePrefix):]
	}
	if sig == "" {
		return false, nil
	}

	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false, nil
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decoded), nil
}

// SignPayload returns the hex HMAC-SHA256 signature header for payload.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verifier checks deliveries against the secret it was built with.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: strings.TrimSpace(secret)}
}

// Verify returns ErrSecretNotConfigured or ErrUnauthorized on failure.
func (v *Verifier) Verify(payload []byte, signatureHeader string) error {
	ok, err := VerifySignature(payload, signatureHeader, v.secret)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}
