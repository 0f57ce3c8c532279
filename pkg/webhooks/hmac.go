package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

const SignatureHeader = "X-Signature"

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrBadSignature     = errors.New("webhook signature mismatch")
)

// HMACVerifier checks the hex-encoded HMAC-SHA256 of the raw body
// against the X-Signature header, keyed per provider. Providers without
// a configured secret are rejected outright.
type HMACVerifier struct {
	secrets map[string]string
}

func NewHMACVerifier(secrets map[string]string) *HMACVerifier {
	normalized := make(map[string]string, len(secrets))
	for provider, secret := range secrets {
		normalized[strings.ToLower(strings.TrimSpace(provider))] = secret
	}
	return &HMACVerifier{secrets: normalized}
}

func (v *HMACVerifier) Verify(_ context.Context, r *http.Request, body []byte) error {
	provider := strings.ToLower(strings.TrimSpace(providerFromRequest(r)))
	secret, ok := v.secrets[provider]
	if !ok || strings.TrimSpace(secret) == "" {
		return errors.New("no webhook secret configured for provider " + provider)
	}

	sigHex := strings.TrimSpace(r.Header.Get(SignatureHeader))
	if sigHex == "" {
		return ErrMissingSignature
	}
	provided, err := hex.DecodeString(sigHex)
	if err != nil {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return ErrBadSignature
	}
	return nil
}

// providerFromRequest extracts the provider segment from paths shaped
// like /webhooks/{provider}.
func providerFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
