package webhooks_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarium-dev/solarium/pkg/webhooks"
)

const testSecret = "super-secret"

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestRouter(t *testing.T, handled *int) *mux.Router {
	t.Helper()

	router := mux.NewRouter()
	verifier := webhooks.NewHMACVerifier(map[string]string{"docusign": testSecret})
	protector := webhooks.NewInmemReplayProtector(time.Minute)

	sub := webhooks.Bind(router, "/webhooks", verifier, protector, webhooks.WithMaxBodyBytes(256))
	sub.HandleFunc("/{provider}", func(w http.ResponseWriter, r *http.Request) {
		*handled++
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPost)
	return router
}

func postWebhook(router *mux.Router, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/docusign", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(webhooks.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_ValidSignaturePasses(t *testing.T) {
	t.Parallel()

	handled := 0
	router := newTestRouter(t, &handled)
	body := []byte(`{"envelopeId":"env-1"}`)

	rec := postWebhook(router, body, sign(testSecret, body))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, handled)
}

func TestMiddleware_MissingSignatureRejected(t *testing.T) {
	t.Parallel()

	handled := 0
	router := newTestRouter(t, &handled)

	rec := postWebhook(router, []byte(`{}`), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, handled)
}

func TestMiddleware_BadSignatureRejected(t *testing.T) {
	t.Parallel()

	handled := 0
	router := newTestRouter(t, &handled)
	body := []byte(`{"envelopeId":"env-1"}`)

	rec := postWebhook(router, body, sign("wrong-secret", body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, handled)
}

func TestMiddleware_UnconfiguredProviderRejected(t *testing.T) {
	t.Parallel()

	handled := 0
	router := newTestRouter(t, &handled)
	body := []byte(`{}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clicksign", bytes.NewReader(body))
	req.Header.Set(webhooks.SignatureHeader, sign(testSecret, body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, handled)
}

func TestMiddleware_ReplayRejected(t *testing.T) {
	t.Parallel()

	handled := 0
	router := newTestRouter(t, &handled)
	body := []byte(`{"envelopeId":"env-2"}`)
	signature := sign(testSecret, body)

	first := postWebhook(router, body, signature)
	require.Equal(t, http.StatusAccepted, first.Code)

	second := postWebhook(router, body, signature)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, 1, handled)
}

func TestMiddleware_OversizedBodyRejected(t *testing.T) {
	t.Parallel()

	handled := 0
	router := newTestRouter(t, &handled)
	body := []byte(strings.Repeat("x", 512))

	rec := postWebhook(router, body, sign(testSecret, body))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, handled)
}

func TestMiddleware_BodyRestoredForHandler(t *testing.T) {
	t.Parallel()

	var got []byte
	router := mux.NewRouter()
	verifier := webhooks.NewHMACVerifier(map[string]string{"docusign": testSecret})
	protector := webhooks.NewInmemReplayProtector(time.Minute)
	sub := webhooks.Bind(router, "/webhooks", verifier, protector)
	sub.HandleFunc("/{provider}", func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		got = buf.Bytes()
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPost)

	body := []byte(`{"envelopeId":"env-3"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/docusign", bytes.NewReader(body))
	req.Header.Set(webhooks.SignatureHeader, sign(testSecret, body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, body, got)
}
