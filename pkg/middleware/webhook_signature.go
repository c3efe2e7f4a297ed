package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"staybook/pkg/logger"
)

const HeaderSignature = "X-Signature-256"

// WebhookSignature rejects requests whose body does not carry a valid
// HMAC-SHA256 signature made with secret. The header value may be prefixed
// with "sha256=".
func WebhookSignature(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature := extractSignature(r)

			if signature == "" {
				rejectUnsigned(w, log, r, "Missing "+HeaderSignature+" header")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				rejectUnsigned(w, log, r, "Failed to read request body")
				return
			}

			if !VerifySignature(body, signature, secret) {
				rejectUnsigned(w, log, r, "Invalid webhook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(body []byte, received string, secret string) bool {
	if secret == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(strings.ToLower(received)))
}

func extractSignature(r *http.Request) string {
	header := r.Header.Get(HeaderSignature)
	if header == "" {
		return ""
	}

	signature, _ := strings.CutPrefix(header, "sha256=")
	return signature
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	return body, nil
}

func rejectUnsigned(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Webhook verification failed",
		"request_id", requestIDFrom(r),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
}
