package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestVerifySignatureDisabledWithoutSecret(t *testing.T) {
	h := VerifySignature("", "https://example.com")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/call-status", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected passthrough without secret, got %d", w.Code)
	}
}

func TestVerifySignatureAcceptsValid(t *testing.T) {
	secret := "token123"
	base := "https://example.com"
	form := url.Values{"CallSid": {"c1"}, "CallStatus": {"ringing"}}
	target := "/webhooks/call-status?call_id=c1"

	sig := computeSignature(secret, base+target, form)

	h := VerifySignature(secret, base)(okHandler())
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(SignatureHeader, sig)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected valid signature accepted, got %d", w.Code)
	}
}

func TestVerifySignatureRejectsInvalid(t *testing.T) {
	h := VerifySignature("token123", "https://example.com")(okHandler())

	form := url.Values{"CallStatus": {"ringing"}}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/call-status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(SignatureHeader, "bogus")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for bad signature, got %d", w.Code)
	}
}
