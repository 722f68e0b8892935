package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"sort"
)

// SignatureHeader is where the telephony provider puts its request
// signature.
const SignatureHeader = "X-Twilio-Signature"

// VerifySignature validates provider webhook signatures: HMAC-SHA1 over
// the full request URL concatenated with the sorted POST parameters,
// base64-encoded. An empty secret disables verification so local and
// simulated setups keep working.
func VerifySignature(secret, publicBaseURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			if err := r.ParseForm(); err != nil {
				http.Error(w, `{"error":"malformed form body"}`, http.StatusBadRequest)
				return
			}

			expected := computeSignature(secret, publicBaseURL+r.URL.RequestURI(), r.PostForm)
			got := r.Header.Get(SignatureHeader)
			if !hmac.Equal([]byte(expected), []byte(got)) {
				http.Error(w, `{"error":"invalid signature"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func computeSignature(secret, url string, form map[string][]string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := url
	for _, k := range keys {
		for _, v := range form[k] {
			payload += k + v
		}
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
