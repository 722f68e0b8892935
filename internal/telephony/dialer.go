// Package telephony places outbound calls through the provider's REST
// API. Placement failure is expected and handled by falling back to the
// simulated progression.
package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no provider credentials are set.
var ErrNotConfigured = errors.New("telephony provider not configured")

// Dialer places an outbound call that fetches its voice document from
// voiceURL and reports status to callbackURL.
type Dialer interface {
	PlaceCall(ctx context.Context, toNumber, voiceURL, callbackURL string) (callRef string, err error)
}

// RESTDialer is a Twilio-style calls API client.
type RESTDialer struct {
	baseURL    string
	accountSID string
	authToken  string
	fromNumber string
	http       *http.Client
}

// NewRESTDialer creates a dialer.
func NewRESTDialer(baseURL, accountSID, authToken, fromNumber string) *RESTDialer {
	return &RESTDialer{
		baseURL:    baseURL,
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

type callResource struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// PlaceCall implements Dialer.
func (d *RESTDialer) PlaceCall(ctx context.Context, toNumber, voiceURL, callbackURL string) (string, error) {
	if d.accountSID == "" || d.authToken == "" || d.fromNumber == "" {
		return "", ErrNotConfigured
	}

	form := url.Values{}
	form.Set("To", toNumber)
	form.Set("From", d.fromNumber)
	form.Set("Url", voiceURL)
	form.Set("StatusCallback", callbackURL)
	form.Set("StatusCallbackEvent", "initiated ringing answered completed")

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", d.baseURL, d.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(d.accountSID, d.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call placement failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var res callResource
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("failed to decode call resource: %w", err)
	}
	return res.SID, nil
}
