// Package places implements vendor discovery over the Places text-search
// API, with a built-in fallback list when the API is unavailable or
// returns nothing.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
	"github.com/amanpal108/Zenno-Concierge/pkg/logger"
)

// Searcher discovers vendors for a query near a location.
type Searcher interface {
	Search(ctx context.Context, query, location string) ([]model.Vendor, error)
}

// Client calls the Places text-search HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient creates a places client. An empty API key means every search
// serves the fallback list.
func NewClient(baseURL, apiKey string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  log,
	}
}

type textSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID          string  `json:"place_id"`
		Name             string  `json:"name"`
		FormattedAddress string  `json:"formatted_address"`
		Rating           float64 `json:"rating"`
	} `json:"results"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		InternationalPhoneNumber string `json:"international_phone_number"`
		FormattedPhoneNumber     string `json:"formatted_phone_number"`
	} `json:"result"`
}

// maxDetailsLookups bounds the per-search fan-out of phone-number lookups.
const maxDetailsLookups = 5

// Search implements Searcher. API failure and zero results both degrade
// to the fallback vendor list; discovery must never block the journey.
func (c *Client) Search(ctx context.Context, query, location string) ([]model.Vendor, error) {
	if c.apiKey == "" {
		return FallbackVendors(), nil
	}

	vendors, err := c.textSearch(ctx, query, location)
	if err != nil {
		c.logger.Warn("places search failed, serving fallback vendors", zap.Error(err))
		return FallbackVendors(), nil
	}
	if len(vendors) == 0 {
		return FallbackVendors(), nil
	}
	return vendors, nil
}

func (c *Client) textSearch(ctx context.Context, query, location string) ([]model.Vendor, error) {
	q := query
	if location != "" {
		q = fmt.Sprintf("%s in %s", query, location)
	}

	params := url.Values{}
	params.Set("query", q)
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/textsearch/json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places returned status %d", resp.StatusCode)
	}

	var parsed textSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode places response: %w", err)
	}
	if parsed.Status != "OK" && parsed.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("places status %s", parsed.Status)
	}

	vendors := make([]model.Vendor, 0, len(parsed.Results))
	for i, r := range parsed.Results {
		v := model.Vendor{
			ID:       uuid.New().String(),
			Name:     r.Name,
			Address:  r.FormattedAddress,
			Rating:   r.Rating,
			PlaceRef: r.PlaceID,
		}
		// Text search omits phone numbers; without one the call can only
		// be simulated, so the top results get a details lookup.
		if i < maxDetailsLookups {
			phone, err := c.phoneNumber(ctx, r.PlaceID)
			if err != nil {
				c.logger.Warn("place details lookup failed",
					zap.String("place_ref", r.PlaceID), zap.Error(err))
			}
			v.Phone = phone
		}
		vendors = append(vendors, v)
	}
	return vendors, nil
}

// phoneNumber fetches a place's dialable number from the details endpoint.
func (c *Client) phoneNumber(ctx context.Context, placeID string) (string, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "international_phone_number,formatted_phone_number")
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/details/json?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("details request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("details returned status %d", resp.StatusCode)
	}

	var parsed detailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode details response: %w", err)
	}
	if parsed.Status != "OK" {
		return "", fmt.Errorf("details status %s", parsed.Status)
	}

	if parsed.Result.InternationalPhoneNumber != "" {
		return parsed.Result.InternationalPhoneNumber, nil
	}
	return parsed.Result.FormattedPhoneNumber, nil
}

// FallbackVendors is the fixed built-in vendor list served when discovery
// cannot produce results.
func FallbackVendors() []model.Vendor {
	return []model.Vendor{
		{
			ID:         "fallback-1",
			Name:       "Lakshmi Saree Emporium",
			Address:    "12 MG Road, Bengaluru",
			Phone:      "+919800000001",
			DistanceKm: 1.2,
			Rating:     4.5,
		},
		{
			ID:         "fallback-2",
			Name:       "Kanchi Silks",
			Address:    "45 Commercial Street, Bengaluru",
			Phone:      "+919800000002",
			DistanceKm: 2.8,
			Rating:     4.2,
		},
		{
			ID:         "fallback-3",
			Name:       "Meera Handlooms",
			Address:    "8 Jayanagar 4th Block, Bengaluru",
			Phone:      "+919800000003",
			DistanceKm: 4.1,
			Rating:     4.7,
		},
	}
}
