package model

// Vendor is a discovered merchant. Immutable once stored for a session;
// a new search replaces the whole list.
type Vendor struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Phone      string  `json:"phone"`
	DistanceKm float64 `json:"distance_km"`
	Rating     float64 `json:"rating,omitempty"`
	PlaceRef   string  `json:"place_ref,omitempty"`
}
