package domain

import "context"

// Address is a best-effort reverse-geocoded location for a coordinate pair.
// A zero Address means the provider had nothing for the point.
type Address struct {
	State  string `json:"state,omitempty"`
	City   string `json:"city,omitempty"`
	Street string `json:"street,omitempty"`
}

// IsZero reports whether the provider returned no usable components.
func (a Address) IsZero() bool {
	return a.State == "" && a.City == "" && a.Street == ""
}

// Geocoder resolves a coordinate pair to an address. Implementations must be
// safe for concurrent use; enrichment fans out across rows.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Address, error)
}
