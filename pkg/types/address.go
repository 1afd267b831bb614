package types

import (
	"fmt"
	"strings"
)

// Address is a normalized delivery address stored as a JSON document on the request.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	Region     string  `json:"region,omitempty"`
	PostalCode string  `json:"postalCode,omitempty"`
	Country    string  `json:"country,omitempty"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	PlaceID    string  `json:"placeId,omitempty"`
}

// Validate checks the minimum fields needed to deliver to an address.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if a.Lat < -90 || a.Lat > 90 || a.Lng < -180 || a.Lng > 180 {
		return fmt.Errorf("address: coordinates out of range")
	}
	return nil
}

// HasCoordinates reports whether the address was geocoded.
func (a Address) HasCoordinates() bool {
	return a.Lat != 0 || a.Lng != 0
}

// Formatted renders a single-line representation for display and geocoding.
func (a Address) Formatted() string {
	parts := []string{strings.TrimSpace(a.Line1)}
	if a.Line2 != nil && strings.TrimSpace(*a.Line2) != "" {
		parts = append(parts, strings.TrimSpace(*a.Line2))
	}
	for _, p := range []string{a.City, a.Region, a.PostalCode, a.Country} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}
