package types

import "strings"

// Address is the shipping/delivery destination snapshot stored on drafts,
// orders and suborders.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// IsZero reports whether no component of the address is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Oneline renders the address for rider-facing delivery metadata.
func (a Address) Oneline() string {
	parts := []string{}
	for _, p := range []string{a.Line1, a.Line2, a.City, a.Region, a.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}
