package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Address is a shipping address captured at checkout, stored as jsonb.
type Address struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// IsZero reports whether no meaningful fields are set.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line1) == "" && strings.TrimSpace(a.PostalCode) == ""
}

// Fingerprint returns a stable hash of the normalized address fields, used to
// dedupe entries in a user's saved-address list.
func (a Address) Fingerprint() string {
	parts := []string{a.Name, a.Phone, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country}
	for i, part := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(part), " "))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
