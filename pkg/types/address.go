package types

import "strings"

// Address is a shipping destination stored as a JSONB snapshot. Orders copy it
// by value at checkout so later edits to a user's saved addresses never alter
// order history.
type Address struct {
	Recipient  string  `json:"recipient"`
	Phone      string  `json:"phone"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Note       *string `json:"note,omitempty"`
}

// Validate reports whether the required destination fields are present.
func (a Address) Validate() bool {
	return strings.TrimSpace(a.Recipient) != "" &&
		strings.TrimSpace(a.Line1) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.PostalCode) != ""
}
