package auth

import "strings"

// Principal is the identity asserted by the external auth provider
type Principal struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url"`
}

// IsZero reports whether the principal carries no identity
func (p Principal) IsZero() bool {
	return strings.TrimSpace(p.ExternalID) == ""
}
