package auth

import "strings"

// Identity is the authenticated principal as known by the identity provider.
// It is replaced wholesale on every identity-change notification and is
// read-only to everything downstream of the session controller.
type Identity struct {
	Subject     string
	Email       string
	DisplayName string
	PhotoURL    string
}

func (id Identity) Valid() bool {
	return strings.TrimSpace(id.Subject) != ""
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
