// internal/models/account.go
package models

// Platform identifiers
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
)

// LinkedAccount is a client's credential-bearing connection to one external
// social-media account. AccessToken must never be logged.
type LinkedAccount struct {
	ID                string `json:"id"`
	ClientID          string `json:"clientId"`
	Platform          string `json:"platform"`
	AccessToken       string `json:"-"`
	BusinessAccountID string `json:"businessAccountId"`
	IsActive          bool   `json:"isActive"`
}
