package domain

import "time"

// CredentialKind distinguishes the two stored token kinds.
type CredentialKind string

const (
	CredentialAccess  CredentialKind = "access"
	CredentialRefresh CredentialKind = "refresh"
)

// Credential is the session's OAuth material. Replaced wholesale on refresh,
// deleted on logout. IssuedAtMillis is always set whenever AccessToken is.
type Credential struct {
	AccessToken    string `json:"-"`
	RefreshToken   string `json:"-"`
	IssuedAtMillis int64  `json:"issued_at_millis"`
}

// IssuedAt returns the issue time, zero when unset.
func (c Credential) IssuedAt() time.Time {
	if c.IssuedAtMillis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.IssuedAtMillis)
}

// Age returns the credential age at the given instant.
func (c Credential) Age(now time.Time) time.Duration {
	return now.Sub(c.IssuedAt())
}
