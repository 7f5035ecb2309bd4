package domain

import (
	"time"

	"github.com/aussiebroadwan/adsync/pkg/cryptox"
)

// CredentialRecord is the persisted long-lived credential of one identity.
// A write for an existing IdentityID always replaces the whole record.
type CredentialRecord struct {
	IdentityID  string
	Credential  string // Opaque platform token, never logged
	ExpiresAt   time.Time // Whole seconds; stores truncate on write
	LastUpdated time.Time
}

// IsExpired returns true if the credential has passed its expiry instant.
func (r *CredentialRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Fingerprint returns a short, non-reversible identifier for the credential
// so rotations can be correlated in logs without leaking the secret.
func (r *CredentialRecord) Fingerprint() string {
	return Fingerprint(r.Credential)
}

// TokenIntrospection is what the platform reports about a credential. It is
// consumed immediately to derive a record's expiry and is never persisted.
type TokenIntrospection struct {
	Valid               bool
	IdentityID          string // Application the credential belongs to
	Type                string // e.g. "USER", "PAGE"
	ExpiresAt           time.Time
	IssuedAt            time.Time
	DataAccessExpiresAt time.Time
	Scopes              []string
}

// Fingerprint returns the first 8 characters of the credential's SHA-256
// fingerprint. Empty credentials fingerprint to "".
func Fingerprint(credential string) string {
	if credential == "" {
		return ""
	}
	return cryptox.FingerprintToken(credential)[:8]
}
