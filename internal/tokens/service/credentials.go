package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
	"github.com/aussiebroadwan/adsync/internal/tokens/store"
)

// CredentialSource hands stored credentials to platform API clients.
type CredentialSource struct {
	Store store.Credentials
	Now   func() time.Time
}

// Token returns the current credential of identityID. It fails with
// ErrNoCredential when nothing is stored and ErrCredentialExpired when the
// stored credential is past its expiry.
func (c *CredentialSource) Token(ctx context.Context, identityID string) (string, error) {
	rec, ok := c.Store.Get(ctx, identityID)
	if !ok {
		return "", ErrNoCredential
	}

	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	if rec.IsExpired(now) {
		return "", ErrCredentialExpired
	}
	return rec.Credential, nil
}

// CredentialView is the redacted state of one identity's credential.
type CredentialView struct {
	IdentityID          string
	Stored              bool
	ExpiresAt           time.Time
	LastUpdated         time.Time
	DaysUntilExpiration int
	NeedsRenewal        bool
	Fingerprint         string
}

// Describe reports the credential state of each identity without exposing
// the credentials themselves.
func Describe(ctx context.Context, identities []domain.Identity, st store.Credentials, policy Policy, now time.Time) []CredentialView {
	views := make([]CredentialView, 0, len(identities))
	for _, identity := range identities {
		rec, ok := st.Get(ctx, identity.ID)
		if !ok {
			views = append(views, CredentialView{IdentityID: identity.ID})
			continue
		}
		views = append(views, CredentialView{
			IdentityID:          identity.ID,
			Stored:              true,
			ExpiresAt:           rec.ExpiresAt,
			LastUpdated:         rec.LastUpdated,
			DaysUntilExpiration: policy.DaysUntilExpiration(rec.ExpiresAt, now),
			NeedsRenewal:        policy.NeedsRenewal(rec.ExpiresAt, now),
			Fingerprint:         rec.Fingerprint(),
		})
	}
	return views
}
