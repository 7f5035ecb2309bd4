package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/service"
	"github.com/aussiebroadwan/adsync/internal/tokens/store"
	"github.com/aussiebroadwan/adsync/pkg/httpx"
)

// CredentialsHandler lists the credential state of every configured
// identity. Credentials themselves are never included.
type CredentialsHandler struct {
	Identities service.IdentitySource
	Store      store.Credentials
	Policy     service.Policy
	Now        func() time.Time
}

func (h *CredentialsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}

	views := service.Describe(r.Context(), h.Identities.Identities(), h.Store, h.Policy, now)

	resp := CredentialsResponse{Credentials: make([]CredentialStatus, 0, len(views))}
	for _, v := range views {
		resp.Credentials = append(resp.Credentials, CredentialStatus{
			IdentityID:          v.IdentityID,
			Stored:              v.Stored,
			ExpiresAt:           timePtr(v.ExpiresAt),
			DaysUntilExpiration: v.DaysUntilExpiration,
			NeedsRenewal:        v.NeedsRenewal,
			LastUpdated:         timePtr(v.LastUpdated),
			Fingerprint:         v.Fingerprint,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
