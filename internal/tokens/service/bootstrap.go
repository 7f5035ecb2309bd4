package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
	"github.com/aussiebroadwan/adsync/internal/tokens/store"
)

// BootstrapOutcome is the result of bootstrapping one identity.
type BootstrapOutcome struct {
	IdentityID          string
	ExpiresAt           time.Time
	DaysUntilExpiration int
	Err                 error
}

// BootstrapReport lists what Bootstrap did per identity.
type BootstrapReport struct {
	Outcomes []BootstrapOutcome
}

// Succeeded returns how many identities now have a stored credential.
func (r BootstrapReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns how many identities could not be bootstrapped.
func (r BootstrapReport) Failed() int { return len(r.Outcomes) - r.Succeeded() }

// BootstrapService turns the short-lived initial credentials from
// configuration into stored long-lived ones. It is an explicit, operator
// driven step; scheduled sweeps never bootstrap.
type BootstrapService struct {
	Identities  IdentitySource
	Store       store.Credentials
	Exchanger   Exchanger
	Policy      Policy
	Logger      *slog.Logger
	CallTimeout time.Duration
	Now         func() time.Time
}

func NewBootstrapService(identities IdentitySource, st store.Credentials, ex Exchanger, policy Policy, logger *slog.Logger) *BootstrapService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BootstrapService{
		Identities:  identities,
		Store:       st,
		Exchanger:   ex,
		Policy:      policy,
		Logger:      logger,
		CallTimeout: DefaultCallTimeout,
		Now:         time.Now,
	}
}

// Bootstrap exchanges the initial credential of every identity that has
// one. Per identity failures are logged and reported; only having nothing to
// bootstrap at all is an error (ErrNoIdentities).
func (s *BootstrapService) Bootstrap(ctx context.Context) (BootstrapReport, error) {
	var candidates []domain.Identity
	for _, identity := range s.Identities.Identities() {
		if identity.CanBootstrap() {
			candidates = append(candidates, identity)
		}
	}
	if len(candidates) == 0 {
		return BootstrapReport{}, ErrNoIdentities
	}

	rot := rotation{exchanger: s.Exchanger, store: s.Store, callTimeout: s.CallTimeout}
	report := BootstrapReport{Outcomes: make([]BootstrapOutcome, 0, len(candidates))}

	s.Logger.Info("bootstrap started", "identities", len(candidates))
	for _, identity := range candidates {
		logger := s.Logger.With("identity_id", identity.ID)
		now := s.now()

		rec, err := rot.rotate(ctx, identity, identity.InitialCredential, now)
		if err != nil {
			logger.Error("bootstrap failed", "error", err)
			report.Outcomes = append(report.Outcomes, BootstrapOutcome{IdentityID: identity.ID, Err: err})
			continue
		}

		days := s.Policy.DaysUntilExpiration(rec.ExpiresAt, now)
		logger.Info("credential bootstrapped",
			"expires_at", rec.ExpiresAt,
			"days_until_expiration", days,
			"fingerprint", rec.Fingerprint(),
		)
		report.Outcomes = append(report.Outcomes, BootstrapOutcome{
			IdentityID:          identity.ID,
			ExpiresAt:           rec.ExpiresAt,
			DaysUntilExpiration: days,
		})
	}

	s.Logger.Info("bootstrap finished", "succeeded", report.Succeeded(), "failed", report.Failed())
	return report, nil
}

func (s *BootstrapService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
