package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
	"github.com/aussiebroadwan/adsync/internal/tokens/store"
	"github.com/aussiebroadwan/adsync/pkg/idx"
)

// DefaultCallTimeout bounds each exchange and introspection call.
const DefaultCallTimeout = 30 * time.Second

// Action is what a sweep did for one identity.
type Action string

const (
	ActionRenewed Action = "renewed"
	ActionNotDue  Action = "not_due"
	ActionMissing Action = "missing"
	ActionFailed  Action = "failed"
)

// IdentityOutcome is the result of a sweep for one identity.
type IdentityOutcome struct {
	IdentityID string
	Action     Action

	// PreviousExpiresAt is the stored expiry before the sweep. Zero when
	// nothing was stored.
	PreviousExpiresAt time.Time
	// ExpiresAt is the expiry after the sweep.
	ExpiresAt time.Time

	Err error
}

// SweepReport summarises one pass over all configured identities.
type SweepReport struct {
	RunID      idx.ID
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []IdentityOutcome
}

func (r SweepReport) count(actions ...Action) int {
	n := 0
	for _, o := range r.Outcomes {
		for _, a := range actions {
			if o.Action == a {
				n++
			}
		}
	}
	return n
}

// Renewed returns how many identities got a new credential.
func (r SweepReport) Renewed() int { return r.count(ActionRenewed) }

// Failed returns how many identities failed to renew.
func (r SweepReport) Failed() int { return r.count(ActionFailed) }

// Skipped returns how many identities were not due or had nothing stored.
func (r SweepReport) Skipped() int { return r.count(ActionNotDue, ActionMissing) }

// Duration returns how long the sweep took.
func (r SweepReport) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// RenewalService keeps the stored credential of every configured identity
// away from expiry.
type RenewalService struct {
	Identities IdentitySource
	Store      store.Credentials
	Exchanger  Exchanger
	Policy     Policy
	Logger     *slog.Logger

	// CallTimeout bounds each platform call. Defaults to DefaultCallTimeout.
	CallTimeout time.Duration
	// Concurrency is how many identities are processed at once. Defaults to 1.
	Concurrency int

	// Now is overridable for tests.
	Now func() time.Time
}

// NewRenewalService creates a RenewalService with default timeouts and
// sequential processing.
func NewRenewalService(identities IdentitySource, st store.Credentials, ex Exchanger, policy Policy, logger *slog.Logger) *RenewalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RenewalService{
		Identities:  identities,
		Store:       st,
		Exchanger:   ex,
		Policy:      policy,
		Logger:      logger,
		CallTimeout: DefaultCallTimeout,
		Concurrency: 1,
		Now:         time.Now,
	}
}

// CheckAndRenewAll runs one sweep. Every configured identity is handled on
// its own: a missing record or a failed renewal is recorded in the report and
// logged, and never stops the others. The sweep itself cannot fail.
func (s *RenewalService) CheckAndRenewAll(ctx context.Context) SweepReport {
	report := SweepReport{RunID: idx.New(), StartedAt: s.now()}
	logger := s.Logger.With("run_id", report.RunID.String())

	identities := s.Identities.Identities()
	records := make(map[string]domain.CredentialRecord)
	for _, rec := range s.Store.GetAll(ctx) {
		records[rec.IdentityID] = rec
	}

	logger.Info("renewal sweep started",
		"identities", len(identities),
		"stored_records", len(records),
	)

	report.Outcomes = make([]IdentityOutcome, len(identities))

	var g errgroup.Group
	g.SetLimit(max(s.Concurrency, 1))
	for i, identity := range identities {
		rec, ok := records[identity.ID]
		g.Go(func() error {
			report.Outcomes[i] = s.check(ctx, logger.With("identity_id", identity.ID), identity, rec, ok)
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = s.now()
	logger.Info("renewal sweep finished",
		"renewed", report.Renewed(),
		"failed", report.Failed(),
		"skipped", report.Skipped(),
		"duration_ms", report.Duration().Milliseconds(),
	)
	return report
}

// check is the per-identity boundary of a sweep. All errors end here.
func (s *RenewalService) check(ctx context.Context, logger *slog.Logger, identity domain.Identity, rec domain.CredentialRecord, stored bool) IdentityOutcome {
	out := IdentityOutcome{IdentityID: identity.ID}

	if !stored {
		// Scheduled sweeps never bootstrap
		logger.Warn("no stored credential, skipping identity; run bootstrap to create one")
		out.Action = ActionMissing
		return out
	}

	now := s.now()
	out.PreviousExpiresAt = rec.ExpiresAt
	out.ExpiresAt = rec.ExpiresAt

	if !s.Policy.NeedsRenewal(rec.ExpiresAt, now) {
		logger.Info("credential not due for renewal",
			"expires_at", rec.ExpiresAt,
			"days_until_expiration", s.Policy.DaysUntilExpiration(rec.ExpiresAt, now),
		)
		out.Action = ActionNotDue
		return out
	}

	logger.Info("renewing credential",
		"expires_at", rec.ExpiresAt,
		"days_until_expiration", s.Policy.DaysUntilExpiration(rec.ExpiresAt, now),
		"fingerprint", rec.Fingerprint(),
	)

	renewed, err := s.rotation().rotate(ctx, identity, rec.Credential, now)
	if err != nil {
		logger.Error("credential renewal failed", "error", err)
		out.Action = ActionFailed
		out.Err = err
		return out
	}

	logger.Info("credential renewed",
		"expires_at", renewed.ExpiresAt,
		"days_until_expiration", s.Policy.DaysUntilExpiration(renewed.ExpiresAt, now),
		"previous_fingerprint", rec.Fingerprint(),
		"fingerprint", renewed.Fingerprint(),
	)
	out.Action = ActionRenewed
	out.ExpiresAt = renewed.ExpiresAt
	return out
}

// RenewIdentity renews one identity right away, regardless of the policy,
// using its currently stored credential.
func (s *RenewalService) RenewIdentity(ctx context.Context, identity domain.Identity) (domain.CredentialRecord, error) {
	rec, ok := s.Store.Get(ctx, identity.ID)
	if !ok {
		return domain.CredentialRecord{}, ErrNoCredential
	}
	return s.rotation().rotate(ctx, identity, rec.Credential, s.now())
}

func (s *RenewalService) rotation() rotation {
	return rotation{exchanger: s.Exchanger, store: s.Store, callTimeout: s.CallTimeout}
}

func (s *RenewalService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
