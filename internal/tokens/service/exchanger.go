package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
	"github.com/aussiebroadwan/adsync/internal/tokens/store"
)

// Exchanger talks to the platform's token endpoints. Implementations do not
// retry.
type Exchanger interface {
	// ExchangeForLongLived trades a still-valid credential for a long-lived
	// one. Failures are *domain.ExchangeError.
	ExchangeForLongLived(ctx context.Context, identityID, clientSecret, currentCredential string) (string, error)

	// Introspect reports validity and expiry of credential. Failures are
	// *domain.IntrospectionError.
	Introspect(ctx context.Context, credential string) (domain.TokenIntrospection, error)
}

// IdentitySource yields the configured identities. It is consulted on every
// sweep, so configuration changes are picked up without a restart.
type IdentitySource interface {
	Identities() []domain.Identity
}

// StaticIdentities is a fixed IdentitySource.
type StaticIdentities []domain.Identity

func (s StaticIdentities) Identities() []domain.Identity { return s }

// rotation runs exchange, introspect and store for one identity, strictly in
// that order. It is shared by bootstrap and renewal.
type rotation struct {
	exchanger   Exchanger
	store       store.Credentials
	callTimeout time.Duration
}

func (r rotation) rotate(ctx context.Context, identity domain.Identity, current string, now time.Time) (domain.CredentialRecord, error) {
	fresh, err := r.exchange(ctx, identity, current)
	if err != nil {
		return domain.CredentialRecord{}, err
	}

	info, err := r.introspect(ctx, fresh)
	if err != nil {
		return domain.CredentialRecord{}, err
	}
	if info.IdentityID != "" && info.IdentityID != identity.ID {
		return domain.CredentialRecord{}, &domain.IntrospectionError{
			Err: fmt.Errorf("credential belongs to application %s", info.IdentityID),
		}
	}

	rec := domain.CredentialRecord{
		IdentityID:  identity.ID,
		Credential:  fresh,
		ExpiresAt:   info.ExpiresAt.UTC(),
		LastUpdated: now.UTC(),
	}
	if err := r.store.Put(ctx, rec); err != nil {
		return domain.CredentialRecord{}, err
	}
	return rec, nil
}

func (r rotation) exchange(ctx context.Context, identity domain.Identity, current string) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	fresh, err := r.exchanger.ExchangeForLongLived(ctx, identity.ID, identity.Secret, current)
	if err != nil {
		var exErr *domain.ExchangeError
		if errors.As(err, &exErr) {
			return "", err
		}
		return "", &domain.ExchangeError{IdentityID: identity.ID, Err: err}
	}
	if fresh == "" {
		return "", &domain.ExchangeError{IdentityID: identity.ID, Err: errors.New("empty credential returned")}
	}
	return fresh, nil
}

func (r rotation) introspect(ctx context.Context, credential string) (domain.TokenIntrospection, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	info, err := r.exchanger.Introspect(ctx, credential)
	if err != nil {
		var inErr *domain.IntrospectionError
		if errors.As(err, &inErr) {
			return info, err
		}
		return info, &domain.IntrospectionError{Err: err}
	}

	// Expiry always comes from introspection, never from an assumed lifetime
	switch {
	case !info.Valid:
		return info, &domain.IntrospectionError{Err: errors.New("credential reported invalid")}
	case info.ExpiresAt.IsZero():
		return info, &domain.IntrospectionError{Err: errors.New("no expiry reported")}
	}
	return info, nil
}

func (r rotation) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.callTimeout)
}
