// Package exchange connects the renewal service to the ad platform's Graph
// API token endpoints.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
	"github.com/aussiebroadwan/adsync/internal/tokens/service"
	"github.com/aussiebroadwan/adsync/pkg/graphsdk"
)

// Graph implements service.Exchanger over graphsdk.
type Graph struct {
	client *graphsdk.Client
}

var _ service.Exchanger = (*Graph)(nil)

func NewGraph(client *graphsdk.Client) *Graph {
	return &Graph{client: client}
}

// ExchangeForLongLived trades current for a long-lived credential of the
// application identityID.
func (g *Graph) ExchangeForLongLived(ctx context.Context, identityID, clientSecret, current string) (string, error) {
	resp, err := g.client.ExchangeToken(ctx, identityID, clientSecret, current)
	if err != nil {
		return "", &domain.ExchangeError{IdentityID: identityID, Err: err}
	}
	return resp.AccessToken, nil
}

// Introspect debugs credential with itself. Tokens the platform reports as
// invalid or without an expiry are errors.
func (g *Graph) Introspect(ctx context.Context, credential string) (domain.TokenIntrospection, error) {
	data, err := g.client.DebugToken(ctx, credential, credential)
	if err != nil {
		return domain.TokenIntrospection{}, &domain.IntrospectionError{Err: err}
	}

	info := domain.TokenIntrospection{
		Valid:               data.IsValid,
		IdentityID:          data.AppID,
		Type:                data.Type,
		ExpiresAt:           fromUnix(data.ExpiresAt),
		IssuedAt:            fromUnix(data.IssuedAt),
		DataAccessExpiresAt: fromUnix(data.DataAccessExpiresAt),
		Scopes:              data.Scopes,
	}

	if !data.IsValid {
		reason := errors.New("platform reports credential invalid")
		if data.Error != nil {
			reason = fmt.Errorf("platform reports credential invalid: %s (code %d)", data.Error.Message, data.Error.Code)
		}
		return info, &domain.IntrospectionError{Err: reason}
	}
	if data.ExpiresAt == 0 {
		return info, &domain.IntrospectionError{Err: errors.New("platform reports no expiry")}
	}
	return info, nil
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
