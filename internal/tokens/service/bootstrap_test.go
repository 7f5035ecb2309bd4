package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
	"github.com/aussiebroadwan/adsync/pkg/slogx"
)

func TestBootstrapRequiresIdentities(t *testing.T) {
	t.Parallel()

	_, clock := fixedClock()
	ex := newFakeExchanger(clock)

	for name, identities := range map[string][]domain.Identity{
		"none configured":       nil,
		"no initial credential": {{ID: "A", Secret: "s"}},
	} {
		t.Run(name, func(t *testing.T) {
			svc := NewBootstrapService(StaticIdentities(identities), newMemStore(), ex, NewPolicy(0), slogx.Discard())
			_, err := svc.Bootstrap(context.Background())
			require.ErrorIs(t, err, ErrNoIdentities)
		})
	}
}

func TestBootstrap(t *testing.T) {
	t.Parallel()

	now, clock := fixedClock()
	st := newMemStore()
	ex := newFakeExchanger(clock)
	ex.exchangeErr["B"] = errors.New("invalid OAuth access token")

	identities := StaticIdentities{
		{ID: "A", Secret: "sa", InitialCredential: "a-short"},
		{ID: "B", Secret: "sb", InitialCredential: "b-short"},
		{ID: "C", Secret: "sc"},
	}
	svc := NewBootstrapService(identities, st, ex, NewPolicy(0), slogx.Discard())
	svc.Now = clock

	report, err := svc.Bootstrap(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)
	require.Equal(t, 1, report.Succeeded())
	require.Equal(t, 1, report.Failed())

	require.Equal(t, []string{"a-short"}, ex.exchangeCalls("A"))
	require.Equal(t, []string{"b-short"}, ex.exchangeCalls("B"))
	require.Empty(t, ex.exchangeCalls("C"))

	a := report.Outcomes[0]
	require.Equal(t, "A", a.IdentityID)
	require.NoError(t, a.Err)
	require.Equal(t, 60, a.DaysUntilExpiration)

	var exErr *domain.ExchangeError
	require.ErrorAs(t, report.Outcomes[1].Err, &exErr)

	rec, ok := st.Get(context.Background(), "A")
	require.True(t, ok)
	require.Equal(t, now.Add(60*day), rec.ExpiresAt)
	require.Equal(t, now, rec.LastUpdated)

	_, ok = st.Get(context.Background(), "B")
	require.False(t, ok)
}
