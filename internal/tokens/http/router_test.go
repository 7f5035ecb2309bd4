package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
	"github.com/aussiebroadwan/adsync/internal/tokens/service"
	"github.com/aussiebroadwan/adsync/internal/tokens/store/drivers/file"
	"github.com/aussiebroadwan/adsync/pkg/idx"
	"github.com/aussiebroadwan/adsync/pkg/slogx"
)

type fakeScheduler struct {
	status     service.SchedulerStatus
	triggerErr error
	triggered  []string
}

func (f *fakeScheduler) Status() service.SchedulerStatus { return f.status }

func (f *fakeScheduler) TriggerNow(reason string) error {
	if f.triggerErr != nil {
		return f.triggerErr
	}
	f.triggered = append(f.triggered, reason)
	return nil
}

type routerFixture struct {
	router *Router
	store  *file.Store
	sched  *fakeScheduler
}

func newFixture(t *testing.T, adminToken string) routerFixture {
	t.Helper()

	st, err := file.NewStore(filepath.Join(t.TempDir(), "tokens.json"), slogx.Discard())
	require.NoError(t, err)

	sched := &fakeScheduler{status: service.SchedulerStatus{State: service.StateRunning, Schedule: service.DefaultSchedule}}
	identities := service.StaticIdentities{{ID: "A", Secret: "sa"}, {ID: "B", Secret: "sb"}}

	r := NewRouter("test", identities, st, sched, service.NewPolicy(0), slogx.Discard())
	r.AdminToken = adminToken
	r.ApplyRoutes()

	return routerFixture{router: r, store: st, sched: sched}
}

func (f routerFixture) do(method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestLivez(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(http.MethodGet, "/livez", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "test", resp.Version)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		f := newFixture(t, "")
		rec := f.do(http.MethodGet, "/readyz", "")
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("scheduler stopped", func(t *testing.T) {
		f := newFixture(t, "")
		f.sched.status.State = service.StateStopped

		rec := f.do(http.MethodGet, "/readyz", "")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "degraded", resp.Status)
		require.Equal(t, "ok", resp.Checks.Store)
		require.Equal(t, "error: stopped", resp.Checks.Scheduler)
	})
}

func TestCredentialsNeverExposeSecrets(t *testing.T) {
	f := newFixture(t, "")
	expires := time.Now().Add(3 * 24 * time.Hour).Truncate(time.Second).UTC()
	require.NoError(t, f.store.Put(context.Background(), domain.CredentialRecord{
		IdentityID: "A", Credential: "super-secret-token", ExpiresAt: expires, LastUpdated: time.Now().UTC(),
	}))

	rec := f.do(http.MethodGet, "/v1/credentials", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "super-secret-token")
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var resp CredentialsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Credentials, 2)

	a := resp.Credentials[0]
	require.Equal(t, "A", a.IdentityID)
	require.True(t, a.Stored)
	require.True(t, a.NeedsRenewal)
	require.Equal(t, expires, a.ExpiresAt.UTC())
	require.Equal(t, domain.Fingerprint("super-secret-token"), a.Fingerprint)

	b := resp.Credentials[1]
	require.Equal(t, "B", b.IdentityID)
	require.False(t, b.Stored)
	require.Nil(t, b.ExpiresAt)
}

func TestRenewalStatus(t *testing.T) {
	f := newFixture(t, "")
	started := time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)
	f.sched.status.LastReason = "schedule"
	f.sched.status.Runs = 3
	f.sched.status.LastReport = &service.SweepReport{
		RunID:      idx.NewAt(started),
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Outcomes: []service.IdentityOutcome{
			{IdentityID: "A", Action: service.ActionRenewed, ExpiresAt: started.Add(60 * 24 * time.Hour)},
			{IdentityID: "B", Action: service.ActionFailed, Err: &domain.ExchangeError{IdentityID: "B", Err: errors.New("session expired")}},
		},
	}

	rec := f.do(http.MethodGet, "/v1/renewals", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RenewalStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "running", resp.State)
	require.Equal(t, 3, resp.Runs)
	require.Nil(t, resp.NextRunAt)
	require.NotNil(t, resp.LastRun)
	require.Equal(t, "schedule", resp.LastRun.Reason)
	require.Equal(t, 1, resp.LastRun.Renewed)
	require.Equal(t, 1, resp.LastRun.Failed)
	require.Len(t, resp.LastRun.Outcomes, 2)
	require.True(t, strings.Contains(resp.LastRun.Outcomes[1].Error, "session expired"))
}

func TestTriggerRenewal(t *testing.T) {
	t.Run("open when no admin token", func(t *testing.T) {
		f := newFixture(t, "")
		rec := f.do(http.MethodPost, "/v1/renewals", "")
		require.Equal(t, http.StatusAccepted, rec.Code)
		require.Equal(t, []string{"manual"}, f.sched.triggered)
	})

	t.Run("requires admin token", func(t *testing.T) {
		f := newFixture(t, "admin")
		require.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/v1/renewals", "").Code)
		require.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/v1/renewals", "Bearer wrong").Code)
		require.Empty(t, f.sched.triggered)

		require.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/v1/renewals", "Bearer admin").Code)
	})

	t.Run("conflict while sweeping", func(t *testing.T) {
		f := newFixture(t, "")
		f.sched.triggerErr = service.ErrSweepInProgress
		require.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/v1/renewals", "").Code)
	})

	t.Run("unavailable when stopped", func(t *testing.T) {
		f := newFixture(t, "")
		f.sched.triggerErr = service.ErrSchedulerStopped
		require.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodPost, "/v1/renewals", "").Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		f := newFixture(t, "")
		for range 3 {
			require.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/v1/renewals", "").Code)
		}
		require.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/v1/renewals", "").Code)
	})
}
