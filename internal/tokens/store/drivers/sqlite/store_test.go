package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
	"github.com/aussiebroadwan/adsync/internal/tokens/store"
	"github.com/aussiebroadwan/adsync/internal/tokens/store/drivers/sqlite"
	"github.com/aussiebroadwan/adsync/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func newSealer(t *testing.T, key string) *cryptox.Sealer {
	t.Helper()
	sealer, err := cryptox.NewSealer([]byte(key))
	require.NoError(t, err)
	return sealer
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:", newSealer(t, "test-key"), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func testRecord(id string, expiresAt int64) domain.CredentialRecord {
	return domain.CredentialRecord{
		IdentityID:  id,
		Credential:  "cred-" + id,
		ExpiresAt:   time.Unix(expiresAt, 0).UTC(),
		LastUpdated: time.Date(2025, 3, 1, 12, 30, 0, 123456789, time.UTC),
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	rec := testRecord("app-1", 1_750_000_000)
	require.NoError(t, s.Put(ctx, rec))

	got, ok := s.Get(ctx, "app-1")
	require.True(t, ok)
	require.Equal(t, rec, got)

	_, ok = s.Get(ctx, "missing")
	require.False(t, ok)
}

func TestPutTruncatesExpiryToWholeSeconds(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	rec := testRecord("app-1", 0)
	rec.ExpiresAt = time.Now().Add(72 * time.Hour)
	require.NoError(t, s.Put(ctx, rec))

	want := rec
	want.ExpiresAt = rec.ExpiresAt.Truncate(time.Second).UTC()

	got, ok := s.Get(ctx, "app-1")
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestUpsertKeepsInsertionOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, testRecord("app-b", 1)))
	require.NoError(t, s.Put(ctx, testRecord("app-a", 2)))
	require.Len(t, s.GetAll(ctx), 2)

	updated := testRecord("app-b", 3)
	updated.Credential = "rotated"
	require.NoError(t, s.Put(ctx, updated))

	all := s.GetAll(ctx)
	require.Len(t, all, 2)
	require.Equal(t, updated, all[0])
	require.Equal(t, "app-a", all[1].IdentityID)
}

func TestZeroLastUpdated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	rec := testRecord("app-1", 1_750_000_000)
	rec.LastUpdated = time.Time{}
	require.NoError(t, s.Put(ctx, rec))

	got, ok := s.Get(ctx, "app-1")
	require.True(t, ok)
	require.True(t, got.LastUpdated.IsZero())
}

func TestCredentialIsSealedAtRest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "credentials.db")
	s, err := sqlite.NewStore(path, newSealer(t, "test-key"), quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Put(ctx, testRecord("app-1", 1_750_000_000)))
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var sealed []byte
	var fingerprint string
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT credential_sealed, fingerprint FROM credentials WHERE identity_id = ?`, "app-1",
	).Scan(&sealed, &fingerprint))
	require.NotContains(t, string(sealed), "cred-app-1")
	require.Equal(t, domain.Fingerprint("cred-app-1"), fingerprint)
}

func TestWrongKeyDegradesToEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "credentials.db")
	s, err := sqlite.NewStore(path, newSealer(t, "key-one"), quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Put(ctx, testRecord("app-1", 1_750_000_000)))
	require.NoError(t, s.Close())

	reopened, err := sqlite.NewStore(path, newSealer(t, "key-two"), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.ApplyMigrations())

	_, ok := reopened.Get(ctx, "app-1")
	require.False(t, ok)
	require.Empty(t, reopened.GetAll(ctx))
}

func TestPutOnClosedStoreIsWriteError(t *testing.T) {
	t.Parallel()
	s, err := sqlite.NewStore(":memory:", newSealer(t, "k"), quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Close())

	err = s.Put(context.Background(), testRecord("app-1", 1))
	var writeErr *store.WriteError
	require.True(t, errors.As(err, &writeErr))
	require.Equal(t, "app-1", writeErr.IdentityID)

	require.Error(t, s.Ping(context.Background()))
	require.Empty(t, s.GetAll(context.Background()))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
}

func TestNewStoreRequiresSealer(t *testing.T) {
	t.Parallel()
	_, err := sqlite.NewStore(":memory:", nil, nil)
	require.Error(t, err)
}
