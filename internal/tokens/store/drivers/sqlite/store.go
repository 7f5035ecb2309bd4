package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
	"github.com/aussiebroadwan/adsync/internal/tokens/store"
	"github.com/aussiebroadwan/adsync/pkg/cryptox"
	_ "modernc.org/sqlite"
)

var _ store.Credentials = (*Store)(nil)

const (
	upsertCredential = `
INSERT INTO credentials (identity_id, credential_sealed, fingerprint, expires_at, last_updated)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (identity_id) DO UPDATE SET
    credential_sealed = excluded.credential_sealed,
    fingerprint       = excluded.fingerprint,
    expires_at        = excluded.expires_at,
    last_updated      = excluded.last_updated`

	selectCredential = `
SELECT identity_id, credential_sealed, expires_at, last_updated
FROM credentials
WHERE identity_id = ?`

	selectAllCredentials = `
SELECT identity_id, credential_sealed, expires_at, last_updated
FROM credentials
ORDER BY rowid`
)

// Store persists credential records in SQLite. Credentials are sealed with
// AES-256-GCM before they touch the database.
type Store struct {
	db     *sql.DB
	sealer *cryptox.Sealer
	logger *slog.Logger
}

func NewStore(dsn string, sealer *cryptox.Sealer, logger *slog.Logger) (*Store, error) {
	if sealer == nil {
		return nil, errors.New("sqlite store: sealer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// One connection: writes are serialized by SQLite anyway, and an
	// in-memory database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		sealer: sealer,
		logger: logger.With("store", "sqlite"),
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Get(ctx context.Context, identityID string) (domain.CredentialRecord, bool) {
	row := s.db.QueryRowContext(ctx, selectCredential, identityID)

	rec, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CredentialRecord{}, false
	}
	if err != nil {
		s.logReadError(err, "identity_id", identityID)
		return domain.CredentialRecord{}, false
	}
	return rec, true
}

func (s *Store) GetAll(ctx context.Context) []domain.CredentialRecord {
	rows, err := s.db.QueryContext(ctx, selectAllCredentials)
	if err != nil {
		s.logReadError(err)
		return nil
	}
	defer rows.Close()

	var records []domain.CredentialRecord
	for rows.Next() {
		rec, err := s.scan(rows)
		if err != nil {
			// One unreadable row does not hide the others
			s.logReadError(err)
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		s.logReadError(err)
		return nil
	}
	return records
}

func (s *Store) Put(ctx context.Context, rec domain.CredentialRecord) error {
	if rec.IdentityID == "" {
		return &store.WriteError{Err: errors.New("identity id is required")}
	}
	rec.ExpiresAt = rec.ExpiresAt.Truncate(time.Second).UTC()

	sealed, err := s.sealer.Seal([]byte(rec.Credential))
	if err != nil {
		return &store.WriteError{IdentityID: rec.IdentityID, Err: err}
	}

	_, err = s.db.ExecContext(ctx, upsertCredential,
		rec.IdentityID,
		sealed,
		rec.Fingerprint(),
		rec.ExpiresAt.Unix(),
		unixNano(rec.LastUpdated),
	)
	if err != nil {
		return &store.WriteError{IdentityID: rec.IdentityID, Err: err}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scan(row scanner) (domain.CredentialRecord, error) {
	var (
		identityID  string
		sealed      []byte
		expiresAt   int64
		lastUpdated int64
	)
	if err := row.Scan(&identityID, &sealed, &expiresAt, &lastUpdated); err != nil {
		return domain.CredentialRecord{}, err
	}

	credential, err := s.sealer.Open(sealed)
	if err != nil {
		return domain.CredentialRecord{}, fmt.Errorf("credential for %s: %w", identityID, err)
	}

	return domain.CredentialRecord{
		IdentityID:  identityID,
		Credential:  string(credential),
		ExpiresAt:   time.Unix(expiresAt, 0).UTC(),
		LastUpdated: fromUnixNano(lastUpdated),
	}, nil
}

// unixNano maps the zero time to 0 instead of an overflowed value.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

func (s *Store) logReadError(err error, args ...any) {
	readErr := &store.ReadError{Source: "sqlite", Err: err}
	s.logger.Error("credential store unreadable, treating as empty",
		append([]any{"error", readErr}, args...)...,
	)
}
