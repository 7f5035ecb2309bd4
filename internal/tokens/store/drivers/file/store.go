package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
	"github.com/aussiebroadwan/adsync/internal/tokens/store"
)

var _ store.Credentials = (*Store)(nil)

// Store keeps every credential record in a single JSON array on disk.
//
// Put is a read-modify-write of the whole file. The mutex serializes those
// sequences within the process, and each write lands through a temp file that
// is fsynced and renamed over the target, so readers only ever see a complete
// file.
type Store struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// record is the on-disk form of a credential record.
type record struct {
	IdentityID  string `json:"identity_id"`
	Credential  string `json:"credential"`
	ExpiresAt   int64  `json:"expires_at"`   // unix seconds
	LastUpdated string `json:"last_updated"` // RFC 3339
}

// NewStore opens (and if needed creates the directory for) the credential
// file at path. The file itself is created by the first Put.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("file store: path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &Store{
		path:   path,
		logger: logger.With("store", "file", "path", path),
	}, nil
}

// Path returns the location of the credential file.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(ctx context.Context, identityID string) (domain.CredentialRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.readAll() {
		if rec.IdentityID == identityID {
			return rec, true
		}
	}
	return domain.CredentialRecord{}, false
}

func (s *Store) GetAll(ctx context.Context) []domain.CredentialRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readAll()
}

func (s *Store) Put(ctx context.Context, rec domain.CredentialRecord) error {
	if rec.IdentityID == "" {
		return &store.WriteError{Err: errors.New("identity id is required")}
	}
	rec.ExpiresAt = rec.ExpiresAt.Truncate(time.Second).UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		s.logger.Error("credential file unreadable, replacing it", "error", err)
		if qerr := s.quarantine(); qerr != nil {
			return &store.WriteError{IdentityID: rec.IdentityID, Err: qerr}
		}
		records = nil
	}

	replaced := false
	for i := range records {
		if records[i].IdentityID == rec.IdentityID {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}

	if err := s.writeAll(records); err != nil {
		return &store.WriteError{IdentityID: rec.IdentityID, Err: err}
	}

	s.logger.Debug("credential record saved",
		"identity_id", rec.IdentityID,
		"replaced", replaced,
		"records", len(records),
	)
	return nil
}

// Ping checks that the data directory is still present.
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

func (s *Store) Close() error { return nil }

// readAll is load with the read failure logged and swallowed.
func (s *Store) readAll() []domain.CredentialRecord {
	records, err := s.load()
	if err != nil {
		s.logger.Error("credential file unreadable, treating as empty", "error", err)
		return nil
	}
	return records
}

// load decodes the credential file. A missing file is an empty store; an
// unreadable or malformed file is a *store.ReadError. Callers hold s.mu.
func (s *Store) load() ([]domain.CredentialRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &store.ReadError{Source: s.path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &store.ReadError{Source: s.path, Err: err}
	}

	records := make([]domain.CredentialRecord, 0, len(raw))
	index := make(map[string]int, len(raw))
	for i, r := range raw {
		if r.IdentityID == "" {
			return nil, &store.ReadError{Source: s.path, Err: fmt.Errorf("record %d has no identity_id", i)}
		}

		var lastUpdated time.Time
		if r.LastUpdated != "" {
			lastUpdated, err = time.Parse(time.RFC3339Nano, r.LastUpdated)
			if err != nil {
				return nil, &store.ReadError{Source: s.path, Err: fmt.Errorf("record %d: %w", i, err)}
			}
		}

		rec := domain.CredentialRecord{
			IdentityID:  r.IdentityID,
			Credential:  r.Credential,
			ExpiresAt:   time.Unix(r.ExpiresAt, 0).UTC(),
			LastUpdated: lastUpdated.UTC(),
		}

		// Hand-edited files may repeat an id; the last entry wins but keeps
		// the position of the first.
		if at, ok := index[r.IdentityID]; ok {
			records[at] = rec
			continue
		}
		index[r.IdentityID] = len(records)
		records = append(records, rec)
	}

	return records, nil
}

// writeAll replaces the credential file with records. Callers hold s.mu.
func (s *Store) writeAll(records []domain.CredentialRecord) error {
	raw := make([]record, len(records))
	for i, rec := range records {
		raw[i] = record{
			IdentityID:  rec.IdentityID,
			Credential:  rec.Credential,
			ExpiresAt:   rec.ExpiresAt.Unix(),
			LastUpdated: rec.LastUpdated.UTC().Format(time.RFC3339Nano),
		}
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Only the rename makes the new content visible; anything before it
	// leaves the previous file intact.
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace credential file: %w", err)
	}

	return syncDir(dir)
}

// quarantine moves an unreadable credential file aside so the next write
// does not destroy whatever an operator may still recover from it.
func (s *Store) quarantine() error {
	target := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if err := os.Rename(s.path, target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to move unreadable credential file aside: %w", err)
	}
	s.logger.Warn("unreadable credential file moved aside", "moved_to", target)
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open data directory: %w", err)
	}
	defer d.Close()

	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync data directory: %w", err)
	}
	return nil
}
