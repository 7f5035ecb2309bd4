package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
	"github.com/aussiebroadwan/adsync/internal/tokens/store"
	"github.com/aussiebroadwan/adsync/pkg/idx"
)

// memStore is an in-memory store.Credentials that keeps insertion order.
type memStore struct {
	mu      sync.Mutex
	records []domain.CredentialRecord
	putErr  map[string]error
	puts    int
}

var _ store.Credentials = (*memStore)(nil)

func newMemStore(recs ...domain.CredentialRecord) *memStore {
	return &memStore{records: recs, putErr: map[string]error{}}
}

func (m *memStore) Get(_ context.Context, id string) (domain.CredentialRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.IdentityID == id {
			return r, true
		}
	}
	return domain.CredentialRecord{}, false
}

func (m *memStore) GetAll(context.Context) []domain.CredentialRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CredentialRecord(nil), m.records...)
}

func (m *memStore) Put(_ context.Context, rec domain.CredentialRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.putErr[rec.IdentityID]; err != nil {
		return &store.WriteError{IdentityID: rec.IdentityID, Err: err}
	}
	m.puts++
	for i, r := range m.records {
		if r.IdentityID == rec.IdentityID {
			m.records[i] = rec
			return nil
		}
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

// fakeExchanger issues predictable credentials that introspect as valid for
// lifetime past now.
type fakeExchanger struct {
	mu sync.Mutex

	now      func() time.Time
	lifetime time.Duration

	exchangeErr   map[string]error // by identity id
	introspectErr map[string]error // by identity id
	foreignApp    map[string]string

	exchanged  map[string][]string // identity id -> credentials presented
	introspect map[string]int      // identity id -> introspection calls
	issued     map[string]string   // credential -> identity id
	seq        int
}

func newFakeExchanger(now func() time.Time) *fakeExchanger {
	return &fakeExchanger{
		now:           now,
		lifetime:      60 * 24 * time.Hour,
		exchangeErr:   map[string]error{},
		introspectErr: map[string]error{},
		foreignApp:    map[string]string{},
		exchanged:     map[string][]string{},
		introspect:    map[string]int{},
		issued:        map[string]string{},
	}
}

func (f *fakeExchanger) ExchangeForLongLived(_ context.Context, identityID, secret, current string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.exchanged[identityID] = append(f.exchanged[identityID], current)
	if err := f.exchangeErr[identityID]; err != nil {
		return "", &domain.ExchangeError{IdentityID: identityID, Err: err}
	}
	if secret == "" {
		return "", &domain.ExchangeError{IdentityID: identityID, Err: errors.New("missing secret")}
	}

	f.seq++
	cred := fmt.Sprintf("%s-long-%d", identityID, f.seq)
	f.issued[cred] = identityID
	return cred, nil
}

func (f *fakeExchanger) Introspect(_ context.Context, credential string) (domain.TokenIntrospection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.issued[credential]
	f.introspect[id]++
	if err := f.introspectErr[id]; err != nil {
		return domain.TokenIntrospection{}, &domain.IntrospectionError{Err: err}
	}

	owner := id
	if foreign, ok := f.foreignApp[id]; ok {
		owner = foreign
	}
	return domain.TokenIntrospection{
		Valid:      true,
		IdentityID: owner,
		Type:       "USER",
		IssuedAt:   f.now(),
		ExpiresAt:  f.now().Add(f.lifetime),
		Scopes:     []string{"ads_read"},
	}, nil
}

func (f *fakeExchanger) exchangeCalls(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.exchanged[id]...)
}

func (f *fakeExchanger) introspectCalls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.introspect[id]
}

// fakeTrigger records the registered job so tests can fire it by hand.
type fakeTrigger struct {
	mu        sync.Mutex
	spec      string
	job       func()
	cancelled int
	err       error
	next      time.Time
}

func (t *fakeTrigger) Schedule(spec string, job func()) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	t.spec = spec
	t.job = job
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.cancelled++
		t.job = nil
	}, nil
}

func (t *fakeTrigger) NextRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next
}

// fire runs the job like a timer activation would. It is a no-op once
// cancelled.
func (t *fakeTrigger) fire() {
	t.mu.Lock()
	job := t.job
	t.mu.Unlock()
	if job != nil {
		job()
	}
}

func (t *fakeTrigger) cancelCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// blockingSweeper counts sweeps and optionally holds each one until release
// is closed.
type blockingSweeper struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (b *blockingSweeper) CheckAndRenewAll(context.Context) SweepReport {
	b.mu.Lock()
	b.calls++
	release := b.release
	b.mu.Unlock()

	if release != nil {
		<-release
	}
	now := time.Now()
	return SweepReport{RunID: idx.New(), StartedAt: now, FinishedAt: now}
}

func (b *blockingSweeper) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// fixedClock returns a clock frozen at a whole second.
func fixedClock() (time.Time, func() time.Time) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	return now, func() time.Time { return now }
}
