package store

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
)

// Credentials is the durable key-value store of credential records, keyed by
// identity id. Concrete drivers (file, sqlite) implement this.
//
// Reads never fail: a missing key is reported through the boolean, and an
// unreadable or corrupt medium is logged by the driver as a ReadError and
// treated as empty. Credentials can always be bootstrapped again, so
// availability wins over surfacing corruption to the renewal loop.
type Credentials interface {
	// Get returns the record for identityID, or false when none is stored.
	Get(ctx context.Context, identityID string) (domain.CredentialRecord, bool)

	// GetAll returns every stored record in insertion order.
	GetAll(ctx context.Context) []domain.CredentialRecord

	// Put inserts or fully replaces the record for rec.IdentityID. The record
	// is durable once Put returns nil. Failures are *WriteError.
	Put(ctx context.Context, rec domain.CredentialRecord) error

	// Ping verifies the underlying medium is usable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// ReadError describes a medium that could not be read or decoded. Drivers
// log it and degrade to an empty result; it is never returned from reads.
type ReadError struct {
	Source string // File path or driver name
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("store: read %s: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError is returned by Put when the record could not be persisted.
type WriteError struct {
	IdentityID string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: write %s: %v", e.IdentityID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
