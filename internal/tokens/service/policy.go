package service

import "time"

// DefaultRenewalThreshold is how close to expiry a credential may get before
// it is renewed.
const DefaultRenewalThreshold = 7 * 24 * time.Hour

const day = 24 * time.Hour

// Policy decides when a stored credential is due for renewal. It holds no
// state besides its threshold, so both methods are pure functions of their
// arguments.
type Policy struct {
	Threshold time.Duration
}

// NewPolicy returns a Policy with the given threshold, or the default when
// threshold is not positive.
func NewPolicy(threshold time.Duration) Policy {
	if threshold <= 0 {
		threshold = DefaultRenewalThreshold
	}
	return Policy{Threshold: threshold}
}

// NeedsRenewal reports whether less than the threshold remains before
// expiresAt. Expired credentials are always due.
func (p Policy) NeedsRenewal(expiresAt, now time.Time) bool {
	return expiresAt.Sub(now) < p.threshold()
}

// DaysUntilExpiration returns the whole days left before expiresAt, never
// less than zero. For reporting only.
func (p Policy) DaysUntilExpiration(expiresAt, now time.Time) int {
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining / day)
}

func (p Policy) threshold() time.Duration {
	if p.Threshold <= 0 {
		return DefaultRenewalThreshold
	}
	return p.Threshold
}
