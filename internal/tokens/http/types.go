package http

import "time"

// HealthResponse is returned by the probe endpoints.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks lists the readiness of each dependency.
type HealthChecks struct {
	Store     string `json:"store"`
	Scheduler string `json:"scheduler"`
}

// CredentialStatus is the redacted state of one identity's credential.
type CredentialStatus struct {
	IdentityID          string     `json:"identity_id"`
	Stored              bool       `json:"stored"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	DaysUntilExpiration int        `json:"days_until_expiration"`
	NeedsRenewal        bool       `json:"needs_renewal"`
	LastUpdated         *time.Time `json:"last_updated,omitempty"`
	Fingerprint         string     `json:"fingerprint,omitempty"`
}

type CredentialsResponse struct {
	Credentials []CredentialStatus `json:"credentials"`
}

// RenewalStatusResponse describes the renewal scheduler.
type RenewalStatusResponse struct {
	State           string     `json:"state"`
	Schedule        string     `json:"schedule"`
	InFlight        bool       `json:"in_flight"`
	Runs            int        `json:"runs"`
	SkippedTriggers int        `json:"skipped_triggers"`
	NextRunAt       *time.Time `json:"next_run_at,omitempty"`
	LastRun         *SweepRun  `json:"last_run,omitempty"`
}

// SweepRun is the outcome of the most recent sweep.
type SweepRun struct {
	RunID      string           `json:"run_id"`
	Reason     string           `json:"reason"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Renewed    int              `json:"renewed"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
	Outcomes   []SweepRunResult `json:"outcomes"`
}

type SweepRunResult struct {
	IdentityID string     `json:"identity_id"`
	Action     string     `json:"action"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// TriggerResponse acknowledges a manual renewal request.
type TriggerResponse struct {
	Status string `json:"status"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
