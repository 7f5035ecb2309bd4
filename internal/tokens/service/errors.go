package service

import "errors"

var (
	ErrSchedulerRunning    = errors.New("renewal scheduler already running")
	ErrSchedulerStopped    = errors.New("renewal scheduler stopped")
	ErrSchedulerNotRunning = errors.New("renewal scheduler not running")
	ErrSweepInProgress     = errors.New("renewal sweep already in progress")

	ErrNoIdentities = errors.New("no identities configured")

	ErrNoCredential      = errors.New("no stored credential")
	ErrCredentialExpired = errors.New("stored credential expired")
)
