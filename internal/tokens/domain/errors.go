package domain

import "fmt"

// ExchangeError is returned when the platform refuses to exchange a
// credential or the exchange call fails in transit. Err carries the platform
// payload when there is one.
type ExchangeError struct {
	IdentityID string
	Err        error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange credential for %s: %v", e.IdentityID, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// IntrospectionError is returned when a credential cannot be introspected or
// the platform reports it as unusable.
type IntrospectionError struct {
	Err error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("introspect credential: %v", e.Err)
}

func (e *IntrospectionError) Unwrap() error { return e.Err }
