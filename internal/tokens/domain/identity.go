package domain

// Identity is a configured platform application. Identities come from
// configuration; nothing in this service creates or deletes them.
type Identity struct {
	ID     string // Platform application id
	Secret string // Shared application secret

	// InitialCredential is the short-lived credential used once during
	// bootstrap. Empty for identities that are only being renewed.
	InitialCredential string
}

// CanBootstrap reports whether the identity carries an initial credential.
func (i Identity) CanBootstrap() bool {
	return i.InitialCredential != ""
}
