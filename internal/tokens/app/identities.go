package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aussiebroadwan/adsync/internal/tokens/domain"
	"github.com/aussiebroadwan/adsync/internal/tokens/service"
)

// MaxIdentitySlots is the highest N read from APP{N}_ID / APP{N}_SECRET.
const MaxIdentitySlots = 16

// EnvIdentities reads identities from numbered environment slots:
// APP{N}_ID, APP{N}_SECRET and, for bootstrap, APP{N}_TOKEN. A slot without
// both an id and a secret is not scheduled.
type EnvIdentities struct {
	Lookup func(key string) (string, bool)
	Logger *slog.Logger
}

var _ service.IdentitySource = (*EnvIdentities)(nil)

func NewEnvIdentities(logger *slog.Logger) *EnvIdentities {
	return &EnvIdentities{Lookup: os.LookupEnv, Logger: logger}
}

// Identities returns the configured identities in slot order. It re-reads
// the environment on every call.
func (e *EnvIdentities) Identities() []domain.Identity {
	var out []domain.Identity
	seen := make(map[string]int)

	for n := 1; n <= MaxIdentitySlots; n++ {
		id := e.get(fmt.Sprintf("APP%d_ID", n))
		secret := e.get(fmt.Sprintf("APP%d_SECRET", n))
		token := e.get(fmt.Sprintf("APP%d_TOKEN", n))

		if id == "" || secret == "" {
			if id != "" || secret != "" || token != "" {
				e.logger().Warn("identity slot incomplete, skipping",
					"slot", n,
					"has_id", id != "",
					"has_secret", secret != "",
				)
			}
			continue
		}

		if prev, dup := seen[id]; dup {
			e.logger().Warn("identity configured twice, keeping first slot",
				"identity_id", id, "slot", n, "first_slot", prev)
			continue
		}
		seen[id] = n

		out = append(out, domain.Identity{ID: id, Secret: secret, InitialCredential: token})
	}
	return out
}

func (e *EnvIdentities) get(key string) string {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, _ := lookup(key)
	return strings.TrimSpace(v)
}

func (e *EnvIdentities) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
