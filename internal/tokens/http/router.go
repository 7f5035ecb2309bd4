package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/service"
	"github.com/aussiebroadwan/adsync/internal/tokens/store"
	"github.com/aussiebroadwan/adsync/pkg/httpx"
	"github.com/aussiebroadwan/adsync/pkg/slogx"
)

// Router serves the status and control endpoints.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	identities service.IdentitySource
	store      store.Credentials
	scheduler  Scheduler
	policy     service.Policy

	// AdminToken guards POST /v1/renewals when set.
	AdminToken string
}

func NewRouter(
	buildVersion string,
	identities service.IdentitySource,
	st store.Credentials,
	scheduler Scheduler,
	policy service.Policy,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		identities:   identities,
		store:        st,
		scheduler:    scheduler,
		policy:       policy,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}
	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSystem()
	r.registerCredentials()
	r.registerRenewals()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.ProbeLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.scheduler),
			httpx.RateLimitByIP(httpx.ProbeLimit),
		),
	)
}

func (r *Router) registerCredentials() {
	r.Mux.Handle("GET /v1/credentials", &CredentialsHandler{
		Identities: r.identities,
		Store:      r.store,
		Policy:     r.policy,
	})
}

func (r *Router) registerRenewals() {
	h := &RenewalsHandler{Scheduler: r.scheduler}

	r.Mux.HandleFunc("GET /v1/renewals", h.HandleStatus)
	r.Mux.Handle("POST /v1/renewals",
		httpx.Chain(http.HandlerFunc(h.HandleTrigger),
			httpx.RequireBearer(r.AdminToken),
			httpx.RateLimitByIP(httpx.TriggerLimit),
		),
	)
}
