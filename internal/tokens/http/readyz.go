package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/service"
	"github.com/aussiebroadwan/adsync/internal/tokens/store"
	"github.com/aussiebroadwan/adsync/pkg/httpx"
)

// ReadyzHandler reports ready when the credential store answers and the
// renewal scheduler is running.
func ReadyzHandler(startTime time.Time, version string, st store.Credentials, sched Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &HealthChecks{Store: "ok", Scheduler: "ok"}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Store = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		if state := sched.Status().State; state != service.StateRunning {
			checks.Scheduler = "error: " + state.String()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
