package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/adsync/internal/tokens/service"
	"github.com/aussiebroadwan/adsync/pkg/httpx"
	"github.com/aussiebroadwan/adsync/pkg/slogx"
)

// Scheduler is the part of the renewal scheduler the HTTP surface needs.
type Scheduler interface {
	Status() service.SchedulerStatus
	TriggerNow(reason string) error
}

var _ Scheduler = (*service.RenewalScheduler)(nil)

// RenewalsHandler reports on and triggers renewal sweeps.
type RenewalsHandler struct {
	Scheduler Scheduler
}

// HandleStatus serves GET /v1/renewals.
func (h *RenewalsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st := h.Scheduler.Status()

	resp := RenewalStatusResponse{
		State:           st.State.String(),
		Schedule:        st.Schedule,
		InFlight:        st.InFlight,
		Runs:            st.Runs,
		SkippedTriggers: st.SkippedTriggers,
		NextRunAt:       timePtr(st.NextRunAt),
	}

	if rep := st.LastReport; rep != nil {
		run := &SweepRun{
			RunID:      rep.RunID.String(),
			Reason:     st.LastReason,
			StartedAt:  rep.StartedAt,
			FinishedAt: rep.FinishedAt,
			Renewed:    rep.Renewed(),
			Failed:     rep.Failed(),
			Skipped:    rep.Skipped(),
			Outcomes:   make([]SweepRunResult, 0, len(rep.Outcomes)),
		}
		for _, o := range rep.Outcomes {
			res := SweepRunResult{
				IdentityID: o.IdentityID,
				Action:     string(o.Action),
				ExpiresAt:  timePtr(o.ExpiresAt),
			}
			if o.Err != nil {
				res.Error = o.Err.Error()
			}
			run.Outcomes = append(run.Outcomes, res)
		}
		resp.LastRun = run
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleTrigger serves POST /v1/renewals. The sweep runs in the background.
func (h *RenewalsHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	err := h.Scheduler.TriggerNow("manual")
	switch {
	case err == nil:
		log.Info("manual renewal sweep started")
		httpx.WriteJSON(w, http.StatusAccepted, TriggerResponse{Status: "started"})
	case errors.Is(err, service.ErrSweepInProgress):
		httpx.WriteError(w, http.StatusConflict, "sweep_in_progress", "A renewal sweep is already running.")
	default:
		log.Warn("manual renewal sweep rejected", "error", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "scheduler_unavailable", err.Error())
	}
}
