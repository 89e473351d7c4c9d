package backfill

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"archivefeed/internal/handler/http/respond"
	backfillUC "archivefeed/internal/usecase/backfill"
)

const dateLayout = "2006-01-02"

// StatusHandler returns the progress snapshot for both workers.
type StatusHandler struct {
	Ctrl *backfillUC.Controller
}

func (h StatusHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, h.Ctrl.Status())
}

type startCollectRequest struct {
	LowerBound string `json:"lower_bound"`
}

// StartCollectHandler launches the collection worker. Starting an
// already-running worker is accepted and does nothing.
type StartCollectHandler struct {
	Ctrl   *backfillUC.Controller
	Logger *slog.Logger
}

func (h StartCollectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req startCollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	lower, err := parseDate(req.LowerBound)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Ctrl.StartCollect(lower); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, h.Ctrl.Status())
}

// StopCollectHandler requests a cooperative stop of the collection worker.
type StopCollectHandler struct {
	Ctrl *backfillUC.Controller
}

func (h StopCollectHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.Ctrl.StopCollect()
	respond.JSON(w, http.StatusAccepted, h.Ctrl.Status())
}

type startSummarizeRequest struct {
	LowerBound string `json:"lower_bound"`
	Model      string `json:"model,omitempty"`
}

// StartSummarizeHandler launches the summary backfill worker.
type StartSummarizeHandler struct {
	Ctrl   *backfillUC.Controller
	Logger *slog.Logger
}

func (h StartSummarizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req startSummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	lower, err := parseDate(req.LowerBound)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Ctrl.StartSummarize(r.Context(), lower, req.Model); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, h.Ctrl.Status())
}

// StopSummarizeHandler requests a cooperative stop of the summary worker.
type StopSummarizeHandler struct {
	Ctrl *backfillUC.Controller
}

func (h StopSummarizeHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.Ctrl.StopSummarize()
	respond.JSON(w, http.StatusAccepted, h.Ctrl.Status())
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("lower_bound is required (YYYY-MM-DD)")
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, errors.New("lower_bound must be YYYY-MM-DD")
	}
	return t, nil
}
