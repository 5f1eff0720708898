package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine-go/internal/service/graceperiod"
)

type SettingsHandler interface {
	GetGracePeriod(w http.ResponseWriter, r *http.Request)
	SetGracePeriod(w http.ResponseWriter, r *http.Request)
}

type settingsHandlerImpl struct {
	repo  settings.Repository
	grace *graceperiod.Provider
}

func NewSettingsHandler(repo settings.Repository, grace *graceperiod.Provider) SettingsHandler {
	return &settingsHandlerImpl{repo: repo, grace: grace}
}

// GetGracePeriod implements SettingsHandler.
func (h *settingsHandlerImpl) GetGracePeriod(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]any{
		"grace_period_minutes": h.grace.Get(r.Context()),
	})
}

// SetGracePeriod implements SettingsHandler. The provider cache is
// invalidated on write so the next resolution sees the new value.
func (h *settingsHandlerImpl) SetGracePeriod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Minutes int `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	if req.Minutes < 0 {
		response.BadRequest(w, "minutes must not be negative", nil)
		return
	}

	if err := h.repo.Set(r.Context(), settings.KeyGracePeriodMinutes, strconv.Itoa(req.Minutes)); err != nil {
		response.HandleError(w, err)
		return
	}
	h.grace.Invalidate()

	response.SuccessWithMessage(w, "Grace period updated", map[string]any{
		"grace_period_minutes": req.Minutes,
	})
}
