package handlers

import (
	"net/http"

	"clinic-waitlist/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// StatusHandler serves the patient-facing endpoints reached through the
// opaque status token. No auth; the token is the capability.
type StatusHandler struct {
	app          *pocketbase.PocketBase
	queueService *services.QueueService
}

func NewStatusHandler(app *pocketbase.PocketBase, queueService *services.QueueService) *StatusHandler {
	return &StatusHandler{
		app:          app,
		queueService: queueService,
	}
}

// Status returns the entry's position and estimate.
func (h *StatusHandler) Status(e *core.RequestEvent) error {
	token := e.Request.PathValue("token")

	entry, err := h.queueService.EntryByToken(token)
	if err != nil {
		return apis.NewNotFoundError("Unknown status token", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"status":                 entry.Status,
		"position":               entry.Position,
		"patients_ahead":         max(entry.Position-1, 0),
		"estimated_wait_seconds": entry.EstimatedWaitSeconds,
		"checked_in_at":          entry.CheckedInAt,
		"channel":                "entry-" + entry.Token,
	})
}

// ToggleOutside lets the patient flag that they are waiting outside.
func (h *StatusHandler) ToggleOutside(e *core.RequestEvent) error {
	token := e.Request.PathValue("token")

	var req struct {
		WaitingOutside bool `json:"waiting_outside"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	entry, err := h.queueService.EntryByToken(token)
	if err != nil {
		return apis.NewNotFoundError("Unknown status token", nil)
	}

	updated, err := h.queueService.MarkOutside(e.Request.Context(), entry.ID, req.WaitingOutside)
	if err != nil {
		return mapQueueError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"status":   updated.Status,
		"position": updated.Position,
	})
}
