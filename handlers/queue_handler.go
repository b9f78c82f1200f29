package handlers

import (
	"errors"
	"net/http"

	"clinic-waitlist/internal/status"
	"clinic-waitlist/models"
	"clinic-waitlist/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type QueueHandler struct {
	app          *pocketbase.PocketBase
	queueService *services.QueueService
	dispatcher   services.Dispatcher
}

func NewQueueHandler(app *pocketbase.PocketBase, queueService *services.QueueService, dispatcher services.Dispatcher) *QueueHandler {
	return &QueueHandler{
		app:          app,
		queueService: queueService,
		dispatcher:   dispatcher,
	}
}

// CheckIn adds a patient to the queue. Accepts either an existing
// patient id or enough contact detail to create one.
func (h *QueueHandler) CheckIn(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		PatientID         string `json:"patient_id"`
		FirstName         string `json:"first_name"`
		LastName          string `json:"last_name"`
		Phone             string `json:"phone"`
		Mode              string `json:"mode"`
		QuotedWaitMinutes *int   `json:"quoted_wait_minutes"`
		Notes             string `json:"notes"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	patientID := req.PatientID
	if patientID == "" {
		if req.FirstName == "" || req.Phone == "" {
			return apis.NewBadRequestError("patient_id or first_name+phone required", nil)
		}
		collection, err := h.app.FindCollectionByNameOrId("patients")
		if err != nil {
			return apis.NewApiError(http.StatusInternalServerError, "patients collection missing", err)
		}
		record := core.NewRecord(collection)
		record.Set("first_name", req.FirstName)
		record.Set("last_name", req.LastName)
		record.Set("phone", req.Phone)
		if err := h.app.Save(record); err != nil {
			return apis.NewBadRequestError("Failed to create patient", err)
		}
		patientID = record.Id
	}

	mode := models.ModeInside
	if req.Mode == string(models.ModeOutside) {
		mode = models.ModeOutside
	}

	entry, err := h.queueService.CheckIn(e.Request.Context(), patientID, mode, req.QuotedWaitMinutes, req.Notes)
	if err != nil {
		return mapQueueError(err)
	}

	return e.JSON(http.StatusOK, entry)
}

// Snapshot returns the active queue ordered by position.
func (h *QueueHandler) Snapshot(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"date":    h.queueService.Date(),
		"entries": h.queueService.Snapshot(),
	})
}

// Advance moves an entry along the state machine.
func (h *QueueHandler) Advance(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	entryID := e.Request.PathValue("id")

	var req struct {
		Target string `json:"target"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	entry, err := h.queueService.Advance(e.Request.Context(), entryID, models.Status(req.Target), e.Auth.Id)
	if err != nil {
		return mapQueueError(err)
	}
	return e.JSON(http.StatusOK, entry)
}

// Reorder moves an entry to a new position.
func (h *QueueHandler) Reorder(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		EntryID  string `json:"entry_id"`
		Position int    `json:"position"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	if err := h.queueService.Reorder(e.Request.Context(), req.EntryID, req.Position, e.Auth.Id); err != nil {
		return mapQueueError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "reordered"})
}

// Outside toggles the waiting-outside flag from the staff side.
func (h *QueueHandler) Outside(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	entryID := e.Request.PathValue("id")

	var req struct {
		Outside bool `json:"outside"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	entry, err := h.queueService.MarkOutside(e.Request.Context(), entryID, req.Outside)
	if err != nil {
		return mapQueueError(err)
	}
	return e.JSON(http.StatusOK, entry)
}

// CustomAlert fires a template alert at one entry. Manual alerts skip
// the once-per-kind guard on purpose.
func (h *QueueHandler) CustomAlert(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	entryID := e.Request.PathValue("id")

	var req struct {
		TemplateKey string `json:"template_key"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.TemplateKey == "" {
		return apis.NewBadRequestError("template_key required", nil)
	}

	entry, err := h.queueService.Entry(entryID)
	if err != nil {
		return mapQueueError(err)
	}

	h.dispatcher.DispatchIntents([]models.NotificationIntent{{
		Kind:        models.NotifyCustom,
		EntryID:     entry.ID,
		Token:       entry.Token,
		PatientRef:  entry.PatientRef,
		TemplateKey: req.TemplateKey,
		Position:    entry.Position,
		WaitSeconds: entry.EstimatedWaitSeconds,
	}})

	return e.JSON(http.StatusOK, map[string]any{"message": "alert queued"})
}

// mapQueueError translates engine sentinels to API responses.
func mapQueueError(err error) error {
	switch {
	case errors.Is(err, status.ErrEntryNotFound):
		return apis.NewNotFoundError("Entry not found", err)
	case errors.Is(err, status.ErrDuplicateCheckIn),
		errors.Is(err, status.ErrInvalidPosition),
		errors.Is(err, status.ErrInvalidTransition),
		errors.Is(err, status.ErrSessionClosed):
		return apis.NewBadRequestError(err.Error(), nil)
	}
	return apis.NewApiError(http.StatusInternalServerError, "queue operation failed", err)
}
