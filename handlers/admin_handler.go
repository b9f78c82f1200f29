package handlers

import (
	"net/http"

	"clinic-waitlist/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	app          *pocketbase.PocketBase
	queueService *services.QueueService
	analytics    *services.Analytics
}

func NewAdminHandler(app *pocketbase.PocketBase, queueService *services.QueueService, analytics *services.Analytics) *AdminHandler {
	return &AdminHandler{
		app:          app,
		queueService: queueService,
		analytics:    analytics,
	}
}

// Dashboard returns the live overview the front desk keeps open.
func (h *AdminHandler) Dashboard(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	date := h.queueService.Date()
	depths := h.queueService.Depths()

	return e.JSON(http.StatusOK, map[string]any{
		"date":       date,
		"depths":     depths,
		"entries":    h.queueService.All(),
		"throughput": h.analytics.Throughput(),
		"summary":    h.analytics.Summary(date),
	})
}

// ArchiveDay forces the day-end archival without waiting for midnight.
func (h *AdminHandler) ArchiveDay(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	if err := h.queueService.CloseDay(e.Request.Context()); err != nil {
		return mapQueueError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"message": "day archived"})
}
