package handlers

import (
	"net/http"
	"time"

	"clinic-waitlist/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AnalyticsHandler struct {
	app       *pocketbase.PocketBase
	analytics *services.Analytics
	store     services.Store
}

func NewAnalyticsHandler(app *pocketbase.PocketBase, analytics *services.Analytics, store services.Store) *AnalyticsHandler {
	return &AnalyticsHandler{
		app:       app,
		analytics: analytics,
		store:     store,
	}
}

// Summary returns one day's rollup, defaulting to today.
func (h *AnalyticsHandler) Summary(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	date := e.Request.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	return e.JSON(http.StatusOK, h.analytics.Summary(date))
}

// Recompute rebuilds a day's summary from the archived raw entries.
func (h *AnalyticsHandler) Recompute(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Date string `json:"date"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Date == "" {
		return apis.NewBadRequestError("date required", nil)
	}

	entries, err := h.store.LoadArchive(e.Request.Context(), req.Date)
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "failed to load archive", err)
	}

	return e.JSON(http.StatusOK, h.analytics.Recompute(req.Date, entries))
}

// Throughput exposes the rolling service-duration stats.
func (h *AnalyticsHandler) Throughput(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	return e.JSON(http.StatusOK, h.analytics.Throughput())
}

// ResetThroughput clears the rolling stats.
func (h *AnalyticsHandler) ResetThroughput(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	h.analytics.ResetThroughput()
	return e.JSON(http.StatusOK, map[string]any{"message": "throughput reset"})
}
