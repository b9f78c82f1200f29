package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clinic-waitlist/config"
	"clinic-waitlist/models"
	"clinic-waitlist/monitoring"
	"clinic-waitlist/services"
	"clinic-waitlist/utils"

	"github.com/hibiken/asynq"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

const (
	TypeNotifyPatient = "notify:patient"
	TypeArchiveDay    = "session:archive"
)

// Handlers processes the queue engine's asynchronous side effects.
// Delivery failures are retried by asynq; they never touch queue state.
type Handlers struct {
	app       core.App
	cfg       *config.Config
	queue     *services.QueueService
	deliverer Deliverer
	breaker   *utils.CircuitBreaker
	logger    *slog.Logger
}

func NewHandlers(app core.App, cfg *config.Config, queue *services.QueueService, deliverer Deliverer, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		app:       app,
		cfg:       cfg,
		queue:     queue,
		deliverer: deliverer,
		breaker:   utils.NewCircuitBreaker("sms_delivery"),
		logger:    logger,
	}
}

// HandleNotifyPatient renders and delivers one notification intent.
func (h *Handlers) HandleNotifyPatient(ctx context.Context, t *asynq.Task) error {
	var intent models.NotificationIntent
	if err := json.Unmarshal(t.Payload(), &intent); err != nil {
		return fmt.Errorf("unmarshal intent: %w", err)
	}

	patient, err := h.app.FindRecordById("patients", intent.PatientRef)
	if err != nil {
		return fmt.Errorf("patient %s: %w", intent.PatientRef, err)
	}

	name := strings.TrimSpace(patient.GetString("first_name") + " " + patient.GetString("last_name"))
	phone := patient.GetString("phone")
	message := h.renderMessage(intent, name)

	result, execErr := h.breaker.Execute(ctx, func() (interface{}, error) {
		res := h.deliverer.Send(ctx, phone, message)
		if res.Status == "failed" {
			return res, errors.New(res.Error)
		}
		return res, nil
	})

	status := "failed"
	if res, ok := result.(models.DeliveryResult); ok && execErr == nil {
		status = res.Status
	}

	h.logNotification(intent, phone, message, status)
	monitoring.TrackNotification(intent.Kind, status)

	if execErr != nil {
		h.logger.Warn("delivery failed, will retry", "entry", intent.EntryID, "kind", intent.Kind, "err", execErr)
		return execErr
	}
	return nil
}

// HandleArchiveDay closes and archives the open session.
func (h *Handlers) HandleArchiveDay(ctx context.Context, t *asynq.Task) error {
	if err := h.queue.CloseDay(ctx); err != nil {
		// Already archived is fine; the scheduler and the rollover
		// loop can race.
		h.logger.Info("archive task", "result", err)
	}
	return nil
}

// renderMessage resolves the alert template for the intent's key and
// fills the placeholders; a missing template falls back to the built-in
// wording.
func (h *Handlers) renderMessage(intent models.NotificationIntent, name string) string {
	waitStr := formatWait(intent.WaitSeconds / 60)

	if record, err := h.app.FindFirstRecordByFilter(
		"alert_templates",
		"key = {:key}",
		dbx.Params{"key": intent.TemplateKey},
	); err == nil {
		msg := record.GetString("message_template")
		msg = strings.ReplaceAll(msg, "{patient_name}", name)
		msg = strings.ReplaceAll(msg, "{position}", fmt.Sprintf("%d", intent.Position))
		msg = strings.ReplaceAll(msg, "{wait_time}", waitStr)
		return msg
	}

	office := h.cfg.OfficeName
	switch intent.Kind {
	case models.NotifyCheckIn:
		link := fmt.Sprintf("%s/status/%s", h.cfg.BaseURL, intent.Token)
		return fmt.Sprintf("Hi %s, you've been checked in at %s. You are #%d in line. Track your wait: %s", name, office, intent.Position, link)
	case models.NotifyAlmostYourTurn:
		return fmt.Sprintf("Hi %s, you're almost up! %d patient(s) ahead of you at %s. Please be ready.", name, intent.Position-1, office)
	case models.NotifyYourTurn:
		return fmt.Sprintf("Hi %s, please come in now. %s is ready to see you.", name, office)
	case models.NotifyWaitUpdate:
		return fmt.Sprintf("Hi %s, your estimated wait at %s is now %s.", name, office, waitStr)
	}
	return fmt.Sprintf("Hi %s, update from %s: you are #%d in line (about %s).", name, office, intent.Position, waitStr)
}

func formatWait(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// logNotification appends to the notifications collection. Best effort;
// a failed log never fails the delivery.
func (h *Handlers) logNotification(intent models.NotificationIntent, phone, message, status string) {
	collection, err := h.app.FindCollectionByNameOrId("notifications")
	if err != nil {
		h.logger.Error("notifications collection missing", "err", err)
		return
	}

	record := core.NewRecord(collection)
	record.Set("entry_id", intent.EntryID)
	record.Set("patient", intent.PatientRef)
	record.Set("kind", string(intent.Kind))
	record.Set("phone", phone)
	record.Set("message", message)
	record.Set("status", status)

	if err := h.app.Save(record); err != nil {
		h.logger.Error("failed to log notification", "entry", intent.EntryID, "err", err)
	}
}
