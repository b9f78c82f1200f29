package tasks

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"clinic-waitlist/models"

	"github.com/hibiken/asynq"
	pubnub "github.com/pubnub/go"
)

// Dispatcher fans committed queue changes out to asynq (notification
// delivery) and PubNub (realtime status/display channels). It satisfies
// the engine's Dispatcher interface.
type Dispatcher struct {
	client *asynq.Client
	pubnub *pubnub.PubNub
	logger *slog.Logger
}

func NewDispatcher(client *asynq.Client, pn *pubnub.PubNub, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		client: client,
		pubnub: pn,
		logger: logger,
	}
}

// DispatchIntents enqueues one delivery task per intent. YOUR_TURN goes
// on the critical queue so a busy backlog cannot delay the call-in.
func (d *Dispatcher) DispatchIntents(intents []models.NotificationIntent) {
	for _, intent := range intents {
		payload, err := json.Marshal(intent)
		if err != nil {
			d.logger.Error("marshal intent", "entry", intent.EntryID, "err", err)
			continue
		}

		opts := []asynq.Option{asynq.MaxRetry(5)}
		if intent.Kind == models.NotifyYourTurn {
			opts = append(opts, asynq.Queue("critical"))
		}

		if _, err := d.client.Enqueue(asynq.NewTask(TypeNotifyPatient, payload), opts...); err != nil {
			d.logger.Error("enqueue notification", "entry", intent.EntryID, "kind", intent.Kind, "err", err)
		}
	}
}

// PublishChange pushes the new state to each entry's private channel and
// pokes the waiting-room display channel.
func (d *Dispatcher) PublishChange(change models.ChangeType, entries []*models.QueueEntry) {
	if d.pubnub == nil {
		return
	}

	for _, entry := range entries {
		d.pubnub.Publish().
			Channel(fmt.Sprintf("entry-%s", entry.Token)).
			Message(map[string]any{
				"type":                   "queue_update",
				"change":                 string(change),
				"status":                 string(entry.Status),
				"position":               entry.Position,
				"estimated_wait_seconds": entry.EstimatedWaitSeconds,
			}).
			Execute()
	}

	d.pubnub.Publish().
		Channel("waitlist-display").
		Message(map[string]any{
			"type":   "refresh",
			"change": string(change),
		}).
		Execute()
}
