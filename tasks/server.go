package tasks

import (
	"log"

	"github.com/hibiken/asynq"
)

// StartWorker runs the asynq server and the day-end scheduler in
// background goroutines.
func StartWorker(redisOpt asynq.RedisClientOpt, handlers *Handlers) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeNotifyPatient, handlers.HandleNotifyPatient)
	mux.HandleFunc(TypeArchiveDay, handlers.HandleArchiveDay)

	// Archive the day session at midnight.
	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("0 0 * * *", asynq.NewTask(TypeArchiveDay, nil)); err != nil {
		log.Fatal("Failed to register archive schedule:", err)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatal("Scheduler failed to start:", err)
		}
	}()

	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatal("Asynq server failed to start:", err)
		}
	}()
}
