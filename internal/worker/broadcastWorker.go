package worker

import (
	"context"
	"time"

	"weather-notifier/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// BroadcastWorker periodically re-notifies every user with history on a
// cron schedule.
type BroadcastWorker struct {
	broadcastService service.BroadcastService
	schedule         string
	cron             *cron.Cron
}

func NewBroadcastWorker(broadcastService service.BroadcastService, schedule string) *BroadcastWorker {
	return &BroadcastWorker{
		broadcastService: broadcastService,
		schedule:         schedule,
		cron:             cron.New(),
	}
}

func (w *BroadcastWorker) Start() error {
	if _, err := w.cron.AddFunc(w.schedule, w.runBroadcast); err != nil {
		return err
	}
	w.cron.Start()

	logrus.Infof("Broadcast worker started with schedule %q", w.schedule)
	return nil
}

// Stop waits for a running broadcast to finish.
func (w *BroadcastWorker) Stop() {
	<-w.cron.Stop().Done()
	logrus.Info("Broadcast worker stopped")
}

func (w *BroadcastWorker) runBroadcast() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	_, summary, err := w.broadcastService.SendWeatherToAll(ctx)
	if err != nil {
		logrus.Errorf("Scheduled broadcast failed: %v", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"run_id":   summary.RunID,
		"notified": summary.Notified,
		"failed":   summary.Failed,
	}).Info("Scheduled broadcast completed")

	if summary.PersistError != "" {
		logrus.Warnf("Scheduled broadcast history was not recorded: %s", summary.PersistError)
	}
}
