package services

import (
	"github.com/plateful/plateful-server/database/models"
	"github.com/plateful/plateful-server/worker"
)

// ChangeNotifier delivers record changes to live subscriptions. ws.Hub is
// the production implementation.
type ChangeNotifier interface {
	NotifyNote(eventType string, note *models.Note)
	NotifyRecipe(eventType string, recipe *models.Recipe)
}

// JobQueue schedules one-shot background jobs. worker.Pool is the production
// implementation.
type JobQueue interface {
	Submit(job worker.Job) bool
}
