package worker

import (
	"github.com/spec-kit/ticketapp/internal/service"
)

// StartNotificationWorker registers notification handlers and attaches the
// given sinks.
func StartNotificationWorker(notificationService *service.NotificationService, sinks ...service.NoticeSink) {
	if notificationService == nil {
		return
	}
	for _, sink := range sinks {
		notificationService.AddSink(sink)
	}
	notificationService.RegisterHandlers()
}
