package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketapp/internal/config"
	"github.com/spec-kit/ticketapp/internal/events"
)

// NoticeLevel classifies a Notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
)

// Notice is a short user-facing message derived from an event.
type Notice struct {
	Level    NoticeLevel
	Message  string
	Event    events.EventType
	UserID   string
	TicketID string
}

// NoticeSink receives notices, e.g. the CLI printing them.
type NoticeSink func(Notice)

var noticeMessages = map[events.EventType]Notice{
	events.EventUserSignedUp:  {Level: NoticeSuccess, Message: "Account created successfully! Welcome to TicketFlow."},
	events.EventUserLoggedIn:  {Level: NoticeSuccess, Message: "Login successful! Welcome back."},
	events.EventUserLoggedOut: {Level: NoticeInfo, Message: "Logged out successfully"},
	events.EventTicketCreated: {Level: NoticeSuccess, Message: "Ticket created successfully"},
	events.EventTicketUpdated: {Level: NoticeSuccess, Message: "Ticket updated successfully"},
	events.EventTicketDeleted: {Level: NoticeSuccess, Message: "Ticket deleted successfully"},
}

// NotificationService turns store events into notices.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig

	mu    sync.RWMutex
	sinks []NoticeSink
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// AddSink registers a receiver for future notices.
func (n *NotificationService) AddSink(sink NoticeSink) {
	if sink == nil {
		return
	}
	n.mu.Lock()
	n.sinks = append(n.sinks, sink)
	n.mu.Unlock()
}

// RegisterHandlers subscribes to events. It does nothing when notifications
// are disabled.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || !n.cfg.Enabled {
		return
	}
	for typ := range noticeMessages {
		n.dispatcher.Subscribe(typ, n.handle)
	}
}

func (n *NotificationService) handle(_ context.Context, event events.Event) error {
	notice, ok := noticeMessages[event.Type]
	if !ok {
		return nil
	}
	notice.Event = event.Type
	notice.UserID = event.UserID
	notice.TicketID = event.TicketID

	n.logger.Info(notice.Message,
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.String("ticket_id", event.TicketID))

	n.mu.RLock()
	sinks := append([]NoticeSink{}, n.sinks...)
	n.mu.RUnlock()
	for _, sink := range sinks {
		sink(notice)
	}
	return nil
}
