package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nucleushq/ticket-engine/internal/config"
	"github.com/nucleushq/ticket-engine/internal/events"
)

// EventRelay mirrors every domain event to the log and, when a webhook URL
// is configured, to an external endpoint. Delivery is best-effort; a failed
// relay never affects the write that produced the event.
type EventRelay struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
	client *http.Client
}

// NewEventRelay creates the relay.
func NewEventRelay(logger *zap.Logger, cfg config.NotificationConfig) *EventRelay {
	return &EventRelay{
		logger: logger,
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Register subscribes the relay to every ticket event.
func Register(dispatcher events.Dispatcher, relay *EventRelay) {
	if dispatcher == nil || relay == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketPriorityChanged,
		events.EventTicketCommented,
	} {
		dispatcher.Subscribe(eventType, relay.Handle)
	}
}

// Handle logs the event and forwards it to the webhook when configured.
func (r *EventRelay) Handle(ctx context.Context, event events.Event) error {
	r.logger.Info("ticket event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int64("ticket_number", event.TicketNumber))

	if strings.TrimSpace(r.cfg.WebhookURL) == "" {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("event marshal failed", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		r.logger.Warn("webhook request build failed", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("webhook delivery failed", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		r.logger.Warn("webhook rejected event",
			zap.String("event_id", event.ID),
			zap.Int("status", resp.StatusCode))
	}
	return nil
}
