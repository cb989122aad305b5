package notification

import (
	"context"
	"log/slog"
)

const (
	// KindRequestCreated signals a new payment request awaiting the recipient.
	KindRequestCreated = "payment_request_created"
	// KindRequestAcknowledged signals the recipient agreed to pay.
	KindRequestAcknowledged = "payment_request_acknowledged"
	// KindRequestFinalized signals the request was marked paid.
	KindRequestFinalized = "payment_request_finalized"
)

// Message describes a notification payload.
type Message struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Body        string `json:"body"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger. It is the
// default when no message broker is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}
