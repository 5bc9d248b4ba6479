// Package notify delivers alert notifications: to the process log, to a NATS
// subject, or both.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/aiguardian/guardian/internal/models"
)

// Notifier matches service.Notifier.
type Notifier interface {
	Notify(ctx context.Context, entry models.AlertLogEntry) error
}

// LogNotifier writes alerts to a zap logger at warn level.
type LogNotifier struct {
	Log *zap.Logger
}

// Notify logs the alert.
func (n LogNotifier) Notify(_ context.Context, e models.AlertLogEntry) error {
	n.Log.Warn("security alert",
		zap.String("alert_id", e.ID),
		zap.String("device", e.DeviceName),
		zap.String("kind", string(e.Kind)),
		zap.Time("at", e.Timestamp),
		zap.String("description", e.Description),
	)
	return nil
}

// Publisher is the subset of *nats.Conn used by NATSNotifier.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes alerts as JSON on Subject.<kind>.
type NATSNotifier struct {
	conn    Publisher
	subject string
}

// NewNATSNotifier creates a notifier publishing under subject.
func NewNATSNotifier(conn Publisher, subject string) *NATSNotifier {
	return &NATSNotifier{conn: conn, subject: subject}
}

// Connect dials NATS for use with NewNATSNotifier.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("guardian"),
		nats.MaxReconnects(5),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Notify publishes the alert. NATS publishing does not take a context, so
// ctx is only checked before publishing.
func (n *NATSNotifier) Notify(ctx context.Context, e models.AlertLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	subject := n.subject + "." + string(e.Kind)
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Multi fans an alert out to several notifiers and joins their errors.
type Multi []Notifier

// Notify calls every notifier.
func (m Multi) Notify(ctx context.Context, e models.AlertLogEntry) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
