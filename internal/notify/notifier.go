// Package notify delivers alerts to the configured recipient.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Kind classifies alerts.
type Kind string

const (
	KindSale    Kind = "sale"
	KindAnomaly Kind = "anomaly"
	KindReport  Kind = "report"
)

// Alert is a single outbound notification.
type Alert struct {
	Kind      Kind
	Title     string
	Item      string
	Amount    int64
	GroupID   int64
	Timestamp time.Time
	// Ref is a short reference to the underlying record, if any.
	Ref string
	// Body is free-form text (report markdown, anomaly reason).
	Body string
}

// Notifier sends alerts.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// LogNotifier writes alerts to a logger. Used when no webhook is configured.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses log.Default().
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, a Alert) error {
	switch a.Kind {
	case KindSale:
		n.logger.Printf("%s: %s for %d in group %d at %s (ref %s)",
			a.Title, a.Item, a.Amount, a.GroupID, a.Timestamp.UTC().Format(time.RFC3339), a.Ref)
	default:
		n.logger.Printf("%s: %s", a.Title, a.Body)
	}
	return nil
}

// Multi fans an alert out to every notifier and joins their errors.
type Multi []Notifier

// Notify sends a to every notifier, continuing past failures.
func (m Multi) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for i, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Compile-time interface checks.
var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = Multi(nil)
	_ Notifier = (*WebhookNotifier)(nil)
)
