package services

import (
	"context"

	"go.uber.org/zap"

	"bibliophile/server/internal/logging"
	"bibliophile/server/internal/metrics"
)

// Notification template ids.
const (
	TemplateBookingCreated   = "booking_created"
	TemplatePaymentConfirmed = "payment_confirmed"
	TemplateBookSold         = "book_sold"
)

// INotifier queues an email built from templateID for delivery to to.
type INotifier interface {
	Notify(ctx context.Context, to, templateID string, data map[string]interface{}) error
}

// notify enqueues a notification without letting a queue failure surface to
// the caller. A nil notifier disables notifications.
func notify(ctx context.Context, n INotifier, to, templateID string, data map[string]interface{}) {
	if n == nil || to == "" {
		return
	}
	if err := n.Notify(ctx, to, templateID, data); err != nil {
		metrics.NotificationsEnqueuedTotal.WithLabelValues(templateID, "error").Inc()
		logging.L().Error("failed to enqueue notification",
			zap.String("template_id", templateID),
			zap.String("to", to),
			zap.Error(err))
		return
	}
	metrics.NotificationsEnqueuedTotal.WithLabelValues(templateID, "queued").Inc()
}
