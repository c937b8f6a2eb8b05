package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/danuputra/tokoku/internal/domain"
	"github.com/danuputra/tokoku/internal/jobs"
)

// OrderNotifier is the delivery side of an order notification.
type OrderNotifier interface {
	AnnounceOrder(ctx context.Context, order domain.Order, productName string) error
}

// OrderNotifyHandler delivers order notifications from the queue. Returning
// an error hands the task back to asynq for retry.
type OrderNotifyHandler struct {
	notifier OrderNotifier
	log      *slog.Logger
}

func NewOrderNotifyHandler(notifier OrderNotifier, log *slog.Logger) *OrderNotifyHandler {
	if log == nil {
		log = slog.Default()
	}

	return &OrderNotifyHandler{notifier: notifier, log: log}
}

func (h *OrderNotifyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.OrderNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "order notify: failed to decode payload",
			slog.String("task_type", t.Type()),
			slog.Any("error", err),
		)
		return err
	}

	if h.notifier == nil {
		h.log.WarnContext(ctx, "order notify: no notifier configured, dropping task",
			slog.String("order_id", payload.Order.ID))
		return nil
	}

	if err := h.notifier.AnnounceOrder(ctx, payload.Order, payload.ProductName); err != nil {
		h.log.ErrorContext(ctx, "order notify: delivery failed",
			slog.String("order_id", payload.Order.ID),
			slog.Any("error", err),
		)
		return err
	}

	h.log.InfoContext(ctx, "order notification delivered",
		slog.String("order_id", payload.Order.ID))
	return nil
}
