package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danuputra/tokoku/internal/domain"
)

// OrderAnnouncer enqueues a notification task for every placed order. It
// keeps Telegram out of the order placement path: delivery and retries
// happen in the worker.
type OrderAnnouncer struct {
	manager Manager
	log     *slog.Logger
}

// NewOrderAnnouncer constructs an OrderAnnouncer.
func NewOrderAnnouncer(manager Manager, log *slog.Logger) *OrderAnnouncer {
	if log == nil {
		log = slog.Default()
	}

	return &OrderAnnouncer{manager: manager, log: log}
}

// AnnounceOrder enqueues the order:notify task.
func (a *OrderAnnouncer) AnnounceOrder(ctx context.Context, order domain.Order, productName string) error {
	task, err := NewOrderNotifyTask(order, productName)
	if err != nil {
		return fmt.Errorf("build order notify task: %w", err)
	}

	info, err := a.manager.Enqueue(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue order notify task: %w", err)
	}

	a.log.InfoContext(ctx, "order notification enqueued",
		slog.String("order_id", order.ID),
		slog.String("task_id", info.ID),
	)
	return nil
}
