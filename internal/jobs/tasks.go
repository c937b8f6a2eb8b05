package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/danuputra/tokoku/internal/domain"
)

const (
	TaskTypeOrderNotify    = "order:notify"
	TaskTypeCatalogRefresh = "catalog:refresh"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// OrderNotifyPayload carries a placed order to the notification handler. The
// product name is resolved at enqueue time so the handler needs no catalog
// read.
type OrderNotifyPayload struct {
	Order       domain.Order `json:"order"`
	ProductName string       `json:"product_name"`
}

func NewOrderNotifyTask(order domain.Order, productName string) (*asynq.Task, error) {
	payload, err := json.Marshal(OrderNotifyPayload{Order: order, ProductName: productName})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeOrderNotify, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

func NewCatalogRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskTypeCatalogRefresh, nil, asynq.Queue(QueueLow))
}
