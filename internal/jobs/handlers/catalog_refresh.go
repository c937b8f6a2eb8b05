package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/danuputra/tokoku/internal/domain"
)

// CatalogReader re-reads the active product list, warming the cache as a
// side effect.
type CatalogReader interface {
	ListActive(ctx context.Context) ([]domain.Product, error)
}

// CatalogRefreshHandler keeps the catalog cache warm so the first storefront
// visitor after an expiry never pays the cold read.
type CatalogRefreshHandler struct {
	catalog CatalogReader
	log     *slog.Logger
}

func NewCatalogRefreshHandler(catalog CatalogReader, log *slog.Logger) *CatalogRefreshHandler {
	if log == nil {
		log = slog.Default()
	}

	return &CatalogRefreshHandler{catalog: catalog, log: log}
}

func (h *CatalogRefreshHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	products, err := h.catalog.ListActive(ctx)
	if err != nil {
		h.log.ErrorContext(ctx, "catalog refresh failed", slog.Any("error", err))
		return err
	}

	h.log.InfoContext(ctx, "catalog cache refreshed", slog.Int("products", len(products)))
	return nil
}
