// Package catalog implements the product surface of the storefront: the
// cached public listing, slug lookup and the admin product maintenance.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/danuputra/tokoku/internal/domain"
	apperrors "github.com/danuputra/tokoku/internal/errors"
	"github.com/danuputra/tokoku/internal/gateway"
	"github.com/danuputra/tokoku/internal/report"
)

const (
	productsTable   = "products"
	categoriesTable = "product_categories"
)

// Allowed product image extensions.
var imageExtensions = []string{"jpg", "jpeg", "png", "webp"}

// RowGateway is the slice of the row-level API used by this service.
type RowGateway interface {
	SelectRows(ctx context.Context, q gateway.Query, dest any) error
	InsertRows(ctx context.Context, table string, payload, dest any) error
	UpdateRows(ctx context.Context, table string, filter gateway.Filter, payload, dest any) error
}

// ImageStore uploads and deletes product images in object storage.
type ImageStore interface {
	Upload(ctx context.Context, folder, filename, contentType string, content io.Reader, allowedExts []string) (string, error)
	Delete(ctx context.Context, storagePath string) error
}

// NewProductInput is the payload for creating a catalog product. Slug is
// derived from the name, not caller-supplied.
type NewProductInput struct {
	CategoryID    string
	Name          string
	Description   string
	Price         int64
	DiscountType  domain.DiscountType
	DiscountValue int64
	IsActive      bool
}

// Service reads and maintains the catalog.
type Service struct {
	rows     RowGateway
	images   ImageStore
	cache    *Cache
	reporter *report.Reporter
	log      *slog.Logger
}

// NewService constructs the catalog service. cache may be nil.
func NewService(rows RowGateway, images ImageStore, cache *Cache, reporter *report.Reporter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{rows: rows, images: images, cache: cache, reporter: reporter, log: log}
}

// ListActive loads the storefront product list, serving from cache when
// possible. Cache failures degrade to a gateway read, never to an error.
func (s *Service) ListActive(ctx context.Context) ([]domain.Product, error) {
	cached, err := s.cache.GetActiveList(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "catalog cache read failed", slog.Any("error", err))
	}
	if cached != nil {
		return cached, nil
	}

	products, err := s.fetchActive(ctx)
	if err != nil {
		s.reporter.Failure(ctx, "fetch_products", err)
		return nil, err
	}

	if err := s.cache.SetActiveList(ctx, products); err != nil {
		s.log.WarnContext(ctx, "catalog cache write failed", slog.Any("error", err))
	}

	s.reporter.Success(ctx, "fetch_products", report.WithoutToast())
	return products, nil
}

func (s *Service) fetchActive(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	q := gateway.Query{
		Table:      productsTable,
		Filter:     gateway.Filter{Eq: map[string]string{"is_active": "true"}},
		OrderBy:    "created_at",
		Descending: true,
	}
	if err := s.rows.SelectRows(ctx, q, &products); err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}

	return products, nil
}

// ListAll loads every product including inactive ones. Dashboard admin
// surface, never cached.
func (s *Service) ListAll(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	q := gateway.Query{Table: productsTable, OrderBy: "created_at", Descending: true}
	if err := s.rows.SelectRows(ctx, q, &products); err != nil {
		s.reporter.Failure(ctx, "fetch_products", err)
		return nil, fmt.Errorf("list products: %w", err)
	}

	s.reporter.Success(ctx, "fetch_products", report.WithoutToast())
	return products, nil
}

// GetBySlug loads one product by its URL slug, cache first.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if slug == "" {
		return nil, apperrors.NewValidationError("slug produk diperlukan")
	}

	cached, err := s.cache.GetBySlug(ctx, slug)
	if err != nil {
		s.log.WarnContext(ctx, "catalog cache read failed", slog.Any("error", err))
	}
	if cached != nil {
		return cached, nil
	}

	var products []domain.Product
	q := gateway.Query{
		Table:  productsTable,
		Filter: gateway.Filter{Eq: map[string]string{"slug": slug}},
		Limit:  1,
	}
	if err := s.rows.SelectRows(ctx, q, &products); err != nil {
		return nil, fmt.Errorf("get product %s: %w", slug, err)
	}

	if len(products) == 0 {
		return nil, apperrors.NewValidationError("produk tidak ditemukan")
	}

	product := &products[0]
	if err := s.cache.SetBySlug(ctx, product); err != nil {
		s.log.WarnContext(ctx, "catalog cache write failed", slog.Any("error", err))
	}

	return product, nil
}

// ListCategories loads the category tree.
func (s *Service) ListCategories(ctx context.Context) ([]domain.ProductCategory, error) {
	var categories []domain.ProductCategory
	q := gateway.Query{Table: categoriesTable, OrderBy: "name"}
	if err := s.rows.SelectRows(ctx, q, &categories); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return categories, nil
}

// CreateProduct inserts a catalog row with a slug derived from the name. A
// taken slug gets a random suffix instead of failing. imageFilename/image may
// be empty for products without a picture.
func (s *Service) CreateProduct(ctx context.Context, in NewProductInput, imageFilename string, image io.Reader) (*domain.Product, error) {
	if in.Name == "" || in.CategoryID == "" || in.Price < 0 {
		err := apperrors.NewValidationError("nama, kategori, dan harga produk diperlukan")
		s.reporter.Failure(ctx, "save_product", err)
		return nil, err
	}

	slug := Slugify(in.Name)
	if slug == "" {
		err := apperrors.NewValidationError("nama produk tidak menghasilkan slug yang valid")
		s.reporter.Failure(ctx, "save_product", err)
		return nil, err
	}

	taken, err := s.slugTaken(ctx, slug)
	if err != nil {
		s.reporter.Failure(ctx, "save_product", err)
		return nil, err
	}
	if taken {
		slug = uniqueSlug(slug)
	}

	imagePath := ""
	if image != nil && imageFilename != "" {
		imagePath, err = s.images.Upload(ctx, "products", imageFilename, "", image, imageExtensions)
		if err != nil {
			s.reporter.Failure(ctx, "upload_image", err)
			return nil, fmt.Errorf("create product: %w", err)
		}
	}

	payload := map[string]any{
		"category_id":    in.CategoryID,
		"name":           in.Name,
		"slug":           slug,
		"description":    in.Description,
		"image_path":     imagePath,
		"price":          in.Price,
		"discount_type":  in.DiscountType,
		"discount_value": in.DiscountValue,
		"is_active":      in.IsActive,
	}

	var inserted []domain.Product
	if err := s.rows.InsertRows(ctx, productsTable, payload, &inserted); err != nil {
		s.reporter.Failure(ctx, "save_product", err)
		return nil, fmt.Errorf("create product: %w", err)
	}

	if len(inserted) == 0 {
		err := fmt.Errorf("create product: no representation returned")
		s.reporter.Failure(ctx, "save_product", err)
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, slug); err != nil {
		s.log.WarnContext(ctx, "catalog cache invalidation failed", slog.Any("error", err))
	}

	s.reporter.Success(ctx, "save_product")
	return &inserted[0], nil
}

// UpdateProduct applies a typed partial update, optionally replacing the
// product image first.
func (s *Service) UpdateProduct(ctx context.Context, productID string, update domain.ProductUpdate, imageFilename string, image io.Reader) (*domain.Product, error) {
	if productID == "" {
		err := apperrors.NewValidationError("product id diperlukan")
		s.reporter.Failure(ctx, "save_product", err)
		return nil, err
	}

	var oldImagePath string
	if image != nil && imageFilename != "" {
		var current []domain.Product
		q := gateway.Query{
			Table:   productsTable,
			Columns: "id,image_path",
			Filter:  gateway.Filter{Eq: map[string]string{"id": productID}},
			Limit:   1,
		}
		if err := s.rows.SelectRows(ctx, q, &current); err == nil && len(current) > 0 {
			oldImagePath = current[0].ImagePath
		}

		newPath, err := s.images.Upload(ctx, "products", imageFilename, "", image, imageExtensions)
		if err != nil {
			s.reporter.Failure(ctx, "upload_image", err)
			return nil, fmt.Errorf("update product: %w", err)
		}
		update.ImagePath = &newPath
	}

	if update.IsEmpty() {
		err := apperrors.NewValidationError("tidak ada data yang diubah")
		s.reporter.Failure(ctx, "save_product", err)
		return nil, err
	}

	var updated []domain.Product
	filter := gateway.Filter{Eq: map[string]string{"id": productID}}
	if err := s.rows.UpdateRows(ctx, productsTable, filter, update, &updated); err != nil {
		s.reporter.Failure(ctx, "save_product", err)
		return nil, fmt.Errorf("update product: %w", err)
	}

	if len(updated) == 0 {
		err := apperrors.NewValidationError("produk tidak ditemukan")
		s.reporter.Failure(ctx, "save_product", err)
		return nil, err
	}

	product := &updated[0]

	if oldImagePath != "" && update.ImagePath != nil && oldImagePath != *update.ImagePath {
		if err := s.images.Delete(ctx, oldImagePath); err != nil {
			s.log.WarnContext(ctx, "old product image cleanup failed",
				slog.String("path", oldImagePath), slog.Any("error", err))
		}
	}

	if err := s.cache.Invalidate(ctx, product.Slug); err != nil {
		s.log.WarnContext(ctx, "catalog cache invalidation failed", slog.Any("error", err))
	}

	s.reporter.Success(ctx, "save_product")
	return product, nil
}

func (s *Service) slugTaken(ctx context.Context, slug string) (bool, error) {
	var rows []struct {
		ID string `json:"id"`
	}

	q := gateway.Query{
		Table:   productsTable,
		Columns: "id",
		Filter:  gateway.Filter{Eq: map[string]string{"slug": slug}},
		Limit:   1,
	}
	if err := s.rows.SelectRows(ctx, q, &rows); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}

	return len(rows) > 0, nil
}
