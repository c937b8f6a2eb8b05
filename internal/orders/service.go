// Package orders implements the purchase flow: order placement with a price
// snapshot, payment proof uploads, the customer and admin listings and the
// status lifecycle. New orders are announced to the operator channel through
// the background job queue.
package orders

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/danuputra/tokoku/internal/catalog"
	"github.com/danuputra/tokoku/internal/domain"
	apperrors "github.com/danuputra/tokoku/internal/errors"
	"github.com/danuputra/tokoku/internal/gateway"
	"github.com/danuputra/tokoku/internal/report"
)

const ordersTable = "orders"

// Payment proof uploads accept the same formats as other images plus PDF.
var proofExtensions = []string{"jpg", "jpeg", "png", "webp", "pdf"}

// Allowed status transitions. Terminal states have no exits.
var statusTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending: {domain.OrderStatusPaid, domain.OrderStatusCancelled},
	domain.OrderStatusPaid:    {domain.OrderStatusCompleted, domain.OrderStatusCancelled},
}

// RowGateway is the slice of the row-level API used by this service.
type RowGateway interface {
	SelectRows(ctx context.Context, q gateway.Query, dest any) error
	InsertRows(ctx context.Context, table string, payload, dest any) error
	UpdateRows(ctx context.Context, table string, filter gateway.Filter, payload, dest any) error
}

// ProductSource resolves the product being ordered.
type ProductSource interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
}

// ProofStore uploads and deletes payment proof files.
type ProofStore interface {
	Upload(ctx context.Context, folder, filename, contentType string, content io.Reader, allowedExts []string) (string, error)
	Delete(ctx context.Context, storagePath string) error
}

// Announcer pushes an order notification to the operator channel,
// asynchronously. A nil announcer disables notifications.
type Announcer interface {
	AnnounceOrder(ctx context.Context, order domain.Order, productName string) error
}

// Service places and maintains orders.
type Service struct {
	rows     RowGateway
	products ProductSource
	proofs   ProofStore
	announce Announcer
	reporter *report.Reporter
	log      *slog.Logger
}

// NewService constructs the orders service.
func NewService(rows RowGateway, products ProductSource, proofs ProofStore, announce Announcer, reporter *report.Reporter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		rows:     rows,
		products: products,
		proofs:   proofs,
		announce: announce,
		reporter: reporter,
		log:      log,
	}
}

// Place creates an order for the product identified by slug. The unit price
// is snapshotted with the discount applied at this moment; later catalog
// edits never change it. The operator notification is best-effort.
func (s *Service) Place(ctx context.Context, userID, productSlug string, quantity int, note string) (*domain.Order, error) {
	if userID == "" {
		err := apperrors.NewUnauthenticatedError()
		s.reporter.Failure(ctx, "create_order", err)
		return nil, err
	}
	if productSlug == "" || quantity <= 0 {
		err := apperrors.NewValidationError("produk dan jumlah pesanan diperlukan")
		s.reporter.Failure(ctx, "create_order", err)
		return nil, err
	}

	product, err := s.products.GetBySlug(ctx, productSlug)
	if err != nil {
		s.reporter.Failure(ctx, "create_order", err)
		return nil, fmt.Errorf("place order: %w", err)
	}
	if !product.IsActive {
		err := apperrors.NewValidationError("produk sedang tidak tersedia")
		s.reporter.Failure(ctx, "create_order", err)
		return nil, err
	}

	unitPrice := catalog.ProductFinalPrice(*product)
	payload := map[string]any{
		"user_id":     userID,
		"product_id":  product.ID,
		"quantity":    quantity,
		"final_price": unitPrice * int64(quantity),
		"status":      domain.OrderStatusPending,
		"note":        note,
	}

	var inserted []domain.Order
	if err := s.rows.InsertRows(ctx, ordersTable, payload, &inserted); err != nil {
		s.reporter.Failure(ctx, "create_order", err)
		return nil, fmt.Errorf("place order: %w", err)
	}

	if len(inserted) == 0 {
		err := fmt.Errorf("place order: no representation returned")
		s.reporter.Failure(ctx, "create_order", err)
		return nil, err
	}

	order := &inserted[0]

	if s.announce != nil {
		if err := s.announce.AnnounceOrder(ctx, *order, product.Name); err != nil {
			s.log.WarnContext(ctx, "order announcement failed",
				slog.String("order_id", order.ID), slog.Any("error", err))
		}
	}

	s.reporter.Success(ctx, "create_order")
	return order, nil
}

// ListForUser loads one customer's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		err := apperrors.NewUnauthenticatedError()
		s.reporter.Failure(ctx, "fetch_orders", err)
		return nil, err
	}

	var orders []domain.Order
	q := gateway.Query{
		Table:      ordersTable,
		Filter:     gateway.Filter{Eq: map[string]string{"user_id": userID}},
		OrderBy:    "created_at",
		Descending: true,
	}
	if err := s.rows.SelectRows(ctx, q, &orders); err != nil {
		s.reporter.Failure(ctx, "fetch_orders", err)
		return nil, fmt.Errorf("list orders: %w", err)
	}

	s.reporter.Success(ctx, "fetch_orders", report.WithoutToast())
	return orders, nil
}

// ListByStatus loads every order with the given statuses. Dashboard admin
// surface; an empty status list loads everything.
func (s *Service) ListByStatus(ctx context.Context, statuses ...domain.OrderStatus) ([]domain.Order, error) {
	filter := gateway.Filter{}
	if len(statuses) > 0 {
		members := make([]string, len(statuses))
		for i, status := range statuses {
			members[i] = string(status)
		}
		filter.In = map[string][]string{"status": members}
	}

	var orders []domain.Order
	q := gateway.Query{Table: ordersTable, Filter: filter, OrderBy: "created_at", Descending: true}
	if err := s.rows.SelectRows(ctx, q, &orders); err != nil {
		s.reporter.Failure(ctx, "fetch_orders", err)
		return nil, fmt.Errorf("list orders: %w", err)
	}

	s.reporter.Success(ctx, "fetch_orders", report.WithoutToast())
	return orders, nil
}

// UpdateStatus moves an order along the lifecycle, rejecting transitions the
// lifecycle does not allow.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, error) {
	if orderID == "" {
		err := apperrors.NewValidationError("order id diperlukan")
		s.reporter.Failure(ctx, "update_order", err)
		return nil, err
	}

	current, err := s.get(ctx, orderID)
	if err != nil {
		s.reporter.Failure(ctx, "update_order", err)
		return nil, err
	}

	if !transitionAllowed(current.Status, next) {
		err := apperrors.NewValidationError(fmt.Sprintf("status %s tidak bisa diubah menjadi %s", current.Status, next))
		s.reporter.Failure(ctx, "update_order", err)
		return nil, err
	}

	var updated []domain.Order
	payload := domain.OrderUpdate{Status: &next}
	filter := gateway.Filter{Eq: map[string]string{"id": orderID}}
	if err := s.rows.UpdateRows(ctx, ordersTable, filter, payload, &updated); err != nil {
		s.reporter.Failure(ctx, "update_order", err)
		return nil, fmt.Errorf("update order: %w", err)
	}

	if len(updated) == 0 {
		err := apperrors.NewValidationError("pesanan tidak ditemukan")
		s.reporter.Failure(ctx, "update_order", err)
		return nil, err
	}

	s.reporter.Success(ctx, "update_order")
	return &updated[0], nil
}

// AttachPaymentProof uploads a proof file and links it to a pending order
// owned by userID. Replacing an existing proof removes the old file.
func (s *Service) AttachPaymentProof(ctx context.Context, userID, orderID, filename string, content io.Reader) (*domain.Order, error) {
	if userID == "" {
		err := apperrors.NewUnauthenticatedError()
		s.reporter.Failure(ctx, "upload_payment_proof", err)
		return nil, err
	}
	if orderID == "" || filename == "" || content == nil {
		err := apperrors.NewValidationError("order id dan file bukti pembayaran diperlukan")
		s.reporter.Failure(ctx, "upload_payment_proof", err)
		return nil, err
	}

	order, err := s.get(ctx, orderID)
	if err != nil {
		s.reporter.Failure(ctx, "upload_payment_proof", err)
		return nil, err
	}
	if order.UserID != userID {
		err := apperrors.NewValidationError("pesanan bukan milik Anda")
		s.reporter.Failure(ctx, "upload_payment_proof", err)
		return nil, err
	}
	if order.Status != domain.OrderStatusPending {
		err := apperrors.NewValidationError("bukti pembayaran hanya untuk pesanan yang belum dibayar")
		s.reporter.Failure(ctx, "upload_payment_proof", err)
		return nil, err
	}

	proofPath, err := s.proofs.Upload(ctx, "payment-proofs", filename, "", content, proofExtensions)
	if err != nil {
		s.reporter.Failure(ctx, "upload_payment_proof", err)
		return nil, fmt.Errorf("attach payment proof: %w", err)
	}

	var updated []domain.Order
	payload := domain.OrderUpdate{PaymentProofPath: &proofPath}
	filter := gateway.Filter{Eq: map[string]string{"id": orderID}}
	if err := s.rows.UpdateRows(ctx, ordersTable, filter, payload, &updated); err != nil {
		s.reporter.Failure(ctx, "upload_payment_proof", err)
		return nil, fmt.Errorf("attach payment proof: %w", err)
	}

	if len(updated) == 0 {
		err := apperrors.NewValidationError("pesanan tidak ditemukan")
		s.reporter.Failure(ctx, "upload_payment_proof", err)
		return nil, err
	}

	if oldPath := order.PaymentProofPath; oldPath != "" && oldPath != proofPath {
		if err := s.proofs.Delete(ctx, oldPath); err != nil {
			s.log.WarnContext(ctx, "old payment proof cleanup failed",
				slog.String("path", oldPath), slog.Any("error", err))
		}
	}

	s.reporter.Success(ctx, "upload_payment_proof")
	return &updated[0], nil
}

func (s *Service) get(ctx context.Context, orderID string) (*domain.Order, error) {
	var orders []domain.Order
	q := gateway.Query{
		Table:  ordersTable,
		Filter: gateway.Filter{Eq: map[string]string{"id": orderID}},
		Limit:  1,
	}
	if err := s.rows.SelectRows(ctx, q, &orders); err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if len(orders) == 0 {
		return nil, apperrors.NewValidationError("pesanan tidak ditemukan")
	}

	return &orders[0], nil
}

func transitionAllowed(from, to domain.OrderStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}
