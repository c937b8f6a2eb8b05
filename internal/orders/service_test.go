package orders

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danuputra/tokoku/internal/domain"
	apperrors "github.com/danuputra/tokoku/internal/errors"
	"github.com/danuputra/tokoku/internal/gateway"
	"github.com/danuputra/tokoku/internal/report"
)

type fakeRows struct {
	orders       []domain.Order
	lastInsert   map[string]any
	updateResult []domain.Order
}

func fill(dest, rows any) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeRows) SelectRows(ctx context.Context, q gateway.Query, dest any) error {
	if id, ok := q.Filter.Eq["id"]; ok {
		for _, order := range f.orders {
			if order.ID == id {
				return fill(dest, []domain.Order{order})
			}
		}
		return fill(dest, []domain.Order{})
	}

	return fill(dest, f.orders)
}

func (f *fakeRows) InsertRows(ctx context.Context, table string, payload, dest any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.lastInsert = map[string]any{}
	if err := json.Unmarshal(raw, &f.lastInsert); err != nil {
		return err
	}

	inserted := domain.Order{
		ID:         "ord-1",
		UserID:     f.lastInsert["user_id"].(string),
		ProductID:  f.lastInsert["product_id"].(string),
		Quantity:   int(f.lastInsert["quantity"].(float64)),
		FinalPrice: int64(f.lastInsert["final_price"].(float64)),
		Status:     domain.OrderStatus(f.lastInsert["status"].(string)),
	}
	return fill(dest, []domain.Order{inserted})
}

func (f *fakeRows) UpdateRows(ctx context.Context, table string, filter gateway.Filter, payload, dest any) error {
	return fill(dest, f.updateResult)
}

type fakeProducts struct {
	product *domain.Product
}

func (f *fakeProducts) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return f.product, nil
}

type fakeProofs struct {
	uploaded []string
	deleted  []string
}

func (f *fakeProofs) Upload(ctx context.Context, folder, filename, contentType string, content io.Reader, allowedExts []string) (string, error) {
	path := "public-images/" + folder + "/" + filename
	f.uploaded = append(f.uploaded, path)
	return path, nil
}

func (f *fakeProofs) Delete(ctx context.Context, storagePath string) error {
	f.deleted = append(f.deleted, storagePath)
	return nil
}

type fakeAnnouncer struct {
	calls int
	err   error
}

func (f *fakeAnnouncer) AnnounceOrder(ctx context.Context, order domain.Order, productName string) error {
	f.calls++
	return f.err
}

func newTestService(rows *fakeRows, products *fakeProducts, proofs *fakeProofs, announce *fakeAnnouncer) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reporter := report.New(&report.Status{}, nil, nil, log)
	return NewService(rows, products, proofs, announce, reporter, log)
}

func discountedProduct() *domain.Product {
	return &domain.Product{
		ID:            "p1",
		Name:          "Kopi Susu",
		Slug:          "kopi-susu",
		Price:         20000,
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: 10,
		IsActive:      true,
	}
}

func TestPlaceSnapshotsDiscountedPrice(t *testing.T) {
	rows := &fakeRows{}
	announce := &fakeAnnouncer{}
	svc := newTestService(rows, &fakeProducts{product: discountedProduct()}, &fakeProofs{}, announce)

	order, err := svc.Place(context.Background(), "user-1", "kopi-susu", 3, "tanpa gula")

	require.NoError(t, err)
	assert.Equal(t, int64(54000), order.FinalPrice, "3 x (20000 - 10%)")
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, 1, announce.calls)
}

func TestPlaceRejectsInactiveProduct(t *testing.T) {
	product := discountedProduct()
	product.IsActive = false
	svc := newTestService(&fakeRows{}, &fakeProducts{product: product}, &fakeProofs{}, nil)

	_, err := svc.Place(context.Background(), "user-1", "kopi-susu", 1, "")

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestPlaceRequiresAuth(t *testing.T) {
	svc := newTestService(&fakeRows{}, &fakeProducts{product: discountedProduct()}, &fakeProofs{}, nil)

	_, err := svc.Place(context.Background(), "", "kopi-susu", 1, "")

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthenticated, apperrors.CodeOf(err))
}

func TestPlaceSurvivesAnnouncementFailure(t *testing.T) {
	announce := &fakeAnnouncer{err: assert.AnError}
	svc := newTestService(&fakeRows{}, &fakeProducts{product: discountedProduct()}, &fakeProofs{}, announce)

	order, err := svc.Place(context.Background(), "user-1", "kopi-susu", 1, "")

	require.NoError(t, err, "notification failure never fails the order")
	assert.NotNil(t, order)
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.OrderStatus
		to      domain.OrderStatus
		allowed bool
	}{
		{"pending to paid", domain.OrderStatusPending, domain.OrderStatusPaid, true},
		{"pending to cancelled", domain.OrderStatusPending, domain.OrderStatusCancelled, true},
		{"pending to completed", domain.OrderStatusPending, domain.OrderStatusCompleted, false},
		{"paid to completed", domain.OrderStatusPaid, domain.OrderStatusCompleted, true},
		{"completed is terminal", domain.OrderStatusCompleted, domain.OrderStatusPending, false},
		{"cancelled is terminal", domain.OrderStatusCancelled, domain.OrderStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := &fakeRows{
				orders:       []domain.Order{{ID: "ord-1", UserID: "user-1", Status: tt.from}},
				updateResult: []domain.Order{{ID: "ord-1", UserID: "user-1", Status: tt.to}},
			}
			svc := newTestService(rows, nil, &fakeProofs{}, nil)

			order, err := svc.UpdateStatus(context.Background(), "ord-1", tt.to)

			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, order.Status)
			} else {
				require.Error(t, err)
				assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
			}
		})
	}
}

func TestAttachPaymentProof(t *testing.T) {
	proofPath := "public-images/payment-proofs/bukti.jpg"
	rows := &fakeRows{
		orders:       []domain.Order{{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusPending}},
		updateResult: []domain.Order{{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusPending, PaymentProofPath: proofPath}},
	}
	proofs := &fakeProofs{}
	svc := newTestService(rows, nil, proofs, nil)

	order, err := svc.AttachPaymentProof(context.Background(), "user-1", "ord-1", "bukti.jpg", strings.NewReader("img"))

	require.NoError(t, err)
	assert.Equal(t, proofPath, order.PaymentProofPath)
	assert.Len(t, proofs.uploaded, 1)
}

func TestAttachPaymentProofRejectsForeignOrder(t *testing.T) {
	rows := &fakeRows{
		orders: []domain.Order{{ID: "ord-1", UserID: "someone-else", Status: domain.OrderStatusPending}},
	}
	svc := newTestService(rows, nil, &fakeProofs{}, nil)

	_, err := svc.AttachPaymentProof(context.Background(), "user-1", "ord-1", "bukti.jpg", strings.NewReader("img"))

	require.Error(t, err)
}

func TestAttachPaymentProofRejectsNonPending(t *testing.T) {
	rows := &fakeRows{
		orders: []domain.Order{{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusPaid}},
	}
	svc := newTestService(rows, nil, &fakeProofs{}, nil)

	_, err := svc.AttachPaymentProof(context.Background(), "user-1", "ord-1", "bukti.jpg", strings.NewReader("img"))

	require.Error(t, err)
}

func TestAttachPaymentProofReplacesOldFile(t *testing.T) {
	oldPath := "public-images/payment-proofs/lama.jpg"
	newPath := "public-images/payment-proofs/bukti.jpg"
	rows := &fakeRows{
		orders:       []domain.Order{{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusPending, PaymentProofPath: oldPath}},
		updateResult: []domain.Order{{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusPending, PaymentProofPath: newPath}},
	}
	proofs := &fakeProofs{}
	svc := newTestService(rows, nil, proofs, nil)

	_, err := svc.AttachPaymentProof(context.Background(), "user-1", "ord-1", "bukti.jpg", strings.NewReader("img"))

	require.NoError(t, err)
	assert.Equal(t, []string{oldPath}, proofs.deleted)
}
