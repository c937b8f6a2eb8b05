package domain

import "time"

// OrderStatus enumerates the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a storefront purchase row. FinalPrice is a snapshot taken at
// creation time so later catalog edits never change a placed order.
type Order struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	ProductID        string      `json:"product_id"`
	Quantity         int         `json:"quantity"`
	FinalPrice       int64       `json:"final_price"`
	Status           OrderStatus `json:"status"`
	PaymentProofPath string      `json:"payment_proof_path,omitempty"`
	Note             string      `json:"note,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// OrderUpdate enumerates the mutable order fields.
type OrderUpdate struct {
	Status           *OrderStatus `json:"status,omitempty"`
	PaymentProofPath *string      `json:"payment_proof_path,omitempty"`
	Note             *string      `json:"note,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u OrderUpdate) IsEmpty() bool {
	return u.Status == nil && u.PaymentProofPath == nil && u.Note == nil
}
