package domain

import "time"

// DiscountType enumerates how a product discount is applied.
type DiscountType string

const (
	DiscountNone        DiscountType = ""
	DiscountFixedAmount DiscountType = "fixed_amount"
	DiscountPercentage  DiscountType = "percentage"
)

// ProductCategory groups products in the catalog.
type ProductCategory struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a catalog row. Price is stored in the smallest currency unit.
type Product struct {
	ID            string       `json:"id"`
	CategoryID    string       `json:"category_id"`
	Name          string       `json:"name"`
	Slug          string       `json:"slug"`
	Description   string       `json:"description,omitempty"`
	ImagePath     string       `json:"image_path,omitempty"`
	Price         int64        `json:"price"`
	DiscountType  DiscountType `json:"discount_type,omitempty"`
	DiscountValue int64        `json:"discount_value,omitempty"`
	IsActive      bool         `json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ProductUpdate enumerates the mutable product fields.
type ProductUpdate struct {
	Name          *string       `json:"name,omitempty"`
	Description   *string       `json:"description,omitempty"`
	ImagePath     *string       `json:"image_path,omitempty"`
	Price         *int64        `json:"price,omitempty"`
	DiscountType  *DiscountType `json:"discount_type,omitempty"`
	DiscountValue *int64        `json:"discount_value,omitempty"`
	IsActive      *bool         `json:"is_active,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.ImagePath == nil &&
		u.Price == nil && u.DiscountType == nil && u.DiscountValue == nil && u.IsActive == nil
}
