package catalog

import "github.com/danuputra/tokoku/internal/domain"

// FinalPrice applies the product discount to its base price. Prices are in
// the smallest currency unit, percentage discounts round down. The result is
// never negative and a malformed discount leaves the base price untouched.
func FinalPrice(price int64, discountType domain.DiscountType, discountValue int64) int64 {
	if price < 0 {
		return 0
	}
	if discountValue <= 0 {
		return price
	}

	switch discountType {
	case domain.DiscountFixedAmount:
		final := price - discountValue
		if final < 0 {
			return 0
		}
		return final
	case domain.DiscountPercentage:
		if discountValue >= 100 {
			return 0
		}
		return price - price*discountValue/100
	default:
		return price
	}
}

// ProductFinalPrice is FinalPrice over a product row.
func ProductFinalPrice(p domain.Product) int64 {
	return FinalPrice(p.Price, p.DiscountType, p.DiscountValue)
}
