package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danuputra/tokoku/internal/domain"
)

func TestFinalPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		dtype    domain.DiscountType
		dvalue   int64
		expected int64
	}{
		{"no discount", 100000, domain.DiscountNone, 0, 100000},
		{"fixed amount", 100000, domain.DiscountFixedAmount, 25000, 75000},
		{"fixed amount exceeds price", 100000, domain.DiscountFixedAmount, 150000, 0},
		{"percentage", 100000, domain.DiscountPercentage, 10, 90000},
		{"percentage rounds down", 99999, domain.DiscountPercentage, 10, 90000},
		{"percentage full", 100000, domain.DiscountPercentage, 100, 0},
		{"percentage over full", 100000, domain.DiscountPercentage, 150, 0},
		{"zero discount value ignored", 100000, domain.DiscountPercentage, 0, 100000},
		{"negative discount ignored", 100000, domain.DiscountFixedAmount, -500, 100000},
		{"unknown discount type ignored", 100000, domain.DiscountType("bogus"), 500, 100000},
		{"negative price clamps to zero", -100, domain.DiscountNone, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FinalPrice(tt.price, tt.dtype, tt.dvalue))
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Kopi Susu Gula Aren", "kopi-susu-gula-aren"},
		{"  Paket Hemat #1  ", "paket-hemat-1"},
		{"Teh--Manis", "teh-manis"},
		{"UPPER case", "upper-case"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Slugify(tt.in), "input %q", tt.in)
	}
}
