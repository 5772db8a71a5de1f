package receipt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmptyPayloadGetsDefaults(t *testing.T) {
	before := time.Now().UTC()
	got := Normalize(map[string]any{}, 0.8)
	after := time.Now().UTC()

	assert.Equal(t, DefaultMerchantName, got.MerchantName)
	assert.Equal(t, float64(DefaultTotalAmount), got.TotalAmount)
	assert.Empty(t, got.Items)
	assert.True(t, got.IsScanned)
	assert.Equal(t, float32(0.8), got.Confidence)

	// fallback date is "now", not zero
	assert.False(t, got.PurchaseDate.Before(before))
	assert.False(t, got.PurchaseDate.After(after))
}

func TestNormalizeFullPayload(t *testing.T) {
	got := Normalize(map[string]any{
		"merchantName": "Walmart",
		"totalAmount":  45.67,
		"purchaseDate": "2024-03-15",
		"items": []any{
			map[string]any{"name": "Milk", "quantity": float64(2), "price": 3.99},
			map[string]any{"name": "Bread", "quantity": float64(1), "price": 2.49},
		},
	}, 0.92)

	assert.Equal(t, "Walmart", got.MerchantName)
	assert.Equal(t, 45.67, got.TotalAmount)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got.PurchaseDate)
	require.Len(t, got.Items, 2)
	assert.Equal(t, Item{Name: "Milk", Quantity: 2, Price: 3.99}, got.Items[0])
	assert.True(t, got.IsScanned)
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"number", 12.5, 12.5},
		{"string", "12.50", 12.5},
		{"dollar string", "$12.50", 12.5},
		{"zero falls back", float64(0), DefaultTotalAmount},
		{"garbage string", "lots", DefaultTotalAmount},
		{"nil", nil, DefaultTotalAmount},
		{"bool", true, DefaultTotalAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeAmount(tt.in))
		})
	}
}

func TestNormalizeMerchant(t *testing.T) {
	assert.Equal(t, "Trader Joe's", normalizeMerchant("  Trader Joe's  "))
	assert.Equal(t, DefaultMerchantName, normalizeMerchant("   "))
	assert.Equal(t, DefaultMerchantName, normalizeMerchant(nil))
	assert.Equal(t, DefaultMerchantName, normalizeMerchant(float64(42)))
}

func TestNormalizeDateFormats(t *testing.T) {
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-01-02", "2024/01/02", "01/02/2024"} {
		got := normalizeDate(in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestNormalizeItemsSkipsNonObjects(t *testing.T) {
	got := normalizeItems([]any{
		map[string]any{"name": "Coffee", "quantity": float64(1), "price": 3.5},
		"stray string",
		float64(7),
	})
	require.Len(t, got, 1)
	assert.Equal(t, "Coffee", got[0].Name)
}

func TestNormalizeItemsNonListDefaultsEmpty(t *testing.T) {
	assert.Empty(t, normalizeItems("not a list"))
	assert.Empty(t, normalizeItems(nil))
}
