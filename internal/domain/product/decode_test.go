package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCatalog(t *testing.T) {
	products, err := DecodeCatalog([]byte(`[
		{"id": "1", "name": "Waffle", "price": 6.5, "category": "Waffle",
		 "image": {"thumbnail": "/t.jpg", "desktop": "/d.jpg", "retina": "/r.jpg"}},
		{"id": "2", "name": "Big Cake", "price": "K1,000", "category": "Cake", "stock": 3}
	]`))
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "Waffle", products[0].Name)
	assert.True(t, decimal.RequireFromString("6.5").Equal(products[0].Price))
	assert.Equal(t, "/t.jpg", products[0].Image.Thumbnail)
	assert.Equal(t, "/d.jpg", products[0].Image.Desktop)
	assert.True(t, decimal.NewFromInt(1000).Equal(products[1].Price))
}

func TestDecodeCatalogErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not an array", `{"id": "1"}`},
		{"missing id", `[{"name": "x", "price": 1}]`},
		{"numeric name", `[{"id": "1", "name": 5}]`},
		{"truncated", `[{"id": "1"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCatalog([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}
