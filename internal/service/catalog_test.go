package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamroyal/etsy-software/internal/model"
	"github.com/liamroyal/etsy-software/internal/validation"
)

func catalog() []model.Product {
	return []model.Product{
		{ID: "mug", Name: "Ceramic Mug", Price: d("24.99"), FulfillmentMethod: "dropship", Category: "kitchen"},
		{ID: "print", Name: "Wall Print", Price: d("12"), FulfillmentMethod: "print-on-demand"},
		{ID: "lamp", Name: "Desk Lamp", Price: d("59"), FulfillmentMethod: "dropship"},
	}
}

func TestFilterProducts(t *testing.T) {
	tests := []struct {
		name   string
		filter model.ProductFilter
		want   []string
	}{
		{name: "no filter", filter: model.ProductFilter{}, want: []string{"mug", "print", "lamp"}},
		{name: "search by name", filter: model.ProductFilter{Search: " MUG "}, want: []string{"mug"}},
		{name: "search by method", filter: model.ProductFilter{Search: "demand"}, want: []string{"print"}},
		{name: "category is not searched", filter: model.ProductFilter{Search: "kitchen"}, want: []string{}},
		{name: "method", filter: model.ProductFilter{FulfillmentMethod: "dropship"}, want: []string{"mug", "lamp"}},
		{
			name: "price range",
			filter: model.ProductFilter{
				MinPrice: decimal.NewNullDecimal(d("20")),
				MaxPrice: decimal.NewNullDecimal(d("30")),
			},
			want: []string{"mug"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterProducts(catalog(), tt.filter)
			ids := make([]string, 0, len(got))
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestCreateProduct(t *testing.T) {
	svc := newTestService(newStubRepo(), nil)

	_, err := svc.CreateProduct(context.Background(), model.Product{Name: "Mug"})
	assert.ErrorIs(t, err, validation.ErrValidation)

	p, err := svc.CreateProduct(context.Background(), model.Product{
		Name:              "<i>Mug</i>",
		Store:             "Main",
		Price:             d("24.99"),
		Currency:          " aud ",
		ListingLink:       "https://etsy.example/listing/1",
		FulfillmentLink:   "https://supplier.example/mug",
		FulfillmentMethod: "dropship",
	})
	require.NoError(t, err)
	assert.Equal(t, "p-new", p.ID)
	assert.Equal(t, "Mug", p.Name)
	assert.Equal(t, "AUD", p.Currency)
}

func TestCreateNote(t *testing.T) {
	svc := newTestService(newStubRepo(), nil)

	_, err := svc.CreateNote(context.Background(), model.Note{Title: "<br>"})
	assert.ErrorIs(t, err, validation.ErrValidation)

	n, err := svc.CreateNote(context.Background(), model.Note{Title: "Restock", Body: "order more mugs"})
	require.NoError(t, err)
	assert.Equal(t, "n-new", n.ID)
}
