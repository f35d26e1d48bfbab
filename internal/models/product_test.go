package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roshiend/retail-Link-sub000/internal/importer"
	"github.com/roshiend/retail-Link-sub000/internal/variants"
)

func strPtr(s string) *string { return &s }

func TestProductVariant_ApplyFollowsOptionPositions(t *testing.T) {
	var row ProductVariant
	src := variants.Variant{
		Price:     decimal.NewFromInt(12),
		Inventory: 5,
		SKU:       " TEE-RED-M ",
		Options:   []variants.Pair{{Name: "Color", Value: "Red"}, {Name: "Size", Value: "M"}},
	}

	require.NoError(t, row.Apply(src, []string{"Size", "Color"}))

	require.NotNil(t, row.Option1)
	require.NotNil(t, row.Option2)
	assert.Equal(t, "M", *row.Option1)
	assert.Equal(t, "Red", *row.Option2)
	assert.Nil(t, row.Option3)
	assert.Equal(t, "M / Red", row.Title)
	assert.Equal(t, "TEE-RED-M", *row.SKU)
	assert.Equal(t, 5, row.Quantity)

	var pairs []variants.Pair
	require.NoError(t, json.Unmarshal(row.Options, &pairs))
	assert.Equal(t, []variants.Pair{{Name: "Size", Value: "M"}, {Name: "Color", Value: "Red"}}, pairs)
}

func TestProductVariant_ToVariantFallsBackToColumns(t *testing.T) {
	row := ProductVariant{ID: uuid.New(), Option1: strPtr("S"), Option2: strPtr("Blue"), Price: decimal.NewFromInt(3)}

	v := row.ToVariant([]string{"Size", "Color"})

	assert.Equal(t, row.ID.String(), v.ID)
	assert.Equal(t, "S / Blue", v.Title)
	assert.Equal(t, []variants.Pair{{Name: "Size", Value: "S"}, {Name: "Color", Value: "Blue"}}, v.Options)
	assert.True(t, v.Persisted())
}

func TestProduct_VariantOptionsSortsByPosition(t *testing.T) {
	p := Product{OptionTypes: []OptionType{
		{Name: "Color", Position: 2, Values: []string{"Red"}},
		{Name: "Size", Position: 1, Values: []string{"S", "M"}},
	}}

	assert.Equal(t, []variants.Option{
		{Name: "Size", Values: []string{"S", "M"}},
		{Name: "Color", Values: []string{"Red"}},
	}, p.VariantOptions())
}

func TestProduct_EditorVariantsFlagsPartialVariantsAsManual(t *testing.T) {
	p := Product{
		OptionTypes: []OptionType{
			{Name: "Size", Position: 1, Values: []string{"S", "M"}},
			{Name: "Color", Position: 2, Values: []string{"Red"}},
		},
		Variants: []ProductVariant{
			{ID: uuid.New(), Option1: strPtr("S"), Option2: strPtr("Red")},
			{ID: uuid.New(), Option1: strPtr("M")},
		},
	}

	vs := p.EditorVariants()

	require.Len(t, vs, 2)
	assert.False(t, vs[0].Manual)
	assert.True(t, vs[1].Manual)
}

func TestNewOptionTypes(t *testing.T) {
	id := uuid.New()

	types := NewOptionTypes(id, []variants.Option{
		{Name: " Size ", Values: []string{"S", "", "S", "M"}},
		{Name: "Color", Values: []string{""}},
	})

	require.Len(t, types, 1)
	assert.Equal(t, id, types[0].ProductID)
	assert.Equal(t, "Size", types[0].Name)
	assert.Equal(t, 1, types[0].Position)
	assert.Equal(t, []string{"S", "M"}, []string(types[0].Values))
}

func TestProductForm_Validate(t *testing.T) {
	price := decimal.NewFromInt(10)
	negative := decimal.NewFromInt(-1)

	tests := []struct {
		name   string
		form   ProductForm
		create bool
		want   []string
	}{
		{
			name:   "valid create",
			form:   ProductForm{CatalogForm: CatalogForm{Name: strPtr("Tee")}, Price: &price},
			create: true,
		},
		{
			name:   "blank create",
			form:   ProductForm{},
			create: true,
			want:   []string{"Name can't be blank", "Price can't be blank"},
		},
		{
			name: "partial update",
			form: ProductForm{Price: &price},
		},
		{
			name: "negative price",
			form: ProductForm{Price: &negative},
			want: []string{"Price must be greater than or equal to 0"},
		},
		{
			name: "malformed reference",
			form: ProductForm{VendorID: strPtr("vendor-1"), CategoryID: strPtr("")},
			want: []string{"Vendor is invalid"},
		},
		{
			name: "duplicate options",
			form: ProductForm{OptionTypesAttributes: []OptionTypeAttributes{
				{Name: "Size", Values: []string{"S"}}, {Name: "Size", Values: []string{"M"}},
			}},
			want: []string{"Options: " + variants.ErrDuplicateOption.Error()},
		},
		{
			name: "destroyed option is ignored",
			form: ProductForm{OptionTypesAttributes: []OptionTypeAttributes{
				{Name: "Size", Values: []string{"S"}}, {Name: "Size", Values: []string{"M"}, Destroy: true},
			}},
		},
		{
			name: "destroyed variant frees its combination",
			form: ProductForm{
				OptionTypesAttributes: []OptionTypeAttributes{{Name: "Size", Values: []string{"S"}}},
				VariantsAttributes: []VariantAttributes{
					{Option1: strPtr("S"), Destroy: true},
					{Option1: strPtr("S")},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.form.Validate(tt.create))
		})
	}
}

func TestProductForm_BindRow(t *testing.T) {
	var f ProductForm
	err := f.BindRow(importer.Row{Number: 2, Values: map[string]string{
		"name": "Tee", "price": "19.50", "stock_quantity": "7", "sku": "",
	}})
	require.NoError(t, err)

	assert.Equal(t, "Tee", *f.Name)
	assert.True(t, decimal.RequireFromString("19.5").Equal(*f.Price))
	assert.Equal(t, 7, *f.StockQuantity)
	require.NotNil(t, f.SKU)

	p := Product{SKU: strPtr("OLD")}
	f.ApplyTo(&p, false)
	assert.Nil(t, p.SKU)

	err = (&ProductForm{}).BindRow(importer.Row{Values: map[string]string{"price": "-2"}})
	assert.EqualError(t, err, "Price must be greater than or equal to 0")
}
