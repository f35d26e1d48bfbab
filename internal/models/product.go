package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/roshiend/retail-Link-sub000/internal/importer"
	"github.com/roshiend/retail-Link-sub000/internal/variants"
)

// Product is a sellable item. Its options and variants are saved together
// with it in one transaction.
type Product struct {
	CatalogFields
	Price          decimal.Decimal  `json:"price" gorm:"type:numeric(12,2);not null;default:0"`
	SKU            *string          `json:"sku,omitempty" gorm:"index"`
	StockQuantity  int              `json:"stock_quantity" gorm:"not null;default:0"`
	VendorID       *uuid.UUID       `json:"vendor_id,omitempty" gorm:"type:uuid;index"`
	ProductTypeID  *uuid.UUID       `json:"product_type_id,omitempty" gorm:"type:uuid"`
	ShopLocationID *uuid.UUID       `json:"shop_location_id,omitempty" gorm:"type:uuid"`
	CategoryID     *uuid.UUID       `json:"category_id,omitempty" gorm:"type:uuid;index"`
	SubcategoryID  *uuid.UUID       `json:"subcategory_id,omitempty" gorm:"type:uuid"`
	ListingTypeID  *uuid.UUID       `json:"listing_type_id,omitempty" gorm:"type:uuid"`
	OptionTypes    []OptionType     `json:"option_types" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Variants       []ProductVariant `json:"variants" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// OptionType is one of a product's up to three options
type OptionType struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID      `json:"product_id" gorm:"type:uuid;not null;index"`
	Name      string         `json:"name" gorm:"not null"`
	Position  int            `json:"position" gorm:"not null"`
	Values    pq.StringArray `json:"values" gorm:"type:text[]"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ProductVariant is one persisted option combination. Option1..3 follow the
// position of the product's options; Options keeps the ordered pairs.
type ProductVariant struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	Title     string          `json:"title"`
	SKU       *string         `json:"sku,omitempty"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null;default:0"`
	Quantity  int             `json:"quantity" gorm:"not null;default:0"`
	Option1   *string         `json:"option1,omitempty"`
	Option2   *string         `json:"option2,omitempty"`
	Option3   *string         `json:"option3,omitempty"`
	Options   datatypes.JSON  `json:"options" gorm:"type:jsonb"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (*Product) CodePrefix() string      { return "PRD" }
func (*Product) TableName() string       { return "products" }
func (OptionType) TableName() string     { return "option_types" }
func (ProductVariant) TableName() string { return "product_variants" }

// VariantOptions returns the product's options in position order
func (p *Product) VariantOptions() []variants.Option {
	types := append([]OptionType(nil), p.OptionTypes...)
	sort.SliceStable(types, func(i, j int) bool { return types[i].Position < types[j].Position })
	out := make([]variants.Option, len(types))
	for i, ot := range types {
		out[i] = variants.Option{Name: ot.Name, Values: append([]string(nil), ot.Values...)}
	}
	return out
}

// EditorVariants converts the saved variants for the variant engine. Variants
// covering only some of the options are flagged as manual.
func (p *Product) EditorVariants() []variants.Variant {
	options := p.VariantOptions()
	names := optionNames(options)
	out := make([]variants.Variant, len(p.Variants))
	for i, v := range p.Variants {
		out[i] = v.ToVariant(names)
	}
	return variants.MarkManual(options, out)
}

// Pairs returns the variant's ordered option pairs, falling back to the
// positional columns when the jsonb copy is missing.
func (v ProductVariant) Pairs(optionNames []string) []variants.Pair {
	var pairs []variants.Pair
	if len(v.Options) > 0 && json.Unmarshal(v.Options, &pairs) == nil && len(pairs) > 0 {
		return pairs
	}
	for i, value := range []*string{v.Option1, v.Option2, v.Option3} {
		if value == nil || *value == "" || i >= len(optionNames) {
			continue
		}
		pairs = append(pairs, variants.Pair{Name: optionNames[i], Value: *value})
	}
	return pairs
}

// ToVariant converts a persisted variant
func (v ProductVariant) ToVariant(optionNames []string) variants.Variant {
	sku := ""
	if v.SKU != nil {
		sku = *v.SKU
	}
	pairs := v.Pairs(optionNames)
	title := v.Title
	if title == "" {
		title = variants.Title(pairs)
	}
	return variants.Variant{
		ID:        v.ID.String(),
		Title:     title,
		Price:     v.Price,
		SKU:       sku,
		Inventory: v.Quantity,
		Options:   pairs,
	}
}

// Apply copies a reconciled variant onto the row. Option1..3 follow the
// position of names.
func (v *ProductVariant) Apply(src variants.Variant, names []string) error {
	pairs := make([]variants.Pair, 0, len(src.Options))
	slots := []**string{&v.Option1, &v.Option2, &v.Option3}
	for i := range slots {
		*slots[i] = nil
	}
	for i, name := range names {
		for _, p := range src.Options {
			if strings.TrimSpace(p.Name) != name || strings.TrimSpace(p.Value) == "" {
				continue
			}
			value := strings.TrimSpace(p.Value)
			pairs = append(pairs, variants.Pair{Name: name, Value: value})
			if i < len(slots) {
				*slots[i] = &value
			}
		}
	}
	raw, err := json.Marshal(pairs)
	if err != nil {
		return err
	}
	v.Options = datatypes.JSON(raw)
	v.Title = strings.TrimSpace(src.Title)
	if v.Title == "" {
		v.Title = variants.Title(pairs)
	}
	v.SKU = optionalString(src.SKU)
	v.Price = src.Price
	v.Quantity = src.Inventory
	return nil
}

// NewOptionTypes builds the option rows of a product in position order
func NewOptionTypes(productID uuid.UUID, options []variants.Option) []OptionType {
	opts := variants.Normalize(options)
	out := make([]OptionType, len(opts))
	for i, o := range opts {
		out[i] = OptionType{ProductID: productID, Name: o.Name, Position: i + 1, Values: pq.StringArray(o.Values)}
	}
	return out
}

// ProductForm is the product submission payload. Variants map the first
// three options to option1..option3 by position.
type ProductForm struct {
	CatalogForm
	Price                 *decimal.Decimal       `json:"price"`
	SKU                   *string                `json:"sku"`
	StockQuantity         *int                   `json:"stock_quantity"`
	VendorID              *string                `json:"vendor_id"`
	ProductTypeID         *string                `json:"product_type_id"`
	ShopLocationID        *string                `json:"shop_location_id"`
	CategoryID            *string                `json:"category_id"`
	SubcategoryID         *string                `json:"subcategory_id"`
	ListingTypeID         *string                `json:"listing_type_id"`
	OptionTypesAttributes []OptionTypeAttributes `json:"option_types_attributes"`
	VariantsAttributes    []VariantAttributes    `json:"variants_attributes"`
}

// OptionTypeAttributes is one option of a product submission
type OptionTypeAttributes struct {
	ID      *string  `json:"id,omitempty"`
	Name    string   `json:"name"`
	Values  []string `json:"values"`
	Destroy bool     `json:"_destroy,omitempty"`
}

// VariantAttributes is one variant of a product submission
type VariantAttributes struct {
	ID       *string          `json:"id,omitempty"`
	Title    *string          `json:"title,omitempty"`
	SKU      *string          `json:"sku"`
	Price    *decimal.Decimal `json:"price"`
	Quantity *int             `json:"quantity"`
	Option1  *string          `json:"option1"`
	Option2  *string          `json:"option2"`
	Option3  *string          `json:"option3"`
	Destroy  bool             `json:"_destroy,omitempty"`
}

// NestedAttributes reports whether the payload replaces options and variants
func (f *ProductForm) NestedAttributes() bool {
	return f.OptionTypesAttributes != nil || f.VariantsAttributes != nil
}

// Options returns the submitted options that are kept, in payload order
func (f *ProductForm) Options() []variants.Option {
	var out []variants.Option
	for _, ot := range f.OptionTypesAttributes {
		if ot.Destroy {
			continue
		}
		out = append(out, variants.Option{Name: strings.TrimSpace(ot.Name), Values: ot.Values})
	}
	return out
}

// Variants maps the submitted variants onto options by position
func (f *ProductForm) Variants(options []variants.Option) []variants.Variant {
	names := optionNames(options)
	var out []variants.Variant
	for _, va := range f.VariantsAttributes {
		v := variants.Variant{IsDeleted: va.Destroy}
		if va.ID != nil {
			v.ID = *va.ID
		}
		for i, value := range []*string{va.Option1, va.Option2, va.Option3} {
			if value == nil || strings.TrimSpace(*value) == "" || i >= len(names) {
				continue
			}
			v.Options = append(v.Options, variants.Pair{Name: names[i], Value: strings.TrimSpace(*value)})
		}
		if va.Price != nil {
			v.Price = *va.Price
		}
		if va.Quantity != nil {
			v.Inventory = *va.Quantity
		}
		if va.SKU != nil {
			v.SKU = strings.TrimSpace(*va.SKU)
		}
		if va.Title != nil && strings.TrimSpace(*va.Title) != "" {
			v.Title = strings.TrimSpace(*va.Title)
		} else {
			v.Title = variants.Title(v.Options)
		}
		out = append(out, v)
	}
	return out
}

func (f *ProductForm) BindRow(row importer.Row) error {
	if err := f.CatalogForm.BindRow(row); err != nil {
		return err
	}
	price, err := row.Decimal("price")
	if err != nil {
		return err
	}
	f.Price = price
	f.SKU = rowField(row, "sku")
	qty, err := row.Int("stock_quantity")
	if err != nil {
		return err
	}
	f.StockQuantity = qty
	return nil
}

func (f *ProductForm) Validate(create bool) []string {
	errs := f.CatalogForm.Validate(create)
	if create && f.Price == nil {
		errs = append(errs, "Price can't be blank")
	}
	if f.Price != nil && f.Price.IsNegative() {
		errs = append(errs, "Price must be greater than or equal to 0")
	}
	if f.StockQuantity != nil && *f.StockQuantity < 0 {
		errs = append(errs, "Stock quantity must be greater than or equal to 0")
	}
	for _, ref := range []struct {
		label string
		id    *string
	}{
		{"Vendor", f.VendorID},
		{"Product type", f.ProductTypeID},
		{"Shop location", f.ShopLocationID},
		{"Category", f.CategoryID},
		{"Subcategory", f.SubcategoryID},
		{"Listing type", f.ListingTypeID},
	} {
		if ref.id == nil || *ref.id == "" {
			continue
		}
		if _, err := uuid.Parse(*ref.id); err != nil {
			errs = append(errs, fmt.Sprintf("%s is invalid", ref.label))
		}
	}
	if f.OptionTypesAttributes == nil {
		return errs
	}

	options := f.Options()
	if err := variants.ValidateOptions(options); err != nil {
		errs = append(errs, "Options: "+err.Error())
		return errs
	}
	for _, o := range options {
		if len(o.NonEmptyValues()) == 0 {
			errs = append(errs, fmt.Sprintf("Option %s must have at least one value", o.Name))
		}
	}
	if f.VariantsAttributes != nil {
		if msg := VariantsError(options, f.Variants(options)); msg != "" {
			errs = append(errs, msg)
		}
	}
	return errs
}

// VariantsError checks a variant list against its options and returns a
// user-facing message, or "" when the list is valid.
func VariantsError(options []variants.Option, list []variants.Variant) string {
	if err := variants.ValidateVariants(list); err != nil {
		return "Variants: " + err.Error()
	}
	if err := variants.CheckVariantOptions(options, list); err != nil {
		return "Variants: " + err.Error()
	}
	return ""
}

// ApplyTo copies the scalar product fields. References must be checked
// against the shop before saving.
func (f *ProductForm) ApplyTo(p *Product, create bool) {
	f.CatalogForm.apply(&p.CatalogFields, create)
	if f.Price != nil {
		p.Price = *f.Price
	}
	assignOptional(&p.SKU, f.SKU)
	if f.StockQuantity != nil {
		p.StockQuantity = *f.StockQuantity
	}
	assignUUID(&p.VendorID, f.VendorID)
	assignUUID(&p.ProductTypeID, f.ProductTypeID)
	assignUUID(&p.ShopLocationID, f.ShopLocationID)
	assignUUID(&p.CategoryID, f.CategoryID)
	assignUUID(&p.SubcategoryID, f.SubcategoryID)
	assignUUID(&p.ListingTypeID, f.ListingTypeID)
}

// References lists the referenced catalog rows for an existence check
func (p *Product) References() map[string]*uuid.UUID {
	return map[string]*uuid.UUID{
		"Vendor":        p.VendorID,
		"Product type":  p.ProductTypeID,
		"Shop location": p.ShopLocationID,
		"Category":      p.CategoryID,
		"Subcategory":   p.SubcategoryID,
		"Listing type":  p.ListingTypeID,
	}
}

// VariantsPreviewRequest drives the variant engine without saving
type VariantsPreviewRequest struct {
	Options    []variants.Option  `json:"options"`
	Variants   []variants.Variant `json:"variants"`
	DeletedIDs []string           `json:"deleted_ids"`
	Add        []variants.Pair    `json:"add,omitempty"`
}

// VariantsPreviewResponse is the reconciled variant table
type VariantsPreviewResponse struct {
	Variants     []variants.Variant    `json:"variants"`
	Unused       variants.UnusedValues `json:"unused"`
	DeletedIDs   []string              `json:"deleted_ids"`
	Combinations int                   `json:"combinations"`
}

func optionNames(options []variants.Option) []string {
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = strings.TrimSpace(o.Name)
	}
	return names
}

// assignUUID sets dst from a string id; an empty string clears it
func assignUUID(dst **uuid.UUID, src *string) {
	if src == nil {
		return
	}
	if *src == "" {
		*dst = nil
		return
	}
	id, err := uuid.Parse(*src)
	if err != nil {
		return
	}
	*dst = &id
}
