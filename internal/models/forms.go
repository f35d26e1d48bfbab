package models

import (
	"net/mail"
	"strings"

	"github.com/roshiend/retail-Link-sub000/internal/importer"
)

// Form is the typed request state of one catalog entity. The same form is
// filled from a JSON body or from a spreadsheet row, so both paths share
// validation and field mapping.
type Form[P any] interface {
	BindRow(row importer.Row) error
	Validate(create bool) []string
	ApplyTo(entity P, create bool)
}

// CatalogForm holds the fields every catalog entity accepts. Nil fields are
// left untouched on update.
type CatalogForm struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

func (f *CatalogForm) BindRow(row importer.Row) error {
	f.Name = row.Optional("name")
	if row.Has("description") {
		d := row.Get("description")
		f.Description = &d
	}
	active, err := row.Bool("active")
	if err != nil {
		return err
	}
	f.Active = active
	return nil
}

func (f *CatalogForm) Validate(create bool) []string {
	var errs []string
	if (create && f.Name == nil) || (f.Name != nil && strings.TrimSpace(*f.Name) == "") {
		errs = append(errs, "Name can't be blank")
	}
	return errs
}

func (f *CatalogForm) apply(c *CatalogFields, create bool) {
	if f.Name != nil {
		c.Name = strings.TrimSpace(*f.Name)
	}
	if f.Description != nil {
		c.Description = optionalString(*f.Description)
	}
	switch {
	case f.Active != nil:
		c.Active = *f.Active
	case create:
		c.Active = true
	}
}

// VendorForm is the request state of a vendor
type VendorForm struct {
	CatalogForm
	ContactEmail *string `json:"contact_email"`
	Phone        *string `json:"phone"`
}

func (f *VendorForm) BindRow(row importer.Row) error {
	if err := f.CatalogForm.BindRow(row); err != nil {
		return err
	}
	f.ContactEmail = rowField(row, "contact_email")
	f.Phone = rowField(row, "phone")
	return nil
}

func (f *VendorForm) Validate(create bool) []string {
	errs := f.CatalogForm.Validate(create)
	if f.ContactEmail != nil && strings.TrimSpace(*f.ContactEmail) != "" {
		if _, err := mail.ParseAddress(strings.TrimSpace(*f.ContactEmail)); err != nil {
			errs = append(errs, "Contact email is invalid")
		}
	}
	return errs
}

func (f *VendorForm) ApplyTo(v *Vendor, create bool) {
	f.CatalogForm.apply(&v.CatalogFields, create)
	assignOptional(&v.ContactEmail, f.ContactEmail)
	assignOptional(&v.Phone, f.Phone)
}

// ProductTypeForm is the request state of a product type
type ProductTypeForm struct {
	CatalogForm
}

func (f *ProductTypeForm) ApplyTo(p *ProductType, create bool) {
	f.CatalogForm.apply(&p.CatalogFields, create)
}

// ListingTypeForm is the request state of a listing type
type ListingTypeForm struct {
	CatalogForm
}

func (f *ListingTypeForm) ApplyTo(l *ListingType, create bool) {
	f.CatalogForm.apply(&l.CatalogFields, create)
}

// ShopLocationForm is the request state of a shop location
type ShopLocationForm struct {
	CatalogForm
	Address *string `json:"address"`
	City    *string `json:"city"`
	Country *string `json:"country"`
}

func (f *ShopLocationForm) BindRow(row importer.Row) error {
	if err := f.CatalogForm.BindRow(row); err != nil {
		return err
	}
	f.Address = rowField(row, "address")
	f.City = rowField(row, "city")
	f.Country = rowField(row, "country")
	return nil
}

func (f *ShopLocationForm) ApplyTo(l *ShopLocation, create bool) {
	f.CatalogForm.apply(&l.CatalogFields, create)
	assignOptional(&l.Address, f.Address)
	assignOptional(&l.City, f.City)
	assignOptional(&l.Country, f.Country)
}

// CategoryForm is the request state of a category
type CategoryForm struct {
	CatalogForm
}

func (f *CategoryForm) ApplyTo(c *Category, create bool) {
	f.CatalogForm.apply(&c.CatalogFields, create)
}

// SubcategoryForm is the request state of a subcategory. The owning category
// comes from the route; Category is only read from upload rows.
type SubcategoryForm struct {
	CatalogForm
	Category string `json:"-"`
}

func (f *SubcategoryForm) BindRow(row importer.Row) error {
	if err := f.CatalogForm.BindRow(row); err != nil {
		return err
	}
	f.Category = row.Get("category")
	return nil
}

func (f *SubcategoryForm) ApplyTo(s *Subcategory, create bool) {
	f.CatalogForm.apply(&s.CatalogFields, create)
}

// OptionTypeSetForm is the request state of an option type set
type OptionTypeSetForm struct {
	CatalogForm
	Values []string `json:"values"`
}

func (f *OptionTypeSetForm) BindRow(row importer.Row) error {
	if err := f.CatalogForm.BindRow(row); err != nil {
		return err
	}
	if row.Has("values") {
		f.Values = row.List("values")
		if f.Values == nil {
			f.Values = []string{}
		}
	}
	return nil
}

func (f *OptionTypeSetForm) Validate(create bool) []string {
	errs := f.CatalogForm.Validate(create)
	seen := make(map[string]struct{}, len(f.Values))
	for _, v := range f.Values {
		v = strings.TrimSpace(v)
		if _, ok := seen[v]; ok && v != "" {
			errs = append(errs, "Values must be unique")
			break
		}
		seen[v] = struct{}{}
	}
	return errs
}

func (f *OptionTypeSetForm) ApplyTo(o *OptionTypeSet, create bool) {
	f.CatalogForm.apply(&o.CatalogFields, create)
	if f.Values != nil {
		values := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		o.Values = values
	} else if create {
		o.Values = []string{}
	}
}

// rowField reads a column only when the file has it, so a missing column
// leaves the stored value alone while a blank cell clears it.
func rowField(row importer.Row, column string) *string {
	if !row.Has(column) {
		return nil
	}
	v := row.Get(column)
	return &v
}

func assignOptional(dst **string, src *string) {
	if src != nil {
		*dst = optionalString(*src)
	}
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
