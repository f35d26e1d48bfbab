package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Scope narrows queries to one shop and, for subcategories, one category
type Scope struct {
	ShopID     uuid.UUID
	CategoryID *uuid.UUID
}

// CatalogFields are shared by every shop-scoped catalog entity. Code is a
// sequential per-shop identifier assigned on create, e.g. "VEN-0001".
type CatalogFields struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ShopID      uuid.UUID      `json:"shop_id" gorm:"type:uuid;not null;index"`
	Name        string         `json:"name" gorm:"not null"`
	Description *string        `json:"description,omitempty"`
	Active      bool           `json:"active" gorm:"not null"`
	Code        string         `json:"code" gorm:"not null;index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Catalog exposes the shared fields
func (c *CatalogFields) Catalog() *CatalogFields { return c }

// SetScope assigns the owning shop
func (c *CatalogFields) SetScope(s Scope) { c.ShopID = s.ShopID }

// CatalogEntity is implemented by pointers to every catalog model
type CatalogEntity interface {
	Catalog() *CatalogFields
	SetScope(Scope)
	CodePrefix() string
	TableName() string
}

type Vendor struct {
	CatalogFields
	ContactEmail *string `json:"contact_email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
}

type ProductType struct {
	CatalogFields
}

type ListingType struct {
	CatalogFields
}

type ShopLocation struct {
	CatalogFields
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	Country *string `json:"country,omitempty"`
}

type Category struct {
	CatalogFields
}

// Subcategory names are unique within their category rather than the shop
type Subcategory struct {
	CatalogFields
	CategoryID uuid.UUID `json:"category_id" gorm:"type:uuid;not null;index"`
}

// SetScope assigns the owning shop and category
func (s *Subcategory) SetScope(scope Scope) {
	s.ShopID = scope.ShopID
	if scope.CategoryID != nil {
		s.CategoryID = *scope.CategoryID
	}
}

// OptionTypeSet is a reusable named list of option values, e.g. Size: S|M|L
type OptionTypeSet struct {
	CatalogFields
	Values pq.StringArray `json:"values" gorm:"type:text[]"`
}

func (*Vendor) CodePrefix() string        { return "VEN" }
func (*ProductType) CodePrefix() string   { return "PTY" }
func (*ListingType) CodePrefix() string   { return "LTY" }
func (*ShopLocation) CodePrefix() string  { return "LOC" }
func (*Category) CodePrefix() string      { return "CAT" }
func (*Subcategory) CodePrefix() string   { return "SUB" }
func (*OptionTypeSet) CodePrefix() string { return "OTS" }

func (*Vendor) TableName() string        { return "vendors" }
func (*ProductType) TableName() string   { return "product_types" }
func (*ListingType) TableName() string   { return "listing_types" }
func (*ShopLocation) TableName() string  { return "shop_locations" }
func (*Category) TableName() string      { return "categories" }
func (*Subcategory) TableName() string   { return "subcategories" }
func (*OptionTypeSet) TableName() string { return "option_type_sets" }

// ListParams are the index query parameters
type ListParams struct {
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
	Query   string `form:"q"`
}

const (
	DefaultPerPage = 25
	MaxPerPage     = 100
)

// Normalize clamps paging values into range
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
}

// Offset is the row offset of the requested page
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// PaginationInfo accompanies every index response
type PaginationInfo struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationInfo computes page counts for an index response
func NewPaginationInfo(p ListParams, total int64) PaginationInfo {
	pages := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	return PaginationInfo{Page: p.Page, PerPage: p.PerPage, Total: total, TotalPages: pages}
}

// BulkDeleteRequest is the body of POST .../bulk_delete
type BulkDeleteRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,max=500"`
}

// BulkDeleteResponse reports how many rows were removed
type BulkDeleteResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}
