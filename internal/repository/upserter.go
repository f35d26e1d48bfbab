package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roshiend/retail-Link-sub000/internal/importer"
	"github.com/roshiend/retail-Link-sub000/internal/models"
)

// ScopeResolver picks the scope a spreadsheet row is written to
type ScopeResolver func(ctx context.Context, row importer.Row) (models.Scope, error)

// FixedScope writes every row to the same scope
func FixedScope(scope models.Scope) ScopeResolver {
	return func(context.Context, importer.Row) (models.Scope, error) {
		return scope, nil
	}
}

// CategoryScope resolves the row's category column by name within the shop.
// Rows without the column fall back to the route's category.
func CategoryScope(categories CatalogStore[*models.Category], shopID uuid.UUID, fallback *uuid.UUID) ScopeResolver {
	return func(ctx context.Context, row importer.Row) (models.Scope, error) {
		scope := models.Scope{ShopID: shopID, CategoryID: fallback}
		name := row.Get("category")
		if name == "" {
			if fallback == nil {
				return scope, errors.New("Category can't be blank")
			}
			return scope, nil
		}
		category, err := categories.FindByName(ctx, models.Scope{ShopID: shopID}, name)
		if errors.Is(err, ErrNotFound) {
			return scope, fmt.Errorf("Category %q not found", name)
		}
		if err != nil {
			return scope, err
		}
		scope.CategoryID = &category.ID
		return scope, nil
	}
}

// CatalogUpserter adapts a catalog store to the importer. Rows are bound to
// the entity's form type so uploads and JSON requests share validation.
type CatalogUpserter[T any, F any, P interface {
	*T
	models.CatalogEntity
}, FP interface {
	*F
	models.Form[P]
}] struct {
	store   CatalogStore[P]
	resolve ScopeResolver
}

func NewCatalogUpserter[T any, F any, P interface {
	*T
	models.CatalogEntity
}, FP interface {
	*F
	models.Form[P]
}](store CatalogStore[P], resolve ScopeResolver) *CatalogUpserter[T, F, P, FP] {
	return &CatalogUpserter[T, F, P, FP]{store: store, resolve: resolve}
}

func (u *CatalogUpserter[T, F, P, FP]) form(row importer.Row) (FP, error) {
	f := FP(new(F))
	if err := f.BindRow(row); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks a row as a complete record; name is the natural key and
// always required.
func (u *CatalogUpserter[T, F, P, FP]) Validate(row importer.Row) error {
	f, err := u.form(row)
	if err != nil {
		return err
	}
	return NewValidationError(f.Validate(true))
}

// Find matches the row's name within its scope
func (u *CatalogUpserter[T, F, P, FP]) Find(ctx context.Context, row importer.Row) (string, bool, error) {
	name := strings.TrimSpace(row.Get("name"))
	if name == "" {
		return "", false, nil
	}
	scope, err := u.resolve(ctx, row)
	if err != nil {
		return "", false, err
	}
	entity, err := u.store.FindByName(ctx, scope, name)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entity.Catalog().ID.String(), true, nil
}

func (u *CatalogUpserter[T, F, P, FP]) Create(ctx context.Context, row importer.Row) (string, error) {
	scope, err := u.resolve(ctx, row)
	if err != nil {
		return "", err
	}
	f, err := u.form(row)
	if err != nil {
		return "", err
	}
	entity := P(new(T))
	f.ApplyTo(entity, true)
	if err := u.store.Create(ctx, scope, entity); err != nil {
		return "", err
	}
	return entity.Catalog().ID.String(), nil
}

func (u *CatalogUpserter[T, F, P, FP]) Update(ctx context.Context, id string, row importer.Row) error {
	scope, err := u.resolve(ctx, row)
	if err != nil {
		return err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	f, err := u.form(row)
	if err != nil {
		return err
	}
	entity, err := u.store.Get(ctx, scope, uid)
	if err != nil {
		return err
	}
	f.ApplyTo(entity, false)
	return u.store.Update(ctx, scope, entity)
}
