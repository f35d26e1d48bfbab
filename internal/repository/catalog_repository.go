package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/roshiend/retail-Link-sub000/internal/models"
)

// CatalogStore is the storage surface shared by every catalog entity
type CatalogStore[P models.CatalogEntity] interface {
	List(ctx context.Context, scope models.Scope, params models.ListParams) ([]P, int64, error)
	Get(ctx context.Context, scope models.Scope, id uuid.UUID) (P, error)
	FindByName(ctx context.Context, scope models.Scope, name string) (P, error)
	Create(ctx context.Context, scope models.Scope, entity P) error
	Update(ctx context.Context, scope models.Scope, entity P) error
	Delete(ctx context.Context, scope models.Scope, id uuid.UUID) error
	BulkDelete(ctx context.Context, scope models.Scope, ids []uuid.UUID) (int64, error)
}

// CatalogRepository persists one catalog entity type. Rows are always
// filtered by shop, and by category when the scope carries one.
type CatalogRepository[T any, P interface {
	*T
	models.CatalogEntity
}] struct {
	db *gorm.DB
}

func NewCatalogRepository[T any, P interface {
	*T
	models.CatalogEntity
}](db *gorm.DB) *CatalogRepository[T, P] {
	return &CatalogRepository[T, P]{db: db}
}

func (r *CatalogRepository[T, P]) scoped(tx *gorm.DB, scope models.Scope) *gorm.DB {
	q := tx.Model(P(new(T))).Where("shop_id = ?", scope.ShopID)
	if scope.CategoryID != nil {
		q = q.Where("category_id = ?", *scope.CategoryID)
	}
	return q
}

// List returns one page of rows ordered by name, filtered by q on the name
func (r *CatalogRepository[T, P]) List(ctx context.Context, scope models.Scope, params models.ListParams) ([]P, int64, error) {
	params.Normalize()
	query := r.scoped(r.db.WithContext(ctx), scope)
	if q := strings.TrimSpace(params.Query); q != "" {
		query = query.Where("name ILIKE ?", "%"+q+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []T
	if err := query.Order("name ASC").Offset(params.Offset()).Limit(params.PerPage).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]P, len(rows))
	for i := range rows {
		out[i] = P(&rows[i])
	}
	return out, total, nil
}

// Get retrieves a row by ID within the scope
func (r *CatalogRepository[T, P]) Get(ctx context.Context, scope models.Scope, id uuid.UUID) (P, error) {
	entity := P(new(T))
	if err := r.scoped(r.db.WithContext(ctx), scope).Where("id = ?", id).First(entity).Error; err != nil {
		return nil, notFound(err)
	}
	return entity, nil
}

// FindByName matches the natural key case-insensitively within the scope
func (r *CatalogRepository[T, P]) FindByName(ctx context.Context, scope models.Scope, name string) (P, error) {
	entity := P(new(T))
	err := r.scoped(r.db.WithContext(ctx), scope).
		Where("lower(name) = lower(?)", strings.TrimSpace(name)).
		Order("created_at ASC").
		First(entity).Error
	if err != nil {
		return nil, notFound(err)
	}
	return entity, nil
}

// Create assigns the shop, a sequential code and inserts the row. Names are
// unique within the scope.
func (r *CatalogRepository[T, P]) Create(ctx context.Context, scope models.Scope, entity P) error {
	entity.SetScope(scope)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkName(tx, scope, entity); err != nil {
			return err
		}
		code, err := nextCode(tx, P(new(T)), scope.ShopID, entity.CodePrefix())
		if err != nil {
			return err
		}
		entity.Catalog().Code = code
		return tx.Omit(clause.Associations).Create(entity).Error
	})
}

// Update saves every column of an existing row
func (r *CatalogRepository[T, P]) Update(ctx context.Context, scope models.Scope, entity P) error {
	fields := entity.Catalog()
	if fields.ShopID != scope.ShopID {
		return ErrNotFound
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkName(tx, scope, entity); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(entity).Error
	})
}

// Delete soft-deletes a row
func (r *CatalogRepository[T, P]) Delete(ctx context.Context, scope models.Scope, id uuid.UUID) error {
	result := r.scoped(r.db.WithContext(ctx), scope).Where("id = ?", id).Delete(P(new(T)))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkDelete soft-deletes every listed row of the scope. IDs of other shops
// are ignored.
func (r *CatalogRepository[T, P]) BulkDelete(ctx context.Context, scope models.Scope, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.scoped(r.db.WithContext(ctx), scope).Where("id IN ?", ids).Delete(P(new(T)))
	return result.RowsAffected, result.Error
}

func (r *CatalogRepository[T, P]) checkName(tx *gorm.DB, scope models.Scope, entity P) error {
	fields := entity.Catalog()
	q := r.scoped(tx, scope).Where("lower(name) = lower(?)", fields.Name)
	if fields.ID != uuid.Nil {
		q = q.Where("id <> ?", fields.ID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("Name %w", ErrDuplicate)
	}
	return nil
}

// nextCode numbers rows per shop and table, counting deleted rows too so a
// code is never reused, e.g. VEN-0001.
func nextCode(tx *gorm.DB, model interface{}, shopID uuid.UUID, prefix string) (string, error) {
	var count int64
	if err := tx.Unscoped().Model(model).Where("shop_id = ?", shopID).Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", prefix, count+1), nil
}
