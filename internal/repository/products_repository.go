package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/roshiend/retail-Link-sub000/internal/models"
	"github.com/roshiend/retail-Link-sub000/internal/variants"
)

const (
	// ProductCacheTTL is the default lifetime of a cached product
	ProductCacheTTL = 5 * time.Minute
	// ProductCachePrefix is prepended to every product cache key
	ProductCachePrefix = "retail-link:"
)

// ProductGraph is the option and variant state saved with a product
type ProductGraph struct {
	Options  []variants.Option
	Variants []variants.Variant
}

// ProductsRepository stores products with their options and variants. Single
// products are cached and invalidated on every write.
type ProductsRepository struct {
	*CatalogRepository[models.Product, *models.Product]
	db     *gorm.DB
	cache  *cache.CacheLayer
	ttl    time.Duration
	logger *logrus.Entry
}

func NewProductsRepository(db *gorm.DB, redis *redis.Client, ttl time.Duration, logger *logrus.Entry) *ProductsRepository {
	if ttl <= 0 {
		ttl = ProductCacheTTL
	}
	return &ProductsRepository{
		CatalogRepository: NewCatalogRepository[models.Product](db),
		db:                db,
		cache:             newProductCache(redis, ttl),
		ttl:               ttl,
		logger:            logger,
	}
}

// newProductCache layers a short in-process cache over redis. It returns nil
// without a redis client.
func newProductCache(redis *redis.Client, ttl time.Duration) *cache.CacheLayer {
	if redis == nil {
		return nil
	}
	return cache.NewCacheLayerFromClient(redis, cache.CacheConfig{
		L1Enabled:  true,
		L1MaxItems: 5000,
		L1TTL:      30 * time.Second,
		DefaultTTL: ttl,
		KeyPrefix:  ProductCachePrefix,
	})
}

func productCacheKey(shopID, productID uuid.UUID) string {
	return fmt.Sprintf("product:%s:%s", shopID, productID)
}

// invalidate drops the cached copies of the given products
func (r *ProductsRepository) invalidate(ctx context.Context, shopID uuid.UUID, ids ...uuid.UUID) {
	if r.cache == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productCacheKey(shopID, id)
	}
	if err := r.cache.Delete(ctx, keys...); err != nil && r.logger != nil {
		r.logger.WithError(err).Warn("Failed to invalidate product cache")
	}
}

// Get retrieves a product with its options and variants, from cache when
// possible
func (r *ProductsRepository) Get(ctx context.Context, scope models.Scope, id uuid.UUID) (*models.Product, error) {
	return r.cached(ctx, productCacheKey(scope.ShopID, id), func() (*models.Product, error) {
		var product models.Product
		err := r.db.WithContext(ctx).
			Where("shop_id = ? AND id = ?", scope.ShopID, id).
			Preload("OptionTypes", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
			Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
			First(&product).Error
		if err != nil {
			return nil, notFound(err)
		}
		return &product, nil
	})
}

// cached reads key through the cache layer, calling load on a miss. Load
// errors are returned as they are. Cache failures are logged and the product
// is read from load instead.
func (r *ProductsRepository) cached(ctx context.Context, key string, load func() (*models.Product, error)) (*models.Product, error) {
	if r.cache == nil {
		return load()
	}

	var (
		loaded  *models.Product
		loadErr error
		product models.Product
	)
	err := r.cache.GetOrSetJSON(ctx, key, &product, r.ttl, func() (any, error) {
		loaded, loadErr = load()
		if loadErr != nil {
			return nil, loadErr
		}
		return loaded, nil
	})
	switch {
	case loadErr != nil:
		return nil, loadErr
	case err == nil:
		return &product, nil
	}

	if r.logger != nil {
		r.logger.WithError(err).WithField("key", key).Warn("Product cache unavailable")
	}
	if loaded != nil {
		return loaded, nil
	}
	return load()
}

// Update saves the product's own columns, leaving options and variants alone
func (r *ProductsRepository) Update(ctx context.Context, scope models.Scope, product *models.Product) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkProduct(tx, scope, product); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(product).Error
	})
	if err == nil {
		r.invalidate(ctx, scope.ShopID, product.ID)
	}
	return err
}

// Create inserts a product without options, as bulk uploads do
func (r *ProductsRepository) Create(ctx context.Context, scope models.Scope, product *models.Product) error {
	return r.Save(ctx, scope, product, nil)
}

// Delete soft-deletes a product and its variants
func (r *ProductsRepository) Delete(ctx context.Context, scope models.Scope, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("shop_id = ? AND id = ?", scope.ShopID, id).Delete(&models.Product{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("product_id = ?", id).Delete(&models.ProductVariant{}).Error
	})
	if err == nil {
		r.invalidate(ctx, scope.ShopID, id)
	}
	return err
}

// BulkDelete soft-deletes the listed products of the shop and their variants
func (r *ProductsRepository) BulkDelete(ctx context.Context, scope models.Scope, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned []uuid.UUID
		if err := tx.Model(&models.Product{}).
			Where("shop_id = ? AND id IN ?", scope.ShopID, ids).
			Pluck("id", &owned).Error; err != nil {
			return err
		}
		if len(owned) == 0 {
			return nil
		}
		result := tx.Where("id IN ?", owned).Delete(&models.Product{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return tx.Where("product_id IN ?", owned).Delete(&models.ProductVariant{}).Error
	})
	if err != nil {
		return 0, err
	}
	r.invalidate(ctx, scope.ShopID, ids...)
	return deleted, nil
}

// Save writes a product in one transaction. New products get a code; with a
// graph the product's options are replaced and its variants synced to the
// given list, so variants left out are deleted.
func (r *ProductsRepository) Save(ctx context.Context, scope models.Scope, product *models.Product, graph *ProductGraph) error {
	product.SetScope(scope)
	create := product.ID == uuid.Nil
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkProduct(tx, scope, product); err != nil {
			return err
		}
		if create {
			code, err := nextCode(tx, &models.Product{}, scope.ShopID, product.CodePrefix())
			if err != nil {
				return err
			}
			product.Code = code
			if err := tx.Omit(clause.Associations).Create(product).Error; err != nil {
				return err
			}
		} else if err := tx.Omit(clause.Associations).Save(product).Error; err != nil {
			return err
		}
		if graph == nil {
			return nil
		}
		if err := replaceOptionTypes(tx, product, graph.Options); err != nil {
			return err
		}
		return syncVariants(tx, product, graph.Variants)
	})
	if err != nil {
		return err
	}
	if !create {
		r.invalidate(ctx, scope.ShopID, product.ID)
	}
	return nil
}

// checkProduct enforces the shop-level rules of a product write: unique
// name and SKU, and references to rows of the same shop.
func (r *ProductsRepository) checkProduct(tx *gorm.DB, scope models.Scope, product *models.Product) error {
	if err := r.checkName(tx, scope, product); err != nil {
		return err
	}
	if product.SKU != nil {
		q := tx.Model(&models.Product{}).Where("shop_id = ? AND sku = ?", scope.ShopID, *product.SKU)
		if product.ID != uuid.Nil {
			q = q.Where("id <> ?", product.ID)
		}
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("SKU %w", ErrDuplicate)
		}
	}
	return r.checkReferences(tx, scope.ShopID, product)
}

var referenceTables = map[string]string{
	"Vendor":        "vendors",
	"Product type":  "product_types",
	"Shop location": "shop_locations",
	"Category":      "categories",
	"Subcategory":   "subcategories",
	"Listing type":  "listing_types",
}

func (r *ProductsRepository) checkReferences(tx *gorm.DB, shopID uuid.UUID, product *models.Product) error {
	var messages []string
	for _, label := range []string{"Vendor", "Product type", "Shop location", "Category", "Subcategory", "Listing type"} {
		id := product.References()[label]
		if id == nil {
			continue
		}
		q := tx.Table(referenceTables[label]).Where("shop_id = ? AND id = ? AND deleted_at IS NULL", shopID, *id)
		if label == "Subcategory" && product.CategoryID != nil {
			q = q.Where("category_id = ?", *product.CategoryID)
		}
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			messages = append(messages, label+" must exist")
		}
	}
	return NewValidationError(messages)
}

func replaceOptionTypes(tx *gorm.DB, product *models.Product, options []variants.Option) error {
	if err := tx.Where("product_id = ?", product.ID).Delete(&models.OptionType{}).Error; err != nil {
		return err
	}
	product.OptionTypes = models.NewOptionTypes(product.ID, options)
	if len(product.OptionTypes) == 0 {
		return nil
	}
	return tx.Create(&product.OptionTypes).Error
}

// syncVariants makes the stored variants match list. Entries carrying the id
// of a stored variant update it; the rest are inserted.
func syncVariants(tx *gorm.DB, product *models.Product, list []variants.Variant) error {
	var existing []models.ProductVariant
	if err := tx.Where("product_id = ?", product.ID).Find(&existing).Error; err != nil {
		return err
	}
	byID := make(map[string]int, len(existing))
	for i, v := range existing {
		byID[v.ID.String()] = i
	}

	names := make([]string, len(product.OptionTypes))
	for i, ot := range product.OptionTypes {
		names[i] = ot.Name
	}

	kept := make(map[uuid.UUID]struct{}, len(list))
	saved := make([]models.ProductVariant, 0, len(list))
	for _, v := range list {
		if v.IsDeleted {
			continue
		}
		row := models.ProductVariant{ProductID: product.ID}
		if i, ok := byID[strings.TrimSpace(v.ID)]; ok {
			row = existing[i]
		}
		if err := row.Apply(v, names); err != nil {
			return err
		}
		if row.ID == uuid.Nil {
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		} else if err := tx.Save(&row).Error; err != nil {
			return err
		}
		kept[row.ID] = struct{}{}
		saved = append(saved, row)
	}

	var stale []uuid.UUID
	for _, v := range existing {
		if _, ok := kept[v.ID]; !ok {
			stale = append(stale, v.ID)
		}
	}
	if len(stale) > 0 {
		if err := tx.Where("id IN ?", stale).Delete(&models.ProductVariant{}).Error; err != nil {
			return err
		}
	}
	product.Variants = saved
	return nil
}
