package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/roshiend/retail-Link-sub000/internal/importer"
	"github.com/roshiend/retail-Link-sub000/internal/middleware"
	"github.com/roshiend/retail-Link-sub000/internal/models"
	"github.com/roshiend/retail-Link-sub000/internal/repository"
)

// CatalogStores holds one store per catalog entity
type CatalogStores struct {
	Vendors        repository.CatalogStore[*models.Vendor]
	ProductTypes   repository.CatalogStore[*models.ProductType]
	ListingTypes   repository.CatalogStore[*models.ListingType]
	ShopLocations  repository.CatalogStore[*models.ShopLocation]
	Categories     repository.CatalogStore[*models.Category]
	Subcategories  repository.CatalogStore[*models.Subcategory]
	OptionTypeSets repository.CatalogStore[*models.OptionTypeSet]
	Products       ProductStore
}

// RouterDeps is everything the HTTP surface needs
type RouterDeps struct {
	Accounts    AccountStore
	Members     middleware.MembershipChecker
	Stores      CatalogStores
	Tokens      *middleware.TokenManager
	Events      ProductPublisher
	Metrics     *middleware.Metrics
	LoginLimit  *middleware.RateLimiter
	Health      *HealthHandler
	CORSOrigins []string
	Logger      *logrus.Logger
	Swagger     bool
}

// NewRouter builds the gin engine with every route of the service
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Events == nil {
		deps.Events = nopPublisher{}
	}
	log := func(component string) *logrus.Entry {
		return deps.Logger.WithField("component", component)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log("http")))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}
	router.Use(middleware.CORS(deps.CORSOrigins))

	if deps.Health != nil {
		router.GET("/health", deps.Health.Health)
		router.GET("/ready", deps.Health.Ready)
	}
	if deps.Metrics != nil {
		router.GET("/metrics", deps.Metrics.Handler())
	}
	if deps.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := NewAuthHandler(deps.Accounts, deps.Tokens, log("auth"))
	shops := NewShopsHandler(deps.Accounts, log("shops"))

	api := router.Group("/api/v1")
	login := []gin.HandlerFunc{}
	if deps.LoginLimit != nil {
		login = append(login, deps.LoginLimit.Middleware())
	}
	api.POST("/signup", append(login, auth.Signup)...)
	api.POST("/login", append(login, auth.Login)...)

	authed := api.Group("")
	authed.Use(middleware.Auth(deps.Tokens))
	authed.GET("/me", auth.Me)
	authed.GET("/shops", shops.ListShops)
	authed.POST("/shops", shops.CreateShop)

	shop := authed.Group("/shops/:shop_id")
	shop.Use(middleware.ShopScope(deps.Members))
	shop.POST("/invite", middleware.RequireOwner(), shops.Invite)

	s := deps.Stores
	opts := func(entity, label, root string) CatalogOptions {
		return CatalogOptions{
			Entity:  entity,
			Label:   label,
			Root:    root,
			Events:  deps.Events,
			Metrics: deps.Metrics,
			Logger:  log(entity),
		}
	}

	NewCatalogHandler[models.Vendor, models.VendorForm](s.Vendors, opts(importer.EntityVendors, "Vendor", "vendor")).
		Register(shop.Group("/vendors"))
	NewCatalogHandler[models.ProductType, models.ProductTypeForm](s.ProductTypes, opts(importer.EntityProductTypes, "Product type", "product_type")).
		Register(shop.Group("/product_types"))
	NewCatalogHandler[models.ListingType, models.ListingTypeForm](s.ListingTypes, opts(importer.EntityListingTypes, "Listing type", "listing_type")).
		Register(shop.Group("/listing_types"))
	NewCatalogHandler[models.ShopLocation, models.ShopLocationForm](s.ShopLocations, opts(importer.EntityShopLocations, "Shop location", "shop_location")).
		Register(shop.Group("/shop_locations"))
	NewCatalogHandler[models.OptionTypeSet, models.OptionTypeSetForm](s.OptionTypeSets, opts(importer.EntityOptionTypeSets, "Option type set", "option_type_set")).
		Register(shop.Group("/option_type_sets"))

	categoryOpts := opts(importer.EntityCategories, "Category", "category")
	categoryOpts.IDParam = "category_id"
	NewCatalogHandler[models.Category, models.CategoryForm](s.Categories, categoryOpts).
		Register(shop.Group("/categories"))

	subcategories := NewCatalogHandler[models.Subcategory, models.SubcategoryForm](s.Subcategories, opts(importer.EntitySubcategories, "Subcategory", "subcategory"))
	subcategories.WithScope(CategoryScope(s.Categories, log(importer.EntitySubcategories))).
		WithRowScope(func(_ *gin.Context, scope models.Scope) repository.ScopeResolver {
			return repository.CategoryScope(s.Categories, scope.ShopID, scope.CategoryID)
		}).
		Register(shop.Group("/categories/:category_id/subcategories"))

	NewProductsHandler(s.Products, deps.Events, deps.Metrics, log(importer.EntityProducts)).
		Register(shop.Group("/products"))

	return router
}
