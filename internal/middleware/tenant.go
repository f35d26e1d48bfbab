package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roshiend/retail-Link-sub000/internal/models"
	"github.com/roshiend/retail-Link-sub000/internal/repository"
)

// MembershipChecker resolves a user's role in a shop
type MembershipChecker interface {
	MemberRole(ctx context.Context, shopID, userID uuid.UUID) (models.Role, error)
}

// ShopScope resolves the :shop_id route parameter and rejects callers who are
// not members of that shop. Every shop-scoped query uses the shop it stores.
func ShopScope(members MembershipChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetSession(c)
		if session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		shopID, err := uuid.Parse(c.Param("shop_id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Shop not found"})
			return
		}

		role, err := members.MemberRole(c.Request.Context(), shopID, session.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have access to this shop"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		scoped := *session
		scoped.ShopID = shopID
		scoped.Role = role
		SetSession(c, &scoped)
		c.Next()
	}
}

// RequireOwner allows only shop owners through
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetSession(c)
		if session == nil || session.Role != models.RoleOwner {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Only shop owners can do that"})
			return
		}
		c.Next()
	}
}

// GetShopID retrieves the scoped shop from gin context
func GetShopID(c *gin.Context) uuid.UUID {
	if s := GetSession(c); s != nil {
		return s.ShopID
	}
	return uuid.Nil
}
