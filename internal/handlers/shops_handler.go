package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/roshiend/retail-Link-sub000/internal/middleware"
	"github.com/roshiend/retail-Link-sub000/internal/models"
)

// ShopsHandler manages the caller's shops and invitations
type ShopsHandler struct {
	accounts AccountStore
	logger   *logrus.Entry
}

func NewShopsHandler(accounts AccountStore, logger *logrus.Entry) *ShopsHandler {
	return &ShopsHandler{accounts: accounts, logger: logger}
}

// ListShops returns the shops the caller belongs to
func (h *ShopsHandler) ListShops(c *gin.Context) {
	session := middleware.GetSession(c)
	shops, err := h.accounts.ListShops(c.Request.Context(), session.UserID)
	if err != nil {
		respondStoreError(c, h.logger, err, "Shop")
		return
	}
	if shops == nil {
		shops = []models.Shop{}
	}
	c.JSON(http.StatusOK, gin.H{"data": shops})
}

// CreateShop creates a shop owned by the caller
func (h *ShopsHandler) CreateShop(c *gin.Context) {
	var req models.CreateShopRequest
	if err := decodeForm(c, "shop", &req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondErrors(c, []string{"Name can't be blank"})
		return
	}

	session := middleware.GetSession(c)
	shop := &models.Shop{Name: name, OwnerID: session.UserID}
	if err := h.accounts.CreateShop(c.Request.Context(), shop); err != nil {
		respondStoreError(c, h.logger, err, "Shop")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": shop})
}

// Invite records an invitation to join the scoped shop. Owners only.
func (h *ShopsHandler) Invite(c *gin.Context) {
	var req models.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Role == "" {
		req.Role = models.RoleStaff
	}
	if !req.Role.Valid() {
		respondErrors(c, []string{"Role is not included in the list"})
		return
	}

	session := middleware.GetSession(c)
	invite := &models.ShopInvite{
		ShopID:    session.ShopID,
		Email:     req.Email,
		Role:      req.Role,
		InvitedBy: session.UserID,
	}
	if err := h.accounts.CreateInvite(c.Request.Context(), invite); err != nil {
		respondStoreError(c, h.logger, err, "Shop")
		return
	}
	h.logger.WithFields(logrus.Fields{
		"shop_id": session.ShopID.String(),
		"email":   invite.Email,
		"role":    invite.Role,
	}).Info("Shop invite created")
	c.JSON(http.StatusCreated, gin.H{"data": invite})
}
