package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/roshiend/retail-Link-sub000/internal/middleware"
	"github.com/roshiend/retail-Link-sub000/internal/models"
	"github.com/roshiend/retail-Link-sub000/internal/repository"
)

// AccountStore stores users, shops and memberships
type AccountStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListShops(ctx context.Context, userID uuid.UUID) ([]models.Shop, error)
	CreateShop(ctx context.Context, shop *models.Shop) error
	CreateInvite(ctx context.Context, invite *models.ShopInvite) error
}

// AuthHandler signs users up and in
type AuthHandler struct {
	accounts AccountStore
	tokens   *middleware.TokenManager
	logger   *logrus.Entry
	cost     int
}

func NewAuthHandler(accounts AccountStore, tokens *middleware.TokenManager, logger *logrus.Entry) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens, logger: logger, cost: bcrypt.DefaultCost}
}

// Signup creates an account and returns a token for it
// @Summary Sign up
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body models.SignupRequest true "Account"
// @Success 201 {object} models.AuthResponse
// @Failure 422 {object} map[string][]string
// @Router /signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		respondError(c, http.StatusInternalServerError, internalError)
		return
	}
	user := &models.User{
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
	}
	if err := h.accounts.CreateUser(c.Request.Context(), user); err != nil {
		respondStoreError(c, h.logger, err, "User")
		return
	}

	h.respondToken(c, http.StatusCreated, user)
}

// Login exchanges credentials for a token
// @Summary Log in
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "Credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 401 {object} map[string]string
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		respondStoreError(c, h.logger, err, "User")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	h.respondToken(c, http.StatusOK, user)
}

// Me returns the caller and the shops they belong to
func (h *AuthHandler) Me(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	user, err := h.accounts.GetUser(c.Request.Context(), session.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(c, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	if err != nil {
		respondStoreError(c, h.logger, err, "User")
		return
	}
	shops, err := h.accounts.ListShops(c.Request.Context(), user.ID)
	if err != nil {
		respondStoreError(c, h.logger, err, "Shop")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "shops": shops})
}

func (h *AuthHandler) respondToken(c *gin.Context, status int, user *models.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.WithError(err).Error("Failed to sign token")
		respondError(c, http.StatusInternalServerError, internalError)
		return
	}
	c.JSON(status, models.AuthResponse{Token: token, User: user})
}
