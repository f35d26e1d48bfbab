package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roshiend/retail-Link-sub000/internal/models"
)

// ShopsRepository stores users, shops and shop memberships
type ShopsRepository struct {
	db *gorm.DB
}

func NewShopsRepository(db *gorm.DB) *ShopsRepository {
	return &ShopsRepository{db: db}
}

// CreateUser inserts a user; the email must not be registered yet
func (r *ShopsRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("email %w", ErrDuplicate)
		}
		return tx.Create(user).Error
	})
}

// FindUserByEmail looks a user up case-insensitively
func (r *ShopsRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUser retrieves a user by ID
func (r *ShopsRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// ListShops returns the shops a user belongs to, each with the user's role
func (r *ShopsRepository) ListShops(ctx context.Context, userID uuid.UUID) ([]models.Shop, error) {
	var rows []struct {
		models.Shop
		MemberRole models.Role
	}
	err := r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Select("shops.*, shop_members.role AS member_role").
		Joins("JOIN shop_members ON shop_members.shop_id = shops.id").
		Where("shop_members.user_id = ?", userID).
		Order("shops.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	shops := make([]models.Shop, len(rows))
	for i, row := range rows {
		shops[i] = row.Shop
		shops[i].Role = row.MemberRole
	}
	return shops, nil
}

// CreateShop creates a shop and makes its owner a member in one transaction
func (r *ShopsRepository) CreateShop(ctx context.Context, shop *models.Shop) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(shop).Error; err != nil {
			return err
		}
		member := &models.ShopMember{ShopID: shop.ID, UserID: shop.OwnerID, Role: models.RoleOwner}
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		shop.Role = models.RoleOwner
		return nil
	})
}

// MemberRole returns the user's role in the shop, or ErrNotFound when the
// user is not a member or the shop does not exist.
func (r *ShopsRepository) MemberRole(ctx context.Context, shopID, userID uuid.UUID) (models.Role, error) {
	var member models.ShopMember
	err := r.db.WithContext(ctx).
		Joins("JOIN shops ON shops.id = shop_members.shop_id AND shops.deleted_at IS NULL").
		Where("shop_members.shop_id = ? AND shop_members.user_id = ?", shopID, userID).
		First(&member).Error
	if err != nil {
		return "", notFound(err)
	}
	return member.Role, nil
}

// CreateInvite stores a pending invitation with a fresh token. Inviting an
// address twice refreshes the role of the pending invite.
func (r *ShopsRepository) CreateInvite(ctx context.Context, invite *models.ShopInvite) error {
	invite.Email = strings.ToLower(strings.TrimSpace(invite.Email))
	if invite.Role == "" {
		invite.Role = models.RoleStaff
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ShopInvite
		err := tx.Where("shop_id = ? AND email = ? AND accepted_at IS NULL", invite.ShopID, invite.Email).
			First(&existing).Error
		if err == nil {
			existing.Role = invite.Role
			existing.InvitedBy = invite.InvitedBy
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			*invite = existing
			return nil
		}
		if err := notFound(err); err != ErrNotFound {
			return err
		}

		invite.Token = uuid.NewString()
		return tx.Create(invite).Error
	})
}
