package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a user's role within a shop
type Role string

const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleStaff
}

// User is an account that can sign in to the admin console
type User struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email        string         `json:"email" gorm:"not null;uniqueIndex"`
	Name         string         `json:"name"`
	PasswordHash string         `json:"-" gorm:"not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// Shop is a tenant. Every catalog row belongs to exactly one shop.
type Shop struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string         `json:"name" gorm:"not null"`
	OwnerID   uuid.UUID      `json:"owner_id" gorm:"type:uuid;not null;index"`
	Role      Role           `json:"role,omitempty" gorm:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// ShopMember grants a user access to a shop
type ShopMember struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ShopID    uuid.UUID `json:"shop_id" gorm:"type:uuid;not null;uniqueIndex:idx_shop_members_shop_user"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_shop_members_shop_user;index"`
	Role      Role      `json:"role" gorm:"not null;default:'staff'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShopInvite is a pending invitation for an email address to join a shop
type ShopInvite struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ShopID     uuid.UUID  `json:"shop_id" gorm:"type:uuid;not null;index"`
	Email      string     `json:"email" gorm:"not null;index"`
	Role       Role       `json:"role" gorm:"not null;default:'staff'"`
	Token      string     `json:"token" gorm:"not null;uniqueIndex"`
	InvitedBy  uuid.UUID  `json:"invited_by" gorm:"type:uuid;not null"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (User) TableName() string       { return "users" }
func (Shop) TableName() string       { return "shops" }
func (ShopMember) TableName() string { return "shop_members" }
func (ShopInvite) TableName() string { return "shop_invites" }

// SignupRequest is the body of POST /signup
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries a fresh bearer token
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// CreateShopRequest is the body of POST /shops
type CreateShopRequest struct {
	Name string `json:"name" binding:"required"`
}

// InviteRequest is the body of POST /shops/:shop_id/invite
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  Role   `json:"role"`
}
