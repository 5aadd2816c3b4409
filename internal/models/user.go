package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	Base
	Name         string  `gorm:"not null"                 json:"name"`
	Email        string  `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string  `gorm:"not null"                 json:"-"`
	Role         string  `gorm:"not null;default:user"    json:"role"`
	Plan         *string `gorm:"size:64"                  json:"plan"`
	IsBanned     bool    `gorm:"not null;default:false"   json:"is_banned"`

	IsEmailVerified       bool       `gorm:"not null;default:false" json:"is_email_verified"`
	VerificationTokenHash string     `gorm:"index"                  json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	ResetTokenHash        string     `gorm:"index"                  json:"-"`
	ResetExpiresAt        *time.Time `json:"-"`

	PurchaseHistory []PurchaseHistory `gorm:"foreignKey:UserID" json:"purchase_history,omitempty"`
}

func (u *User) HasPlan() bool {
	return u.Plan != nil && *u.Plan != ""
}

type PurchaseHistory struct {
	Base
	UserID      uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ProductID   uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id"`
	OrderID     uuid.UUID `gorm:"type:uuid;index;not null" json:"order_id"`
	Quantity    int       `gorm:"not null"                 json:"quantity"`
	PurchasedAt time.Time `gorm:"not null"                 json:"purchased_at"`
}

func (PurchaseHistory) TableName() string {
	return "purchase_histories"
}

type BannedUser struct {
	Base
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	UserEmail string    `gorm:"not null"                       json:"user_email"`
	BannedAt  time.Time `gorm:"not null"                       json:"banned_at"`
}

type RefreshToken struct {
	Base
	Token     string    `gorm:"uniqueIndex;not null"     json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null"     json:"jti"`
	ExpiresAt int64     `gorm:"not null"                 json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false"   json:"revoked"`
}
