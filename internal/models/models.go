package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	DisplayName  string    `gorm:"not null"                 json:"display_name"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"      json:"id"`
	Token     string    `gorm:"unique;not null" json:"token"`
	UserID    uint      `gorm:"index;not null"  json:"user_id"`
	Role      string    `gorm:"not null"        json:"role"`
	ExpiresAt time.Time `gorm:"not null"        json:"expires_at"`
	Revoked   bool      `gorm:"default:false"   json:"revoked"`
}

// Purchase is one checked-out cart line, listed on the dashboard as
// purchase history.
type Purchase struct {
	ID           uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint            `gorm:"index;not null"           json:"user_id"`
	ItemName     string          `gorm:"not null"                 json:"item_name"`
	ItemType     string          `gorm:"not null"                 json:"item_type"`
	Quantity     int             `gorm:"not null"                 json:"quantity"`
	Amount       decimal.Decimal `gorm:"type:numeric;not null"    json:"amount"`
	Status       string          `gorm:"not null;default:new"     json:"status"`
	PurchaseDate time.Time       `gorm:"index;not null"           json:"purchase_date"`
}
