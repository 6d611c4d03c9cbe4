package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a marketplace listing owned by a seller.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SellerID    string          `json:"seller_id" gorm:"index;type:varchar(36)"`
	Name        string          `json:"name" gorm:"type:varchar(100)"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2)"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}
