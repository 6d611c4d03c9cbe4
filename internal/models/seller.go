package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Seller is the store profile attached to a user with the seller role.
type Seller struct {
	ID             string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID         string           `json:"user_id" gorm:"uniqueIndex;type:varchar(36)"`
	StoreName      string           `json:"store_name" gorm:"type:varchar(120)"`
	Description    string           `json:"description" gorm:"type:text"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty" gorm:"type:numeric(5,4)"`
	IsApproved     bool             `json:"is_approved" gorm:"default:false"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// EffectiveCommissionRate returns the seller's own rate, or def when unset.
func (s *Seller) EffectiveCommissionRate(def decimal.Decimal) decimal.Decimal {
	if s == nil || s.CommissionRate == nil {
		return def
	}
	return *s.CommissionRate
}
