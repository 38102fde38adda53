package model

import (
	"time"
)

// CreditTransaction 额度流水表（只追加）
type CreditTransaction struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	UserID      string    `gorm:"index:idx_user_kind;type:varchar(36);not null"`
	CreditKind  string    `gorm:"index:idx_user_kind;type:varchar(16);not null;default:general"`
	Amount      int64     `gorm:"not null"`
	Type        string    `gorm:"type:varchar(32);not null"` // ADMIN_ADJUSTMENT/PROCESSING_DEBIT/PURCHASE/REFUND
	Description *string   `gorm:"type:varchar(512)"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
