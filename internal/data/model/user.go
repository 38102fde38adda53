package model

import (
	"time"
)

// User 用户表（只维护额度相关字段，账号由外部认证服务管理）
type User struct {
	ID               string     `gorm:"primaryKey;type:varchar(36)"`
	Email            string     `gorm:"uniqueIndex;type:varchar(255);not null"`
	Name             string     `gorm:"type:varchar(255)"`
	Role             string     `gorm:"type:varchar(16);not null;default:USER"`
	Credits          int64      `gorm:"not null;default:0"`
	BgRemovalCredits int64      `gorm:"column:bg_removal_credits;not null;default:0"`
	IsActive         bool       `gorm:"not null;default:true"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// CreditColumn 额度类型对应的余额列
func CreditColumn(kind string) string {
	if kind == "bg_removal" {
		return "bg_removal_credits"
	}
	return "credits"
}
