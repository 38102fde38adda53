package model

import (
	"time"
)

// UsageStat 用户月度用量表
type UsageStat struct {
	UserID         string    `gorm:"primaryKey;type:varchar(36)"`
	Month          string    `gorm:"primaryKey;type:varchar(7)"` // YYYY-MM
	Batches        int       `gorm:"not null;default:0"`
	ItemsSucceeded int       `gorm:"not null;default:0"`
	ItemsFailed    int       `gorm:"not null;default:0"`
	CreditsSpent   int64     `gorm:"not null;default:0"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (UsageStat) TableName() string {
	return "usage_stats"
}

// UsageEvent 已处理的批处理完成事件，防止重复投递重复累加
type UsageEvent struct {
	SessionID string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"type:varchar(36);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (UsageEvent) TableName() string {
	return "usage_events"
}
