package model

import (
	"time"
)

// BatchOperation 批处理记录表
type BatchOperation struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"index;type:varchar(36);not null"`
	Type      string    `gorm:"type:varchar(32);not null"`
	ItemCount int       `gorm:"not null"`
	FileURL   string    `gorm:"column:file_url;type:varchar(1024)"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (BatchOperation) TableName() string {
	return "batch_operations"
}
