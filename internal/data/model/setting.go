package model

import (
	"time"
)

// Setting 系统配置表（存放服务商 API Key 等）
type Setting struct {
	Key       string    `gorm:"primaryKey;type:varchar(128)"`
	Value     string    `gorm:"type:text;not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}
