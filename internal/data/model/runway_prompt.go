package model

import (
	"time"
)

// RunwayPrompt 视频提示词历史表
// 非 runway 模式时三档提示词为空
type RunwayPrompt struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	UserID       string    `gorm:"index;type:varchar(36);not null"`
	Filename     string    `gorm:"type:varchar(255);not null"`
	Mode         string    `gorm:"type:varchar(32);not null"`
	LowMotion    *string   `gorm:"column:low_motion;type:text"`
	MediumMotion *string   `gorm:"column:medium_motion;type:text"`
	HighMotion   *string   `gorm:"column:high_motion;type:text"`
	FileSize     int64     `gorm:"not null"`
	MimeType     string    `gorm:"type:varchar(128)"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (RunwayPrompt) TableName() string {
	return "runway_prompts"
}
