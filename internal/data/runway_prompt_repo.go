package data

import (
	"context"

	"describe-service/internal/biz"
	"describe-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

// runwayPromptRepo 视频提示词历史数据访问
type runwayPromptRepo struct {
	data *Data
	log  *log.Helper
}

// NewRunwayPromptRepo 创建视频提示词历史 repo
func NewRunwayPromptRepo(data *Data, logger log.Logger) biz.RunwayPromptRepo {
	return &runwayPromptRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *runwayPromptRepo) Create(ctx context.Context, rec *biz.RunwayPromptRecord) error {
	m := model.RunwayPrompt{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Filename:  rec.Filename,
		Mode:      rec.Mode,
		FileSize:  rec.FileSize,
		MimeType:  rec.MimeType,
		CreatedAt: rec.CreatedAt,
	}
	if p := rec.Prompts; p != nil {
		m.LowMotion = &p.Low
		m.MediumMotion = &p.Medium
		m.HighMotion = &p.High
	}
	return r.data.db.WithContext(ctx).Create(&m).Error
}
