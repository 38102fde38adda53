package data

import (
	"context"

	"describe-service/internal/biz"
	"describe-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

// batchOperationRepo 批处理记录数据访问
type batchOperationRepo struct {
	data *Data
	log  *log.Helper
}

// NewBatchOperationRepo 创建批处理记录 repo
func NewBatchOperationRepo(data *Data, logger log.Logger) biz.BatchOperationRepo {
	return &batchOperationRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *batchOperationRepo) Create(ctx context.Context, op *biz.BatchOperation) error {
	m := model.BatchOperation{
		ID:        op.ID,
		UserID:    op.UserID,
		Type:      op.Type,
		ItemCount: op.ItemCount,
		FileURL:   op.FileURL,
		CreatedAt: op.CreatedAt,
	}
	return r.data.db.WithContext(ctx).Create(&m).Error
}

func (r *batchOperationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*biz.BatchOperation, error) {
	var ms []model.BatchOperation
	if err := r.data.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*biz.BatchOperation, 0, len(ms))
	for _, m := range ms {
		out = append(out, &biz.BatchOperation{
			ID:        m.ID,
			UserID:    m.UserID,
			Type:      m.Type,
			ItemCount: m.ItemCount,
			FileURL:   m.FileURL,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}
