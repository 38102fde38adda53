package data

import (
	"context"

	"describe-service/internal/biz"
	"describe-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// usageRepo 月度用量数据访问
type usageRepo struct {
	data *Data
	log  *log.Helper
}

// NewUsageRepo 创建用量 repo
func NewUsageRepo(data *Data, logger log.Logger) biz.UsageRepo {
	return &usageRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ApplyBatchCompleted 在一个事务内累加一组事件的用量
// usage_events 以会话 ID 为主键，重复投递的事件直接跳过。
func (r *usageRepo) ApplyBatchCompleted(ctx context.Context, events []*biz.BatchCompletedEvent) error {
	return r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, event := range events {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&model.UsageEvent{SessionID: event.SessionID, UserID: event.UserID})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				r.log.Infof("duplicate batch completed event skipped: session_id=%s", event.SessionID)
				continue
			}

			stat := model.UsageStat{
				UserID:         event.UserID,
				Month:          biz.MonthOf(event.CompletedAt),
				Batches:        1,
				ItemsSucceeded: event.Successful,
				ItemsFailed:    event.Failed,
				CreditsSpent:   event.CreditsSpent,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "month"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"batches":         gorm.Expr("usage_stats.batches + ?", 1),
					"items_succeeded": gorm.Expr("usage_stats.items_succeeded + ?", event.Successful),
					"items_failed":    gorm.Expr("usage_stats.items_failed + ?", event.Failed),
					"credits_spent":   gorm.Expr("usage_stats.credits_spent + ?", event.CreditsSpent),
				}),
			}).Create(&stat).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByUser 最近几个月的用量（按月份倒序）
func (r *usageRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*biz.UsageStat, error) {
	var ms []model.UsageStat
	if err := r.data.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("month DESC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]*biz.UsageStat, 0, len(ms))
	for _, m := range ms {
		out = append(out, &biz.UsageStat{
			UserID:         m.UserID,
			Month:          m.Month,
			Batches:        m.Batches,
			ItemsSucceeded: m.ItemsSucceeded,
			ItemsFailed:    m.ItemsFailed,
			CreditsSpent:   m.CreditsSpent,
			UpdatedAt:      m.UpdatedAt,
		})
	}
	return out, nil
}
