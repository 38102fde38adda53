package biz

import (
	"context"
	"time"

	"describe-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// UsageStat 用户月度用量
type UsageStat struct {
	UserID         string
	Month          string // YYYY-MM
	Batches        int
	ItemsSucceeded int
	ItemsFailed    int
	CreditsSpent   int64
	UpdatedAt      time.Time
}

// UsageRepo 用量统计数据层接口（定义在 biz 层）
type UsageRepo interface {
	// ApplyBatchCompleted 累加一批的用量，同一会话重复投递只累加一次
	ApplyBatchCompleted(ctx context.Context, events []*BatchCompletedEvent) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*UsageStat, error)
}

// UsageUseCase 用量统计业务逻辑
type UsageUseCase struct {
	repo UsageRepo
	log  *log.Helper
}

// NewUsageUseCase 创建用量统计 UseCase
func NewUsageUseCase(repo UsageRepo, logger log.Logger) *UsageUseCase {
	return &UsageUseCase{
		repo: repo,
		log:  log.NewHelper(logger),
	}
}

// HandleBatchCompleted 处理批处理完成事件
func (uc *UsageUseCase) HandleBatchCompleted(ctx context.Context, events []*BatchCompletedEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := uc.repo.ApplyBatchCompleted(ctx, events); err != nil {
		uc.log.Errorf("apply batch completed events failed: count=%d, error=%v", len(events), err)
		return err
	}
	return nil
}

// ListUsage 获取最近几个月的用量
func (uc *UsageUseCase) ListUsage(ctx context.Context, userID string, months int) ([]*UsageStat, error) {
	if months <= 0 || months > 24 {
		months = 12
	}
	return uc.repo.ListByUser(ctx, userID, months)
}

// MonthOf 事件所属月份
func MonthOf(t time.Time) string {
	return t.Format(constants.TimeFormatMonth)
}
