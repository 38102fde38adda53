package biz

import (
	"context"
	"errors"
	"time"

	"describe-service/internal/constants"
	"describe-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// ErrLockHeld 锁已被其他实例持有
var ErrLockHeld = errors.New("lock held by another instance")

// Locker 跨实例互斥
type Locker interface {
	// TryLock 获取锁，成功时返回释放函数；锁被占用时返回 ErrLockHeld
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// ArtifactJanitor 过期结果文件清理
type ArtifactJanitor interface {
	Cleanup(ctx context.Context, olderThan time.Time) (int, error)
}

// MaintenanceUseCase 定时维护任务：对账和结果文件清理
type MaintenanceUseCase struct {
	ledger  *CreditLedgerUseCase
	janitor ArtifactJanitor
	locker  Locker
	config  *DescribeConfig
	log     *log.Helper
	metrics *metrics.DescribeMetrics
}

// NewMaintenanceUseCase 创建维护任务 UseCase
func NewMaintenanceUseCase(ledger *CreditLedgerUseCase, janitor ArtifactJanitor, locker Locker, config *DescribeConfig, logger log.Logger) *MaintenanceUseCase {
	return &MaintenanceUseCase{
		ledger:  ledger,
		janitor: janitor,
		locker:  locker,
		config:  config,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// ReconcileLedger 对账，多实例部署时只有一个实例执行
func (uc *MaintenanceUseCase) ReconcileLedger(ctx context.Context) error {
	return uc.withLock(ctx, "reconcile", constants.RedisKeyReconcileLock, func(ctx context.Context) error {
		drifts, err := uc.ledger.Reconcile(ctx)
		if err != nil {
			return err
		}
		uc.log.Infof("ledger reconciled: drifts=%d", len(drifts))
		return nil
	})
}

// CleanupArtifacts 删除超过保留期的结果文件
func (uc *MaintenanceUseCase) CleanupArtifacts(ctx context.Context) error {
	return uc.withLock(ctx, "cleanup", constants.RedisKeyCleanupLock, func(ctx context.Context) error {
		removed, err := uc.janitor.Cleanup(ctx, time.Now().Add(-uc.config.ArtifactRetention))
		if err != nil {
			return err
		}
		uc.log.Infof("artifacts cleaned up: removed=%d", removed)
		return nil
	})
}

func (uc *MaintenanceUseCase) withLock(ctx context.Context, job, key string, fn func(ctx context.Context) error) error {
	unlock, err := uc.locker.TryLock(ctx, key, 10*time.Minute)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			uc.recordLock(job, "held")
			uc.log.Infof("%s skipped: lock held by another instance", job)
			return nil
		}
		uc.recordLock(job, "error")
		return err
	}
	defer unlock()
	uc.recordLock(job, "acquired")

	startTime := time.Now()
	err = fn(ctx)
	if uc.metrics != nil {
		uc.metrics.CronDuration.WithLabelValues(job).Observe(time.Since(startTime).Seconds())
	}
	if err != nil {
		uc.log.Errorf("%s failed: %v", job, err)
	}
	return err
}

func (uc *MaintenanceUseCase) recordLock(job, result string) {
	if uc.metrics != nil {
		uc.metrics.LockAcquire.WithLabelValues(job, result).Inc()
	}
}
