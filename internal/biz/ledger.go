package biz

import (
	"context"
	"time"

	"describe-service/internal/constants"
	describeErrors "describe-service/internal/errors"
	"describe-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// User 用户领域对象（只包含额度相关字段）
type User struct {
	ID               string
	Email            string
	Name             string
	Role             string
	Credits          int64
	BgRemovalCredits int64
	IsActive         bool
	CreatedAt        time.Time
	LastLoginAt      *time.Time
}

// Balance 返回指定额度类型的余额
func (u *User) Balance(kind string) int64 {
	if kind == constants.CreditKindBgRemoval {
		return u.BgRemovalCredits
	}
	return u.Credits
}

// CreditTransaction 额度流水领域对象（只追加，不修改）
type CreditTransaction struct {
	ID          string
	UserID      string
	UserEmail   string
	UserName    string
	Kind        string
	Type        string
	Amount      int64 // 正数为增加，负数为扣除
	Description string
	CreatedAt   time.Time
}

// DeductResult 扣费结果
type DeductResult struct {
	OK        bool
	Reason    string
	Remaining int64
}

// LedgerDrift 余额与流水合计不一致的记录
type LedgerDrift struct {
	UserID  string
	Kind    string
	Balance int64
	Sum     int64
}

// LedgerRepo 额度数据层接口（定义在 biz 层）
// 余额只能通过这里的条件更新修改，每次修改都在同一事务内追加一条流水。
type LedgerRepo interface {
	CheckAndDeduct(ctx context.Context, userID, kind string, amount int64, txType, description string) (*DeductResult, error)
	Adjust(ctx context.Context, userID, kind string, amount int64, txType, description string) (*User, error)
	GetUser(ctx context.Context, userID string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	ListTransactions(ctx context.Context, limit int) ([]*CreditTransaction, error)
	FindDrifts(ctx context.Context) ([]*LedgerDrift, error)
}

// CreditLedgerUseCase 额度账本业务逻辑
type CreditLedgerUseCase struct {
	repo    LedgerRepo
	log     *log.Helper
	metrics *metrics.DescribeMetrics
}

// NewCreditLedgerUseCase 创建额度账本 UseCase
func NewCreditLedgerUseCase(repo LedgerRepo, logger log.Logger) *CreditLedgerUseCase {
	return &CreditLedgerUseCase{
		repo:    repo,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// CheckAndDeduct 原子检查并扣除通用额度
// 余额不足时返回 OK=false，不返回错误；用户不存在、存储不可用时返回错误。
func (uc *CreditLedgerUseCase) CheckAndDeduct(ctx context.Context, userID string, amount int64, description string) (*DeductResult, error) {
	if amount <= 0 {
		return nil, describeErrors.ErrInvalidArgument("amount must be positive")
	}
	startTime := time.Now()
	res, err := uc.repo.CheckAndDeduct(ctx, userID, constants.CreditKindGeneral, amount, constants.TransactionTypeProcessingDebit, description)

	if uc.metrics != nil {
		uc.metrics.DeductDuration.Observe(time.Since(startTime).Seconds())
		switch {
		case err != nil:
			uc.metrics.DeductTotal.WithLabelValues(constants.DeductResultError).Inc()
		case !res.OK:
			uc.metrics.DeductTotal.WithLabelValues(constants.DeductResultInsufficient).Inc()
		default:
			uc.metrics.DeductTotal.WithLabelValues(constants.DeductResultOK).Inc()
		}
	}
	if err != nil {
		uc.log.Errorf("CheckAndDeduct failed: user_id=%s, amount=%d, error=%v", userID, amount, err)
		return nil, err
	}
	return res, nil
}

// GetBalance 获取通用额度余额
func (uc *CreditLedgerUseCase) GetBalance(ctx context.Context, userID string) (int64, error) {
	u, err := uc.repo.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Credits, nil
}

// HasAtLeast 余额是否不少于 amount
func (uc *CreditLedgerUseCase) HasAtLeast(ctx context.Context, userID string, amount int64) (bool, error) {
	balance, err := uc.GetBalance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// GetUser 获取用户及全部余额
func (uc *CreditLedgerUseCase) GetUser(ctx context.Context, userID string) (*User, error) {
	return uc.repo.GetUser(ctx, userID)
}

// AdjustCredits 管理员调整额度（可正可负，负数调整不会使余额小于 0）
func (uc *CreditLedgerUseCase) AdjustCredits(ctx context.Context, userID, kind string, amount int64, description string) (*User, error) {
	if amount == 0 {
		return nil, describeErrors.ErrInvalidArgument("User ID and amount are required")
	}
	if kind != constants.CreditKindBgRemoval {
		kind = constants.CreditKindGeneral
	}
	if description == "" {
		if kind == constants.CreditKindBgRemoval {
			description = "Admin BG removal credit adjustment"
		} else {
			description = "Admin general credit adjustment"
		}
	}

	u, err := uc.repo.Adjust(ctx, userID, kind, amount, constants.TransactionTypeAdminAdjustment, description)
	if err != nil {
		uc.log.Errorf("AdjustCredits failed: user_id=%s, kind=%s, amount=%d, error=%v", userID, kind, amount, err)
		return nil, err
	}
	if uc.metrics != nil {
		uc.metrics.AdjustTotal.WithLabelValues(kind).Inc()
	}
	uc.log.Infof("credits adjusted: user_id=%s, kind=%s, amount=%d, balance=%d", userID, kind, amount, u.Balance(kind))
	return u, nil
}

// ListUsers 获取用户列表
func (uc *CreditLedgerUseCase) ListUsers(ctx context.Context) ([]*User, error) {
	return uc.repo.ListUsers(ctx)
}

// ListTransactions 获取最近的额度流水
func (uc *CreditLedgerUseCase) ListTransactions(ctx context.Context, limit int) ([]*CreditTransaction, error) {
	if limit <= 0 || limit > constants.DefaultTransactionsLimit {
		limit = constants.DefaultTransactionsLimit
	}
	return uc.repo.ListTransactions(ctx, limit)
}

// Reconcile 对账：余额必须等于流水合计
func (uc *CreditLedgerUseCase) Reconcile(ctx context.Context) ([]*LedgerDrift, error) {
	drifts, err := uc.repo.FindDrifts(ctx)
	if err != nil {
		return nil, err
	}
	if uc.metrics != nil {
		uc.metrics.LedgerDrift.Set(float64(len(drifts)))
	}
	for _, d := range drifts {
		uc.log.Warnf("ledger drift: user_id=%s, kind=%s, balance=%d, sum=%d", d.UserID, d.Kind, d.Balance, d.Sum)
	}
	return drifts, nil
}
