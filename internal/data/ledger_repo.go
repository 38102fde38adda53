package data

import (
	"context"
	"errors"

	"describe-service/internal/biz"
	"describe-service/internal/constants"
	"describe-service/internal/data/model"
	describeErrors "describe-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ledgerRepo 额度账本数据访问
type ledgerRepo struct {
	data *Data
	log  *log.Helper
}

// NewLedgerRepo 创建额度账本 repo（返回 biz.LedgerRepo 接口）
func NewLedgerRepo(data *Data, logger log.Logger) biz.LedgerRepo {
	return &ledgerRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CheckAndDeduct 条件更新扣费，余额足够时在同一事务内写入流水
// 不加应用层锁，并发扣费由 "credits >= ?" 条件保证余额不为负。
func (r *ledgerRepo) CheckAndDeduct(ctx context.Context, userID, kind string, amount int64, txType, description string) (*biz.DeductResult, error) {
	var result *biz.DeductResult
	col := model.CreditColumn(kind)

	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ? AND "+col+" >= ?", userID, amount).
			Update(col, gorm.Expr(col+" - ?", amount))
		if res.Error != nil {
			return res.Error
		}

		balance, err := r.balanceIn(tx, userID, kind)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			result = &biz.DeductResult{
				OK:        false,
				Reason:    constants.DeductReasonInsufficient,
				Remaining: balance,
			}
			return nil
		}

		// 流水写入失败时整个事务回滚，余额不变
		if err := tx.Create(newTransaction(userID, kind, -amount, txType, description)).Error; err != nil {
			return err
		}
		result = &biz.DeductResult{OK: true, Remaining: balance}
		return nil
	})
	if err != nil {
		return nil, wrapLedgerError(err)
	}
	return result, nil
}

// Adjust 调整余额（可正可负），同一事务内写入流水
func (r *ledgerRepo) Adjust(ctx context.Context, userID, kind string, amount int64, txType, description string) (*biz.User, error) {
	col := model.CreditColumn(kind)

	var u model.User
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&model.User{}).Where("id = ?", userID)
		if amount < 0 {
			q = q.Where(col+" >= ?", -amount)
		}
		res := q.Update(col, gorm.Expr(col+" + ?", amount))
		if res.Error != nil {
			return res.Error
		}

		if err := tx.Where("id = ?", userID).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return describeErrors.ErrUserNotFound(userID)
			}
			return err
		}
		if res.RowsAffected == 0 {
			return describeErrors.ErrInsufficientCredits(userBalance(&u, kind))
		}
		return tx.Create(newTransaction(userID, kind, amount, txType, description)).Error
	})
	if err != nil {
		return nil, wrapLedgerError(err)
	}
	return toBizUser(&u), nil
}

// GetUser 获取用户
func (r *ledgerRepo) GetUser(ctx context.Context, userID string) (*biz.User, error) {
	var u model.User
	if err := r.data.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, describeErrors.ErrUserNotFound(userID)
		}
		return nil, describeErrors.ErrLedgerUnavailable(err)
	}
	return toBizUser(&u), nil
}

// ListUsers 获取用户列表（按创建时间倒序）
func (r *ledgerRepo) ListUsers(ctx context.Context) ([]*biz.User, error) {
	var users []model.User
	if err := r.data.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, describeErrors.ErrLedgerUnavailable(err)
	}
	out := make([]*biz.User, 0, len(users))
	for i := range users {
		out = append(out, toBizUser(&users[i]))
	}
	return out, nil
}

// ListTransactions 获取最近的流水，附带用户邮箱和名称
func (r *ledgerRepo) ListTransactions(ctx context.Context, limit int) ([]*biz.CreditTransaction, error) {
	var txs []model.CreditTransaction
	if err := r.data.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error; err != nil {
		return nil, describeErrors.ErrLedgerUnavailable(err)
	}

	userIDs := make([]string, 0, len(txs))
	seen := make(map[string]bool)
	for _, t := range txs {
		if !seen[t.UserID] {
			seen[t.UserID] = true
			userIDs = append(userIDs, t.UserID)
		}
	}
	users := make(map[string]model.User, len(userIDs))
	if len(userIDs) > 0 {
		var list []model.User
		if err := r.data.db.WithContext(ctx).
			Select("id", "email", "name").
			Where("id IN ?", userIDs).
			Find(&list).Error; err != nil {
			return nil, describeErrors.ErrLedgerUnavailable(err)
		}
		for _, u := range list {
			users[u.ID] = u
		}
	}

	out := make([]*biz.CreditTransaction, 0, len(txs))
	for _, t := range txs {
		item := &biz.CreditTransaction{
			ID:        t.ID,
			UserID:    t.UserID,
			Kind:      t.CreditKind,
			Type:      t.Type,
			Amount:    t.Amount,
			CreatedAt: t.CreatedAt,
		}
		if t.Description != nil {
			item.Description = *t.Description
		}
		if u, ok := users[t.UserID]; ok {
			item.UserEmail = u.Email
			item.UserName = u.Name
		}
		out = append(out, item)
	}
	return out, nil
}

// FindDrifts 找出余额与流水合计不一致的用户
func (r *ledgerRepo) FindDrifts(ctx context.Context) ([]*biz.LedgerDrift, error) {
	var sums []struct {
		UserID     string
		CreditKind string
		Total      int64
	}
	if err := r.data.db.WithContext(ctx).
		Model(&model.CreditTransaction{}).
		Select("user_id, credit_kind, SUM(amount) AS total").
		Group("user_id, credit_kind").
		Scan(&sums).Error; err != nil {
		return nil, describeErrors.ErrLedgerUnavailable(err)
	}
	totals := make(map[string]map[string]int64)
	for _, s := range sums {
		if totals[s.UserID] == nil {
			totals[s.UserID] = make(map[string]int64)
		}
		totals[s.UserID][s.CreditKind] = s.Total
	}

	var users []model.User
	if err := r.data.db.WithContext(ctx).
		Select("id", "credits", "bg_removal_credits").
		Find(&users).Error; err != nil {
		return nil, describeErrors.ErrLedgerUnavailable(err)
	}

	var drifts []*biz.LedgerDrift
	for i := range users {
		u := &users[i]
		for _, kind := range []string{constants.CreditKindGeneral, constants.CreditKindBgRemoval} {
			balance := userBalance(u, kind)
			sum := totals[u.ID][kind]
			if balance != sum {
				drifts = append(drifts, &biz.LedgerDrift{UserID: u.ID, Kind: kind, Balance: balance, Sum: sum})
			}
		}
	}
	return drifts, nil
}

// balanceIn 在事务内读取余额
func (r *ledgerRepo) balanceIn(tx *gorm.DB, userID, kind string) (int64, error) {
	var u model.User
	if err := tx.Select("id", "credits", "bg_removal_credits").Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, describeErrors.ErrUserNotFound(userID)
		}
		return 0, err
	}
	return userBalance(&u, kind), nil
}

func newTransaction(userID, kind string, amount int64, txType, description string) *model.CreditTransaction {
	t := &model.CreditTransaction{
		ID:         uuid.New().String(),
		UserID:     userID,
		CreditKind: kind,
		Amount:     amount,
		Type:       txType,
	}
	if description != "" {
		t.Description = &description
	}
	return t
}

func userBalance(u *model.User, kind string) int64 {
	if kind == constants.CreditKindBgRemoval {
		return u.BgRemovalCredits
	}
	return u.Credits
}

func toBizUser(u *model.User) *biz.User {
	return &biz.User{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role,
		Credits:          u.Credits,
		BgRemovalCredits: u.BgRemovalCredits,
		IsActive:         u.IsActive,
		CreatedAt:        u.CreatedAt,
		LastLoginAt:      u.LastLoginAt,
	}
}

// wrapLedgerError 业务错误原样返回，其余视为存储不可用
func wrapLedgerError(err error) error {
	if describeErrors.IsUserNotFound(err) || describeErrors.IsInsufficientCredits(err) {
		return err
	}
	return describeErrors.ErrLedgerUnavailable(err)
}
