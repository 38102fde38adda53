package service

import (
	"context"
	"encoding/json"
	"time"

	"describe-service/internal/auth"
	"describe-service/internal/biz"
	"describe-service/internal/constants"
	describeErrors "describe-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/go-playground/validator/v10"
)

// adjustCreditsRequest POST /v1/admin/credits 请求体
type adjustCreditsRequest struct {
	UserID      string `json:"userId" validate:"required"`
	Amount      int64  `json:"amount" validate:"required"`
	CreditType  string `json:"creditType" validate:"omitempty,oneof=bg general"`
	Description string `json:"description" validate:"max=512"`
}

type adminUserReply struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Role             string     `json:"role"`
	Credits          int64      `json:"credits"`
	BgRemovalCredits int64      `json:"bgRemovalCredits"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
	LastLoginAt      *time.Time `json:"lastLoginAt"`
}

type transactionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type transactionReply struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	CreditKind  string          `json:"creditKind"`
	Amount      int64           `json:"amount"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	User        transactionUser `json:"user"`
}

type adjustCreditsReply struct {
	Message string       `json:"message"`
	User    adjustedUser `json:"user"`
}

type adjustedUser struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Credits          int64  `json:"credits"`
	BgRemovalCredits int64  `json:"bgRemovalCredits"`
}

// AdminService 管理员接口，需要 ADMIN 角色
type AdminService struct {
	ledger   *biz.CreditLedgerUseCase
	verifier *auth.TokenVerifier
	validate *validator.Validate
	log      *log.Helper
}

// NewAdminService 创建 AdminService
func NewAdminService(ledger *biz.CreditLedgerUseCase, verifier *auth.TokenVerifier, logger log.Logger) *AdminService {
	return &AdminService{
		ledger:   ledger,
		verifier: verifier,
		validate: validator.New(),
		log:      log.NewHelper(logger),
	}
}

// requireAdmin 角色以账本中的用户记录为准，不信任令牌中的 role
func (s *AdminService) requireAdmin(ctx khttp.Context) (*auth.Identity, error) {
	id, err := s.verifier.FromRequest(ctx.Request())
	if err != nil {
		return nil, err
	}
	u, err := s.ledger.GetUser(ctx, id.UserID)
	if err != nil {
		if describeErrors.IsUserNotFound(err) {
			return nil, describeErrors.ErrUnauthorized()
		}
		return nil, err
	}
	if u.Role != constants.RoleAdmin {
		return nil, describeErrors.ErrUnauthorized()
	}
	return id, nil
}

// ListUsers GET /v1/admin/users
func (s *AdminService) ListUsers(ctx khttp.Context) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return replyError(ctx, err)
	}
	return handle(ctx, func(c context.Context) (interface{}, error) {
		users, err := s.ledger.ListUsers(c)
		if err != nil {
			return nil, err
		}
		out := make([]*adminUserReply, 0, len(users))
		for _, u := range users {
			out = append(out, &adminUserReply{
				ID:               u.ID,
				Email:            u.Email,
				Name:             u.Name,
				Role:             u.Role,
				Credits:          u.Credits,
				BgRemovalCredits: u.BgRemovalCredits,
				IsActive:         u.IsActive,
				CreatedAt:        u.CreatedAt,
				LastLoginAt:      u.LastLoginAt,
			})
		}
		return out, nil
	})
}

// ListTransactions GET /v1/admin/credits
func (s *AdminService) ListTransactions(ctx khttp.Context) error {
	if _, err := s.requireAdmin(ctx); err != nil {
		return replyError(ctx, err)
	}
	return handle(ctx, func(c context.Context) (interface{}, error) {
		txs, err := s.ledger.ListTransactions(c, constants.DefaultTransactionsLimit)
		if err != nil {
			return nil, err
		}
		out := make([]*transactionReply, 0, len(txs))
		for _, t := range txs {
			out = append(out, &transactionReply{
				ID:          t.ID,
				UserID:      t.UserID,
				CreditKind:  t.Kind,
				Amount:      t.Amount,
				Type:        t.Type,
				Description: t.Description,
				CreatedAt:   t.CreatedAt,
				User:        transactionUser{ID: t.UserID, Email: t.UserEmail, Name: t.UserName},
			})
		}
		return out, nil
	})
}

// AdjustCredits POST /v1/admin/credits
func (s *AdminService) AdjustCredits(ctx khttp.Context) error {
	admin, err := s.requireAdmin(ctx)
	if err != nil {
		return replyError(ctx, err)
	}
	var req adjustCreditsRequest
	if err := json.NewDecoder(ctx.Request().Body).Decode(&req); err != nil {
		return replyError(ctx, describeErrors.ErrInvalidArgument("invalid request body"))
	}
	if err := s.validate.Struct(&req); err != nil {
		return replyError(ctx, describeErrors.ErrInvalidArgument("User ID and amount are required"))
	}

	kind := constants.CreditKindGeneral
	if req.CreditType == "bg" {
		kind = constants.CreditKindBgRemoval
	}
	return handle(ctx, func(c context.Context) (interface{}, error) {
		u, err := s.ledger.AdjustCredits(c, req.UserID, kind, req.Amount, req.Description)
		if err != nil {
			return nil, err
		}
		s.log.Infof("admin credit adjustment: admin_id=%s, user_id=%s, kind=%s, amount=%d", admin.UserID, req.UserID, kind, req.Amount)
		return &adjustCreditsReply{
			Message: "Credits added successfully",
			User: adjustedUser{
				ID:               u.ID,
				Email:            u.Email,
				Credits:          u.Credits,
				BgRemovalCredits: u.BgRemovalCredits,
			},
		}, nil
	})
}
