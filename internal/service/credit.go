package service

import (
	"context"

	"describe-service/internal/auth"
	"describe-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

type creditsReply struct {
	UserID           string `json:"userId"`
	Credits          int64  `json:"credits"`
	BgRemovalCredits int64  `json:"bgRemovalCredits"`
}

type usageReply struct {
	Month          string `json:"month"`
	Batches        int    `json:"batches"`
	ItemsSucceeded int    `json:"itemsSucceeded"`
	ItemsFailed    int    `json:"itemsFailed"`
	CreditsSpent   int64  `json:"creditsSpent"`
}

// CreditService 用户额度接口
type CreditService struct {
	ledger   *biz.CreditLedgerUseCase
	usage    *biz.UsageUseCase
	verifier *auth.TokenVerifier
	log      *log.Helper
}

// NewCreditService 创建 CreditService
func NewCreditService(ledger *biz.CreditLedgerUseCase, usage *biz.UsageUseCase, verifier *auth.TokenVerifier, logger log.Logger) *CreditService {
	return &CreditService{
		ledger:   ledger,
		usage:    usage,
		verifier: verifier,
		log:      log.NewHelper(logger),
	}
}

// GetCredits GET /v1/credits
func (s *CreditService) GetCredits(ctx khttp.Context) error {
	id, err := s.verifier.FromRequest(ctx.Request())
	if err != nil {
		return replyError(ctx, err)
	}
	return handle(ctx, func(c context.Context) (interface{}, error) {
		u, err := s.ledger.GetUser(c, id.UserID)
		if err != nil {
			return nil, err
		}
		return &creditsReply{UserID: u.ID, Credits: u.Credits, BgRemovalCredits: u.BgRemovalCredits}, nil
	})
}

// GetUsage GET /v1/credits/usage
func (s *CreditService) GetUsage(ctx khttp.Context) error {
	id, err := s.verifier.FromRequest(ctx.Request())
	if err != nil {
		return replyError(ctx, err)
	}
	return handle(ctx, func(c context.Context) (interface{}, error) {
		stats, err := s.usage.ListUsage(c, id.UserID, 0)
		if err != nil {
			return nil, err
		}
		out := make([]*usageReply, 0, len(stats))
		for _, st := range stats {
			out = append(out, &usageReply{
				Month:          st.Month,
				Batches:        st.Batches,
				ItemsSucceeded: st.ItemsSucceeded,
				ItemsFailed:    st.ItemsFailed,
				CreditsSpent:   st.CreditsSpent,
			})
		}
		return out, nil
	})
}
