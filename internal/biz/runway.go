package biz

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"describe-service/internal/constants"
	describeErrors "describe-service/internal/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// MotionClauses 三档运动强度的场景描述（不含镜头运动）
type MotionClauses struct {
	Low    string
	Medium string
	High   string
}

// RunwayPromptGenerator 根据图片生成各运动强度的场景描述
type RunwayPromptGenerator interface {
	Generate(ctx context.Context, img *Image) (*MotionClauses, error)
}

// RunwayPromptRecord 视频提示词历史
type RunwayPromptRecord struct {
	ID        string
	UserID    string
	Filename  string
	Mode      string
	Prompts   *MotionClauses // 非 runway 模式为 nil
	FileSize  int64
	MimeType  string
	CreatedAt time.Time
}

// RunwayPromptRepo 视频提示词历史存储
type RunwayPromptRepo interface {
	Create(ctx context.Context, r *RunwayPromptRecord) error
}

// RunwayPromptRequest 生成请求
type RunwayPromptRequest struct {
	UserID      string
	Image       *Image
	Mode        string
	SkipHistory bool // 批量调用时不保存历史
}

// RunwayPromptResult 生成结果
type RunwayPromptResult struct {
	Low              string
	Medium           string
	High             string
	CreditsRemaining int64
}

// RunwayPromptUseCase 图片生成视频提示词，成功后扣 1 个通用额度
type RunwayPromptUseCase struct {
	ledger    *CreditLedgerUseCase
	generator RunwayPromptGenerator
	repo      RunwayPromptRepo
	log       *log.Helper
}

// NewRunwayPromptUseCase 创建视频提示词 UseCase
func NewRunwayPromptUseCase(ledger *CreditLedgerUseCase, generator RunwayPromptGenerator, repo RunwayPromptRepo, logger log.Logger) *RunwayPromptUseCase {
	return &RunwayPromptUseCase{
		ledger:    ledger,
		generator: generator,
		repo:      repo,
		log:       log.NewHelper(logger),
	}
}

// Generate 余额不足 1 时直接返回 402，不调用模型；生成失败不扣费
func (uc *RunwayPromptUseCase) Generate(ctx context.Context, req *RunwayPromptRequest) (*RunwayPromptResult, error) {
	if req.Image == nil || len(req.Image.Data) == 0 {
		return nil, describeErrors.ErrInvalidArgument("No image provided")
	}
	if req.Mode == "" {
		req.Mode = constants.RunwayModeRunway
	}

	balance, err := uc.ledger.GetBalance(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if balance < constants.RunwayPromptCost {
		return nil, describeErrors.ErrInsufficientCredits(balance)
	}
	if !req.Image.IsImage() {
		return nil, describeErrors.ErrInvalidArgument("Unsupported media type")
	}

	clauses, err := uc.generator.Generate(ctx, req.Image)
	if err != nil {
		uc.log.Warnf("generate runway prompts failed: user_id=%s, filename=%s, error=%v", req.UserID, req.Image.Filename, err)
		return nil, err
	}

	res, err := uc.ledger.CheckAndDeduct(context.WithoutCancel(ctx), req.UserID, constants.RunwayPromptCost,
		fmt.Sprintf("Runway prompt: %s", req.Image.Filename))
	if err != nil {
		return nil, err
	}
	if !res.OK {
		return nil, describeErrors.ErrInsufficientCredits(res.Remaining)
	}

	prompts := &MotionClauses{
		Low:    BuildRunwayPrompt(constants.MotionLow, clauses.Low),
		Medium: BuildRunwayPrompt(constants.MotionMedium, clauses.Medium),
		High:   BuildRunwayPrompt(constants.MotionHigh, clauses.High),
	}
	if !req.SkipHistory {
		uc.saveHistory(context.WithoutCancel(ctx), req, prompts)
	}
	return &RunwayPromptResult{
		Low:              prompts.Low,
		Medium:           prompts.Medium,
		High:             prompts.High,
		CreditsRemaining: res.Remaining,
	}, nil
}

// saveHistory 历史写入失败不影响本次结果
func (uc *RunwayPromptUseCase) saveHistory(ctx context.Context, req *RunwayPromptRequest, prompts *MotionClauses) {
	record := &RunwayPromptRecord{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Filename:  req.Image.Filename,
		Mode:      req.Mode,
		FileSize:  int64(len(req.Image.Data)),
		MimeType:  req.Image.MimeType,
		CreatedAt: time.Now(),
	}
	if req.Mode == constants.RunwayModeRunway {
		record.Prompts = prompts
	}
	if err := uc.repo.Create(ctx, record); err != nil {
		uc.log.Errorf("save runway prompt history failed: user_id=%s, filename=%s, error=%v", req.UserID, req.Image.Filename, err)
	}
}

var leadingArticle = regexp.MustCompile(`(?i)^(the|a|an)\b`)

// BuildRunwayPrompt 按运动强度加上镜头运动，空描述返回空字符串
func BuildRunwayPrompt(motion, clause string) string {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return ""
	}
	if !leadingArticle.MatchString(clause) {
		clause = "the subject " + clause
	}

	var prefix string
	switch motion {
	case constants.MotionLow:
		prefix = "a smooth dolly camera moves slowly toward "
	case constants.MotionHigh:
		prefix = "a dynamic handheld camera moves quickly toward "
	default:
		prefix = "a steady tracking camera moves forward toward "
	}
	return strings.Join(strings.Fields(prefix+clause+" cinematic live-action"), " ")
}
