package biz

import (
	"context"
	"fmt"
	"time"

	"describe-service/internal/constants"
	describeErrors "describe-service/internal/errors"
	"describe-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Session 进行中的批处理进度
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Provider   string    `json:"provider"`
	Total      int       `json:"total"`
	Processed  int       `json:"processed"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"startedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SessionRepo 进度会话存储接口
type SessionRepo interface {
	Create(ctx context.Context, s *Session) error
	Update(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// BatchOperation 批处理记录
type BatchOperation struct {
	ID        string
	UserID    string
	Type      string
	ItemCount int
	FileURL   string
	CreatedAt time.Time
}

// BatchOperationRepo 批处理记录数据层接口
type BatchOperationRepo interface {
	Create(ctx context.Context, op *BatchOperation) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*BatchOperation, error)
}

// ArtifactRow 结果文件中的一行
type ArtifactRow struct {
	Filename    string
	Description string
	Confidence  int
	Source      string
}

// ArtifactGenerator 结果文件生成，返回空字符串表示未生成
type ArtifactGenerator interface {
	Generate(ctx context.Context, rows []*ArtifactRow, at time.Time) (string, error)
}

// BatchCompletedEvent 批处理完成事件
type BatchCompletedEvent struct {
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Provider     string    `json:"provider"`
	Total        int       `json:"total"`
	Successful   int       `json:"successful"`
	Failed       int       `json:"failed"`
	CreditsSpent int64     `json:"credits_spent"`
	BatchFileURL string    `json:"batch_file_url,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}

// EventPublisher 批处理完成事件发布
type EventPublisher interface {
	PublishBatchCompleted(ctx context.Context, event *BatchCompletedEvent) error
}

// BatchRequest 批处理请求
type BatchRequest struct {
	UserID   string
	Provider string
	Images   []*Image
}

// BatchOutcome 批处理最终结果
type BatchOutcome struct {
	SessionID    string
	Summary      *BatchSummary
	BatchFileURL string
}

type processResult struct {
	summary *BatchSummary
	err     error
}

// DescribeUseCase 批量图片描述流程：会话、处理、结果文件和批处理记录
type DescribeUseCase struct {
	processor  *BatchProcessor
	describers DescriberRegistry
	sessions   SessionRepo
	operations BatchOperationRepo
	artifacts  ArtifactGenerator
	publisher  EventPublisher
	config     *DescribeConfig
	log        *log.Helper
	metrics    *metrics.DescribeMetrics
}

// NewDescribeUseCase 创建批量描述 UseCase
func NewDescribeUseCase(
	processor *BatchProcessor,
	describers DescriberRegistry,
	sessions SessionRepo,
	operations BatchOperationRepo,
	artifacts ArtifactGenerator,
	publisher EventPublisher,
	config *DescribeConfig,
	logger log.Logger,
) *DescribeUseCase {
	return &DescribeUseCase{
		processor:  processor,
		describers: describers,
		sessions:   sessions,
		operations: operations,
		artifacts:  artifacts,
		publisher:  publisher,
		config:     config,
		log:        log.NewHelper(logger),
		metrics:    metrics.GetMetrics(),
	}
}

// Validate 校验请求，失败时不产生任何副作用
func (uc *DescribeUseCase) Validate(req *BatchRequest) error {
	if req.Provider == "" {
		req.Provider = uc.config.DefaultProvider
	}
	if len(req.Images) == 0 {
		return describeErrors.ErrNoImages()
	}
	if uc.config.MaxImages > 0 && len(req.Images) > uc.config.MaxImages {
		return describeErrors.ErrTooManyImages(uc.config.MaxImages)
	}
	if _, err := uc.describers.Get(req.Provider); err != nil {
		return err
	}
	return nil
}

// Start 校验请求并登记会话。返回的会话必须交给 Run，由 Run 负责释放。
func (uc *DescribeUseCase) Start(ctx context.Context, req *BatchRequest) (*Session, error) {
	if err := uc.Validate(req); err != nil {
		return nil, err
	}
	now := time.Now()
	session := &Session{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Provider:  req.Provider,
		Total:     len(req.Images),
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := uc.sessions.Create(ctx, session); err != nil {
		uc.log.Errorf("create session failed: user_id=%s, error=%v", req.UserID, err)
		return nil, describeErrors.ErrSessionStoreFailed(err)
	}
	if uc.metrics != nil {
		uc.metrics.ActiveSessions.Inc()
		uc.metrics.BatchItems.Observe(float64(len(req.Images)))
	}
	uc.log.Infof("batch started: session_id=%s, user_id=%s, provider=%s, images=%d", session.ID, req.UserID, req.Provider, len(req.Images))
	return session, nil
}

// Run 处理整批图片，把每个结果按顺序转发到 events，结束时关闭 events（可为 nil）。
// 无论成功、出错还是 panic，会话都会被删除。
func (uc *DescribeUseCase) Run(ctx context.Context, session *Session, req *BatchRequest, events chan<- *ItemResult) (outcome *BatchOutcome, err error) {
	if events != nil {
		defer close(events)
	}
	defer uc.release(ctx, session)
	defer func() {
		result := constants.EventTypeComplete
		if err != nil {
			result = constants.EventTypeError
		}
		if uc.metrics != nil {
			uc.metrics.BatchTotal.WithLabelValues(result).Inc()
		}
	}()

	opts := uc.config.Options(req.Provider)
	items := make(chan *ItemResult)
	done := make(chan processResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				uc.log.Errorf("batch processing panic: session_id=%s, panic=%v", session.ID, r)
				done <- processResult{err: describeErrors.ErrProcessingFailed(fmt.Errorf("batch processing panic: %v", r))}
			}
		}()
		done <- processResult{summary: uc.processor.Process(ctx, req.UserID, req.Images, opts, items)}
	}()

	for item := range items {
		uc.track(ctx, session, item)
		if events != nil {
			events <- item
		}
	}
	res := <-done
	if res.err != nil {
		return nil, res.err
	}

	outcome = &BatchOutcome{SessionID: session.ID, Summary: res.summary}
	// 调用方断开后仍然保存结果文件和批处理记录
	finalCtx := context.WithoutCancel(ctx)
	outcome.BatchFileURL = uc.finalize(finalCtx, req.UserID, res.summary)
	uc.publish(finalCtx, session, opts, outcome)

	uc.log.Infof("batch completed: session_id=%s, user_id=%s, total=%d, successful=%d, failed=%d",
		session.ID, req.UserID, res.summary.Total, res.summary.Successful, res.summary.Failed)
	return outcome, nil
}

// Describe 非流式处理：Start + Run
func (uc *DescribeUseCase) Describe(ctx context.Context, req *BatchRequest) (*BatchOutcome, error) {
	session, err := uc.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return uc.Run(ctx, session, req, nil)
}

// GetSession 获取会话进度，只允许会话所属用户查看
func (uc *DescribeUseCase) GetSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	s, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, describeErrors.ErrSessionNotFound(sessionID)
	}
	return s, nil
}

// ListBatchOperations 获取用户的批处理记录
func (uc *DescribeUseCase) ListBatchOperations(ctx context.Context, userID string, limit int) ([]*BatchOperation, error) {
	if limit <= 0 || limit > constants.DefaultTransactionsLimit {
		limit = constants.DefaultTransactionsLimit
	}
	return uc.operations.ListByUser(ctx, userID, limit)
}

func (uc *DescribeUseCase) track(ctx context.Context, session *Session, item *ItemResult) {
	session.Processed++
	if item.Success() {
		session.Successful++
	} else {
		session.Failed++
	}
	session.UpdatedAt = time.Now()
	if err := uc.sessions.Update(ctx, session); err != nil {
		uc.log.Warnf("update session failed: session_id=%s, error=%v", session.ID, err)
	}
}

func (uc *DescribeUseCase) release(ctx context.Context, session *Session) {
	if uc.metrics != nil {
		uc.metrics.ActiveSessions.Dec()
	}
	if err := uc.sessions.Delete(context.WithoutCancel(ctx), session.ID); err != nil {
		uc.log.Warnf("delete session failed: session_id=%s, error=%v", session.ID, err)
	}
}

// finalize 生成结果文件并保存批处理记录，失败只记录日志
func (uc *DescribeUseCase) finalize(ctx context.Context, userID string, summary *BatchSummary) string {
	if summary.Successful == 0 {
		return ""
	}
	successful := summary.SuccessfulResults()
	rows := make([]*ArtifactRow, 0, len(successful))
	for _, r := range successful {
		rows = append(rows, &ArtifactRow{
			Filename:    r.Filename,
			Description: r.Description,
			Confidence:  r.Confidence,
			Source:      r.Source,
		})
	}

	url, err := uc.artifacts.Generate(ctx, rows, time.Now())
	if err != nil {
		uc.log.Errorf("generate batch file failed: user_id=%s, error=%v", userID, describeErrors.ErrArtifactFailed(err))
		if uc.metrics != nil {
			uc.metrics.ArtifactTotal.WithLabelValues("error").Inc()
		}
		return ""
	}
	if url == "" {
		return ""
	}
	if uc.metrics != nil {
		uc.metrics.ArtifactTotal.WithLabelValues("success").Inc()
	}

	op := &BatchOperation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      constants.BatchOperationDescribe,
		ItemCount: summary.Successful,
		FileURL:   url,
		CreatedAt: time.Now(),
	}
	if err := uc.operations.Create(ctx, op); err != nil {
		uc.log.Errorf("save batch operation failed: user_id=%s, file_url=%s, error=%v", userID, url, err)
	}
	return url
}

func (uc *DescribeUseCase) publish(ctx context.Context, session *Session, opts ProcessOptions, outcome *BatchOutcome) {
	if uc.publisher == nil {
		return
	}
	event := &BatchCompletedEvent{
		SessionID:    session.ID,
		UserID:       session.UserID,
		Provider:     opts.Provider,
		Total:        outcome.Summary.Total,
		Successful:   outcome.Summary.Successful,
		Failed:       outcome.Summary.Failed,
		CreditsSpent: int64(outcome.Summary.Successful) * opts.ItemCost,
		BatchFileURL: outcome.BatchFileURL,
		CompletedAt:  time.Now(),
	}
	result := "success"
	if err := uc.publisher.PublishBatchCompleted(ctx, event); err != nil {
		result = "error"
		uc.log.Warnf("publish batch completed event failed: session_id=%s, error=%v", session.ID, err)
	}
	if uc.metrics != nil {
		uc.metrics.EventPublish.WithLabelValues(result).Inc()
	}
}
