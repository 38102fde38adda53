package biz

import (
	"context"
	"fmt"
	"time"

	"describe-service/internal/constants"
	describeErrors "describe-service/internal/errors"
	"describe-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// ItemStatus 单项处理结果
type ItemStatus string

const (
	ItemSuccess             ItemStatus = constants.ItemResultSuccess
	ItemFailed              ItemStatus = constants.ItemResultFailed
	ItemInsufficientCredits ItemStatus = constants.ItemResultInsufficient
	ItemCancelled           ItemStatus = constants.ItemResultCancelled
)

// ItemResult 单张图片的处理结果，每张图片恰好产生一个
type ItemResult struct {
	Index            int
	Filename         string
	Status           ItemStatus
	Description      string
	Confidence       int
	Source           string
	Error            string
	RemainingCredits *int64
}

// Success 是否处理成功
func (r *ItemResult) Success() bool {
	return r.Status == ItemSuccess
}

// BatchSummary 批处理汇总
type BatchSummary struct {
	Total      int
	Successful int
	Failed     int
	Results    []*ItemResult
}

// SuccessfulResults 返回成功的结果（按序号）
func (s *BatchSummary) SuccessfulResults() []*ItemResult {
	out := make([]*ItemResult, 0, s.Successful)
	for _, r := range s.Results {
		if r.Success() {
			out = append(out, r)
		}
	}
	return out
}

func (s *BatchSummary) add(r *ItemResult) {
	s.Results = append(s.Results, r)
	if r.Success() {
		s.Successful++
	} else {
		s.Failed++
	}
}

// ProcessOptions 批处理选项
type ProcessOptions struct {
	Provider                  string
	StopOnInsufficientCredits bool
	ItemCost                  int64
}

// batchStop 终止批处理时，剩余图片统一使用的结果
type batchStop struct {
	status    ItemStatus
	reason    string
	remaining *int64
}

// BatchProcessor 顺序处理一批图片：检查额度、调用描述服务、成功后扣费
type BatchProcessor struct {
	ledger     *CreditLedgerUseCase
	describers DescriberRegistry
	config     *DescribeConfig
	log        *log.Helper
	metrics    *metrics.DescribeMetrics
}

// NewBatchProcessor 创建批处理器
func NewBatchProcessor(ledger *CreditLedgerUseCase, describers DescriberRegistry, config *DescribeConfig, logger log.Logger) *BatchProcessor {
	return &BatchProcessor{
		ledger:     ledger,
		describers: describers,
		config:     config,
		log:        log.NewHelper(logger),
		metrics:    metrics.GetMetrics(),
	}
}

// Process 按顺序处理图片，每处理完一张就向 events 写入一个结果，结束时关闭 events。
// events 为 nil 时只返回汇总。
func (p *BatchProcessor) Process(ctx context.Context, userID string, images []*Image, opts ProcessOptions, events chan<- *ItemResult) *BatchSummary {
	if events != nil {
		defer close(events)
	}
	if opts.ItemCost <= 0 {
		opts.ItemCost = constants.DefaultItemCost
	}

	summary := &BatchSummary{
		Total:   len(images),
		Results: make([]*ItemResult, 0, len(images)),
	}
	emit := func(r *ItemResult) {
		summary.add(r)
		if p.metrics != nil {
			p.metrics.ItemTotal.WithLabelValues(opts.Provider, string(r.Status)).Inc()
		}
		if events != nil {
			events <- r
		}
	}

	describer, describerErr := p.describers.Get(opts.Provider)
	for i, img := range images {
		if ctx.Err() != nil {
			p.log.Infof("batch cancelled: user_id=%s, processed=%d, total=%d", userID, i, len(images))
			p.fillRemaining(images, i, &batchStop{status: ItemCancelled, reason: constants.ItemErrorCancelled}, emit)
			break
		}
		if describerErr != nil {
			emit(failedItem(i, img, describeErrors.Message(describerErr)))
			continue
		}

		result, stop := p.processItem(ctx, userID, i, img, describer, opts)
		emit(result)
		if stop != nil {
			p.fillRemaining(images, i+1, stop, emit)
			break
		}
	}
	return summary
}

func (p *BatchProcessor) processItem(ctx context.Context, userID string, index int, img *Image, describer Describer, opts ProcessOptions) (*ItemResult, *batchStop) {
	balance, err := p.ledger.GetBalance(ctx, userID)
	if err != nil {
		if describeErrors.IsUserNotFound(err) {
			return failedItem(index, img, constants.ItemErrorUserNotFound),
				&batchStop{status: ItemFailed, reason: constants.ItemErrorUserNotFound}
		}
		p.log.Warnf("read balance failed: user_id=%s, filename=%s, error=%v", userID, img.Filename, err)
		return failedItem(index, img, describeErrors.Message(err)), nil
	}
	if balance < opts.ItemCost {
		return p.insufficient(index, img, balance, opts)
	}

	if !img.IsImage() {
		return failedItem(index, img, constants.ItemErrorUnsupportedMedia), nil
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if p.config != nil && p.config.ItemTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, p.config.ItemTimeout)
	}
	startTime := time.Now()
	desc, err := describer.Describe(callCtx, img)
	cancel()
	if p.metrics != nil {
		p.metrics.ItemDuration.WithLabelValues(opts.Provider).Observe(time.Since(startTime).Seconds())
	}
	if err != nil {
		p.log.Warnf("describe failed: user_id=%s, filename=%s, provider=%s, error=%v", userID, img.Filename, opts.Provider, err)
		return failedItem(index, img, describeErrors.Message(err)), nil
	}

	// 描述已经拿到，调用方断开也要完成扣费
	res, err := p.ledger.CheckAndDeduct(context.WithoutCancel(ctx), userID, opts.ItemCost,
		fmt.Sprintf("Image description: %s (%s)", img.Filename, opts.Provider))
	if err != nil {
		if describeErrors.IsUserNotFound(err) {
			return failedItem(index, img, constants.ItemErrorUserNotFound),
				&batchStop{status: ItemFailed, reason: constants.ItemErrorUserNotFound}
		}
		return failedItem(index, img, describeErrors.Message(err)), nil
	}
	if !res.OK {
		return p.insufficient(index, img, res.Remaining, opts)
	}
	if p.metrics != nil {
		p.metrics.DeductAmount.WithLabelValues(opts.Provider).Add(float64(opts.ItemCost))
	}

	source := desc.Source
	if source == "" {
		source = opts.Provider
	}
	confidence := desc.Confidence
	if confidence <= 0 {
		confidence = constants.DefaultConfidence
		if p.config != nil && p.config.DefaultConfidence > 0 {
			confidence = p.config.DefaultConfidence
		}
	}
	remaining := res.Remaining
	return &ItemResult{
		Index:            index,
		Filename:         img.Filename,
		Status:           ItemSuccess,
		Description:      desc.Text,
		Confidence:       confidence,
		Source:           source,
		RemainingCredits: &remaining,
	}, nil
}

func (p *BatchProcessor) insufficient(index int, img *Image, remaining int64, opts ProcessOptions) (*ItemResult, *batchStop) {
	r := &ItemResult{
		Index:            index,
		Filename:         img.Filename,
		Status:           ItemInsufficientCredits,
		Error:            constants.ItemErrorInsufficientCredits,
		RemainingCredits: &remaining,
	}
	if !opts.StopOnInsufficientCredits {
		return r, nil
	}
	return r, &batchStop{status: ItemInsufficientCredits, reason: constants.ItemErrorInsufficientCredits, remaining: &remaining}
}

// fillRemaining 为 from 之后的所有图片生成同一结果，不再调用外部服务
func (p *BatchProcessor) fillRemaining(images []*Image, from int, stop *batchStop, emit func(*ItemResult)) {
	for i := from; i < len(images); i++ {
		emit(&ItemResult{
			Index:            i,
			Filename:         images[i].Filename,
			Status:           stop.status,
			Error:            stop.reason,
			RemainingCredits: stop.remaining,
		})
	}
}

func failedItem(index int, img *Image, msg string) *ItemResult {
	return &ItemResult{
		Index:    index,
		Filename: img.Filename,
		Status:   ItemFailed,
		Error:    msg,
	}
}
