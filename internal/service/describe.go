package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"describe-service/internal/auth"
	"describe-service/internal/biz"
	"describe-service/internal/conf"
	"describe-service/internal/constants"
	describeErrors "describe-service/internal/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-contrib/sse"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const multipartMemory = 32 << 20

// itemReply 单张图片的结果
type itemReply struct {
	Type             string `json:"type,omitempty"`
	Index            int    `json:"index"`
	Success          bool   `json:"success"`
	Status           string `json:"status"`
	Filename         string `json:"filename"`
	Description      string `json:"description,omitempty"`
	Confidence       int    `json:"confidence,omitempty"`
	Source           string `json:"source,omitempty"`
	RemainingCredits *int64 `json:"remainingCredits,omitempty"`
	Error            string `json:"error,omitempty"`
}

type summaryReply struct {
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []*itemReply `json:"results"`
}

// completeReply 流式接口的最后一个事件，也是非流式接口的响应
type completeReply struct {
	Type         string        `json:"type"`
	SessionID    string        `json:"sessionId"`
	Summary      *summaryReply `json:"summary"`
	BatchFileURL string        `json:"batchFileUrl,omitempty"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type batchOperationReply struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	ItemCount int       `json:"itemCount"`
	FileURL   string    `json:"fileUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// DescribeService 批量图片描述接口
type DescribeService struct {
	uc             *biz.DescribeUseCase
	verifier       *auth.TokenVerifier
	maxUploadBytes int64
	log            *log.Helper
}

// NewDescribeService 创建 DescribeService
func NewDescribeService(c *conf.Bootstrap, uc *biz.DescribeUseCase, verifier *auth.TokenVerifier, logger log.Logger) *DescribeService {
	s := &DescribeService{
		uc:       uc,
		verifier: verifier,
		log:      log.NewHelper(logger),
	}
	if c != nil && c.Describe != nil {
		s.maxUploadBytes = c.Describe.MaxUploadBytes
	}
	return s
}

// StreamBulk POST /v1/describe/bulk
// 校验失败返回 JSON 错误；开始处理后以 text/event-stream 输出每张图片的进度，最后输出 complete 或 error。
func (s *DescribeService) StreamBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorReply{Error: "Method not allowed"})
		return
	}
	id, err := s.verifier.FromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, describeErrors.ErrStreamingUnsupported())
		return
	}

	ctx := r.Context()
	req, err := s.parseBatch(w, r, id.UserID)
	if err != nil {
		s.log.Warnf("bulk describe rejected: user_id=%s, error=%v", id.UserID, err)
		writeError(w, err)
		return
	}
	session, err := s.uc.Start(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := &eventStream{w: w, flusher: flusher, log: s.log}
	events := make(chan *biz.ItemResult)
	done := make(chan runResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Errorf("bulk describe panic: session_id=%s, panic=%v", session.ID, rec)
				done <- runResult{err: describeErrors.ErrProcessingFailed(fmt.Errorf("%v", rec))}
			}
		}()
		outcome, err := s.uc.Run(ctx, session, req, events)
		done <- runResult{outcome: outcome, err: err}
	}()

	// 调用方断开后也要读完，处理协程才能结束
	for item := range events {
		reply := toItemReply(item)
		reply.Type = constants.EventTypeProgress
		stream.send(reply)
	}

	res := <-done
	if res.err != nil {
		s.log.Errorf("bulk describe failed: session_id=%s, user_id=%s, error=%v", session.ID, id.UserID, res.err)
		stream.send(&errorEvent{Type: constants.EventTypeError, Error: describeErrors.Message(res.err)})
		return
	}
	stream.send(toCompleteReply(res.outcome))
}

// Describe POST /v1/describe
// 与流式接口相同的处理流程，结束后一次性返回 complete 结果。
func (s *DescribeService) Describe(ctx khttp.Context) error {
	r := ctx.Request()
	id, err := s.verifier.FromRequest(r)
	if err != nil {
		return replyError(ctx, err)
	}
	req, err := s.parseBatch(ctx.Response(), r, id.UserID)
	if err != nil {
		return replyError(ctx, err)
	}
	return handle(ctx, func(c context.Context) (interface{}, error) {
		outcome, err := s.uc.Describe(c, req)
		if err != nil {
			return nil, err
		}
		return toCompleteReply(outcome), nil
	})
}

// GetSession GET /v1/describe/sessions/{id}
func (s *DescribeService) GetSession(ctx khttp.Context) error {
	id, err := s.verifier.FromRequest(ctx.Request())
	if err != nil {
		return replyError(ctx, err)
	}
	sessionID := ctx.Vars().Get("id")
	return handle(ctx, func(c context.Context) (interface{}, error) {
		return s.uc.GetSession(c, id.UserID, sessionID)
	})
}

// ListBatches GET /v1/describe/batches
func (s *DescribeService) ListBatches(ctx khttp.Context) error {
	id, err := s.verifier.FromRequest(ctx.Request())
	if err != nil {
		return replyError(ctx, err)
	}
	return handle(ctx, func(c context.Context) (interface{}, error) {
		ops, err := s.uc.ListBatchOperations(c, id.UserID, 0)
		if err != nil {
			return nil, err
		}
		out := make([]*batchOperationReply, 0, len(ops))
		for _, op := range ops {
			out = append(out, &batchOperationReply{
				ID:        op.ID,
				Type:      op.Type,
				ItemCount: op.ItemCount,
				FileURL:   op.FileURL,
				CreatedAt: op.CreatedAt,
			})
		}
		return out, nil
	})
}

// parseBatch 读取 multipart 中的 images 和 aiProvider，按内容识别 MIME 类型
func (s *DescribeService) parseBatch(w http.ResponseWriter, r *http.Request, userID string) (*biz.BatchRequest, error) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, describeErrors.ErrUploadFailed(err)
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		return nil, describeErrors.ErrNoImages()
	}

	req := &biz.BatchRequest{
		UserID:   userID,
		Provider: r.FormValue("aiProvider"),
		Images:   make([]*biz.Image, 0, len(files)),
	}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, describeErrors.ErrUploadFailed(err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, describeErrors.ErrUploadFailed(err)
		}
		req.Images = append(req.Images, &biz.Image{
			Filename: fh.Filename,
			MimeType: mimetype.Detect(data).String(),
			Data:     data,
		})
	}
	if err := s.uc.Validate(req); err != nil {
		return nil, err
	}
	return req, nil
}

type runResult struct {
	outcome *biz.BatchOutcome
	err     error
}

// eventStream SSE 输出，写失败后不再写入
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	broken  bool
	log     *log.Helper
}

func (e *eventStream) send(v interface{}) {
	if e.broken {
		return
	}
	if err := sse.Encode(e.w, sse.Event{Data: v}); err != nil {
		e.broken = true
		e.log.Infof("event stream closed by client: %v", err)
		return
	}
	e.flusher.Flush()
}

func toItemReply(item *biz.ItemResult) *itemReply {
	return &itemReply{
		Index:            item.Index,
		Success:          item.Success(),
		Status:           string(item.Status),
		Filename:         item.Filename,
		Description:      item.Description,
		Confidence:       item.Confidence,
		Source:           item.Source,
		RemainingCredits: item.RemainingCredits,
		Error:            item.Error,
	}
}

func toCompleteReply(outcome *biz.BatchOutcome) *completeReply {
	summary := &summaryReply{
		Total:      outcome.Summary.Total,
		Successful: outcome.Summary.Successful,
		Failed:     outcome.Summary.Failed,
		Results:    make([]*itemReply, 0, len(outcome.Summary.Results)),
	}
	for _, r := range outcome.Summary.Results {
		summary.Results = append(summary.Results, toItemReply(r))
	}
	return &completeReply{
		Type:         constants.EventTypeComplete,
		SessionID:    outcome.SessionID,
		Summary:      summary,
		BatchFileURL: outcome.BatchFileURL,
	}
}
