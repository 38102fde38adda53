package service

import (
	"context"
	"io"
	"net/http"

	"describe-service/internal/auth"
	"describe-service/internal/biz"
	"describe-service/internal/conf"
	describeErrors "describe-service/internal/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

type runwayPromptReply struct {
	Low              string `json:"low"`
	Medium           string `json:"medium"`
	High             string `json:"high"`
	CreditsRemaining int64  `json:"creditsRemaining"`
}

// RunwayService 图片生成视频提示词接口
type RunwayService struct {
	uc             *biz.RunwayPromptUseCase
	verifier       *auth.TokenVerifier
	maxUploadBytes int64
	log            *log.Helper
}

// NewRunwayService 创建 RunwayService
func NewRunwayService(c *conf.Bootstrap, uc *biz.RunwayPromptUseCase, verifier *auth.TokenVerifier, logger log.Logger) *RunwayService {
	s := &RunwayService{
		uc:       uc,
		verifier: verifier,
		log:      log.NewHelper(logger),
	}
	if c != nil && c.Describe != nil {
		s.maxUploadBytes = c.Describe.MaxUploadBytes
	}
	return s
}

// Generate POST /v1/runway-prompt
// multipart 字段：image（必填）、mode（默认 runway）、skipHistory（"true" 时不保存历史）
func (s *RunwayService) Generate(ctx khttp.Context) error {
	r := ctx.Request()
	id, err := s.verifier.FromRequest(r)
	if err != nil {
		return replyError(ctx, err)
	}
	req, err := s.parseRequest(ctx, id.UserID)
	if err != nil {
		return replyError(ctx, err)
	}
	return handle(ctx, func(c context.Context) (interface{}, error) {
		res, err := s.uc.Generate(c, req)
		if err != nil {
			return nil, err
		}
		return &runwayPromptReply{
			Low:              res.Low,
			Medium:           res.Medium,
			High:             res.High,
			CreditsRemaining: res.CreditsRemaining,
		}, nil
	})
}

func (s *RunwayService) parseRequest(ctx khttp.Context, userID string) (*biz.RunwayPromptRequest, error) {
	r := ctx.Request()
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(ctx.Response(), r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, describeErrors.ErrUploadFailed(err)
	}
	defer r.MultipartForm.RemoveAll()

	req := &biz.RunwayPromptRequest{
		UserID:      userID,
		Mode:        r.FormValue("mode"),
		SkipHistory: r.FormValue("skipHistory") == "true",
	}
	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		return req, nil
	}
	f, err := files[0].Open()
	if err != nil {
		return nil, describeErrors.ErrUploadFailed(err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, describeErrors.ErrUploadFailed(err)
	}
	req.Image = &biz.Image{
		Filename: files[0].Filename,
		MimeType: mimetype.Detect(data).String(),
		Data:     data,
	}
	return req, nil
}
