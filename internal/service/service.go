package service

import (
	"context"
	"encoding/json"
	"net/http"

	"describe-service/internal/auth"

	"github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	auth.NewTokenVerifier,
	NewDescribeService,
	NewCreditService,
	NewAdminService,
	NewRunwayService,
)

// errorReply 错误响应 {"error": "..."}
type errorReply struct {
	Error string `json:"error"`
}

// statusOf 错误对应的 HTTP 状态码和对外信息（不包含底层原因）
func statusOf(err error) (int, string) {
	e := errors.FromError(err)
	code := int(e.Code)
	if code < 400 || code > 599 {
		code = http.StatusInternalServerError
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(code)
	}
	return code, msg
}

// replyError 用于 kratos 路由
func replyError(ctx khttp.Context, err error) error {
	code, msg := statusOf(err)
	return ctx.JSON(code, errorReply{Error: msg})
}

// writeError 用于原生 http.Handler
func writeError(w http.ResponseWriter, err error) {
	code, msg := statusOf(err)
	writeJSON(w, code, errorReply{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// handle 通过服务端中间件（recovery 等）执行 fn，并输出 JSON
func handle(ctx khttp.Context, fn func(ctx context.Context) (interface{}, error)) error {
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		return fn(c)
	})
	out, err := h(ctx, nil)
	if err != nil {
		return replyError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, out)
}
