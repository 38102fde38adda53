package errors

import (
	"fmt"
	"strconv"

	"github.com/go-kratos/kratos/v2/errors"
)

// Describe Service 错误原因定义
// 对外统一使用 kratos errors，reason 用于调用方判断，code 对应 HTTP 状态码。
//
// 模块划分：
//   额度模块：USER_NOT_FOUND / INSUFFICIENT_CREDITS / LEDGER_UNAVAILABLE
//   请求模块：UNAUTHORIZED / NO_IMAGES / TOO_MANY_IMAGES / UNKNOWN_PROVIDER / INVALID_ARGUMENT
//             UPLOAD_FAILED / STREAMING_FAILED
//   处理模块：PROVIDER_NOT_CONFIGURED / DESCRIBE_FAILED / ARTIFACT_FAILED / PROCESSING_FAILED
//             PROMPT_FAILED
//   会话模块：SESSION_NOT_FOUND / SESSION_STORE_FAILED

// 额度模块
const (
	// ReasonUserNotFound 用户不存在
	ReasonUserNotFound = "USER_NOT_FOUND"
	// ReasonInsufficientCredits 额度不足
	ReasonInsufficientCredits = "INSUFFICIENT_CREDITS"
	// ReasonLedgerUnavailable 额度存储不可用
	ReasonLedgerUnavailable = "LEDGER_UNAVAILABLE"
)

// 请求模块
const (
	ReasonUnauthorized    = "UNAUTHORIZED"
	ReasonNoImages        = "NO_IMAGES"
	ReasonTooManyImages   = "TOO_MANY_IMAGES"
	ReasonUnknownProvider = "UNKNOWN_PROVIDER"
	ReasonInvalidArgument = "INVALID_ARGUMENT"
	ReasonUploadFailed    = "UPLOAD_FAILED"
	ReasonStreamingFailed = "STREAMING_FAILED"
)

// 处理模块
const (
	ReasonProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	ReasonDescribeFailed        = "DESCRIBE_FAILED"
	ReasonArtifactFailed        = "ARTIFACT_FAILED"
	ReasonProcessingFailed      = "PROCESSING_FAILED"
	ReasonPromptFailed          = "PROMPT_FAILED"
)

// 会话模块
const (
	ReasonSessionNotFound    = "SESSION_NOT_FOUND"
	ReasonSessionStoreFailed = "SESSION_STORE_FAILED"
)

func ErrUserNotFound(userID string) *errors.Error {
	return errors.NotFound(ReasonUserNotFound, "user not found").
		WithMetadata(map[string]string{"user_id": userID})
}

func ErrInsufficientCredits(remaining int64) *errors.Error {
	return errors.New(402, ReasonInsufficientCredits, "insufficient credits").
		WithMetadata(map[string]string{"remaining": strconv.FormatInt(remaining, 10)})
}

func ErrLedgerUnavailable(cause error) *errors.Error {
	return errors.ServiceUnavailable(ReasonLedgerUnavailable, "credit ledger unavailable").WithCause(cause)
}

func ErrUnauthorized() *errors.Error {
	return errors.Unauthorized(ReasonUnauthorized, "Unauthorized")
}

func ErrNoImages() *errors.Error {
	return errors.BadRequest(ReasonNoImages, "No images provided")
}

func ErrTooManyImages(max int) *errors.Error {
	return errors.BadRequest(ReasonTooManyImages, fmt.Sprintf("Too many images, at most %d per batch", max))
}

func ErrUnknownProvider(provider string) *errors.Error {
	return errors.BadRequest(ReasonUnknownProvider, fmt.Sprintf("Unknown AI provider: %s", provider))
}

func ErrInvalidArgument(message string) *errors.Error {
	return errors.BadRequest(ReasonInvalidArgument, message)
}

func ErrUploadFailed(cause error) *errors.Error {
	return errors.InternalServer(ReasonUploadFailed, "Failed to start processing").WithCause(cause)
}

func ErrStreamingUnsupported() *errors.Error {
	return errors.InternalServer(ReasonStreamingFailed, "Streaming unsupported")
}

func ErrProviderNotConfigured(provider string) *errors.Error {
	return errors.InternalServer(ReasonProviderNotConfigured, fmt.Sprintf("%s API key not configured. Please ask admin to add it.", provider))
}

func ErrDescribeFailed(provider string, cause error) *errors.Error {
	return errors.InternalServer(ReasonDescribeFailed, fmt.Sprintf("%s describe failed", provider)).WithCause(cause)
}

func ErrArtifactFailed(cause error) *errors.Error {
	return errors.InternalServer(ReasonArtifactFailed, "failed to generate batch file").WithCause(cause)
}

func ErrProcessingFailed(cause error) *errors.Error {
	return errors.InternalServer(ReasonProcessingFailed, "Processing failed").WithCause(cause)
}

func ErrPromptFailed(cause error) *errors.Error {
	return errors.InternalServer(ReasonPromptFailed, "Failed to generate runway prompts").WithCause(cause)
}

func ErrSessionNotFound(sessionID string) *errors.Error {
	return errors.NotFound(ReasonSessionNotFound, "session not found").
		WithMetadata(map[string]string{"session_id": sessionID})
}

func ErrSessionStoreFailed(cause error) *errors.Error {
	return errors.InternalServer(ReasonSessionStoreFailed, "session store failed").WithCause(cause)
}

// IsUserNotFound 判断是否为用户不存在
func IsUserNotFound(err error) bool {
	return errors.Reason(err) == ReasonUserNotFound
}

// IsInsufficientCredits 判断是否为额度不足
func IsInsufficientCredits(err error) bool {
	return errors.Reason(err) == ReasonInsufficientCredits
}

// IsLedgerUnavailable 判断是否为额度存储不可用
func IsLedgerUnavailable(err error) bool {
	return errors.Reason(err) == ReasonLedgerUnavailable
}

// IsSessionNotFound 判断是否为会话不存在
func IsSessionNotFound(err error) bool {
	return errors.Reason(err) == ReasonSessionNotFound
}

// Message 返回面向调用方的错误信息，不包含 cause，cause 只写日志
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
