package constants

// 时间格式常量
const (
	// TimeFormatMonth 月份格式 (YYYY-MM)
	TimeFormatMonth = "2006-01"
	// TimeFormatArtifact 批处理文件名中的时间戳格式
	TimeFormatArtifact = "20060102-150405"
)

// Redis Key 前缀常量
const (
	// RedisKeySession 批处理进度会话 key 前缀
	RedisKeySession = "describe:session:"
	// RedisKeyReconcileLock 对账任务锁 key
	RedisKeyReconcileLock = "describe:lock:reconcile"
	// RedisKeyCleanupLock 文件清理任务锁 key
	RedisKeyCleanupLock = "describe:lock:cleanup"
)

// 额度类型常量
const (
	// CreditKindGeneral 通用额度（图片描述等）
	CreditKindGeneral = "general"
	// CreditKindBgRemoval 去背景额度
	CreditKindBgRemoval = "bg_removal"
)

// 额度流水类型常量（封闭集合）
const (
	// TransactionTypeAdminAdjustment 管理员调整
	TransactionTypeAdminAdjustment = "ADMIN_ADJUSTMENT"
	// TransactionTypeProcessingDebit 处理扣费
	TransactionTypeProcessingDebit = "PROCESSING_DEBIT"
	// TransactionTypePurchase 购买
	TransactionTypePurchase = "PURCHASE"
	// TransactionTypeRefund 退款
	TransactionTypeRefund = "REFUND"
)

// 用户角色常量
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// 描述服务提供方常量
const (
	ProviderIdeogram = "ideogram"
	ProviderGemini   = "gemini"
)

// 视频提示词常量
const (
	// RunwayPromptCost 每次生成消耗的通用额度
	RunwayPromptCost = 1
	// RunwayModeRunway 默认模式，历史记录保存三档提示词
	RunwayModeRunway = "runway"
	// MotionLow / MotionMedium / MotionHigh 运动强度
	MotionLow    = "low"
	MotionMedium = "medium"
	MotionHigh   = "high"
)

// 批处理操作类型常量
const (
	// BatchOperationDescribe 批量描述
	BatchOperationDescribe = "describe"
)

// 扣费结果原因常量
const (
	// DeductReasonInsufficient 额度不足
	DeductReasonInsufficient = "insufficient"
)

// 单项处理结果常量（用于指标）
const (
	ItemResultSuccess      = "success"
	ItemResultFailed       = "failed"
	ItemResultInsufficient = "insufficient_credits"
	ItemResultCancelled    = "cancelled"
)

// 流事件类型常量
const (
	EventTypeProgress = "progress"
	EventTypeComplete = "complete"
	EventTypeError    = "error"
)

// 扣费结果常量（用于指标）
const (
	DeductResultOK           = "ok"
	DeductResultInsufficient = "insufficient"
	DeductResultError        = "error"
)

// 单项失败原因常量
const (
	// ItemErrorInsufficientCredits 额度不足
	ItemErrorInsufficientCredits = "insufficient credits"
	// ItemErrorCancelled 调用方已断开
	ItemErrorCancelled = "cancelled"
	// ItemErrorUnsupportedMedia 非图片文件
	ItemErrorUnsupportedMedia = "unsupported media type"
	// ItemErrorUserNotFound 用户不存在
	ItemErrorUserNotFound = "user not found"
)

// 默认值常量
const (
	DefaultItemCost          = 1
	DefaultConfidence        = 95
	DefaultMaxImages         = 100
	DefaultTransactionsLimit = 100
)
