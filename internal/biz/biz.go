package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewDescribeConfig,
	NewCreditLedgerUseCase,
	NewBatchProcessor,
	NewDescribeUseCase,
	NewUsageUseCase,
	NewRunwayPromptUseCase,
	NewMaintenanceUseCase,
)
