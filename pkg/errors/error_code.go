package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrderIntent   ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeInvalidSessionWindow ErrorCode = 104
	ErrCodeMissingParameter     ErrorCode = 105

	// Market data errors (200-299)
	ErrCodeTickFetchFailed  ErrorCode = 200
	ErrCodeTickParseFailed  ErrorCode = 201
	ErrCodeSymbolNotTracked ErrorCode = 202

	// Strategy errors (300-399)
	ErrCodeStrategyNotFound      ErrorCode = 300
	ErrCodeStrategyAlreadyExists ErrorCode = 301
	ErrCodeStrategyLoadFailed    ErrorCode = 302
	ErrCodeStrategyRuntimeError  ErrorCode = 303
	ErrCodeStrategyNotRunning    ErrorCode = 304

	// Engine errors (400-499)
	ErrCodeEngineStartupFailed  ErrorCode = 400
	ErrCodeEngineNotRunning     ErrorCode = 401
	ErrCodeEngineAlreadyRunning ErrorCode = 402

	// Signal errors (500-599)
	ErrCodeSignalDeliveryFailed ErrorCode = 500
	ErrCodeSignalRejected       ErrorCode = 501
	ErrCodeTradeStreamFailed    ErrorCode = 502

	// Position errors (600-699)
	ErrCodePositionQueryFailed ErrorCode = 600
	ErrCodePositionLimitHit    ErrorCode = 601
)
