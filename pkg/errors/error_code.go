package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 102
	ErrCodeInvalidType          ErrorCode = 103
	ErrCodeInsufficientData     ErrorCode = 104
	ErrCodeInvalidWeights       ErrorCode = 105
	ErrCodeInvalidVersion       ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeHistoricalDataFailed  ErrorCode = 203
	ErrCodeCacheFailed           ErrorCode = 204

	// Strategy / rule errors (400-499)
	ErrCodeStrategyConfigError ErrorCode = 400
	ErrCodeUnknownCondition    ErrorCode = 401
	ErrCodeMalformedStrategy   ErrorCode = 402
	ErrCodeVersionMismatch     ErrorCode = 403
	ErrCodeStrategyInactive    ErrorCode = 404

	// Computation errors (600-699)
	ErrCodeComputation        ErrorCode = 600
	ErrCodeNumericOverflow    ErrorCode = 601
	ErrCodeSimulationFailed   ErrorCode = 602
	ErrCodeEvaluationAborted  ErrorCode = 603
	ErrCodeEvaluationCanceled ErrorCode = 604

	// Signal lifecycle errors (700-799)
	ErrCodeSignalNotFound     ErrorCode = 700
	ErrCodeSignalNotActive    ErrorCode = 701
	ErrCodeSignalStoreFailed  ErrorCode = 702
	ErrCodeDistributionFailed ErrorCode = 703
)
